// Package sparse is the client of the sparse (SPLADE-style) embedding service.
package sparse

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/domain/sparse"
	"github.com/kailas-cloud/qtext/internal/transport/inference"
)

const path = "/inference"

// Client posts texts as a JSON list and reads one {dim, indices, values} per text.
type Client struct {
	http *inference.Client
	dim  int
}

// New creates a sparse embedding client. dim > 0 enforces the returned dimension.
func New(http *inference.Client, dim int) *Client {
	return &Client{http: http, dim: dim}
}

// SparseEmbed implements domain.SparseEmbedder.
func (c *Client) SparseEmbed(ctx context.Context, texts []string) ([]sparse.Embedding, error) {
	body, err := json.Marshal(texts)
	if err != nil {
		return nil, fmt.Errorf("encode sparse request: %w", err)
	}
	data, err := c.http.Post(ctx, path, "application/json", body)
	if err != nil {
		return nil, err //nolint:wrapcheck // already a CollaboratorError
	}

	var out []sparse.Embedding
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, c.http.Decode(err)
	}
	if len(out) != len(texts) {
		return nil, &domain.CollaboratorError{
			Service: c.http.Name(),
			Detail:  fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(out)),
		}
	}
	if c.dim > 0 {
		for i, e := range out {
			if e.Dim() != c.dim {
				return nil, &domain.CollaboratorError{
					Service: c.http.Name(),
					Detail:  fmt.Sprintf("embedding %d: dim %d, expected %d", i, e.Dim(), c.dim),
				}
			}
		}
	}
	return out, nil
}
