// Package highlight is the client of the token-similarity service used for
// semantic highlighting.
package highlight

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/transport/inference"
)

const path = "/inference"

// Client posts [query, doc...] and reads one token list per doc.
type Client struct {
	http *inference.Client
}

// New creates a highlight client.
func New(http *inference.Client) *Client {
	return &Client{http: http}
}

// ScoreTokens implements domain.TokenScorer.
func (c *Client) ScoreTokens(ctx context.Context, query string, docs []string) ([][]domain.TokenScore, error) {
	payload := make([]string, 0, len(docs)+1)
	payload = append(payload, query)
	payload = append(payload, docs...)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode highlight request: %w", err)
	}

	data, err := c.http.Post(ctx, path, "application/json", body)
	if err != nil {
		return nil, err //nolint:wrapcheck // already a CollaboratorError
	}

	var out [][]domain.TokenScore
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, c.http.Decode(err)
	}
	if len(out) != len(docs) {
		return nil, &domain.CollaboratorError{
			Service: c.http.Name(),
			Detail:  fmt.Sprintf("expected %d token lists, got %d", len(docs), len(out)),
		}
	}
	return out, nil
}
