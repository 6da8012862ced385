// Package crossencoder is the client of the cross-encoder scoring service.
// The wire format is msgpack.
package crossencoder

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/kailas-cloud/qtext/internal/transport/inference"
)

const (
	path        = "/inference"
	contentType = "application/msgpack"
)

type request struct {
	Query string   `msgpack:"query"`
	Docs  []string `msgpack:"docs"`
}

type response struct {
	Scores []float64 `msgpack:"scores"`
}

// Client scores (query, doc) pairs.
type Client struct {
	http *inference.Client
}

// New creates a cross-encoder client.
func New(http *inference.Client) *Client {
	return &Client{http: http}
}

// ScoreTexts returns one relevance score per doc.
func (c *Client) ScoreTexts(ctx context.Context, query string, docs []string) ([]float64, error) {
	body, err := msgpack.Marshal(request{Query: query, Docs: docs})
	if err != nil {
		return nil, fmt.Errorf("encode cross-encoder request: %w", err)
	}
	data, err := c.http.Post(ctx, path, contentType, body)
	if err != nil {
		return nil, err //nolint:wrapcheck // already a CollaboratorError
	}

	var resp response
	if err := msgpack.Unmarshal(data, &resp); err != nil {
		return nil, c.http.Decode(err)
	}
	return resp.Scores, nil
}
