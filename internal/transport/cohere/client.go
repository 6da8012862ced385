// Package cohere is a client of the Cohere rerank API.
package cohere

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/transport/inference"
)

// DefaultBaseURL is the public Cohere endpoint.
const DefaultBaseURL = "https://api.cohere.ai"

const path = "/v1/rerank"

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Client reranks documents with a Cohere model. The http client is expected
// to carry the bearer key header.
type Client struct {
	http  *inference.Client
	model string
}

// New creates a Cohere client.
func New(http *inference.Client, model string) *Client {
	return &Client{http: http, model: model}
}

// ScoreTexts returns the relevance score of each doc in input order.
// Cohere returns results sorted by relevance; they are mapped back by index.
// Documents missing from the reply get -Inf.
func (c *Client) ScoreTexts(ctx context.Context, query string, docs []string) ([]float64, error) {
	body, err := json.Marshal(rerankRequest{Model: c.model, Query: query, Documents: docs, TopN: len(docs)})
	if err != nil {
		return nil, fmt.Errorf("encode rerank request: %w", err)
	}
	data, err := c.http.Post(ctx, path, "application/json", body)
	if err != nil {
		return nil, err //nolint:wrapcheck // already a CollaboratorError
	}

	var resp rerankResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, c.http.Decode(err)
	}

	scores := make([]float64, len(docs))
	for i := range scores {
		scores[i] = math.Inf(-1)
	}
	for _, r := range resp.Results {
		if r.Index < 0 || r.Index >= len(docs) {
			return nil, &domain.CollaboratorError{
				Service: c.http.Name(),
				Detail:  fmt.Sprintf("result index %d out of range", r.Index),
			}
		}
		scores[r.Index] = r.RelevanceScore
	}
	return scores, nil
}
