package domain

import "context"

// TokenScore is the relevance of one word-piece token to the query.
// Continuation pieces start with "##".
type TokenScore struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// TokenScorer scores every token of each doc against the query.
type TokenScorer interface {
	ScoreTokens(ctx context.Context, query string, docs []string) ([][]TokenScore, error)
}
