package highlight

import (
	"context"

	"github.com/kailas-cloud/qtext/internal/domain"
)

// TokenScorer scores doc tokens against the query.
type TokenScorer interface {
	ScoreTokens(ctx context.Context, query string, docs []string) ([][]domain.TokenScore, error)
}
