// Package rank orders merged records. Each strategy computes one score per
// document; a Pipeline chains strategies sequentially.
package rank

import (
	"context"
	"sort"

	"github.com/kailas-cloud/qtext/internal/domain/record"
)

// Ranker scores and orders documents for a query.
type Ranker interface {
	Score(ctx context.Context, query record.Record, docs []record.Record) ([]float64, error)
	Rank(ctx context.Context, query record.Record, docs []record.Record) ([]record.Record, error)
}

// scorer is the part a strategy has to implement; byScore supplies Rank.
type scorer interface {
	Score(ctx context.Context, query record.Record, docs []record.Record) ([]float64, error)
}

// byScore sorts docs stable-descending by the scores s computes. The stored
// Record.Score is left as is: later steps (TimeDecay) read it.
func byScore(ctx context.Context, s scorer, query record.Record, docs []record.Record) ([]record.Record, error) {
	scores, err := s.Score(ctx, query, docs)
	if err != nil {
		return nil, err //nolint:wrapcheck // strategy errors are already wrapped
	}
	return sortByScores(docs, scores), nil
}

func sortByScores(docs []record.Record, scores []float64) []record.Record {
	idx := make([]int, len(docs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })

	out := make([]record.Record, len(docs))
	for i, j := range idx {
		out[i] = docs[j]
	}
	return out
}
