package rank

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/qtext/internal/domain/record"
)

// Hybrid multiplies the TimeDecay, VectorBoost and KeywordBoost scores.
type Hybrid struct {
	decay   *TimeDecay
	vector  *VectorBoost
	keyword *KeywordBoost
}

// NewHybrid creates the default strategy.
func NewHybrid(decayRate, titleRatio float64) *Hybrid {
	return &Hybrid{
		decay:   NewTimeDecay(decayRate),
		vector:  NewVectorBoost(titleRatio),
		keyword: NewKeywordBoost(titleRatio),
	}
}

// Score implements Ranker.
func (h *Hybrid) Score(ctx context.Context, query record.Record, docs []record.Record) ([]float64, error) {
	parts := []scorer{h.decay, h.vector, h.keyword}
	out := make([]float64, len(docs))
	for i := range out {
		out[i] = 1
	}
	for _, p := range parts {
		scores, err := p.Score(ctx, query, docs)
		if err != nil {
			return nil, fmt.Errorf("hybrid: %w", err)
		}
		for i, s := range scores {
			out[i] *= s
		}
	}
	return out, nil
}

// Rank implements Ranker.
func (h *Hybrid) Rank(ctx context.Context, query record.Record, docs []record.Record) ([]record.Record, error) {
	return byScore(ctx, h, query, docs)
}
