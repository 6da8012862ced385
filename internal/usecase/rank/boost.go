package rank

import (
	"context"

	"github.com/kailas-cloud/qtext/internal/domain/record"
)

// DefaultTitleRatio is the title share in both boost strategies.
const DefaultTitleRatio = 0.7

// minDistance replaces non-positive dense distances (an exact match on
// normalized vectors) so VectorBoost never divides by zero. Sparse distances
// arrive strictly positive.
const minDistance = 1e-6

func titleRatio(r float64) float64 {
	if r <= 0 || r > 1 {
		return DefaultTitleRatio
	}
	return r
}

// KeywordBoost scores by lexical relevance times the document boost.
type KeywordBoost struct {
	ratio float64
}

// NewKeywordBoost creates a keyword strategy. An out-of-range ratio means DefaultTitleRatio.
func NewKeywordBoost(ratio float64) *KeywordBoost {
	return &KeywordBoost{ratio: titleRatio(ratio)}
}

// Score implements Ranker.
func (k *KeywordBoost) Score(_ context.Context, _ record.Record, docs []record.Record) ([]float64, error) {
	out := make([]float64, len(docs))
	for i, doc := range docs {
		if doc.HasTitleBM25 {
			out[i] = (doc.TitleBM25*k.ratio + doc.ContentBM25*(1-k.ratio)) * doc.Boost
		} else {
			out[i] = doc.ContentBM25 * doc.Boost
		}
	}
	return out, nil
}

// Rank implements Ranker.
func (k *KeywordBoost) Rank(ctx context.Context, query record.Record, docs []record.Record) ([]record.Record, error) {
	return byScore(ctx, k, query, docs)
}

// VectorBoost scores by inverse distance times the document boost.
type VectorBoost struct {
	ratio float64
}

// NewVectorBoost creates a vector strategy. An out-of-range ratio means DefaultTitleRatio.
func NewVectorBoost(ratio float64) *VectorBoost {
	return &VectorBoost{ratio: titleRatio(ratio)}
}

// Score implements Ranker.
func (v *VectorBoost) Score(_ context.Context, _ record.Record, docs []record.Record) ([]float64, error) {
	out := make([]float64, len(docs))
	for i, doc := range docs {
		dist := doc.VectorSim
		if doc.In(record.FromSparse) {
			dist = doc.TitleSim*v.ratio + doc.VectorSim*(1-v.ratio)
		}
		if dist <= 0 {
			dist = minDistance
		}
		out[i] = doc.Boost / dist
	}
	return out, nil
}

// Rank implements Ranker.
func (v *VectorBoost) Rank(ctx context.Context, query record.Record, docs []record.Record) ([]record.Record, error) {
	return byScore(ctx, v, query, docs)
}
