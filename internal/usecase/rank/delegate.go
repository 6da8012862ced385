package rank

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/domain/record"
)

// TextScorer is a remote relevance model: the cross-encoder or Cohere rerank.
// It returns one score per doc, in input order.
type TextScorer interface {
	ScoreTexts(ctx context.Context, query string, docs []string) ([]float64, error)
}

// Delegate ranks by the scores of a remote model and keeps the top k (0 = all).
type Delegate struct {
	name   string
	client TextScorer
	topK   int
}

// NewDelegate creates a strategy backed by client.
func NewDelegate(name string, client TextScorer, topK int) *Delegate {
	return &Delegate{name: name, client: client, topK: topK}
}

// Score implements Ranker.
func (d *Delegate) Score(ctx context.Context, query record.Record, docs []record.Record) ([]float64, error) {
	if len(docs) == 0 {
		return []float64{}, nil
	}
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}
	scores, err := d.client.ScoreTexts(ctx, query.Text, texts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.name, err)
	}
	if len(scores) != len(docs) {
		return nil, &domain.CollaboratorError{
			Service: d.name,
			Detail:  fmt.Sprintf("expected %d scores, got %d", len(docs), len(scores)),
		}
	}
	return scores, nil
}

// Rank implements Ranker.
func (d *Delegate) Rank(ctx context.Context, query record.Record, docs []record.Record) ([]record.Record, error) {
	out, err := byScore(ctx, d, query, docs)
	if err != nil {
		return nil, err
	}
	if d.topK > 0 && d.topK < len(out) {
		out = out[:d.topK]
	}
	return out, nil
}
