package rank

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/domain/record"
)

// DefaultDecayRate is the gravity exponent of TimeDecay.
const DefaultDecayRate = 1.8

// TimeDecay penalizes old documents: score / (2 + hours)^rate.
type TimeDecay struct {
	rate float64
	now  func() time.Time
}

// NewTimeDecay creates a decay strategy. rate <= 0 means DefaultDecayRate.
func NewTimeDecay(rate float64) *TimeDecay {
	if rate <= 0 {
		rate = DefaultDecayRate
	}
	return &TimeDecay{rate: rate, now: time.Now}
}

// Score implements Ranker.
func (d *TimeDecay) Score(_ context.Context, _ record.Record, docs []record.Record) ([]float64, error) {
	now := d.now()
	out := make([]float64, len(docs))
	for i, doc := range docs {
		if doc.UpdatedAt == nil {
			return nil, fmt.Errorf("%w: time decay: document %q has no updated_at", domain.ErrConfiguration, doc.ID)
		}
		hours := math.Max(now.Sub(*doc.UpdatedAt).Hours(), 0)
		out[i] = doc.Score / math.Pow(2+hours, d.rate)
	}
	return out, nil
}

// Rank implements Ranker.
func (d *TimeDecay) Rank(ctx context.Context, query record.Record, docs []record.Record) ([]record.Record, error) {
	return byScore(ctx, d, query, docs)
}
