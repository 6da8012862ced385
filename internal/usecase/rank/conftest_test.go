package rank

import (
	"context"
	"strconv"
	"time"

	"github.com/kailas-cloud/qtext/internal/domain/record"
)

type mockScorer struct {
	scoreFn func(ctx context.Context, query string, docs []string) ([]float64, error)
	calls   int
}

func (m *mockScorer) ScoreTexts(ctx context.Context, query string, docs []string) ([]float64, error) {
	m.calls++
	if m.scoreFn != nil {
		return m.scoreFn(ctx, query, docs)
	}
	out := make([]float64, len(docs))
	for i := range docs {
		out[i] = float64(len(docs[i]))
	}
	return out, nil
}

// fixedNow pins TimeDecay to a known clock.
func fixedNow(d *TimeDecay, now time.Time) *TimeDecay {
	d.now = func() time.Time { return now }
	return d
}

func rec(id string) record.Record {
	return record.New(id, "text "+id)
}

func withVector(id string, v ...float32) record.Record {
	r := rec(id)
	r.Vector = v
	return r
}

func aged(id string, now time.Time, hours int) record.Record {
	r := rec(id)
	ts := now.Add(-time.Duration(hours) * time.Hour)
	r.UpdatedAt = &ts
	return r
}

func ids(docs []record.Record) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func seq(n int) []record.Record {
	out := make([]record.Record, n)
	for i := range out {
		out[i] = rec(strconv.Itoa(i))
	}
	return out
}

// reverse is a test step that flips the input order.
type reverse struct{}

func (reverse) Score(_ context.Context, _ record.Record, docs []record.Record) ([]float64, error) {
	out := make([]float64, len(docs))
	for i := range docs {
		out[i] = float64(i)
	}
	return out, nil
}

func (r reverse) Rank(ctx context.Context, q record.Record, docs []record.Record) ([]record.Record, error) {
	return byScore(ctx, r, q, docs)
}
