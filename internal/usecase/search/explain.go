package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/qtext/internal/domain/explain"
	"github.com/kailas-cloud/qtext/internal/domain/query"
	"github.com/kailas-cloud/qtext/internal/domain/record"
)

// Explain runs the query like Query and reports each modality's results and
// elapsed time, plus the ranked order with per-modality provenance. Vector
// resolution is not timed; the ranked elapsed time spans retrieval through
// ranking, so the concurrent per-modality times overlap inside it.
func (s *Service) Explain(ctx context.Context, req query.Request) (explain.Result, error) {
	req, err := s.resolve(ctx, req)
	if err != nil {
		return explain.Result{}, err
	}

	start := time.Now()
	var t timings
	h, err := s.retrieve(ctx, req, &t)
	if err != nil {
		return explain.Result{}, err
	}

	vector, sparse, text := hitRecords(h.vector), hitRecords(h.sparse), hitRecords(h.text)
	ranked, err := s.rank(ctx, req, Combine(h.vector, h.sparse, h.text))
	if err != nil {
		return explain.Result{}, err
	}
	elapsed := time.Since(start).Seconds()

	return explain.Result{
		Vector: explain.NewSnapshot(vector, t.vector),
		Sparse: explain.NewSnapshot(sparse, t.sparse),
		Text:   explain.NewSnapshot(text, t.text),
		Ranked: explain.NewRanked(ranked, elapsed,
			record.IDs(h.vector), record.IDs(h.sparse), record.IDs(h.text)),
	}, nil
}

func hitRecords(hs []record.Hit) []record.Record {
	out := make([]record.Record, len(hs))
	for i, h := range hs {
		out[i] = h.Record
	}
	return out
}
