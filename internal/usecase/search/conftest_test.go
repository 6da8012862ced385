package search

import (
	"context"
	"sync/atomic"

	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/domain/record"
	"github.com/kailas-cloud/qtext/internal/domain/sparse"
)

type mockRepo struct {
	vectorIndex, sparseIndex bool

	vectorFn func(ctx context.Context, namespace string, vec []float32, limit int) ([]record.Hit, error)
	sparseFn func(ctx context.Context, namespace string, emb sparse.Embedding, limit int) ([]record.Hit, error)
	textFn   func(ctx context.Context, namespace, text string, limit int) ([]record.Hit, error)

	vectorCalls, sparseCalls, textCalls atomic.Int32
}

func (m *mockRepo) HasVectorIndex() bool { return m.vectorIndex }
func (m *mockRepo) HasSparseIndex() bool { return m.sparseIndex }

func (m *mockRepo) Vector(ctx context.Context, namespace string, vec []float32, limit int) ([]record.Hit, error) {
	m.vectorCalls.Add(1)
	if m.vectorFn != nil {
		return m.vectorFn(ctx, namespace, vec, limit)
	}
	return nil, nil
}

func (m *mockRepo) Sparse(ctx context.Context, namespace string, emb sparse.Embedding, limit int) ([]record.Hit, error) {
	m.sparseCalls.Add(1)
	if m.sparseFn != nil {
		return m.sparseFn(ctx, namespace, emb, limit)
	}
	return nil, nil
}

func (m *mockRepo) Text(ctx context.Context, namespace, text string, limit int) ([]record.Hit, error) {
	m.textCalls.Add(1)
	if m.textFn != nil {
		return m.textFn(ctx, namespace, text, limit)
	}
	return nil, nil
}

// mockRanker keeps input order unless rankFn is set.
type mockRanker struct {
	rankFn    func(ctx context.Context, q record.Record, docs []record.Record) ([]record.Record, error)
	lastQuery record.Record
	lastDocs  []record.Record
}

func (m *mockRanker) RankRecords(ctx context.Context, q record.Record, docs []record.Record) ([]record.Record, error) {
	m.lastQuery, m.lastDocs = q, docs
	if m.rankFn != nil {
		return m.rankFn(ctx, q, docs)
	}
	return docs, nil
}

type mockEmbedder struct {
	vec   []float32
	err   error
	calls atomic.Int32
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type mockSparse struct {
	out   []sparse.Embedding
	err   error
	calls atomic.Int32
}

func (m *mockSparse) SparseEmbed(_ context.Context, _ []string) ([]sparse.Embedding, error) {
	m.calls.Add(1)
	return m.out, m.err
}

func hits(ids ...string) []record.Hit {
	out := make([]record.Hit, len(ids))
	for i, id := range ids {
		out[i] = record.Hit{Record: record.New(id, "doc "+id), Rank: float64(i+1) / 10}
	}
	return out
}
