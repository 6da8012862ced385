package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/qtext/internal/db/postgres"
	"github.com/kailas-cloud/qtext/internal/domain/schema"
	"github.com/kailas-cloud/qtext/internal/domain/sparse"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	queryVectorFn func(ctx context.Context, name string, vec []float32, limit int) ([]postgres.Row, error)
	querySparseFn func(ctx context.Context, name string, emb sparse.Embedding, limit int) ([]postgres.Row, error)
	queryTextFn   func(ctx context.Context, name, tsquery string, limit int) ([]postgres.Row, error)
}

func (m *mockStore) QueryVector(ctx context.Context, name string, vec []float32, limit int) ([]postgres.Row, error) {
	if m.queryVectorFn != nil {
		return m.queryVectorFn(ctx, name, vec, limit)
	}
	return nil, nil
}

func (m *mockStore) QuerySparse(ctx context.Context, name string, emb sparse.Embedding, limit int) ([]postgres.Row, error) {
	if m.querySparseFn != nil {
		return m.querySparseFn(ctx, name, emb, limit)
	}
	return nil, nil
}

func (m *mockStore) QueryText(ctx context.Context, name, tsquery string, limit int) ([]postgres.Row, error) {
	if m.queryTextFn != nil {
		return m.queryTextFn(ctx, name, tsquery, limit)
	}
	return nil, nil
}

func newTestRepo(t *testing.T, s schema.Schema) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, s), ms
}
