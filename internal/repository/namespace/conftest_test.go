package namespace

import (
	"context"
	"testing"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	createNamespaceFn func(ctx context.Context, name string, vectorDim, sparseDim int) error
}

func (m *mockStore) CreateNamespace(ctx context.Context, name string, vectorDim, sparseDim int) error {
	if m.createNamespaceFn != nil {
		return m.createNamespaceFn(ctx, name, vectorDim, sparseDim)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}
