package document

import (
	"context"
	"testing"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	insertFn func(ctx context.Context, name string, values map[string]any) error
}

func (m *mockStore) Insert(ctx context.Context, name string, values map[string]any) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, name, values)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms), ms
}
