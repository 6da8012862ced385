package namespace

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/qtext/internal/db"
)

// store is the consumer interface for namespace DDL (ISP).
type store interface {
	CreateNamespace(ctx context.Context, name string, vectorDim, sparseDim int) error
}

// Repo implements usecase/namespace.Repository.
type Repo struct {
	store store
}

// New creates a namespace repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Create creates the namespace table and its indexes. Re-creating an
// existing namespace is a no-op (IF NOT EXISTS).
func (r *Repo) Create(ctx context.Context, name string, vectorDim, sparseDim int) error {
	if err := r.store.CreateNamespace(ctx, name, vectorDim, sparseDim); err != nil {
		return db.AsStorage(fmt.Errorf("create namespace %s: %w", name, err))
	}
	return nil
}
