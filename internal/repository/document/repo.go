package document

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/qtext/internal/db"
	domdoc "github.com/kailas-cloud/qtext/internal/domain/document"
)

// store is the consumer interface for document insertion (ISP).
type store interface {
	Insert(ctx context.Context, name string, values map[string]any) error
}

// Repo implements usecase/document.Repository.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Insert writes one complete document in its own transaction.
func (r *Repo) Insert(ctx context.Context, namespace string, doc domdoc.Document) error {
	if err := r.store.Insert(ctx, namespace, doc.Values()); err != nil {
		return db.AsStorage(fmt.Errorf("insert into %s: %w", namespace, err))
	}
	return nil
}
