package document

import (
	"context"
	"sync/atomic"

	"github.com/kailas-cloud/qtext/internal/domain"
	domdoc "github.com/kailas-cloud/qtext/internal/domain/document"
	"github.com/kailas-cloud/qtext/internal/domain/sparse"
)

type mockRepo struct {
	insertFn func(ctx context.Context, namespace string, doc domdoc.Document) error
	inserted []domdoc.Document
}

func (m *mockRepo) Insert(ctx context.Context, namespace string, doc domdoc.Document) error {
	if m.insertFn != nil {
		if err := m.insertFn(ctx, namespace, doc); err != nil {
			return err
		}
	}
	m.inserted = append(m.inserted, doc)
	return nil
}

type mockEmbedder struct {
	vec   []float32
	err   error
	calls atomic.Int32
	text  atomic.Value
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	m.text.Store(text)
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
