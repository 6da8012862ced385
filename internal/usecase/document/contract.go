package document

import (
	"context"

	"github.com/kailas-cloud/qtext/internal/domain"
	domdoc "github.com/kailas-cloud/qtext/internal/domain/document"
	"github.com/kailas-cloud/qtext/internal/domain/sparse"
)

// Repository defines the storage contract for documents.
type Repository interface {
	Insert(ctx context.Context, namespace string, doc domdoc.Document) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// SparseEmbedder produces sparse lexical vectors.
type SparseEmbedder interface {
	SparseEmbed(ctx context.Context, texts []string) ([]sparse.Embedding, error)
}
