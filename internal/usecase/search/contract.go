package search

import (
	"context"

	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/domain/record"
	"github.com/kailas-cloud/qtext/internal/domain/sparse"
)

// Repository defines the per-modality retrieval contract. A modality the
// schema does not index returns no hits.
type Repository interface {
	HasVectorIndex() bool
	HasSparseIndex() bool
	Vector(ctx context.Context, namespace string, vec []float32, limit int) ([]record.Hit, error)
	Sparse(ctx context.Context, namespace string, emb sparse.Embedding, limit int) ([]record.Hit, error)
	Text(ctx context.Context, namespace, text string, limit int) ([]record.Hit, error)
}

// Ranker orders merged records for a query.
type Ranker interface {
	RankRecords(ctx context.Context, query record.Record, docs []record.Record) ([]record.Record, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// SparseEmbedder produces sparse lexical vectors.
type SparseEmbedder interface {
	SparseEmbed(ctx context.Context, texts []string) ([]sparse.Embedding, error)
}
