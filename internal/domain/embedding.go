package domain

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/qtext/internal/domain/sparse"
)

// Embedder is the shared dense vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// SparseEmbedder produces sparse lexical vectors.
type SparseEmbedder interface {
	SparseEmbed(ctx context.Context, texts []string) ([]sparse.Embedding, error)
}

// HealthChecker verifies collaborator availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// SparseOne embeds a single text and checks the collaborator returned exactly one vector.
func SparseOne(ctx context.Context, e SparseEmbedder, text string) (sparse.Embedding, error) {
	out, err := e.SparseEmbed(ctx, []string{text})
	if err != nil {
		return sparse.Embedding{}, fmt.Errorf("sparse embed: %w", err)
	}
	if len(out) != 1 {
		return sparse.Embedding{}, &CollaboratorError{
			Service: "sparse",
			Detail:  fmt.Sprintf("expected 1 embedding, got %d", len(out)),
		}
	}
	return out[0], nil
}

// InstructionEmbedder is a domain decorator that prepends instruction text before embedding.
// Models such as e5 expect "query: " / "passage: " prefixes.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder creates a decorator that prepends instruction text.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed prepends instruction and delegates to inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}
