package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/domain/sparse"
	"github.com/kailas-cloud/qtext/internal/metrics"
)

// Metric kinds.
const (
	KindDense  = "dense"
	KindSparse = "sparse"
)

// InstrumentedDense wraps a dense Embedder with request metrics and logging.
// Token counters live in transport/openai, next to the usage data.
type InstrumentedDense struct {
	inner  domain.Embedder
	model  string
	logger *zap.Logger
}

// NewInstrumentedDense wraps an embedder with observability.
func NewInstrumentedDense(inner domain.Embedder, model string, logger *zap.Logger) *InstrumentedDense {
	return &InstrumentedDense{inner: inner, model: model, logger: logger}
}

// Embed delegates to the inner embedder and records the outcome.
func (p *InstrumentedDense) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	duration := time.Since(start)
	observe(KindDense, p.model, duration, err)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

// HealthCheck forwards to the inner embedder when it supports it.
func (p *InstrumentedDense) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // pass-through
	}
	return nil
}

// InstrumentedSparse wraps a SparseEmbedder with request metrics and logging.
type InstrumentedSparse struct {
	inner  domain.SparseEmbedder
	model  string
	logger *zap.Logger
}

// NewInstrumentedSparse wraps a sparse embedder with observability.
func NewInstrumentedSparse(inner domain.SparseEmbedder, model string, logger *zap.Logger) *InstrumentedSparse {
	return &InstrumentedSparse{inner: inner, model: model, logger: logger}
}

// SparseEmbed delegates to the inner embedder and records the outcome.
func (p *InstrumentedSparse) SparseEmbed(ctx context.Context, texts []string) ([]sparse.Embedding, error) {
	start := time.Now()
	out, err := p.inner.SparseEmbed(ctx, texts)
	duration := time.Since(start)
	observe(KindSparse, p.model, duration, err)

	if err != nil {
		p.logger.Error("Sparse embedding request failed",
			zap.String("model", p.model),
			zap.Int("texts", len(texts)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, fmt.Errorf("sparse embed: %w", err)
	}

	nnz := 0
	for _, e := range out {
		nnz += len(e.Indices())
	}
	p.logger.Debug("Sparse embedding request completed",
		zap.String("model", p.model),
		zap.Int("texts", len(texts)),
		zap.Int("nonzero", nnz),
		zap.Duration("duration", duration),
	)
	return out, nil
}

func observe(kind, model string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues(kind, model, status).Inc()
	if err == nil {
		metrics.EmbeddingRequestDuration.WithLabelValues(kind, model).Observe(d.Seconds())
	}
}
