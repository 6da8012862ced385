// Package query holds the validated hybrid query request.
package query

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/domain/sparse"
)

// Query parameter limits.
const (
	// MaxQueryLength is the maximum allowed query text length.
	MaxQueryLength = 4096
	DefaultLimit   = 10
	MaxLimit       = 1000
)

// Request is a validated hybrid query.
type Request struct {
	namespace string
	text      string
	limit     int
	vector    []float32
	sparse    *sparse.Embedding
	metadata  map[string]any
}

// New validates and normalizes query parameters. limit=0 means DefaultLimit.
// vector and sv are optional; when absent they are computed from text.
func New(
	namespace, text string,
	limit int,
	vector []float32,
	sv *sparse.Embedding,
	metadata map[string]any,
) (Request, error) {
	if strings.TrimSpace(namespace) == "" {
		return Request{}, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrNamespaceRequired)
	}
	if strings.TrimSpace(text) == "" {
		return Request{}, domain.NewValidationError("query", "is required")
	}
	if len(text) > MaxQueryLength {
		return Request{}, domain.NewValidationError("query", fmt.Sprintf("too long (max %d chars)", MaxQueryLength))
	}
	switch {
	case limit < 0:
		return Request{}, domain.NewValidationError("limit", "must be positive")
	case limit == 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		return Request{}, domain.NewValidationError("limit", fmt.Sprintf("must be at most %d", MaxLimit))
	}
	if len(vector) == 0 {
		vector = nil
	}
	if sv != nil && sv.IsZero() {
		sv = nil
	}

	return Request{
		namespace: namespace,
		text:      text,
		limit:     limit,
		vector:    vector,
		sparse:    sv,
		metadata:  metadata,
	}, nil
}

// Namespace returns the target namespace.
func (r Request) Namespace() string { return r.namespace }

// Text returns the query text.
func (r Request) Text() string { return r.text }

// Limit returns the per-modality candidate limit.
func (r Request) Limit() int { return r.limit }

// Vector returns the dense query vector, nil when it must be computed.
func (r Request) Vector() []float32 { return r.vector }

// Sparse returns the sparse query vector, nil when it must be computed.
func (r Request) Sparse() *sparse.Embedding { return r.sparse }

// Metadata returns client metadata. Logged, never interpreted.
func (r Request) Metadata() map[string]any { return r.metadata }

// WithVector returns a copy carrying the resolved dense vector.
func (r Request) WithVector(v []float32) Request {
	r.vector = v
	return r
}

// WithSparse returns a copy carrying the resolved sparse vector.
func (r Request) WithSparse(sv sparse.Embedding) Request {
	r.sparse = &sv
	return r
}
