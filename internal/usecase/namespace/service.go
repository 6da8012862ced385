// Package namespace creates namespaces: one table per namespace, shaped by the schema.
package namespace

import (
	"context"
	"fmt"
	"regexp"

	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/domain/sparse"
)

// MaxNameLength is the Postgres identifier limit.
const MaxNameLength = 63

var nameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Service handles namespace creation.
type Service struct {
	repo             Repository
	defaultVectorDim int
	defaultSparseDim int
}

// New creates a namespace service. The defaults replace a zero dimension in
// the request, normally the configured embedding dimensions.
func New(repo Repository, defaultVectorDim, defaultSparseDim int) *Service {
	return &Service{repo: repo, defaultVectorDim: defaultVectorDim, defaultSparseDim: defaultSparseDim}
}

// Create validates the name and dimensions and creates the namespace.
// A dimension the schema needs that is still zero surfaces as
// domain.ErrConfiguration from storage.
func (s *Service) Create(ctx context.Context, name string, vectorDim, sparseDim int) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if vectorDim < 0 {
		return domain.NewValidationError("vector_dim", "must not be negative")
	}
	if sparseDim < 0 {
		return domain.NewValidationError("sparse_vector_dim", "must not be negative")
	}
	if sparseDim > sparse.MaxDim {
		return domain.NewValidationError("sparse_vector_dim", fmt.Sprintf("must not exceed %d", sparse.MaxDim))
	}
	if vectorDim == 0 {
		vectorDim = s.defaultVectorDim
	}
	if sparseDim == 0 {
		sparseDim = s.defaultSparseDim
	}

	if err := s.repo.Create(ctx, name, vectorDim, sparseDim); err != nil {
		return fmt.Errorf("add namespace: %w", err)
	}
	return nil
}

// ValidateName checks a namespace name is a plain identifier.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrNamespaceRequired)
	}
	if len(name) > MaxNameLength {
		return domain.NewValidationError("name", fmt.Sprintf("must be at most %d characters", MaxNameLength))
	}
	if !nameRegex.MatchString(name) {
		return domain.NewValidationError("name", "must contain only letters, digits and underscores and not start with a digit")
	}
	return nil
}
