package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration signals a setup that can never succeed: a missing
	// dimension, an empty ranking pipeline, or a strategy applied to documents
	// lacking the fields it needs.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation signals a malformed or semantically invalid request.
	ErrValidation = errors.New("validation error")
	// ErrInvalidSchema signals an invalid schema definition.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrStorage signals a failed storage operation (rolled back).
	ErrStorage = errors.New("storage error")
	// ErrCollaborator signals a failed call to an external inference service.
	ErrCollaborator = errors.New("collaborator error")
	// ErrCollaboratorUnavailable signals an open circuit breaker.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	// ErrNamespaceRequired signals a request without a namespace.
	ErrNamespaceRequired = errors.New("namespace is required")
)

// ValidationError describes a rejected request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a field-level validation error.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// CollaboratorError wraps ErrCollaborator with the service name and HTTP status (0 on transport failure).
type CollaboratorError struct {
	Service    string
	StatusCode int
	Detail     string
}

func (e *CollaboratorError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s: %s", ErrCollaborator.Error(), e.Service, e.Detail)
	}
	return fmt.Sprintf("%s: %s returned %d: %s", ErrCollaborator.Error(), e.Service, e.StatusCode, e.Detail)
}

func (e *CollaboratorError) Unwrap() error { return ErrCollaborator }

// Retryable reports whether the failure is worth another attempt
// (transport error or 5xx).
func (e *CollaboratorError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}
