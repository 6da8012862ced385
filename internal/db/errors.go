package db

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/qtext/internal/domain"
)

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
	// ErrRoleAbsent signals a modality query against a schema without that index.
	ErrRoleAbsent = errors.New("db: index role absent from schema")
)

// Op constants name the storage operation for error context.
const (
	OpAddNamespace = "add namespace"
	OpAddDoc       = "add doc"
	OpQueryVector  = "query vector"
	OpQuerySparse  = "query sparse"
	OpQueryText    = "query text"
	OpPing         = "ping"
	OpGet          = "GET"
	OpSet          = "SET"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// AsStorage converts a *Error into "<op> failed: storage error" joined with
// the cause. Configuration errors and non-storage errors pass through.
func AsStorage(err error) error {
	var e *Error
	if err == nil || !errors.As(err, &e) || errors.Is(err, domain.ErrConfiguration) {
		return err
	}
	return errors.Join(fmt.Errorf("%s failed: %w", e.Op, domain.ErrStorage), err)
}
