package qtext

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors matched by *APIError via errors.Is.
var (
	ErrValidation   = errors.New("qtext: validation error")
	ErrUnauthorized = errors.New("qtext: unauthorized")
	ErrServer       = errors.New("qtext: server error")
	// ErrUnavailable is also ErrServer: an upstream model is down or its
	// breaker is open.
	ErrUnavailable = errors.New("qtext: service unavailable")
)

// APIError is a non-2xx API response.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("qtext: http %d", e.StatusCode)
	}
	return fmt.Sprintf("qtext: http %d: %s", e.StatusCode, e.Message)
}

// Is maps the status code onto the sentinel errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.StatusCode == http.StatusUnprocessableEntity || e.StatusCode == http.StatusBadRequest
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrServer:
		return e.StatusCode >= http.StatusInternalServerError
	case ErrUnavailable:
		return e.StatusCode == http.StatusBadGateway || e.StatusCode == http.StatusServiceUnavailable
	}
	return false
}
