package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kailas-cloud/qtext/internal/domain"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeValidationFailed        = "validation_failed"
	CodeUnauthorized            = "unauthorized"
	CodeCollaboratorError       = "collaborator_error"
	CodeCollaboratorUnavailable = "collaborator_unavailable"
	CodeInternalError           = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		validationHandler,
		// breaker errors also wrap the collaborator failure that tripped them
		sentinelHandler(domain.ErrCollaboratorUnavailable,
			http.StatusServiceUnavailable, CodeCollaboratorUnavailable),
		collaboratorHandler,
	}
}

// validationHandler maps ErrValidation and ErrInvalidSchema to 422 with a
// readable message. Validation detail is client input, safe to echo.
func validationHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrValidation) && !errors.Is(err, domain.ErrInvalidSchema) {
		return false
	}
	detail := err.Error()
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		detail = ve.Error()
	case errors.Is(err, domain.ErrNamespaceRequired):
		detail = domain.ErrNamespaceRequired.Error()
	}
	writeError(w, http.StatusUnprocessableEntity, CodeValidationFailed, "Validation error: "+detail)
	return true
}

// collaboratorHandler maps inference failures to 502 naming only the service.
func collaboratorHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrCollaborator) {
		return false
	}
	msg := domain.ErrCollaborator.Error()
	var ce *domain.CollaboratorError
	if errors.As(err, &ce) && ce.Service != "" {
		msg += ": " + ce.Service
	}
	writeError(w, http.StatusBadGateway, CodeCollaboratorError, msg)
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
