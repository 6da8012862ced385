package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/domain/query"
	"github.com/kailas-cloud/qtext/internal/domain/sparse"
	highlightuc "github.com/kailas-cloud/qtext/internal/usecase/highlight"
)

// maxBodyBytes caps request bodies; a document carries at most a 160KB text
// plus its vectors.
const maxBodyBytes = 4 << 20

type namespaceRequest struct {
	Name            string `json:"name"`
	VectorDim       int    `json:"vector_dim"`
	SparseVectorDim int    `json:"sparse_vector_dim"`
}

type queryRequest struct {
	Namespace    string            `json:"namespace"`
	Query        string            `json:"query"`
	Limit        int               `json:"limit"`
	Vector       []float32         `json:"vector"`
	SparseVector *sparse.Embedding `json:"sparse_vector"`
	Metadata     map[string]any    `json:"metadata"`
}

func (q queryRequest) toDomain() (query.Request, error) {
	return query.New(q.Namespace, q.Query, q.Limit, q.Vector, q.SparseVector, q.Metadata)
}

type highlightRequest struct {
	Query           string   `json:"query"`
	Docs            []string `json:"docs"`
	Threshold       *float64 `json:"threshold"`
	IgnoreStopwords *bool    `json:"ignore_stopwords"`
	Template        string   `json:"template"`
}

func (h highlightRequest) toDomain() (highlightuc.Request, error) {
	return highlightuc.NewRequest(h.Query, h.Docs, h.Threshold, h.IgnoreStopwords, h.Template)
}

type highlightResponse struct {
	Highlighted []string `json:"highlighted"`
}

// decodeJSON strictly decodes one JSON value from the body. Unknown fields,
// trailing data and type mismatches are validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("body", "must not be empty")
		}
		return domain.NewValidationError("body", err.Error())
	}
	if dec.More() {
		return domain.NewValidationError("body", "must contain a single JSON object")
	}
	return nil
}

// splitDocument pulls the namespace out of a document body; the rest are
// schema fields.
func splitDocument(body map[string]any) (string, map[string]any, error) {
	raw, ok := body["namespace"]
	if !ok {
		return "", nil, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrNamespaceRequired)
	}
	ns, ok := raw.(string)
	if !ok {
		return "", nil, domain.NewValidationError("namespace", "must be a string")
	}
	fields := make(map[string]any, len(body)-1)
	for k, v := range body {
		if k != "namespace" {
			fields[k] = v
		}
	}
	return ns, fields, nil
}
