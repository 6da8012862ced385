// Package document validates and coerces an ingestion field map against a schema.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/domain/schema"
	"github.com/kailas-cloud/qtext/internal/domain/schema/field"
	"github.com/kailas-cloud/qtext/internal/domain/sparse"
)

// MaxTextSize is the maximum size of one text field in bytes.
const MaxTextSize = 163840 // 160KB

// textField is the preferred embedding source.
const textField = "text"

// Document is one row to insert (immutable value object). Values are typed
// per field: string, int64, float64, time.Time, []float32 for the vector
// field, sparse.Embedding for the sparse field, []any / map[string]any for
// plain list / dict fields.
type Document struct {
	schema schema.Schema
	values map[string]any
}

// New validates raw against s. Unknown fields are rejected; null values count
// as absent. Required fields other than the vector and sparse columns must be
// present; those two may be filled later by the embedders.
func New(s schema.Schema, raw map[string]any) (Document, error) {
	values := make(map[string]any, len(raw))
	for name, v := range raw {
		f, ok := s.Field(name)
		if !ok {
			return Document{}, domain.NewValidationError(name, "unknown field")
		}
		if v == nil {
			continue
		}
		out, err := coerce(f, v)
		if err != nil {
			return Document{}, err
		}
		if out == nil {
			continue
		}
		values[name] = out
	}

	for _, f := range s.Fields() {
		if !f.IsRequired() || f.Has(field.VectorIndex) || f.Has(field.SparseIndex) {
			continue
		}
		if _, ok := values[f.Name()]; !ok {
			return Document{}, domain.NewValidationError(f.Name(), "is required")
		}
	}
	return Document{schema: s, values: values}, nil
}

// Values returns a copy of the typed column values.
func (d Document) Values() map[string]any {
	out := make(map[string]any, len(d.values))
	for k, v := range d.values {
		out[k] = v
	}
	return out
}

// Get returns one column value.
func (d Document) Get(name string) (any, bool) {
	v, ok := d.values[name]
	return v, ok
}

// NeedsVector reports whether the schema has a dense-vector field the document lacks.
func (d Document) NeedsVector() bool {
	f, ok := d.schema.VectorField()
	if !ok {
		return false
	}
	_, has := d.values[f.Name()]
	return !has
}

// NeedsSparse reports whether the schema has a sparse-vector field the document lacks.
func (d Document) NeedsSparse() bool {
	f, ok := d.schema.SparseField()
	if !ok {
		return false
	}
	_, has := d.values[f.Name()]
	return !has
}

// EmbedText returns the text the embedders vectorize: the "text" field, or
// the first full-text field when the schema has no "text".
func (d Document) EmbedText() (string, error) {
	name := textField
	if _, ok := d.schema.Field(textField); !ok {
		texts := d.schema.TextFields()
		if len(texts) == 0 {
			return "", fmt.Errorf("schema has no text field to embed: %w", domain.ErrConfiguration)
		}
		name = texts[0].Name()
	}
	s, _ := d.values[name].(string)
	if s == "" {
		return "", domain.NewValidationError(name, "is required to compute embeddings")
	}
	return s, nil
}

// WithVector returns a copy carrying the dense vector.
func (d Document) WithVector(v []float32) Document {
	f, ok := d.schema.VectorField()
	if !ok {
		return d
	}
	return d.with(f.Name(), v)
}

// WithSparse returns a copy carrying the sparse vector.
func (d Document) WithSparse(e sparse.Embedding) Document {
	f, ok := d.schema.SparseField()
	if !ok {
		return d
	}
	return d.with(f.Name(), e)
}

// Missing returns the required fields still absent.
func (d Document) Missing() []string {
	var out []string
	for _, f := range d.schema.Fields() {
		if _, ok := d.values[f.Name()]; f.IsRequired() && !ok {
			out = append(out, f.Name())
		}
	}
	return out
}

func (d Document) with(name string, v any) Document {
	values := d.Values()
	values[name] = v
	return Document{schema: d.schema, values: values}
}

// coerce converts a decoded JSON value to the field's Go type. A nil result
// with nil error means "absent" (an empty vector).
func coerce(f field.Field, v any) (any, error) {
	name := f.Name()
	switch {
	case f.Has(field.VectorIndex):
		vec, err := toVector(v)
		if err != nil {
			return nil, domain.NewValidationError(name, err.Error())
		}
		if len(vec) == 0 {
			return nil, nil
		}
		return vec, nil
	case f.Has(field.SparseIndex):
		emb, err := toSparse(v)
		if err != nil {
			return nil, domain.NewValidationError(name, err.Error())
		}
		return emb, nil
	}

	switch f.FieldType() {
	case field.Text:
		s, ok := v.(string)
		if !ok {
			return nil, domain.NewValidationError(name, fmt.Sprintf("expected string, got %s", kind(v)))
		}
		if len(s) > MaxTextSize {
			return nil, domain.NewValidationError(name, fmt.Sprintf("too large (max %d bytes)", MaxTextSize))
		}
		return s, nil
	case field.Int:
		n, err := toInt(v)
		if err != nil {
			return nil, domain.NewValidationError(name, err.Error())
		}
		return n, nil
	case field.Float:
		n, err := toFloat(v)
		if err != nil {
			return nil, domain.NewValidationError(name, err.Error())
		}
		return n, nil
	case field.Timestamp:
		t, err := toTime(v)
		if err != nil {
			return nil, domain.NewValidationError(name, err.Error())
		}
		return t, nil
	case field.List:
		switch l := v.(type) {
		case []any:
			return l, nil
		case []string:
			out := make([]any, len(l))
			for i, s := range l {
				out[i] = s
			}
			return out, nil
		}
		return nil, domain.NewValidationError(name, fmt.Sprintf("expected list, got %s", kind(v)))
	case field.Dict:
		if m, ok := v.(map[string]any); ok {
			return m, nil
		}
		return nil, domain.NewValidationError(name, fmt.Sprintf("expected object, got %s", kind(v)))
	}
	return nil, domain.NewValidationError(name, "unsupported field type")
}

func toVector(v any) ([]float32, error) {
	switch l := v.(type) {
	case []float32:
		return l, nil
	case []float64:
		out := make([]float32, len(l))
		for i, x := range l {
			out[i] = float32(x)
		}
		return out, nil
	case []any:
		out := make([]float32, len(l))
		for i, x := range l {
			f, err := toFloat(x)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = float32(f)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected list of numbers, got %s", kind(v))
}

func toSparse(v any) (sparse.Embedding, error) {
	if e, ok := v.(sparse.Embedding); ok {
		return e, nil
	}
	if _, ok := v.(map[string]any); !ok {
		return sparse.Embedding{}, fmt.Errorf("expected {dim, indices, values}, got %s", kind(v))
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sparse.Embedding{}, fmt.Errorf("encode sparse vector: %w", err)
	}
	var e sparse.Embedding
	if err := json.Unmarshal(b, &e); err != nil {
		return sparse.Embedding{}, err //nolint:wrapcheck // message surfaces as validation reason
	}
	return e, nil
}

var errNotNumber = errors.New("expected number")

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s", errNotNumber, n)
		}
		return f, nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, fmt.Errorf("%w, got %s", errNotNumber, kind(v))
}

func toInt(v any) (int64, error) {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, fmt.Errorf("expected integer, got %v", f)
	}
	return int64(f), nil
}

// toTime accepts RFC 3339 strings and unix seconds.
func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("expected RFC 3339 timestamp, got %q", t)
		}
		return parsed, nil
	}
	secs, err := toFloat(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected timestamp, got %s", kind(v))
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC(), nil
}

func kind(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, float32, int, int64:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
