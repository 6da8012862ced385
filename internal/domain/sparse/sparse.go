// Package sparse holds the coordinate-form sparse vector used by the sparse modality.
package sparse

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxDim is the largest sparsevec dimension pgvector accepts.
const MaxDim = 1_000_000_000

var (
	// ErrLengthMismatch signals indices and values of different length.
	ErrLengthMismatch = errors.New("indices and values must have equal length")
	// ErrIndexOutOfRange signals an index outside [0, dim).
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrDuplicateIndex signals a repeated index.
	ErrDuplicateIndex = errors.New("duplicate index")
	// ErrInvalidDim signals a dimension outside [1, MaxDim].
	ErrInvalidDim = fmt.Errorf("dim must be in [1, %d]", MaxDim)
)

// Embedding is a sparse vector {dim, indices, values}. Immutable value object.
type Embedding struct {
	dim     int
	indices []int
	values  []float32
}

// New validates and creates a sparse embedding.
func New(dim int, indices []int, values []float32) (Embedding, error) {
	if dim <= 0 || dim > MaxDim {
		return Embedding{}, ErrInvalidDim
	}
	if len(indices) != len(values) {
		return Embedding{}, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(indices), len(values))
	}
	seen := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= dim {
			return Embedding{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, idx, dim)
		}
		if _, ok := seen[idx]; ok {
			return Embedding{}, fmt.Errorf("%w: %d", ErrDuplicateIndex, idx)
		}
		seen[idx] = struct{}{}
	}

	return Embedding{
		dim:     dim,
		indices: append([]int(nil), indices...),
		values:  append([]float32(nil), values...),
	}, nil
}

// Dim returns the dimension.
func (e Embedding) Dim() int { return e.dim }

// Indices returns a copy of the nonzero coordinates.
func (e Embedding) Indices() []int { return append([]int(nil), e.indices...) }

// Values returns a copy of the nonzero values.
func (e Embedding) Values() []float32 { return append([]float32(nil), e.values...) }

// IsZero reports whether the embedding was never set.
func (e Embedding) IsZero() bool { return e.dim == 0 }

// Dense zero-fills a vector of length dim and scatters the values into it.
func (e Embedding) Dense() []float32 {
	out := make([]float32, e.dim)
	for i, idx := range e.indices {
		out[idx] = e.values[i]
	}
	return out
}

// Map returns the nonzero coordinates keyed by index.
func (e Embedding) Map() map[int32]float32 {
	out := make(map[int32]float32, len(e.indices))
	for i, idx := range e.indices {
		out[int32(idx)] = e.values[i] //nolint:gosec // idx < dim, validated in New
	}
	return out
}

type wire struct {
	Dim     int       `json:"dim"`
	Indices []int     `json:"indices"`
	Values  []float32 `json:"values"`
}

// MarshalJSON encodes the embedding as {dim, indices, values}.
func (e Embedding) MarshalJSON() ([]byte, error) {
	indices, values := e.indices, e.values
	if indices == nil {
		indices = []int{}
	}
	if values == nil {
		values = []float32{}
	}
	return json.Marshal(wire{Dim: e.dim, Indices: indices, Values: values}) //nolint:wrapcheck // plain encode
}

// UnmarshalJSON decodes and validates {dim, indices, values}.
func (e *Embedding) UnmarshalJSON(data []byte) error {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode sparse embedding: %w", err)
	}
	parsed, err := New(w.Dim, w.Indices, w.Values)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
