// Package schema describes a namespace's document fields and their index roles.
package schema

import (
	"fmt"

	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/domain/schema/field"
)

// Preset names accepted by Preset.
const (
	PresetDefault = "default"
	PresetSparse  = "sparse"
)

// Schema is an ordered, validated field list. Immutable value object.
type Schema struct {
	fields []field.Field
	byName map[string]int
	pk     int
	vector int
	sparse int
	text   []int
}

// New validates the role cardinalities and creates a Schema.
// At most one primary key, one vector field and one sparse field are allowed.
func New(fields []field.Field) (Schema, error) {
	s := Schema{
		fields: append([]field.Field(nil), fields...),
		byName: make(map[string]int, len(fields)),
		pk:     -1,
		vector: -1,
		sparse: -1,
	}
	if len(fields) == 0 {
		return Schema{}, fmt.Errorf("schema has no fields: %w", domain.ErrInvalidSchema)
	}

	single := []struct {
		role field.Role
		slot *int
	}{
		{field.PrimaryKey, &s.pk},
		{field.VectorIndex, &s.vector},
		{field.SparseIndex, &s.sparse},
	}
	for i, f := range s.fields {
		if _, dup := s.byName[f.Name()]; dup {
			return Schema{}, fmt.Errorf("duplicate field %q: %w", f.Name(), domain.ErrInvalidSchema)
		}
		s.byName[f.Name()] = i

		for _, r := range single {
			if !f.Has(r.role) {
				continue
			}
			if *r.slot >= 0 {
				return Schema{}, fmt.Errorf("more than one %s field (%q, %q): %w",
					r.role, s.fields[*r.slot].Name(), f.Name(), domain.ErrInvalidSchema)
			}
			*r.slot = i
		}
		if f.Has(field.TextIndex) {
			s.text = append(s.text, i)
		}
	}
	return s, nil
}

// Fields returns the fields in declaration order.
func (s Schema) Fields() []field.Field { return append([]field.Field(nil), s.fields...) }

// Field looks up a field by name.
func (s Schema) Field(name string) (field.Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return field.Field{}, false
	}
	return s.fields[i], true
}

// PrimaryKey returns the primary key field, if any.
func (s Schema) PrimaryKey() (field.Field, bool) { return s.at(s.pk) }

// VectorField returns the dense-vector indexed field, if any.
func (s Schema) VectorField() (field.Field, bool) { return s.at(s.vector) }

// SparseField returns the sparse-vector indexed field, if any.
func (s Schema) SparseField() (field.Field, bool) { return s.at(s.sparse) }

// TextFields returns the full-text indexed fields in declaration order.
func (s Schema) TextFields() []field.Field {
	out := make([]field.Field, len(s.text))
	for i, idx := range s.text {
		out[i] = s.fields[idx]
	}
	return out
}

// HasVectorIndex reports whether the schema has a dense-vector field.
func (s Schema) HasVectorIndex() bool { return s.vector >= 0 }

// HasSparseIndex reports whether the schema has a sparse-vector field.
func (s Schema) HasSparseIndex() bool { return s.sparse >= 0 }

// HasTextIndex reports whether the schema has at least one full-text field.
func (s Schema) HasTextIndex() bool { return len(s.text) > 0 }

// IsVectorColumn reports whether the named column holds a dense or sparse vector.
func (s Schema) IsVectorColumn(name string) bool {
	i, ok := s.byName[name]
	return ok && (i == s.vector || i == s.sparse)
}

func (s Schema) at(i int) (field.Field, bool) {
	if i < 0 {
		return field.Field{}, false
	}
	return s.fields[i], true
}

// Default returns the built-in document schema: an int primary key, required
// text, a dense vector, title and text both full-text indexed, plus the
// descriptive and scoring columns used by the ranking strategies.
func Default() Schema {
	return mustNew(baseFields())
}

// Sparse returns Default with an added sparse_vector column.
func Sparse() Schema {
	return mustNew(append(baseFields(), mustField("sparse_vector", field.Dict, field.WithRoles(field.SparseIndex))))
}

// Preset returns a schema by preset name.
func Preset(name string) (Schema, error) {
	switch name {
	case "", PresetDefault:
		return Default(), nil
	case PresetSparse:
		return Sparse(), nil
	default:
		return Schema{}, fmt.Errorf("unknown schema preset %q: %w", name, domain.ErrInvalidSchema)
	}
}

func baseFields() []field.Field {
	return []field.Field{
		mustField("id", field.Int, field.WithRoles(field.PrimaryKey)),
		mustField("text", field.Text, field.WithRoles(field.TextIndex), field.Required()),
		mustField("vector", field.List, field.WithRoles(field.VectorIndex), field.Required()),
		mustField("title", field.Text, field.WithRoles(field.TextIndex)),
		mustField("summary", field.Text),
		mustField("author", field.Text),
		mustField("updated_at", field.Timestamp),
		mustField("tags", field.List),
		mustField("score", field.Float, field.WithDefault(1.0)),
		mustField("boost", field.Float, field.WithDefault(1.0)),
	}
}

func mustField(name string, ft field.Type, opts ...field.Option) field.Field {
	f, err := field.New(name, ft, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

func mustNew(fields []field.Field) Schema {
	s, err := New(fields)
	if err != nil {
		panic(err)
	}
	return s
}

// FieldSpec is the declarative form of a field, as read from configuration.
type FieldSpec struct {
	Name     string
	Type     string
	Roles    []string
	Required bool
	Default  any
}

// FromSpecs builds a Schema from declarative field specs.
func FromSpecs(specs []FieldSpec) (Schema, error) {
	fields := make([]field.Field, 0, len(specs))
	for _, spec := range specs {
		opts := make([]field.Option, 0, len(spec.Roles)+2)
		for _, r := range spec.Roles {
			role, err := field.ParseRole(r)
			if err != nil {
				return Schema{}, fmt.Errorf("field %q: %w", spec.Name, err)
			}
			opts = append(opts, field.WithRoles(role))
		}
		if spec.Required {
			opts = append(opts, field.Required())
		}
		if spec.Default != nil {
			opts = append(opts, field.WithDefault(spec.Default))
		}
		f, err := field.New(spec.Name, field.Type(spec.Type), opts...)
		if err != nil {
			return Schema{}, err
		}
		fields = append(fields, f)
	}
	return New(fields)
}
