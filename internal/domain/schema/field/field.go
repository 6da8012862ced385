package field

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/qtext/internal/domain"
)

// Type is the semantic type of a document field.
type Type string

// Field type constants.
const (
	Text      Type = "text"
	Int       Type = "int"
	Float     Type = "float"
	Timestamp Type = "timestamp"
	// List holds a JSON array; the dense vector field is a list of floats.
	List Type = "list"
	// Dict holds a JSON object; the sparse vector field is a {dim, indices, values} dict.
	Dict Type = "dict"
)

// Role tags a field with an index role.
type Role uint8

// Role constants.
const (
	PrimaryKey Role = 1 << iota
	VectorIndex
	SparseIndex
	TextIndex
)

func (r Role) String() string {
	var parts []string
	if r&PrimaryKey != 0 {
		parts = append(parts, "primary_key")
	}
	if r&VectorIndex != 0 {
		parts = append(parts, "vector_index")
	}
	if r&SparseIndex != 0 {
		parts = append(parts, "sparse_index")
	}
	if r&TextIndex != 0 {
		parts = append(parts, "text_index")
	}
	return strings.Join(parts, "|")
}

// ParseRole parses a role tag from configuration.
func ParseRole(s string) (Role, error) {
	switch s {
	case "primary_key":
		return PrimaryKey, nil
	case "vector_index":
		return VectorIndex, nil
	case "sparse_index":
		return SparseIndex, nil
	case "text_index":
		return TextIndex, nil
	default:
		return 0, fmt.Errorf("unknown role %q: %w", s, domain.ErrInvalidSchema)
	}
}

// Names added by generated queries and DDL; a field cannot use them.
var reservedFieldNames = map[string]bool{
	"rank": true, "title_rank": true, "fts_vector": true, "namespace": true,
}

// Field is an immutable value object describing one document column.
type Field struct {
	name      string
	fieldType Type
	roles     Role
	required  bool
	def       any
}

// Option configures optional Field metadata.
type Option func(*Field)

// WithRoles adds role tags.
func WithRoles(roles ...Role) Option {
	return func(f *Field) {
		for _, r := range roles {
			f.roles |= r
		}
	}
}

// Required marks the field NOT NULL.
func Required() Option {
	return func(f *Field) { f.required = true }
}

// WithDefault sets the column default. Supported for text, int and float fields.
func WithDefault(v any) Option {
	return func(f *Field) { f.def = v }
}

// New validates and creates a Field.
func New(name string, ft Type, opts ...Option) (Field, error) {
	f := Field{name: name, fieldType: ft}
	for _, o := range opts {
		o(&f)
	}
	if err := f.validate(); err != nil {
		return Field{}, err
	}
	if f.def != nil {
		def, err := normalizeDefault(ft, f.def)
		if err != nil {
			return Field{}, fmt.Errorf("field %q: %w", name, err)
		}
		f.def = def
	}
	return f, nil
}

func (f Field) validate() error {
	if f.name == "" {
		return fmt.Errorf("field name is required: %w", domain.ErrInvalidSchema)
	}
	// Postgres truncates identifiers at 63 bytes.
	if len(f.name) > 63 {
		return fmt.Errorf("field name %q too long (max 63): %w", f.name, domain.ErrInvalidSchema)
	}
	if reservedFieldNames[f.name] {
		return fmt.Errorf("field name %q is reserved: %w", f.name, domain.ErrInvalidSchema)
	}
	switch f.fieldType {
	case Text, Int, Float, Timestamp, List, Dict:
	default:
		return fmt.Errorf("invalid field type %q for %q: %w", f.fieldType, f.name, domain.ErrInvalidSchema)
	}

	checks := []struct {
		role  Role
		types []Type
	}{
		{PrimaryKey, []Type{Int, Text}},
		{VectorIndex, []Type{List}},
		{SparseIndex, []Type{Dict}},
		{TextIndex, []Type{Text}},
	}
	for _, c := range checks {
		if f.roles&c.role == 0 {
			continue
		}
		if !typeIn(f.fieldType, c.types) {
			return fmt.Errorf("field %q: role %s requires type %v, got %q: %w",
				f.name, c.role, c.types, f.fieldType, domain.ErrInvalidSchema)
		}
	}
	if f.roles&PrimaryKey != 0 && f.roles != PrimaryKey {
		return fmt.Errorf("field %q: primary key cannot carry other roles: %w", f.name, domain.ErrInvalidSchema)
	}
	return nil
}

func typeIn(t Type, types []Type) bool {
	for _, c := range types {
		if t == c {
			return true
		}
	}
	return false
}

func normalizeDefault(ft Type, v any) (any, error) {
	switch ft {
	case Text:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case Int:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		case float64:
			if n == float64(int64(n)) {
				return int64(n), nil
			}
		}
	case Float:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
	default:
		return nil, fmt.Errorf("defaults are not supported for %s fields: %w", ft, domain.ErrInvalidSchema)
	}
	return nil, fmt.Errorf("default %v (%T) does not match type %s: %w", v, v, ft, domain.ErrInvalidSchema)
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// FieldType returns the semantic type.
func (f Field) FieldType() Type { return f.fieldType }

// Roles returns the role bitmask.
func (f Field) Roles() Role { return f.roles }

// Has reports whether the field carries the role.
func (f Field) Has(r Role) bool { return f.roles&r != 0 }

// IsRequired reports whether the column is NOT NULL.
func (f Field) IsRequired() bool { return f.required }

// Default returns the normalized default (string, int64 or float64) and whether one is set.
func (f Field) Default() (any, bool) { return f.def, f.def != nil }
