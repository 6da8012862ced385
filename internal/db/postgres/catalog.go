package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/kailas-cloud/qtext/internal/db"
	"github.com/kailas-cloud/qtext/internal/domain"
	"github.com/kailas-cloud/qtext/internal/domain/schema"
	"github.com/kailas-cloud/qtext/internal/domain/schema/field"
)

// Column names added by generated statements.
const (
	RankColumn      = "rank"
	TitleRankColumn = "title_rank"
	ftsColumn       = "fts_vector"
	titleField      = "title"
	textConfig      = "'english'"
)

// Catalog generates DDL and per-modality query statements for one schema.
// Identifiers are quoted with pgx.Identifier; values are always bound parameters.
type Catalog struct {
	schema schema.Schema
}

// NewCatalog creates a catalog over the schema.
func NewCatalog(s schema.Schema) *Catalog {
	return &Catalog{schema: s}
}

// Schema returns the underlying schema.
func (c *Catalog) Schema() schema.Schema { return c.schema }

// HasVectorIndex reports whether the schema has a dense-vector field.
func (c *Catalog) HasVectorIndex() bool { return c.schema.HasVectorIndex() }

// HasSparseIndex reports whether the schema has a sparse-vector field.
func (c *Catalog) HasSparseIndex() bool { return c.schema.HasSparseIndex() }

// HasTextIndex reports whether the schema has at least one full-text field.
func (c *Catalog) HasTextIndex() bool { return c.schema.HasTextIndex() }

// CreateTable returns the CREATE TABLE statement. A declared vector or sparse
// role with a zero dimension is a configuration error; an absent role ignores
// its dimension.
func (c *Catalog) CreateTable(name string, vectorDim, sparseDim int) (string, error) {
	if c.schema.HasVectorIndex() && vectorDim <= 0 {
		return "", fmt.Errorf("vector dimension is required for the vector index: %w", domain.ErrConfiguration)
	}
	if c.schema.HasSparseIndex() && sparseDim <= 0 {
		return "", fmt.Errorf("sparse vector dimension is required for the sparse index: %w", domain.ErrConfiguration)
	}

	fields := c.schema.Fields()
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		col, err := c.columnDef(f, vectorDim, sparseDim)
		if err != nil {
			return "", err
		}
		cols = append(cols, col)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", ident(name), strings.Join(cols, ", ")), nil
}

func (c *Catalog) columnDef(f field.Field, vectorDim, sparseDim int) (string, error) {
	var b strings.Builder
	b.WriteString(ident(f.Name()))
	b.WriteByte(' ')

	switch {
	case f.Has(field.PrimaryKey):
		if f.FieldType() == field.Int {
			b.WriteString("SERIAL PRIMARY KEY")
		} else {
			b.WriteString("TEXT PRIMARY KEY")
		}
		return b.String(), nil
	case f.Has(field.VectorIndex):
		fmt.Fprintf(&b, "vector(%d)", vectorDim)
	case f.Has(field.SparseIndex):
		fmt.Fprintf(&b, "sparsevec(%d)", sparseDim)
	default:
		b.WriteString(pgType(f.FieldType()))
	}

	if f.IsRequired() {
		b.WriteString(" NOT NULL")
	}
	if def, ok := f.Default(); ok {
		lit, err := literal(def)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", f.Name(), err)
		}
		b.WriteString(" DEFAULT ")
		b.WriteString(lit)
	}
	return b.String(), nil
}

// VectorIndex returns the HNSW index statement for the dense-vector column.
// Embeddings are expected to be normalized, so inner product ranks like cosine.
func (c *Catalog) VectorIndex(name string) []string {
	f, ok := c.schema.VectorField()
	if !ok {
		return nil
	}
	return []string{fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (%s vector_ip_ops)",
		ident(name+"_"+f.Name()+"_hnsw"), ident(name), ident(f.Name()))}
}

// SparseIndex returns the HNSW index statement for the sparse-vector column.
func (c *Catalog) SparseIndex(name string) []string {
	f, ok := c.schema.SparseField()
	if !ok {
		return nil
	}
	return []string{fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (%s sparsevec_ip_ops)",
		ident(name+"_"+f.Name()+"_hnsw"), ident(name), ident(f.Name()))}
}

// TextIndex returns the full-text index statements. Several text fields are
// concatenated by an IMMUTABLE helper into a generated tsvector column; a
// single field is indexed directly.
func (c *Catalog) TextIndex(name string) []string {
	texts := c.schema.TextFields()
	switch len(texts) {
	case 0:
		return nil
	case 1:
		return []string{fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING gin (%s)",
			ident(name+"_fts"), ident(name), c.tsvectorExpr())}
	}

	params := make([]string, len(texts))
	args := make([]string, len(texts))
	cols := make([]string, len(texts))
	for i, f := range texts {
		params[i] = "text"
		args[i] = "$" + strconv.Itoa(i+1)
		cols[i] = ident(f.Name())
	}
	fn := concatFunc(name)
	return []string{
		fmt.Sprintf("CREATE OR REPLACE FUNCTION %s(%s) RETURNS text LANGUAGE sql IMMUTABLE AS $$ SELECT concat_ws(' ', %s) $$",
			fn, strings.Join(params, ", "), strings.Join(args, ", ")),
		fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s tsvector GENERATED ALWAYS AS (to_tsvector(%s, %s(%s))) STORED",
			ident(name), ident(ftsColumn), textConfig, fn, strings.Join(cols, ", ")),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING gin (%s)",
			ident(name+"_fts"), ident(name), ident(ftsColumn)),
	}
}

// tsvectorExpr is the indexed tsvector expression; TextQuery must match it
// exactly for the GIN index to be used.
func (c *Catalog) tsvectorExpr() string {
	texts := c.schema.TextFields()
	if len(texts) == 1 {
		return fmt.Sprintf("to_tsvector(%s, coalesce(%s, ''))", textConfig, ident(texts[0].Name()))
	}
	return ident(ftsColumn)
}

func concatFunc(name string) string {
	return ident(name + "_fts_concat")
}

// VectorQuery selects by dense-vector distance, ascending. $1 is the query
// vector, $2 the limit. rank = 1 - inner product.
func (c *Catalog) VectorQuery(name string) (string, error) {
	f, ok := c.schema.VectorField()
	if !ok {
		return "", fmt.Errorf("vector query: %w", db.ErrRoleAbsent)
	}
	dist := fmt.Sprintf("%s <#> $1", ident(f.Name()))
	return c.distanceQuery(name, "("+dist+") + 1", dist), nil
}

// SparseQuery selects by sparse-vector distance, ascending. $1 is the query
// sparse vector, $2 the limit. Sparse embeddings are not normalized, so rank
// is the raw negative inner product and callers map it to a distance.
func (c *Catalog) SparseQuery(name string) (string, error) {
	f, ok := c.schema.SparseField()
	if !ok {
		return "", fmt.Errorf("sparse query: %w", db.ErrRoleAbsent)
	}
	dist := fmt.Sprintf("%s <#> $1", ident(f.Name()))
	return c.distanceQuery(name, dist, dist), nil
}

func (c *Catalog) distanceQuery(name, rank, order string) string {
	return fmt.Sprintf("SELECT %s, %s AS %s FROM %s ORDER BY %s LIMIT $2",
		c.selectList(), rank, ident(RankColumn), ident(name), order)
}

// TextQuery selects by full-text relevance, descending. $1 is a to_tsquery
// expression, $2 the limit.
func (c *Catalog) TextQuery(name string) (string, error) {
	if !c.schema.HasTextIndex() {
		return "", fmt.Errorf("text query: %w", db.ErrRoleAbsent)
	}
	vec := c.tsvectorExpr()
	sel := c.selectList()
	if c.hasTitleRank() {
		sel += fmt.Sprintf(", ts_rank_cd(to_tsvector(%s, coalesce(%s, '')), q) AS %s",
			textConfig, ident(titleField), ident(TitleRankColumn))
	}
	return fmt.Sprintf("SELECT %s, ts_rank_cd(%s, q) AS %s FROM %s, to_tsquery(%s, $1) AS q WHERE %s @@ q ORDER BY %s DESC LIMIT $2",
		sel, vec, ident(RankColumn), ident(name), textConfig, vec, ident(RankColumn)), nil
}

// hasTitleRank reports whether the text query also scores the title separately.
func (c *Catalog) hasTitleRank() bool {
	texts := c.schema.TextFields()
	if len(texts) < 2 {
		return false
	}
	for _, f := range texts {
		if f.Name() == titleField {
			return true
		}
	}
	return false
}

// Insert returns a parameterized INSERT for the given columns.
func (c *Catalog) Insert(name string, columns []string) string {
	cols := make([]string, len(columns))
	ph := make([]string, len(columns))
	for i, col := range columns {
		cols[i] = ident(col)
		ph[i] = "$" + strconv.Itoa(i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", ident(name), strings.Join(cols, ", "), strings.Join(ph, ", "))
}

// Columns returns the declared column names in schema order.
func (c *Catalog) Columns() []string {
	fields := c.schema.Fields()
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name()
	}
	return out
}

func (c *Catalog) selectList() string {
	cols := c.Columns()
	for i, col := range cols {
		cols[i] = ident(col)
	}
	return strings.Join(cols, ", ")
}

func ident(parts ...string) string {
	return pgx.Identifier(parts).Sanitize()
}

func pgType(t field.Type) string {
	switch t {
	case field.Int:
		return "INTEGER"
	case field.Float:
		return "REAL"
	case field.Timestamp:
		return "TIMESTAMPTZ"
	case field.List, field.Dict:
		return "JSONB"
	default:
		return "TEXT"
	}
}

// literal renders a normalized field default as a SQL literal.
func literal(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'", nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported default %T: %w", v, domain.ErrInvalidSchema)
	}
}
