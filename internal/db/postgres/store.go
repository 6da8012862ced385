// Package postgres is the PostgreSQL + pgvector Store Gateway: namespace DDL,
// document insertion and the per-modality candidate queries.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/qtext/internal/db"
	"github.com/kailas-cloud/qtext/internal/domain/schema/field"
	"github.com/kailas-cloud/qtext/internal/domain/sparse"
	"github.com/kailas-cloud/qtext/internal/metrics"
)

var _ db.Pinger = (*Store)(nil)

// Config holds the connection pool settings.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenDB opens a pooled connection through the pgx stdlib driver and pings it.
func OpenDB(ctx context.Context, cfg Config) (*sql.DB, error) {
	conn, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return conn, nil
}

// Row is one result row keyed by column name. Values are decoded per field
// type: string, int64, float64, time.Time, []float32 for the vector column,
// sparse.Embedding for the sparse column, and decoded JSON for list/dict.
type Row map[string]any

// Store executes catalog statements against a pooled *sql.DB.
type Store struct {
	db      *sql.DB
	catalog *Catalog
}

// NewStore creates a store over an open pool.
func NewStore(conn *sql.DB, c *Catalog) *Store {
	return &Store{db: conn, catalog: c}
}

// Catalog returns the statement generator the store executes.
func (s *Store) Catalog() *Catalog { return s.catalog }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close() //nolint:wrapcheck // closing pool
}

// Bootstrap installs the vector extension when the schema needs it.
func (s *Store) Bootstrap(ctx context.Context) error {
	if !s.catalog.HasVectorIndex() && !s.catalog.HasSparseIndex() {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return &db.Error{Op: db.OpAddNamespace, Err: fmt.Errorf("create extension: %w", err)}
	}
	return nil
}

// CreateNamespace creates the table and its indexes in one transaction.
func (s *Store) CreateNamespace(ctx context.Context, name string, vectorDim, sparseDim int) error {
	create, err := s.catalog.CreateTable(name, vectorDim, sparseDim)
	if err != nil {
		return err
	}
	stmts := []string{create}
	stmts = append(stmts, s.catalog.VectorIndex(name)...)
	stmts = append(stmts, s.catalog.SparseIndex(name)...)
	stmts = append(stmts, s.catalog.TextIndex(name)...)

	return s.inTx(ctx, db.OpAddNamespace, func(tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err //nolint:wrapcheck // wrapped by inTx
			}
		}
		return nil
	})
}

// Insert writes one document. values holds only declared columns with
// already-coerced values; absent columns take their DDL default.
func (s *Store) Insert(ctx context.Context, name string, values map[string]any) error {
	sch := s.catalog.Schema()
	cols := make([]string, 0, len(values))
	args := make([]any, 0, len(values))
	for _, f := range sch.Fields() {
		v, ok := values[f.Name()]
		if !ok {
			continue
		}
		enc, err := encode(f, v)
		if err != nil {
			return &db.Error{Op: db.OpAddDoc, Err: err}
		}
		cols = append(cols, f.Name())
		args = append(args, enc)
	}
	if len(cols) == 0 {
		return &db.Error{Op: db.OpAddDoc, Err: fmt.Errorf("no columns to insert")}
	}

	stmt := s.catalog.Insert(name, cols)
	return s.inTx(ctx, db.OpAddDoc, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, stmt, args...)
		return err //nolint:wrapcheck // wrapped by inTx
	})
}

// QueryVector returns up to limit rows by ascending dense-vector distance.
func (s *Store) QueryVector(ctx context.Context, name string, vec []float32, limit int) ([]Row, error) {
	stmt, err := s.catalog.VectorQuery(name)
	if err != nil {
		return nil, &db.Error{Op: db.OpQueryVector, Err: err}
	}
	return s.query(ctx, db.OpQueryVector, "vector", name, stmt, pgvector.NewVector(vec), limit)
}

// QuerySparse returns up to limit rows by ascending sparse-vector distance.
func (s *Store) QuerySparse(ctx context.Context, name string, emb sparse.Embedding, limit int) ([]Row, error) {
	stmt, err := s.catalog.SparseQuery(name)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuerySparse, Err: err}
	}
	return s.query(ctx, db.OpQuerySparse, "sparse", name, stmt, sparseValue(emb), limit)
}

// QueryText returns up to limit rows by descending full-text relevance.
// tsquery is a to_tsquery expression.
func (s *Store) QueryText(ctx context.Context, name, tsquery string, limit int) ([]Row, error) {
	stmt, err := s.catalog.TextQuery(name)
	if err != nil {
		return nil, &db.Error{Op: db.OpQueryText, Err: err}
	}
	return s.query(ctx, db.OpQueryText, "text", name, stmt, tsquery, limit)
}

func (s *Store) query(ctx context.Context, op, modality, namespace, stmt string, arg any, limit int) ([]Row, error) {
	start := time.Now()
	defer func() {
		metrics.SearchDuration.WithLabelValues(modality, namespace).Observe(time.Since(start).Seconds())
	}()

	rows, err := s.db.QueryContext(ctx, stmt, arg, limit)
	if err != nil {
		return nil, &db.Error{Op: op, Err: err}
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &db.Error{Op: op, Err: err}
	}

	var out []Row
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &db.Error{Op: op, Err: fmt.Errorf("scan: %w", err)}
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			v, err := s.decode(col, raw[i])
			if err != nil {
				return nil, &db.Error{Op: op, Err: fmt.Errorf("column %q: %w", col, err)}
			}
			row[col] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: op, Err: err}
	}
	return out, nil
}

// inTx runs fn in a transaction, rolling back on any error.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &db.Error{Op: op, Err: fmt.Errorf("begin tx: %w", err)}
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return &db.Error{Op: op, Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &db.Error{Op: op, Err: fmt.Errorf("commit tx: %w", err)}
	}
	return nil
}

func sparseValue(e sparse.Embedding) pgvector.SparseVector {
	return pgvector.NewSparseVectorFromMap(e.Map(), int32(e.Dim())) //nolint:gosec // sparse.New bounds dim by sparse.MaxDim
}

// encode converts a coerced field value into a driver argument.
func encode(f field.Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch {
	case f.Has(field.VectorIndex):
		vec, ok := v.([]float32)
		if !ok {
			return nil, fmt.Errorf("field %q: expected []float32, got %T", f.Name(), v)
		}
		return pgvector.NewVector(vec), nil
	case f.Has(field.SparseIndex):
		emb, ok := v.(sparse.Embedding)
		if !ok {
			return nil, fmt.Errorf("field %q: expected sparse embedding, got %T", f.Name(), v)
		}
		return sparseValue(emb), nil
	}

	switch f.FieldType() {
	case field.List, field.Dict:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name(), err)
		}
		return string(b), nil
	default:
		return v, nil
	}
}

// decode converts a raw driver value into the Row representation.
func (s *Store) decode(col string, src any) (any, error) {
	if src == nil {
		return nil, nil
	}
	if col == RankColumn || col == TitleRankColumn {
		return toFloat(src)
	}
	f, ok := s.catalog.Schema().Field(col)
	if !ok {
		return src, nil
	}

	switch {
	case f.Has(field.VectorIndex):
		var v pgvector.Vector
		if err := v.Scan(src); err != nil {
			return nil, fmt.Errorf("scan vector: %w", err)
		}
		return v.Slice(), nil
	case f.Has(field.SparseIndex):
		var v pgvector.SparseVector
		if err := v.Scan(src); err != nil {
			return nil, fmt.Errorf("scan sparsevec: %w", err)
		}
		idx32 := v.Indices()
		idx := make([]int, len(idx32))
		for i, x := range idx32 {
			idx[i] = int(x)
		}
		return sparse.New(int(v.Dimensions()), idx, v.Values())
	}

	switch f.FieldType() {
	case field.Int:
		return toInt(src)
	case field.Float:
		return toFloat(src)
	case field.Timestamp:
		switch t := src.(type) {
		case time.Time:
			return t, nil
		case string:
			return time.Parse(time.RFC3339Nano, t)
		}
		return nil, fmt.Errorf("unexpected timestamp %T", src)
	case field.List, field.Dict:
		var raw []byte
		switch b := src.(type) {
		case []byte:
			raw = b
		case string:
			raw = []byte(b)
		default:
			return src, nil
		}
		var out any
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return out, nil
	default:
		if b, ok := src.([]byte); ok {
			return string(b), nil
		}
		return src, nil
	}
}

func toFloat(src any) (float64, error) {
	switch n := src.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("unexpected numeric %T", src)
}

func toInt(src any) (int64, error) {
	switch n := src.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	}
	return 0, fmt.Errorf("unexpected integer %T", src)
}
