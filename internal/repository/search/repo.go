package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/kailas-cloud/qtext/internal/db"
	"github.com/kailas-cloud/qtext/internal/db/postgres"
	"github.com/kailas-cloud/qtext/internal/domain/record"
	"github.com/kailas-cloud/qtext/internal/domain/schema"
	"github.com/kailas-cloud/qtext/internal/domain/sparse"
)

// store is the consumer interface for candidate queries (ISP).
type store interface {
	QueryVector(ctx context.Context, name string, vec []float32, limit int) ([]postgres.Row, error)
	QuerySparse(ctx context.Context, name string, emb sparse.Embedding, limit int) ([]postgres.Row, error)
	QueryText(ctx context.Context, name, tsquery string, limit int) ([]postgres.Row, error)
}

// Repo implements usecase/search.Repository. A modality the schema does not
// index yields no hits.
type Repo struct {
	store  store
	schema schema.Schema
}

// New creates a search repository.
func New(s store, sch schema.Schema) *Repo {
	return &Repo{store: s, schema: sch}
}

// HasVectorIndex reports whether dense retrieval is available.
func (r *Repo) HasVectorIndex() bool { return r.schema.HasVectorIndex() }

// HasSparseIndex reports whether sparse retrieval is available.
func (r *Repo) HasSparseIndex() bool { return r.schema.HasSparseIndex() }

// Vector returns hits by ascending dense-vector distance.
func (r *Repo) Vector(ctx context.Context, namespace string, vec []float32, limit int) ([]record.Hit, error) {
	if !r.schema.HasVectorIndex() {
		return nil, nil
	}
	rows, err := r.store.QueryVector(ctx, namespace, vec, limit)
	if err != nil {
		return nil, db.AsStorage(fmt.Errorf("vector search %s: %w", namespace, err))
	}
	return r.hits(rows, record.FromVector), nil
}

// Sparse returns hits by ascending sparse-vector distance.
func (r *Repo) Sparse(ctx context.Context, namespace string, emb sparse.Embedding, limit int) ([]record.Hit, error) {
	if !r.schema.HasSparseIndex() {
		return nil, nil
	}
	rows, err := r.store.QuerySparse(ctx, namespace, emb, limit)
	if err != nil {
		return nil, db.AsStorage(fmt.Errorf("sparse search %s: %w", namespace, err))
	}
	hits := r.hits(rows, record.FromSparse)
	for i := range hits {
		hits[i].Rank = SparseDistance(hits[i].Rank)
	}
	return hits, nil
}

// SparseDistance maps a raw negative inner product onto a strictly positive
// distance preserving order: 1+d for d >= 0, 1/(1-d) below. Unnormalized
// embeddings give inner products well above 1.
func SparseDistance(negIP float64) float64 {
	if negIP >= 0 {
		return 1 + negIP
	}
	return 1 / (1 - negIP)
}

// Text returns hits by descending full-text relevance. A query with no
// searchable words yields no hits.
func (r *Repo) Text(ctx context.Context, namespace, text string, limit int) ([]record.Hit, error) {
	if !r.schema.HasTextIndex() {
		return nil, nil
	}
	q := TSQuery(text)
	if q == "" {
		return nil, nil
	}
	rows, err := r.store.QueryText(ctx, namespace, q, limit)
	if err != nil {
		return nil, db.AsStorage(fmt.Errorf("text search %s: %w", namespace, err))
	}
	return r.hits(rows, record.FromText), nil
}

// TSQuery reduces each whitespace-separated word to its letters and digits
// and ORs the words together for to_tsquery.
func TSQuery(text string) string {
	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	for _, w := range words {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, w)
		if clean != "" {
			out = append(out, clean)
		}
	}
	return strings.Join(out, " | ")
}

func (r *Repo) hits(rows []postgres.Row, src record.Source) []record.Hit {
	if len(rows) == 0 {
		return nil
	}
	out := make([]record.Hit, 0, len(rows))
	for _, row := range rows {
		rank, _ := row[postgres.RankColumn].(float64)
		rec := r.toRecord(row)
		rec.Sources = src
		out = append(out, record.Hit{Record: rec, Rank: rank})
	}
	return out
}

// toRecord maps a row onto the canonical record slots. Columns without a
// slot go to Extra. Without a primary key the text is the identity.
func (r *Repo) toRecord(row postgres.Row) record.Record {
	rec := record.New("", "")
	pk, hasPK := r.schema.PrimaryKey()
	vf, _ := r.schema.VectorField()
	sf, _ := r.schema.SparseField()

	for col, v := range row {
		if v == nil {
			continue
		}
		switch {
		case hasPK && col == pk.Name():
			rec.ID = idString(v)
			continue
		case col == postgres.RankColumn:
			continue
		case col == postgres.TitleRankColumn:
			if f, ok := v.(float64); ok {
				rec.TitleBM25 = f
				rec.HasTitleBM25 = true
			}
			continue
		case vf.Name() != "" && col == vf.Name():
			rec.Vector, _ = v.([]float32)
			continue
		case sf.Name() != "" && col == sf.Name():
			if e, ok := v.(sparse.Embedding); ok {
				rec.SparseVector = &e
			}
			continue
		}

		switch col {
		case "text":
			rec.Text, _ = v.(string)
		case "title":
			rec.Title, _ = v.(string)
		case "summary":
			rec.Summary, _ = v.(string)
		case "author":
			rec.Author, _ = v.(string)
		case "updated_at":
			if t, ok := v.(time.Time); ok {
				rec.UpdatedAt = &t
			}
		case "tags":
			rec.Tags = stringList(v)
		case "score":
			if f, ok := v.(float64); ok {
				rec.Score = f
			}
		case "boost":
			if f, ok := v.(float64); ok {
				rec.Boost = f
			}
		default:
			if rec.Extra == nil {
				rec.Extra = make(map[string]any)
			}
			rec.Extra[col] = v
		}
	}
	if !hasPK {
		rec.ID = rec.Text
	}
	return rec
}

func idString(v any) string {
	switch id := v.(type) {
	case int64:
		return strconv.FormatInt(id, 10)
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}

func stringList(v any) []string {
	l, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(l))
	for _, x := range l {
		if s, ok := x.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
