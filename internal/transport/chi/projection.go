package chi

import (
	"strconv"
	"time"

	"github.com/kailas-cloud/qtext/internal/domain/record"
	"github.com/kailas-cloud/qtext/internal/domain/schema"
	"github.com/kailas-cloud/qtext/internal/domain/schema/field"
)

// projector renders ranked records as schema-shaped JSON objects. Vector
// and sparse columns are never sent back.
type projector struct {
	schema schema.Schema
}

func (p projector) documents(recs []record.Record) []map[string]any {
	out := make([]map[string]any, len(recs))
	for i, r := range recs {
		out[i] = p.document(r)
	}
	return out
}

func (p projector) document(r record.Record) map[string]any {
	doc := make(map[string]any)
	pk, hasPK := p.schema.PrimaryKey()
	for _, f := range p.schema.Fields() {
		if f.Has(field.VectorIndex) || f.Has(field.SparseIndex) {
			continue
		}
		if hasPK && f.Name() == pk.Name() {
			doc[f.Name()] = projectID(f, r.ID)
			continue
		}
		doc[f.Name()] = slot(r, f.Name())
	}
	return doc
}

// projectID restores integer primary keys; record ids travel as strings.
func projectID(f field.Field, id string) any {
	if f.FieldType() == field.Int {
		if n, err := strconv.ParseInt(id, 10, 64); err == nil {
			return n
		}
	}
	return id
}

func slot(r record.Record, name string) any {
	switch name {
	case "text":
		return r.Text
	case "title":
		return nullString(r.Title)
	case "summary":
		return nullString(r.Summary)
	case "author":
		return nullString(r.Author)
	case "updated_at":
		if r.UpdatedAt == nil {
			return nil
		}
		return r.UpdatedAt.UTC().Format(time.RFC3339Nano)
	case "tags":
		if r.Tags == nil {
			return nil
		}
		return r.Tags
	case "score":
		return r.Score
	case "boost":
		return r.Boost
	}
	v, ok := r.Extra[name]
	if !ok {
		return nil
	}
	return v
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
