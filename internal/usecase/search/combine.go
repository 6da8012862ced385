package search

import "github.com/kailas-cloud/qtext/internal/domain/record"

// recordMap is an insertion-ordered id → record mapping.
type recordMap struct {
	order []string
	byID  map[string]record.Record
}

func (m recordMap) clone() recordMap {
	out := recordMap{
		order: append([]string(nil), m.order...),
		byID:  make(map[string]record.Record, len(m.byID)),
	}
	for k, v := range m.byID {
		out.byID[k] = v
	}
	return out
}

func (m recordMap) records() []record.Record {
	out := make([]record.Record, len(m.order))
	for i, id := range m.order {
		out[i] = m.byID[id]
	}
	return out
}

// Combine merges per-modality hits into one record per id, in first-seen
// order across the vector, sparse and text passes. The first pass to see an
// id owns its descriptive fields; later passes add only their score slot and
// source bit. Slots of absent modalities keep record.Neutral.
func Combine(vector, sparse, text []record.Hit) []record.Record {
	m := recordMap{byID: make(map[string]record.Record)}
	m = mergePass(m, vector, record.FromVector, func(r *record.Record, h record.Hit) {
		r.VectorSim = h.Rank
	})
	m = mergePass(m, sparse, record.FromSparse, func(r *record.Record, h record.Hit) {
		r.TitleSim = h.Rank
	})
	m = mergePass(m, text, record.FromText, func(r *record.Record, h record.Hit) {
		r.ContentBM25 = h.Rank
		if h.Record.HasTitleBM25 {
			r.TitleBM25 = h.Record.TitleBM25
			r.HasTitleBM25 = true
		}
	})
	return m.records()
}

// mergePass returns a new map with hits folded in. Within one list only the
// best-ranked occurrence of an id counts.
func mergePass(prev recordMap, hits []record.Hit, src record.Source, apply func(*record.Record, record.Hit)) recordMap {
	next := prev.clone()
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		id := h.Record.ID
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		r, ok := next.byID[id]
		if !ok {
			r = h.Record
			r.Sources = 0
			next.order = append(next.order, id)
		}
		r.Sources |= src
		apply(&r, h)
		next.byID[id] = r
	}
	return next
}
