// Package explain holds the diagnostic query explain result.
package explain

import "github.com/kailas-cloud/qtext/internal/domain/record"

// Snapshot is one modality's result list with its elapsed time in seconds.
type Snapshot struct {
	Docs    []record.Simple `json:"docs"`
	Elapsed float64         `json:"elapsed"`
}

// Ranked is the final order with, per surfaced document, its index in each
// modality list (nil when absent).
type Ranked struct {
	Docs       []record.Simple `json:"docs"`
	Elapsed    float64         `json:"elapsed"`
	FromVector []*int          `json:"from_vector"`
	FromSparse []*int          `json:"from_sparse"`
	FromText   []*int          `json:"from_text"`
}

// Result is the explain response.
type Result struct {
	Vector Snapshot `json:"vector"`
	Sparse Snapshot `json:"sparse"`
	Text   Snapshot `json:"text"`
	Ranked Ranked   `json:"ranked"`
}

// NewSnapshot projects records into a snapshot.
func NewSnapshot(docs []record.Record, elapsed float64) Snapshot {
	return Snapshot{Docs: simplify(docs), Elapsed: elapsed}
}

// NewRanked builds the ranked snapshot and fills provenance from the raw
// per-modality id lists. An id's provenance is its first index in the list.
func NewRanked(ranked []record.Record, elapsed float64, vectorIDs, sparseIDs, textIDs []string) Ranked {
	return Ranked{
		Docs:       simplify(ranked),
		Elapsed:    elapsed,
		FromVector: Provenance(ranked, vectorIDs),
		FromSparse: Provenance(ranked, sparseIDs),
		FromText:   Provenance(ranked, textIDs),
	}
}

// Provenance returns, per ranked doc, the first index of its id in ids or nil.
func Provenance(ranked []record.Record, ids []string) []*int {
	first := make(map[string]int, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		first[ids[i]] = i
	}
	out := make([]*int, len(ranked))
	for i, r := range ranked {
		if idx, ok := first[r.ID]; ok {
			out[i] = &idx
		}
	}
	return out
}

func simplify(docs []record.Record) []record.Simple {
	out := make([]record.Simple, len(docs))
	for i, d := range docs {
		out[i] = d.Simplify()
	}
	return out
}
