// Package record holds the canonical in-memory document used by merging and ranking.
package record

import (
	"time"

	"github.com/kailas-cloud/qtext/internal/domain/sparse"
)

// Neutral is the default value of every score slot. Strategies that do not
// use a modality multiply or divide by it without effect.
const Neutral = 1.0

// Source is a bitmask of the modalities a record was retrieved from.
type Source uint8

// Source constants.
const (
	FromVector Source = 1 << iota
	FromSparse
	FromText
)

// Record is a document with per-modality relevance scores.
//
// VectorSim and TitleSim hold distances from the vector and sparse modality
// (lower is closer). ContentBM25 and TitleBM25 hold lexical relevance (higher
// is better).
type Record struct {
	ID           string
	Text         string
	Title        string
	Summary      string
	Author       string
	UpdatedAt    *time.Time
	Tags         []string
	Vector       []float32
	SparseVector *sparse.Embedding
	// Extra holds schema columns that have no canonical slot.
	Extra map[string]any

	VectorSim   float64
	TitleSim    float64
	ContentBM25 float64
	TitleBM25   float64
	Boost       float64
	Score       float64

	Sources Source
	// HasTitleBM25 is set when TitleBM25 carries a real lexical score.
	HasTitleBM25 bool
}

// New creates a record with neutral score slots.
func New(id, text string) Record {
	return Record{
		ID:          id,
		Text:        text,
		VectorSim:   Neutral,
		TitleSim:    Neutral,
		ContentBM25: Neutral,
		TitleBM25:   Neutral,
		Boost:       Neutral,
		Score:       Neutral,
	}
}

// In reports whether the record was retrieved from the given modality.
func (r Record) In(s Source) bool { return r.Sources&s != 0 }

// HasVector reports whether a dense vector is present.
func (r Record) HasVector() bool { return len(r.Vector) > 0 }

// Simple is the {id, text, title} projection used by explain snapshots.
type Simple struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Title string `json:"title"`
}

// Simplify projects the record to its explain form.
func (r Record) Simplify() Simple {
	return Simple{ID: r.ID, Text: r.Text, Title: r.Title}
}

// Hit is a record as returned by one modality query, with the native rank
// value computed by storage (distance for vector/sparse, ts_rank for text).
type Hit struct {
	Record Record
	Rank   float64
}

// IDs returns the hit ids in order.
func IDs(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Record.ID
	}
	return out
}
