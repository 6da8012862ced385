package qtext

// Namespace is a storage unit for one document schema.
// Zero dims use the server defaults.
type Namespace struct {
	Name            string `json:"name"`
	VectorDim       int    `json:"vector_dim,omitempty"`
	SparseVectorDim int    `json:"sparse_vector_dim,omitempty"`
}

// Document is a set of schema fields. Vectors the server can compute may be
// left out.
type Document map[string]any

// SparseVector is a {dim, indices, values} sparse embedding.
type SparseVector struct {
	Dim     int       `json:"dim"`
	Indices []int     `json:"indices"`
	Values  []float32 `json:"values"`
}

// Query is a hybrid query. Limit 0 means the server default (10).
type Query struct {
	Namespace    string         `json:"namespace"`
	Query        string         `json:"query"`
	Limit        int            `json:"limit,omitempty"`
	Vector       []float32      `json:"vector,omitempty"`
	SparseVector *SparseVector  `json:"sparse_vector,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// SimpleDoc is the compact document form used by explain results.
type SimpleDoc struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Title string `json:"title"`
}

// Snapshot is one modality's candidates and its elapsed seconds.
type Snapshot struct {
	Docs    []SimpleDoc `json:"docs"`
	Elapsed float64     `json:"elapsed"`
}

// Ranked is the final order. FromVector, FromSparse and FromText hold, per
// ranked doc, its index in that modality's list or nil.
type Ranked struct {
	Docs       []SimpleDoc `json:"docs"`
	Elapsed    float64     `json:"elapsed"`
	FromVector []*int      `json:"from_vector"`
	FromSparse []*int      `json:"from_sparse"`
	FromText   []*int      `json:"from_text"`
}

// ExplainResult is the query_explain response.
type ExplainResult struct {
	Vector Snapshot `json:"vector"`
	Sparse Snapshot `json:"sparse"`
	Text   Snapshot `json:"text"`
	Ranked Ranked   `json:"ranked"`
}

// HighlightRequest asks the server to mark the words of each doc that are
// close to Query. Nil Threshold and IgnoreStopwords keep the server
// defaults (0.8, true); an empty Template means "<mark>{}</mark>".
type HighlightRequest struct {
	Query           string   `json:"query"`
	Docs            []string `json:"docs"`
	Threshold       *float64 `json:"threshold,omitempty"`
	IgnoreStopwords *bool    `json:"ignore_stopwords,omitempty"`
	Template        string   `json:"template,omitempty"`
}

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status string            `json:"status"` // "ok", "degraded", "error"
	Checks map[string]string `json:"checks"` // component → "ok"/"error"
}
