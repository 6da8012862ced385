package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Retrieval and ingestion metrics, labelled per namespace.
var (
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "qtext",
			Name:      "search_duration_seconds",
			Help:      "Per-modality candidate query latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"modality", "namespace"},
	)

	RankDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "qtext",
			Name:      "rank_duration_seconds",
			Help:      "Ranking pipeline latency in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"namespace"},
	)

	DocsAddedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qtext",
			Name:      "docs_added_total",
			Help:      "Total documents inserted",
		},
		[]string{"namespace"},
	)

	AddDocDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "qtext",
			Name:      "add_doc_duration_seconds",
			Help:      "Document ingestion latency in seconds, embeddings included",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"namespace"},
	)

	CollaboratorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "qtext",
			Name:      "collaborator_request_duration_seconds",
			Help:      "Inference collaborator request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"collaborator"},
	)

	CollaboratorErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qtext",
			Name:      "collaborator_errors_total",
			Help:      "Failed inference collaborator requests",
		},
		[]string{"collaborator"},
	)
)

var registerOnce sync.Once

// Register registers every qtext collector with the default registry. Called once from main.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			httpRequestsInFlight,
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingCacheTotal,
			SearchDuration,
			RankDuration,
			DocsAddedTotal,
			AddDocDuration,
			CollaboratorDuration,
			CollaboratorErrorsTotal,
		)
	})
}
