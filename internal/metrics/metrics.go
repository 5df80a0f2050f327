package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kbingest_scans_total",
			Help: "Total number of knowledge-base scans",
		},
		[]string{"status"},
	)

	DocumentsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kbingest_documents_processed_total",
			Help: "Documents handled by the scan loop, by outcome",
		},
		[]string{"outcome"}, // new, updated, unchanged, skipped, failed, pending_approval
	)

	VectorizeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kbingest_vectorize_duration_seconds",
			Help:    "Duration of chunk-embed-upsert passes per document",
			Buckets: prometheus.DefBuckets,
		},
	)

	VectorsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kbingest_vectors_created_total",
			Help: "Total vectors upserted into the index",
		},
	)

	ApprovalsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kbingest_approvals_resolved_total",
			Help: "Pending approvals resolved by an operator",
		},
		[]string{"decision"},
	)

	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kbingest_embedding_requests_total",
			Help: "Embedding service calls",
		},
		[]string{"status"},
	)
)
