package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	documentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_ingested_documents_total",
			Help: "Documents processed by the ingest pipeline by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	chunksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rag_ingested_chunks_total",
			Help: "Chunks embedded and written to the vector index.",
		},
	)
)
