package providers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	callsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_provider_calls_total",
			Help: "Backend calls by provider, capability and outcome.",
		},
		[]string{"provider", "capability", "outcome"},
	)

	callDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rag_provider_call_duration_seconds",
			Help:    "Backend call latency including retries.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "capability"},
	)

	embeddingCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_embedding_cache_total",
			Help: "Embedding cache lookups by result.",
		},
		[]string{"result"},
	)
)
