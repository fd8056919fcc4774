package metrics

import "github.com/prometheus/client_golang/prometheus"

// Query-serving pipeline Prometheus metrics.
var (
	RewriteDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "answerd",
			Name:      "rewrite_decisions_total",
			Help:      "Rewrite routing outcomes by decision",
		},
		[]string{"decision"}, // local / spillover / timeout_failover / error_failover / degraded
	)

	RewriteDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "answerd",
			Name:      "rewrite_duration_seconds",
			Help:      "Query rewrite duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 2.5, 5, 10},
		},
		[]string{"backend"},
	)

	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "answerd",
			Name:      "semantic_cache_lookups_total",
			Help:      "Semantic cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	CacheErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "answerd",
			Name:      "semantic_cache_errors_total",
			Help:      "Semantic cache failures swallowed as misses",
		},
	)

	RetrievalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "answerd",
			Name:      "retrieval_duration_seconds",
			Help:      "Hybrid retrieval duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "answerd",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "answerd",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "answerd",
			Name:      "embedding_errors_total",
			Help:      "Total number of embedding errors by reason",
		},
		[]string{"provider", "model", "reason"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "answerd",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(RewriteDecisionsTotal)
	prometheus.MustRegister(RewriteDuration)
	prometheus.MustRegister(CacheLookupsTotal)
	prometheus.MustRegister(CacheErrorsTotal)
	prometheus.MustRegister(RetrievalDuration)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingErrorsTotal)
	prometheus.MustRegister(EmbeddingTokensTotal)
	pipelineMetricsRegistered = true
}
