package metrics

import "github.com/prometheus/client_golang/prometheus"

// Dispatch and retrieval Prometheus metrics.
var (
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aigate",
			Name:      "provider_requests_total",
			Help:      "Total number of provider invocations",
		},
		[]string{"provider", "status"},
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aigate",
			Name:      "provider_request_duration_seconds",
			Help:      "Provider invocation duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)

	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aigate",
			Name:      "provider_tokens_total",
			Help:      "Total tokens consumed per provider",
		},
		[]string{"provider"},
	)

	FallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aigate",
			Name:      "fallback_total",
			Help:      "Total fallback hops taken after provider failures",
		},
		[]string{"from", "to"},
	)

	ResponseCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aigate",
			Name:      "response_cache_total",
			Help:      "Response cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	QuotaDeniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aigate",
			Name:      "quota_denied_total",
			Help:      "Requests denied by the daily quota",
		},
		[]string{"tier"},
	)

	SearchBranchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aigate",
			Name:      "search_branch_total",
			Help:      "Retrieval branch outcomes",
		},
		[]string{"branch", "status"}, // lexical/vector, ok/error
	)
)

var dispatchMetricsRegistered bool

// RegisterDispatchMetrics registers Prometheus metrics. Must be called once from main.
func RegisterDispatchMetrics() {
	if dispatchMetricsRegistered {
		return
	}
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderRequestDuration)
	prometheus.MustRegister(ProviderTokensTotal)
	prometheus.MustRegister(FallbackTotal)
	prometheus.MustRegister(ResponseCacheTotal)
	prometheus.MustRegister(QuotaDeniedTotal)
	prometheus.MustRegister(SearchBranchTotal)
	dispatchMetricsRegistered = true
}
