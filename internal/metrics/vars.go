package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ProviderCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tokenscope_provider_calls_total",
		Help: "Upstream provider calls by outcome",
	}, []string{"provider", "op", "outcome"})

	ProviderLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tokenscope_provider_latency_seconds",
		Help:    "Upstream provider call latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "op"})

	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tokenscope_cache_lookups_total",
		Help: "Cache lookups by operation and result (hit/miss)",
	}, []string{"op", "result"})

	Disqualified = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tokenscope_disqualified_total",
		Help: "Candidates rejected by a hard disqualification rule",
	}, []string{"rule"})

	FallbackSource = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tokenscope_fallback_resolved_total",
		Help: "Fallback chain resolutions by chain and winning source",
	}, []string{"chain", "source"})

	FanOutFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tokenscope_fanout_network_failures_total",
		Help: "Per-network failures swallowed by the fan-out coordinator",
	}, []string{"network"})
)

func init() {
	prometheus.MustRegister(
		ProviderCalls,
		ProviderLatency,
		CacheLookups,
		Disqualified,
		FallbackSource,
		FanOutFailures,
	)
}

// Outcome maps an error to the outcome label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
