package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "broker",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "broker",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "broker",
		Name:      "upstream_requests_total",
		Help:      "Total upstream catalog fetches by path and result status.",
	}, []string{"path", "status"})

	UpstreamRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "broker",
		Name:      "upstream_request_duration_seconds",
		Help:      "Upstream catalog fetch duration in seconds.",
		Buckets:   []float64{0.1, 0.3, 0.5, 1, 2, 4, 8},
	}, []string{"path"})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "broker",
		Name:      "cache_hits_total",
		Help:      "Total number of upstream cache hits.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "broker",
		Name:      "cache_misses_total",
		Help:      "Total number of upstream cache misses.",
	})

	CacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "broker",
		Name:      "cache_entries",
		Help:      "Resident cache entries after the last sweep.",
	})

	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "broker",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the per-address hard limiter.",
	})

	ThrottleDelaySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "broker",
		Name:      "throttle_delay_seconds",
		Help:      "Progressive delay applied to throttled requests.",
		Buckets:   []float64{0.5, 1, 2, 3, 4, 5},
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		UpstreamRequestsTotal,
		UpstreamRequestDuration,
		CacheHitsTotal,
		CacheMissesTotal,
		CacheEntries,
		RateLimitedTotal,
		ThrottleDelaySeconds,
	)
}
