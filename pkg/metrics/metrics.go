package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "devconnector"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by method, route and status."},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency by method and route.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)
	// ProfileOperations counts profile service calls by operation and
	// outcome (ok, invalid, not_found, error).
	ProfileOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "profile_operations_total", Help: "Profile operations by outcome."},
		[]string{"op", "outcome"},
	)
	ProfileCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "profile_cache_total", Help: "Profile cache lookups by result (hit, miss, error)."},
		[]string{"result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(HTTPRequests)
	reg.MustRegister(HTTPDuration)
	reg.MustRegister(ProfileOperations)
	reg.MustRegister(ProfileCache)
}
