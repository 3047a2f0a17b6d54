package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP surface metrics.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	AuthFailures    prometheus.Counter
}

// New creates and registers the HTTP metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "condo_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern, method and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		AuthFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "condo_http_auth_failures_total",
			Help: "Requests rejected for a missing, invalid or revoked token",
		}),
	}
}
