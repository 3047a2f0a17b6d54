package adapter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts adapter traffic.
type Metrics struct {
	Forwards        *prometheus.CounterVec
	Upgrades        prometheus.Counter
	PublishFailures prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Forwards: f.NewCounterVec(prometheus.CounterOpts{
			Name: "condo_adapter_forwards_total",
			Help: "Calls forwarded to the active backend by operation and result code",
		}, []string{"operation", "result"}),
		Upgrades: f.NewCounter(prometheus.CounterOpts{
			Name: "condo_adapter_upgrades_total",
			Help: "Times the adapter was pointed at a different backend",
		}),
		PublishFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "condo_adapter_publish_failures_total",
			Help: "Committed receipts whose events could not be published",
		}),
	}
}
