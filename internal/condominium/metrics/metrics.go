package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for backend operations. One instance is
// shared by every deployed backend; series are labelled by backend address.
type Metrics struct {
	ResidentChanges   *prometheus.CounterVec
	TopicsCreated     *prometheus.CounterVec
	VotesCast         *prometheus.CounterVec
	VotingsClosed     *prometheus.CounterVec
	QuotaPayments     *prometheus.CounterVec
	TransferredUnits  *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New registers the metrics with reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ResidentChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "condo_resident_changes_total",
			Help: "Resident registry changes by action (added, moved, removed, counselor)",
		}, []string{"backend", "action"}),
		TopicsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "condo_topics_created_total",
			Help: "Topics created by category",
		}, []string{"backend", "category"}),
		VotesCast: f.NewCounterVec(prometheus.CounterOpts{
			Name: "condo_votes_cast_total",
			Help: "Votes cast by option",
		}, []string{"backend", "option"}),
		VotingsClosed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "condo_votings_closed_total",
			Help: "Closed votings by category and outcome",
		}, []string{"backend", "category", "outcome"}),
		QuotaPayments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "condo_quota_payments_total",
			Help: "Accepted monthly quota payments",
		}, []string{"backend"}),
		TransferredUnits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "condo_treasury_transferred_units_total",
			Help: "Smallest-denomination units released from the treasury",
		}, []string{"backend"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "condo_backend_operation_duration_seconds",
			Help:    "Duration of backend mutations including the store transaction",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation", "result"}),
	}
}

// ObserveOperation records the duration of a mutation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.OperationDuration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}
