package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the card engine.
type Metrics struct {
	// Card mutations by action (create, update, delete) and outcome
	// ("ok" or the error code)
	CardMutations *prometheus.CounterVec

	// Verifications by result: "verified", "not_verified" or the error code
	Verifications *prometheus.CounterVec

	// Store transaction latency by operation
	TxDuration *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CardMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "healthcard_card_mutations_total",
			Help: "Card mutations by action and outcome",
		}, []string{"action", "outcome"}),

		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "healthcard_card_verifications_total",
			Help: "Card verifications by result",
		}, []string{"result"}),

		TxDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "healthcard_store_tx_duration_seconds",
			Help:    "Duration of store transactions by operation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
	}
}

// IncrementMutation records the outcome of a card mutation.
func (m *Metrics) IncrementMutation(action, outcome string) {
	if m != nil {
		m.CardMutations.WithLabelValues(action, outcome).Inc()
	}
}

// IncrementVerification records a verification result.
func (m *Metrics) IncrementVerification(result string) {
	if m != nil {
		m.Verifications.WithLabelValues(result).Inc()
	}
}

// ObserveTx records how long a store transaction took.
func (m *Metrics) ObserveTx(operation string, d time.Duration) {
	if m != nil {
		m.TxDuration.WithLabelValues(operation).Observe(d.Seconds())
	}
}
