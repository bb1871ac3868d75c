// Package metrics exposes Prometheus metrics for ledger operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the ledger's Prometheus collectors.
type Metrics struct {
	Operations *prometheus.CounterVec
	Lamports   *prometheus.CounterVec
}

// New creates and registers ledger metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates ledger metrics on a caller-supplied registry. Tests use
// this to avoid duplicate registration across cases.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "devbank_ledger_operations_total",
			Help: "Ledger operations by type and outcome.",
		}, []string{"op", "outcome"}),
		Lamports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "devbank_ledger_lamports_total",
			Help: "Lamports moved by successful ledger operations, by type.",
		}, []string{"op"}),
	}
}

// Observe records one operation outcome and, on success, the lamports moved.
func (m *Metrics) Observe(op string, amount uint64, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Operations.WithLabelValues(op, outcome).Inc()
	if err == nil && amount > 0 {
		m.Lamports.WithLabelValues(op).Add(float64(amount))
	}
}
