// Package metrics exposes Prometheus metrics for the faucet.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the faucet's Prometheus collectors.
type Metrics struct {
	Airdrops        *prometheus.CounterVec
	LamportsDripped prometheus.Counter
	DripSize        prometheus.Histogram
}

// New creates and registers faucet metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates faucet metrics on a caller-supplied registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Airdrops: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "devbank_faucet_airdrops_total",
			Help: "Airdrop requests by outcome.",
		}, []string{"outcome"}),
		LamportsDripped: factory.NewCounter(prometheus.CounterOpts{
			Name: "devbank_faucet_lamports_dripped_total",
			Help: "Total lamports credited by the faucet.",
		}),
		DripSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "devbank_faucet_drip_lamports",
			Help:    "Distribution of airdrop sizes in lamports.",
			Buckets: prometheus.ExponentialBuckets(1e6, 10, 7),
		}),
	}
}

// ObserveAirdrop records one airdrop outcome.
func (m *Metrics) ObserveAirdrop(outcome string, lamports uint64) {
	if m == nil {
		return
	}
	m.Airdrops.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.LamportsDripped.Add(float64(lamports))
		m.DripSize.Observe(float64(lamports))
	}
}
