package node

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the prover node.
type Metrics struct {
	Claims        *prometheus.CounterVec
	Proofs        *prometheus.CounterVec
	Submissions   *prometheus.CounterVec
	Settlements   *prometheus.CounterVec
	ProofDuration prometheus.Histogram
	InFlight      prometheus.Gauge
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// NewMetrics returns the process wide node metrics.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			Claims: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "zkchannel",
					Subsystem: "node",
					Name:      "claims_total",
					Help:      "Claim attempts, by result",
				},
				[]string{"result"},
			),
			Proofs: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "zkchannel",
					Subsystem: "node",
					Name:      "proofs_total",
					Help:      "Proof attempts, by result",
				},
				[]string{"result"},
			),
			Submissions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "zkchannel",
					Subsystem: "node",
					Name:      "status_submissions_total",
					Help:      "Status transactions, by result",
				},
				[]string{"result"},
			),
			Settlements: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "zkchannel",
					Subsystem: "node",
					Name:      "tracked_outcomes_total",
					Help:      "Tracked executions by final outcome",
				},
				[]string{"outcome"},
			),
			ProofDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "zkchannel",
					Subsystem: "node",
					Name:      "proof_duration_seconds",
					Help:      "Time spent proving one execution",
					Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
				},
			),
			InFlight: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "zkchannel",
					Subsystem: "node",
					Name:      "proofs_in_flight",
					Help:      "Executions currently being proven",
				},
			),
		}
	})
	return metricsInstance
}
