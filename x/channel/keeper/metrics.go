package keeper

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ChannelMetrics holds all Prometheus metrics for the channel module
type ChannelMetrics struct {
	Instructions        *prometheus.CounterVec
	ExecutionsRequested *prometheus.CounterVec
	Claims              prometheus.Counter
	ClaimConflicts      prometheus.Counter
	Settlements         *prometheus.CounterVec
	TipsPaid            prometheus.Counter
	CallbackFailures    *prometheus.CounterVec
	VerificationTime    prometheus.Histogram
	PanicRecoveries     prometheus.Counter
}

var (
	channelMetricsOnce sync.Once
	channelMetrics     *ChannelMetrics
)

// NewChannelMetrics creates and registers channel metrics (singleton pattern)
func NewChannelMetrics() *ChannelMetrics {
	channelMetricsOnce.Do(func() {
		channelMetrics = &ChannelMetrics{
			Instructions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "zkchannel",
					Subsystem: "channel",
					Name:      "instructions_total",
					Help:      "Channel instructions processed by kind and result",
				},
				[]string{"kind", "result"},
			),
			ExecutionsRequested: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "zkchannel",
					Subsystem: "channel",
					Name:      "executions_requested_total",
					Help:      "Execution requests opened",
				},
				[]string{"prover_version"},
			),
			Claims: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "zkchannel",
					Subsystem: "channel",
					Name:      "claims_total",
					Help:      "Executions claimed by provers",
				},
			),
			ClaimConflicts: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "zkchannel",
					Subsystem: "channel",
					Name:      "claim_conflicts_total",
					Help:      "Claims rejected because the execution was already claimed",
				},
			),
			Settlements: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "zkchannel",
					Subsystem: "channel",
					Name:      "settlements_total",
					Help:      "Executions settled by exit code",
				},
				[]string{"exit_code", "prover_version"},
			),
			TipsPaid: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "zkchannel",
					Subsystem: "channel",
					Name:      "tips_paid_lamports_total",
					Help:      "Lamports paid to provers as tips",
				},
			),
			CallbackFailures: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "zkchannel",
					Subsystem: "channel",
					Name:      "callback_failures_total",
					Help:      "Callback invocations that failed or panicked",
				},
				[]string{"program"},
			),
			VerificationTime: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "zkchannel",
					Subsystem: "channel",
					Name:      "proof_verification_seconds",
					Help:      "Time spent verifying proofs",
					Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
				},
			),
			PanicRecoveries: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "zkchannel",
					Subsystem: "channel",
					Name:      "panic_recoveries_total",
					Help:      "Program panics converted to errors",
				},
			),
		}
	})
	return channelMetrics
}
