package app

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LedgerMetrics tracks block production and transaction processing.
type LedgerMetrics struct {
	Transactions *prometheus.CounterVec
	TxGasUsed    prometheus.Histogram
	TxLatency    prometheus.Histogram
	BlockHeight  prometheus.Gauge
	Airdrops     prometheus.Counter
	RecentHashes prometheus.Gauge
}

var (
	ledgerMetricsOnce     sync.Once
	ledgerMetricsInstance *LedgerMetrics
)

// NewLedgerMetrics returns the process wide ledger metrics.
func NewLedgerMetrics() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerMetricsInstance = &LedgerMetrics{
			Transactions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "zkchannel",
					Subsystem: "ledger",
					Name:      "transactions_total",
					Help:      "Transactions processed, by result",
				},
				[]string{"result"},
			),
			TxGasUsed: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "zkchannel",
					Subsystem: "ledger",
					Name:      "tx_gas_used",
					Help:      "Gas used per transaction",
					Buckets:   prometheus.ExponentialBuckets(1000, 4, 8),
				},
			),
			TxLatency: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: "zkchannel",
					Subsystem: "ledger",
					Name:      "tx_duration_seconds",
					Help:      "Time spent executing a transaction",
					Buckets:   prometheus.DefBuckets,
				},
			),
			BlockHeight: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "zkchannel",
					Subsystem: "ledger",
					Name:      "block_height",
					Help:      "Latest committed block height",
				},
			),
			Airdrops: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "zkchannel",
					Subsystem: "ledger",
					Name:      "airdrops_total",
					Help:      "Devnet airdrops granted",
				},
			),
			RecentHashes: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "zkchannel",
					Subsystem: "ledger",
					Name:      "recent_blockhashes",
					Help:      "Blockhashes currently accepted for new transactions",
				},
			),
		}
	})
	return ledgerMetricsInstance
}
