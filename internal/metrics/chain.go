// Package metrics exposes application metrics collectors.
package metrics

import (
	"time"

	"github.com/goodnatureofminers/btpc-node/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chainBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "btpc",
		Subsystem: "chain",
		Name:      "blocks_processed_total",
		Help:      "Count of blocks submitted for validation by outcome and reject reason.",
	}, []string{"network", "status", "reason"})

	chainProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "btpc",
		Subsystem: "chain",
		Name:      "process_block_duration_seconds",
		Help:      "Duration of full block validation and commit.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"network", "status"})

	chainStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "btpc",
		Subsystem: "chain",
		Name:      "stage_duration_seconds",
		Help:      "Duration of a single block validation stage.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"network", "stage"})

	chainTipHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "btpc",
		Subsystem: "chain",
		Name:      "tip_height",
		Help:      "Height of the active chain tip.",
	}, []string{"network"})

	chainBlockTransactions = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "btpc",
		Subsystem: "chain",
		Name:      "block_transactions",
		Help:      "Number of transactions per accepted block.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"network"})
)

// Chain tracks metrics for block acceptance.
type Chain struct {
	network model.Network
}

// NewChain constructs a Chain collector.
func NewChain(network model.Network) *Chain {
	if network == "" {
		network = "unknown"
	}
	return &Chain{network: network}
}

// ObserveProcessBlock records the outcome of ProcessBlock. reason is empty on success.
func (m Chain) ObserveProcessBlock(reason string, txs int, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	chainBlocksTotal.WithLabelValues(string(m.network), status, reason).Inc()
	chainProcessDuration.WithLabelValues(string(m.network), status).Observe(time.Since(started).Seconds())
	if err == nil {
		chainBlockTransactions.WithLabelValues(string(m.network)).Observe(float64(txs))
	}
}

// ObserveStage records how long one validation stage took.
func (m Chain) ObserveStage(stage string, started time.Time) {
	chainStageDuration.WithLabelValues(string(m.network), stage).Observe(time.Since(started).Seconds())
}

// SetTip publishes the current tip height.
func (m Chain) SetTip(height uint32) {
	chainTipHeight.WithLabelValues(string(m.network)).Set(float64(height))
}
