package metrics

import (
	"time"

	"github.com/goodnatureofminers/btpc-node/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importerBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "btpc",
		Subsystem: "importer",
		Name:      "blocks_total",
		Help:      "Count of blocks read from the import source by outcome.",
	}, []string{"network", "status"})

	importerBlockDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "btpc",
		Subsystem: "importer",
		Name:      "block_duration_seconds",
		Help:      "Duration of importing a single block.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"network", "status"})

	importerBlockBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "btpc",
		Subsystem: "importer",
		Name:      "block_bytes",
		Help:      "Serialized size of imported blocks.",
		Buckets:   prometheus.ExponentialBuckets(256, 2, 13),
	}, []string{"network"})
)

// Importer tracks metrics for the bootstrap block importer.
type Importer struct {
	network model.Network
}

// NewImporter constructs an Importer collector.
func NewImporter(network model.Network) *Importer {
	if network == "" {
		network = "unknown"
	}
	return &Importer{network: network}
}

// ObserveBlock records the outcome of importing one block. status is
// "success", "skipped" or "error".
func (m Importer) ObserveBlock(status string, size int, started time.Time) {
	importerBlocksTotal.WithLabelValues(string(m.network), status).Inc()
	importerBlockDuration.WithLabelValues(string(m.network), status).Observe(time.Since(started).Seconds())
	importerBlockBytes.WithLabelValues(string(m.network)).Observe(float64(size))
}
