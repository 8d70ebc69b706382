package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	exporterEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "btpc",
		Subsystem: "exporter",
		Name:      "events_total",
		Help:      "Count of events offered to the export pipeline by kind and outcome.",
	}, []string{"kind", "status"})

	exporterFlushRows = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "btpc",
		Subsystem: "exporter",
		Name:      "flush_rows",
		Help:      "Number of rows written per flush.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"kind"})
)

// Exporter tracks metrics for the export pipeline.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

// ObserveQueued records an event that entered the buffer.
func (Exporter) ObserveQueued(kind string) {
	exporterEventsTotal.WithLabelValues(kind, "queued").Inc()
}

// ObserveDropped records an event discarded because the buffer was full or stopped.
func (Exporter) ObserveDropped(kind string) {
	exporterEventsTotal.WithLabelValues(kind, "dropped").Inc()
}

// ObserveFlush records a flush of rows of the given kind.
func (Exporter) ObserveFlush(kind string, rows int) {
	exporterFlushRows.WithLabelValues(kind).Observe(float64(rows))
}
