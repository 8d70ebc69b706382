package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storageRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "btpc",
		Subsystem: "storage",
		Name:      "operations_total",
		Help:      "Count of key-value store operations.",
	}, []string{"operation", "backend", "status"})
	storageRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "btpc",
		Subsystem: "storage",
		Name:      "operation_duration_seconds",
		Help:      "Duration of key-value store operations.",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"operation", "backend", "status"})
	storageBatchSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "btpc",
		Subsystem: "storage",
		Name:      "batch_operations",
		Help:      "Number of puts and deletes per atomic batch.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
	}, []string{"backend"})
)

// Storage tracks metrics for a key-value backend.
type Storage struct {
	backend string
}

// NewStorage constructs a Storage collector for the named backend.
func NewStorage(backend string) *Storage {
	if backend == "" {
		backend = "unknown"
	}
	return &Storage{backend: backend}
}

// Observe records a single store operation outcome and duration. A missing
// key is not an error for metrics purposes; callers pass nil for it.
func (m Storage) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	storageRequestsTotal.WithLabelValues(operation, m.backend, status).Inc()
	storageRequestDuration.WithLabelValues(operation, m.backend, status).Observe(time.Since(started).Seconds())
}

// ObserveBatch records the size of a committed batch.
func (m Storage) ObserveBatch(ops int) {
	storageBatchSize.WithLabelValues(m.backend).Observe(float64(ops))
}
