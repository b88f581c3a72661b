package metrics

import (
	"strconv"
	"time"

	"github.com/marmos91/shadowfs/pkg/shadow"
	"github.com/marmos91/shadowfs/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// storageMetrics is the Prometheus implementation of storage.Metrics.
//
// It collects:
//   - Put/Get/Delete counts and latencies by status
//   - Bytes written to and read from the primary store
//   - Shadow link outcomes, extraction failures, unlinks and pruned directories
type storageMetrics struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	bytes       *prometheus.CounterVec
	links       *prometheus.CounterVec
	extractions prometheus.Counter
	unlinks     *prometheus.CounterVec
	pruned      prometheus.Counter
}

// NewStorageMetrics creates a new Prometheus-backed storage.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called), which
// causes the engine to use its built-in no-op implementation.
func NewStorageMetrics() storage.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newStorageMetrics(GetRegistry())
}

func newStorageMetrics(reg prometheus.Registerer) *storageMetrics {
	return &storageMetrics{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "shadowfs_storage_operations_total",
				Help: "Total number of storage operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "shadowfs_storage_operation_duration_seconds",
				Help: "Duration of storage operations in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.0005, // 500µs
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.5,    // 500ms
					1,      // 1s
					5,      // 5s
				},
			},
			[]string{"operation"},
		),
		bytes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "shadowfs_storage_bytes_total",
				Help: "Total bytes written to or read from the primary store",
			},
			[]string{"operation"},
		),
		links: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "shadowfs_shadow_links_total",
				Help: "Shadow link attempts by result and link type",
			},
			[]string{"result", "symlink"},
		),
		extractions: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "shadowfs_shadow_extraction_failures_total",
				Help: "Structured objects stored without a shadow path",
			},
		),
		unlinks: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "shadowfs_shadow_unlinks_total",
				Help: "Shadow link removals on delete by status",
			},
			[]string{"status"},
		),
		pruned: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "shadowfs_shadow_pruned_directories_total",
				Help: "Empty shadow directories removed on delete",
			},
		),
	}
}

func (m *storageMetrics) ObserveOperation(op string, status string, duration time.Duration) {
	m.operations.WithLabelValues(op, status).Inc()
	m.duration.WithLabelValues(op).Observe(duration.Seconds())
}

func (m *storageMetrics) RecordBytes(op string, bytes int) {
	m.bytes.WithLabelValues(op).Add(float64(bytes))
}

func (m *storageMetrics) RecordLink(result shadow.Result, symlink bool) {
	m.links.WithLabelValues(result.String(), strconv.FormatBool(symlink)).Inc()
}

func (m *storageMetrics) RecordExtractionFailure() {
	m.extractions.Inc()
}

func (m *storageMetrics) RecordUnlink(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.unlinks.WithLabelValues(status).Inc()
}

func (m *storageMetrics) RecordPrunedDirectories(count int) {
	if count > 0 {
		m.pruned.Add(float64(count))
	}
}
