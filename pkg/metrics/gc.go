package metrics

import (
	"github.com/marmos91/shadowfs/pkg/gc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// gcMetrics is the Prometheus implementation of gc.Metrics.
type gcMetrics struct {
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
	entries  *prometheus.CounterVec
	pruned   prometheus.Counter
	lastRun  prometheus.Gauge
}

// NewGCMetrics creates a new Prometheus-backed gc.Metrics instance.
//
// Returns nil if metrics are not enabled, which causes the collector to use
// its built-in no-op implementation.
func NewGCMetrics() gc.Metrics {
	if !IsEnabled() {
		return nil
	}
	return newGCMetrics(GetRegistry())
}

func newGCMetrics(reg prometheus.Registerer) *gcMetrics {
	return &gcMetrics{
		runs: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "shadowfs_gc_runs_total",
				Help: "Total number of shadow-tree sweeps by status",
			},
			[]string{"status"},
		),
		duration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shadowfs_gc_duration_seconds",
				Help:    "Duration of shadow-tree sweeps in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		entries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "shadowfs_gc_entries_total",
				Help: "Shadow entries processed by sweeps, by outcome",
			},
			[]string{"outcome"},
		),
		pruned: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "shadowfs_gc_pruned_directories_total",
				Help: "Empty shadow directories removed by sweeps",
			},
		),
		lastRun: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "shadowfs_gc_last_run_timestamp_seconds",
				Help: "Unix time at which the last sweep finished",
			},
		),
	}
}

func (m *gcMetrics) RecordRun(stats *gc.Stats, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.runs.WithLabelValues(status).Inc()
	m.duration.Observe(stats.Duration().Seconds())

	m.entries.WithLabelValues("scanned").Add(float64(stats.ScannedCount))
	m.entries.WithLabelValues("stale").Add(float64(stats.StaleCount))
	m.entries.WithLabelValues("removed").Add(float64(stats.RemovedCount))
	m.entries.WithLabelValues("failed").Add(float64(stats.FailedCount))
	m.pruned.Add(float64(stats.PrunedCount))

	if !stats.EndTime.IsZero() {
		m.lastRun.Set(float64(stats.EndTime.Unix()))
	}
}
