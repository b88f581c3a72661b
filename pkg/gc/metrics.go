package gc

// Metrics provides observability for garbage collection runs.
//
// This is optional - if not provided, metrics collection is skipped. The
// Prometheus implementation lives in pkg/metrics.
type Metrics interface {
	// RecordRun records the outcome of a single sweep. stats is never nil.
	RecordRun(stats *Stats, err error)
}

// noopMetrics is a default no-op metrics implementation
type noopMetrics struct{}

func (noopMetrics) RecordRun(stats *Stats, err error) {}
