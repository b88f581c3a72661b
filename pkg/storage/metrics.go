package storage

import (
	"time"

	"github.com/marmos91/shadowfs/pkg/shadow"
)

// Metrics provides observability for the storage engine.
//
// This is optional - if not provided, metrics collection is skipped. The
// Prometheus implementation lives in pkg/metrics.
type Metrics interface {
	// ObserveOperation records a Put, Get or Delete with its status label
	ObserveOperation(op string, status string, duration time.Duration)

	// RecordBytes records bytes written (put) or read (get)
	RecordBytes(op string, bytes int)

	// RecordLink records a shadow link outcome
	RecordLink(result shadow.Result, symlink bool)

	// RecordExtractionFailure records structured content without usable metadata
	RecordExtractionFailure()

	// RecordUnlink records a shadow link removal attempt on delete
	RecordUnlink(success bool)

	// RecordPrunedDirectories records empty shadow directories removed on delete
	RecordPrunedDirectories(count int)
}

// noopMetrics is a default no-op metrics implementation
type noopMetrics struct{}

func (noopMetrics) ObserveOperation(op string, status string, duration time.Duration) {}
func (noopMetrics) RecordBytes(op string, bytes int)                                  {}
func (noopMetrics) RecordLink(result shadow.Result, symlink bool)                     {}
func (noopMetrics) RecordExtractionFailure()                                          {}
func (noopMetrics) RecordUnlink(success bool)                                         {}
func (noopMetrics) RecordPrunedDirectories(count int)                                 {}
