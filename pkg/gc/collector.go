// Package gc provides garbage collection for stale shadow-tree entries.
//
// The shadow tree is only cleaned on Delete. Entries become stale when:
//   - The process crashes between primary removal and shadow removal
//   - Primary files are removed out-of-band
//   - A symbolic link's target disappears (cross-device fallback)
//
// The collector walks the shadow root, removes entries that no longer reference
// a primary file, and prunes the directories they leave empty. The shadow root
// itself is never removed.
package gc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/marmos91/shadowfs/internal/logger"
	"github.com/marmos91/shadowfs/internal/ratelimiter"
)

// Collector performs periodic garbage collection on a shadow tree.
//
// Thread Safety: Safe for concurrent use. A single collection runs at a time.
// Pruning may remove a directory a concurrent Put has just created;
// shadow.Linker recreates it once before giving up on the link.
type Collector struct {
	shadowRoot string
	config     Config
	limiter    *ratelimiter.RateLimiter
	metrics    Metrics

	runMu     sync.Mutex
	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// Config contains configuration for the garbage collector.
type Config struct {
	// Enabled controls whether periodic collection is active
	Enabled bool

	// Interval is how often to run garbage collection (default: 1h)
	Interval time.Duration

	// DryRun mode logs what would be removed without removing anything
	DryRun bool

	// RateLimit caps the number of shadow entries inspected per second (0 = unlimited)
	RateLimit uint

	// Burst is the number of entries that may be inspected at once (default: RateLimit)
	Burst uint
}

// NewCollector creates a new garbage collector for the shadow tree at
// shadowRoot.
//
// The collector is initialized but not started. Call Start() to begin
// background collection, or RunOnce() for a single sweep.
//
// Parameters:
//   - shadowRoot: Root of the shadow tree (must exist)
//   - config: Garbage collection configuration
//   - metrics: Optional metrics collector (nil disables metrics)
//
// Returns:
//   - *Collector: Initialized collector (not started)
//   - error: Returns error if shadowRoot is empty or not a directory
func NewCollector(shadowRoot string, config Config, metrics Metrics) (*Collector, error) {
	if shadowRoot == "" {
		return nil, errors.New("shadow root is required")
	}

	info, err := os.Stat(shadowRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to access shadow root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("shadow root %q is not a directory", shadowRoot)
	}

	if config.Interval == 0 {
		config.Interval = time.Hour
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Collector{
		shadowRoot: filepath.Clean(shadowRoot),
		config:     config,
		limiter:    ratelimiter.New(config.RateLimit, config.Burst),
		metrics:    metrics,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}, nil
}

// Start begins background garbage collection.
//
// Safe to call multiple times (subsequent calls are no-ops).
func (c *Collector) Start() {
	if !c.config.Enabled {
		logger.Info("Garbage collection disabled")
		return
	}

	c.startOnce.Do(func() {
		c.started.Store(true)
		logger.Info("Starting garbage collector: root=%s interval=%s rate_limit=%d dry_run=%v",
			c.shadowRoot, c.config.Interval, c.config.RateLimit, c.config.DryRun)
		go c.worker()
	})
}

// Name identifies the collector as a host service.
func (c *Collector) Name() string {
	return "gc"
}

// Serve starts background collection and blocks until ctx is cancelled. The
// worker keeps running until Stop is called.
func (c *Collector) Serve(ctx context.Context) error {
	c.Start()
	<-ctx.Done()
	return nil
}

// Stop stops the garbage collector and waits for an in-progress sweep to be
// interrupted. Safe to call multiple times.
//
// Returns:
//   - error: Returns ctx.Err() if the worker does not finish in time
func (c *Collector) Stop(ctx context.Context) error {
	if !c.started.Load() {
		return nil
	}

	logger.Info("Stopping garbage collector...")
	c.stopOnce.Do(func() { close(c.stopCh) })

	select {
	case <-c.doneCh:
		logger.Info("Garbage collector stopped successfully")
		return nil
	case <-ctx.Done():
		logger.Warn("Garbage collector shutdown timeout")
		return ctx.Err()
	}
}

// RunOnce performs a single sweep and blocks until it completes or ctx is
// cancelled.
//
// Returns:
//   - *Stats: Collection statistics (partial when cancelled)
//   - error: Returns error if the walk fails or ctx is cancelled
func (c *Collector) RunOnce(ctx context.Context) (*Stats, error) {
	stats, err := c.collect(ctx)
	c.metrics.RecordRun(stats, err)
	return stats, err
}

// worker is the background goroutine that runs periodic garbage collection.
func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-ticker.C:
			stats, err := c.RunOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error("Garbage collection failed: %v", err)
			} else {
				logger.Info("Garbage collection completed: %s", stats.Summary())
			}

		case <-c.stopCh:
			return
		}
	}
}

// collect performs a single garbage collection run.
//
// The algorithm:
//  1. Walk the shadow tree, classifying every non-directory entry
//  2. Remove dangling symbolic links and hard links whose primary is gone
//  3. Remove empty directories, deepest first, never the shadow root
func (c *Collector) collect(ctx context.Context) (*Stats, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	stats := &Stats{StartTime: time.Now(), DryRun: c.config.DryRun}
	defer func() { stats.EndTime = time.Now() }()

	// ========================================================================
	// Phase 1 and 2: Walk and remove stale entries
	// ========================================================================

	var dirs []string
	err := filepath.WalkDir(c.shadowRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == c.shadowRoot {
				return walkErr
			}
			logger.Warn("GC: cannot access %q: %v", path, walkErr)
			stats.FailedCount++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != c.shadowRoot {
				dirs = append(dirs, path)
			}
			return nil
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		stats.ScannedCount++
		reason, stale := classify(path, d)
		if !stale {
			return nil
		}

		stats.StaleCount++
		if c.config.DryRun {
			logger.Info("GC: DRY RUN - would remove %s (%s)", path, reason)
			return nil
		}

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("GC: failed to remove %s: %v", path, err)
			stats.FailedCount++
			return nil
		}
		logger.Debug("GC: removed %s (%s)", path, reason)
		stats.RemovedCount++
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("failed to walk shadow tree: %w", err)
	}

	// ========================================================================
	// Phase 3: Prune empty directories
	// ========================================================================
	// WalkDir visits parents before children, so reverse order is deepest
	// first and a parent emptied by its children is caught in the same run.

	if c.config.DryRun {
		return stats, nil
	}

	for i := len(dirs) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		entries, err := os.ReadDir(dirs[i])
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := os.Remove(dirs[i]); err != nil {
			logger.Debug("GC: failed to prune %s: %v", dirs[i], err)
			continue
		}
		stats.PrunedCount++
	}

	logger.Debug("GC: completed - %s", stats.Summary())
	return stats, nil
}

// classify reports whether a shadow entry no longer references a primary file
// and why.
func classify(path string, d fs.DirEntry) (string, bool) {
	switch {
	case d.Type()&fs.ModeSymlink != 0:
		if _, err := os.Stat(path); err != nil && errors.Is(err, fs.ErrNotExist) {
			return "dangling symlink", true
		}
		return "", false

	case d.Type().IsRegular():
		var st unix.Stat_t
		if err := unix.Lstat(path, &st); err != nil {
			return "", false
		}
		// The shadow entry is the last remaining name of the inode.
		if st.Nlink <= 1 {
			return "orphaned hard link", true
		}
		return "", false

	default:
		return "", false
	}
}

// Stats contains statistics from a garbage collection run.
type Stats struct {
	StartTime    time.Time // When collection started
	EndTime      time.Time // When collection ended
	DryRun       bool      // Whether removals were only reported
	ScannedCount uint64    // Number of non-directory entries inspected
	StaleCount   uint64    // Number of entries no longer referencing a primary file
	RemovedCount uint64    // Number of stale entries removed
	FailedCount  uint64    // Number of entries that could not be accessed or removed
	PrunedCount  uint64    // Number of empty directories removed
}

// Duration returns the total collection duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the collection.
func (s *Stats) Summary() string {
	return fmt.Sprintf("scanned=%d stale=%d removed=%d failed=%d pruned=%d dry_run=%v duration=%s",
		s.ScannedCount, s.StaleCount, s.RemovedCount, s.FailedCount, s.PrunedCount, s.DryRun, s.Duration())
}
