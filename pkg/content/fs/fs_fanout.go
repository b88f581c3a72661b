package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmos91/shadowfs/internal/logger"
	"golang.org/x/sync/errgroup"
)

const (
	// shardWidth is the number of directories at each shard level (two hex
	// characters).
	shardWidth = 256

	// fanoutWorkers bounds the number of first-level shards populated in
	// parallel.
	fanoutWorkers = 16
)

// InitializeFanout creates the full two-level shard skeleton (00/00 .. ff/ff)
// under the base path.
//
// Pre-creating the skeleton removes directory creation from the write hot
// path. The operation is idempotent: directories that already exist are not
// an error, so it can run at every startup and race with concurrent writers.
//
// Context Cancellation:
// The context is checked before each first-level shard.
//
// Returns:
//   - error: The first directory creation failure, or the context error
func (r *FSContentStore) InitializeFanout(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	logger.Info("Initializing primary fan-out under %s", r.basePath)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanoutWorkers)

	for i := 0; i < shardWidth; i++ {
		first := fmt.Sprintf("%02x", i)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for j := 0; j < shardWidth; j++ {
				dir := filepath.Join(r.basePath, first, fmt.Sprintf("%02x", j))
				if err := os.MkdirAll(dir, dirMode); err != nil {
					return fmt.Errorf("failed to create shard directory %s: %w", dir, err)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Debug("Primary fan-out ready: %d shard directories", shardWidth*shardWidth)
	return nil
}
