package storage

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marmos91/shadowfs/internal/logger"
	"github.com/marmos91/shadowfs/pkg/content"
	"github.com/marmos91/shadowfs/pkg/shadow"
)

// Put stores data under id and, for structured content, links it into the
// shadow tree.
//
// The shadow path is derived by a separate goroutine while the primary bytes
// are written, and joined once the primary write has finished. The link is
// only attempted after the primary write succeeded; its outcome is logged and
// counted but never returned.
//
// Returns:
//   - error: ErrInvalidContentID, ErrContentExists, ErrIOFailure or
//     ErrCorruptedFile (wrapped), or the context error. On error the object
//     is not stored.
func (e *Engine) Put(ctx context.Context, id content.ContentID, data []byte, kind content.ContentKind) (err error) {
	start := time.Now()
	defer func() {
		e.metrics.ObserveOperation("put", statusOf(err), time.Since(start))
	}()

	if err := id.Validate(); err != nil {
		return err
	}

	// ========================================================================
	// Step 1: Derive the shadow path concurrently with the primary write
	// ========================================================================
	// The task only reads data and returns its result through the closure
	// variables, which are read after Wait.

	var (
		shadowPath string
		hasShadow  bool
		derive     errgroup.Group
	)
	derive.Go(func() error {
		shadowPath, hasShadow = e.ShadowPath(data, kind)
		return nil
	})

	// ========================================================================
	// Step 2: Write the primary file (exclusive create)
	// ========================================================================

	if err := e.primary.WriteContent(ctx, id, data); err != nil {
		_ = derive.Wait()
		if errors.Is(err, content.ErrContentExists) {
			logger.Debug("Put %s: already stored", id)
		} else {
			logger.Error("Failed to write %q: %v", e.primary.Path(id), err)
		}
		return err
	}
	e.metrics.RecordBytes("put", len(data))

	// ========================================================================
	// Step 3: Join the derivation and materialize the link
	// ========================================================================

	_ = derive.Wait()

	if !hasShadow {
		logger.Debug("Put %s: stored %d bytes (%s, no shadow)", id, len(data), kind)
		return nil
	}

	outcome := e.linker.Materialize(e.primary.Path(id), shadowPath)
	e.metrics.RecordLink(outcome.Result, outcome.Symlink)
	if outcome.Result == shadow.Failed {
		logger.Warn("Put %s: stored without shadow: %v", id, outcome.Err)
	} else {
		logger.Debug("Put %s: stored %d bytes, shadow %s (%s)", id, len(data), shadowPath, outcome.Result)
	}

	return nil
}

// Delete removes the object stored under id.
//
// The shadow path is recomputed from the stored bytes (it is never persisted).
// If an entry exists there and references this object's primary file, it is
// unlinked and its emptied ancestor directories are pruned up to, but
// excluding, the shadow root. These shadow steps are best-effort. The primary
// file is removed last; only its removal decides the result.
//
// Returns:
//   - error: ErrInvalidContentID, ErrContentNotFound or ErrIOFailure
//     (wrapped), or the context error
func (e *Engine) Delete(ctx context.Context, id content.ContentID) (err error) {
	start := time.Now()
	defer func() {
		e.metrics.ObserveOperation("delete", statusOf(err), time.Since(start))
	}()

	if err := id.Validate(); err != nil {
		return err
	}

	// ========================================================================
	// Step 1: Read the primary bytes to recompute the shadow path
	// ========================================================================

	data, err := e.primary.ReadContent(ctx, id)
	switch {
	case errors.Is(err, content.ErrContentNotFound):
		return err
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// The primary is unreadable; its shadow entry cannot be located, but
		// the object must still be removable.
		logger.Warn("Delete %s: cannot read content to locate shadow: %v", id, err)
	default:
		e.removeShadow(id, data)
	}

	// ========================================================================
	// Step 2: Remove the primary file
	// ========================================================================

	if err := e.primary.Delete(ctx, id); err != nil {
		logger.Error("Failed to delete %q: %v", e.primary.Path(id), err)
		return err
	}

	logger.Debug("Delete %s: removed", id)
	return nil
}

// removeShadow unlinks the shadow entry of id, if any, and prunes the emptied
// ancestors. Failures are logged only.
func (e *Engine) removeShadow(id content.ContentID, data []byte) {
	// The stored kind is not known here, so the bytes are always treated as
	// structured; the Resolves check below guarantees that only an entry
	// referencing this very object can be removed.
	shadowPath, ok := e.ShadowPath(data, content.KindStructured)
	if !ok {
		return
	}

	primaryPath := e.primary.Path(id)
	if !e.linker.Resolves(shadowPath, primaryPath) {
		logger.Debug("Delete %s: shadow %s does not reference this object", id, shadowPath)
		return
	}

	if err := e.linker.Remove(shadowPath); err != nil {
		e.metrics.RecordUnlink(false)
		logger.Warn("Delete %s: failed to delete shadow: %v", id, err)
		return
	}
	e.metrics.RecordUnlink(true)

	pruned := shadow.PruneEmptyAncestors(filepath.Dir(shadowPath), e.cfg.ShadowRoot)
	e.metrics.RecordPrunedDirectories(pruned)
}
