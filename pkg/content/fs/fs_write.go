// Package fs implements the primary, identifier-sharded content store.
//
// This file contains write operations: exclusive content creation and
// deletion.
package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmos91/shadowfs/internal/logger"
	"github.com/marmos91/shadowfs/pkg/content"
)

// largeWriteThreshold is the size above which content is written in chunks
// with context checks between them.
const largeWriteThreshold = 10 * 1024 * 1024

// writeChunkSize is the chunk size used for large writes.
const writeChunkSize = 1 * 1024 * 1024

// WriteContent creates the primary file for id with the given bytes.
//
// The file is created with O_EXCL: if it already exists the call fails with
// ErrContentExists and the stored bytes are left untouched. On any failure
// after the file was created (short write, I/O error, cancellation) the
// partial file is removed so a failed write never leaves an object behind.
//
// Context Cancellation:
// Checked before opening the file, and between chunks for content larger than
// 10MB.
//
// Parameters:
//   - ctx: Context for cancellation
//   - id: Content identifier (validated here)
//   - data: Full content bytes
//
// Returns:
//   - error: ErrInvalidContentID, ErrContentExists, ErrIOFailure or
//     ErrCorruptedFile (all wrapped), or the context error
func (r *FSContentStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) error {
	// ========================================================================
	// Step 1: Validate and check context before filesystem operation
	// ========================================================================

	if err := id.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	filePath := r.Path(id)

	// ========================================================================
	// Step 2: Ensure the shard directory exists
	// ========================================================================
	// MkdirAll treats existing directories as success, which keeps this safe
	// against concurrent writers in the same shard.

	if err := os.MkdirAll(filepath.Dir(filePath), dirMode); err != nil {
		return fmt.Errorf("content %s: failed to create shard directory: %v: %w", id, err, content.ErrIOFailure)
	}

	// ========================================================================
	// Step 3: Exclusive create
	// ========================================================================

	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fileMode)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("content %s: %w", id, content.ErrContentExists)
		}
		return fmt.Errorf("content %s: failed to create file: %v: %w", id, err, content.ErrIOFailure)
	}

	// ========================================================================
	// Step 4: Write, sync and close; discard the file on any failure
	// ========================================================================

	writeErr := writeAll(ctx, file, data)
	if writeErr == nil {
		if err := file.Sync(); err != nil {
			writeErr = fmt.Errorf("failed to sync: %v: %w", err, content.ErrIOFailure)
		}
	}
	if err := file.Close(); err != nil && writeErr == nil {
		writeErr = fmt.Errorf("failed to close: %v: %w", err, content.ErrIOFailure)
	}

	if writeErr != nil {
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			logger.Error("Failed to discard partial file %q: %v", filePath, err)
		}
		return fmt.Errorf("content %s: %w", id, writeErr)
	}

	return nil
}

// writeAll writes data to file, chunking large content so cancellation is
// noticed between chunks.
func writeAll(ctx context.Context, file *os.File, data []byte) error {
	if len(data) < largeWriteThreshold {
		return checkedWrite(file, data)
	}

	for offset := 0; offset < len(data); offset += writeChunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(offset+writeChunkSize, len(data))
		if err := checkedWrite(file, data[offset:end]); err != nil {
			return err
		}
	}

	return nil
}

// checkedWrite maps write failures onto the content error taxonomy.
func checkedWrite(file *os.File, chunk []byte) error {
	n, err := file.Write(chunk)
	if err != nil {
		return fmt.Errorf("wrote %d of %d bytes: %v: %w", n, len(chunk), err, content.ErrIOFailure)
	}
	if n < len(chunk) {
		return fmt.Errorf("short write: %d of %d bytes: %w", n, len(chunk), content.ErrCorruptedFile)
	}
	return nil
}

// Delete removes the primary file for id.
//
// Unlike a garbage-collection delete this is not idempotent: removing an ID
// that is not stored reports ErrContentNotFound to the host.
//
// Parameters:
//   - ctx: Context for cancellation
//   - id: Content identifier to delete
//
// Returns:
//   - error: ErrInvalidContentID, ErrContentNotFound or ErrIOFailure (wrapped),
//     or the context error
func (r *FSContentStore) Delete(ctx context.Context, id content.ContentID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(r.Path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return fmt.Errorf("content %s: failed to delete: %v: %w", id, err, content.ErrIOFailure)
	}

	return nil
}
