// Package fs implements the primary, identifier-sharded content store.
//
// This file contains read operations: full content reads and existence checks.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/marmos91/shadowfs/pkg/content"
)

// ReadContent returns the full content stored under id.
//
// The file size is taken from stat and the whole file is read into a single
// buffer. Reading fewer bytes than the stat size means the file changed or is
// damaged and is reported as ErrCorruptedFile.
//
// Parameters:
//   - ctx: Context for cancellation
//   - id: Content identifier to read
//
// Returns:
//   - []byte: Content bytes
//   - error: ErrInvalidContentID, ErrContentNotFound, ErrCorruptedFile or
//     ErrIOFailure (wrapped), or the context error
func (r *FSContentStore) ReadContent(ctx context.Context, id content.ContentID) ([]byte, error) {
	// ========================================================================
	// Step 1: Validate and check context before filesystem operation
	// ========================================================================

	if err := id.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 2: Open and stat the content file
	// ========================================================================

	file, err := os.Open(r.Path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("content %s: failed to open: %v: %w", id, err, content.ErrIOFailure)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("content %s: failed to stat: %v: %w", id, err, content.ErrIOFailure)
	}

	// ========================================================================
	// Step 3: Read the whole file
	// ========================================================================

	data, err := readExact(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("content %s: %w", id, err)
	}

	return data, nil
}

// readExact reads exactly size bytes from r. Running out of data before size
// is reached is a short read and maps to ErrCorruptedFile.
func readExact(r io.Reader, size int64) ([]byte, error) {
	data := make([]byte, size)
	n, err := io.ReadFull(r, data)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read %d of %d bytes: %w", n, size, content.ErrCorruptedFile)
		}
		return nil, fmt.Errorf("failed to read: %v: %w", err, content.ErrIOFailure)
	}
	return data, nil
}

// ContentExists checks if content with the given ID exists.
//
// Only a stat is performed; the content is not read.
//
// Returns:
//   - bool: True if the primary file exists
//   - error: ErrInvalidContentID, filesystem errors other than not-exists, or
//     the context error
func (r *FSContentStore) ContentExists(ctx context.Context, id content.ContentID) (bool, error) {
	if err := id.Validate(); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, err := os.Stat(r.Path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check content existence: %w", err)
	}

	return true, nil
}
