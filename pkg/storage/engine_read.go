package storage

import (
	"context"
	"errors"
	"time"

	"github.com/marmos91/shadowfs/internal/logger"
	"github.com/marmos91/shadowfs/pkg/content"
)

// Get returns the full content stored under id. Only the primary store is
// consulted.
//
// Returns:
//   - []byte: The stored bytes, unchanged
//   - error: ErrInvalidContentID, ErrContentNotFound, ErrCorruptedFile or
//     ErrIOFailure (wrapped), or the context error
func (e *Engine) Get(ctx context.Context, id content.ContentID) (data []byte, err error) {
	start := time.Now()
	defer func() {
		e.metrics.ObserveOperation("get", statusOf(err), time.Since(start))
	}()

	data, err = e.primary.ReadContent(ctx, id)
	if err != nil {
		if !errors.Is(err, content.ErrContentNotFound) {
			logger.Error("Failed to read %s: %v", id, err)
		}
		return nil, err
	}

	e.metrics.RecordBytes("get", len(data))
	return data, nil
}
