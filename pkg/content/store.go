package content

import (
	"context"
	"fmt"
	"strings"
)

// ContentID is the host-assigned identifier of a content object.
//
// The storage area never generates or reuses IDs. The first four characters
// select the primary shard directories, so an ID must be at least four
// characters long (see Validate).
type ContentID string

// MinContentIDLength is the number of leading characters consumed by the
// two-level shard layout.
const MinContentIDLength = 4

// Validate reports whether the ID can be mapped to a primary location.
//
// Returns an error wrapping ErrInvalidContentID when the ID is shorter than
// MinContentIDLength, is "." or "..", or contains a path separator or NUL byte.
func (id ContentID) Validate() error {
	s := string(id)
	if len(s) < MinContentIDLength {
		return fmt.Errorf("content %q: shorter than %d characters: %w", s, MinContentIDLength, ErrInvalidContentID)
	}
	if s == "." || s == ".." || strings.ContainsAny(s, "/\\\x00") {
		return fmt.Errorf("content %q: contains path characters: %w", s, ErrInvalidContentID)
	}
	return nil
}

// ContentKind tells the storage area whether the bytes are structured (DICOM)
// and therefore eligible for a shadow link.
type ContentKind int

const (
	// KindOpaque content is stored without any metadata extraction.
	KindOpaque ContentKind = iota

	// KindStructured content is parsed for metadata to build the shadow tree.
	KindStructured
)

func (k ContentKind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	case KindOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// ============================================================================
// Store Interface
// ============================================================================

// Store is the storage area consumed by the host.
//
// The primary store is the sole source of truth: an object exists if and only
// if its primary file exists. Any secondary index maintained by an
// implementation (such as the shadow tree) is advisory and its failures are
// never surfaced through this interface.
//
// Concurrency:
// Implementations must be safe for concurrent use across distinct IDs. The
// host must not issue concurrent operations for the same ID; this is a
// precondition and is not enforced.
type Store interface {
	// Put stores data under id with exclusive-create semantics.
	//
	// Returns:
	//   - ErrContentExists if id is already stored (existing data untouched)
	//   - ErrIOFailure or ErrCorruptedFile if the primary write fails
	//   - ErrInvalidContentID if id cannot be mapped to a location
	Put(ctx context.Context, id ContentID, data []byte, kind ContentKind) error

	// Get returns the full content stored under id.
	//
	// Returns:
	//   - ErrContentNotFound if id is not stored
	//   - ErrCorruptedFile on a short read
	Get(ctx context.Context, id ContentID) ([]byte, error)

	// Delete removes the content stored under id together with any
	// secondary index entries.
	//
	// Returns:
	//   - ErrContentNotFound if id is not stored
	//   - ErrIOFailure if the primary file cannot be removed
	Delete(ctx context.Context, id ContentID) error
}
