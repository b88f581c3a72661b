// Package fs implements the primary, identifier-sharded content store.
//
// This file contains the store type, its constructor and the primary path
// scheme. Every object lives at:
//
//	<basePath>/<id[0:2]>/<id[2:4]>/<id>
//
// The two shard levels bound the number of entries per directory. The
// skeleton can be created eagerly with InitializeFanout; writes still create
// their parent directory on demand so a store without a pre-created fan-out
// stays usable.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmos91/shadowfs/pkg/content"
)

const (
	// dirMode is used for the base path and all shard directories.
	dirMode os.FileMode = 0755

	// fileMode is used for primary content files.
	fileMode os.FileMode = 0644
)

// FSContentStore stores content objects on the local filesystem.
//
// The primary file is the sole source of truth for the existence and the bytes
// of an object. Files are created exclusively and never overwritten.
//
// Thread Safety:
// Safe for concurrent use across distinct content IDs. Operations on the same
// ID must not run concurrently; the store does not lock per ID.
type FSContentStore struct {
	basePath string
}

// NewFSContentStore creates a new filesystem-based primary store.
//
// The base directory is created with permissions 0755 if it doesn't exist.
// The shard skeleton is NOT created here; call InitializeFanout for that.
//
// Parameters:
//   - ctx: Context for cancellation
//   - basePath: Root directory of the primary store
//
// Returns:
//   - *FSContentStore: Initialized store
//   - error: Returns error if basePath is empty, directory creation fails or
//     context is cancelled
func NewFSContentStore(ctx context.Context, basePath string) (*FSContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if basePath == "" {
		return nil, fmt.Errorf("primary store: base path is required")
	}

	if err := os.MkdirAll(basePath, dirMode); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSContentStore{
		basePath: filepath.Clean(basePath),
	}, nil
}

// BasePath returns the root directory of the store.
func (r *FSContentStore) BasePath() string {
	return r.basePath
}

// Path returns the primary location for a content ID.
//
// This is a pure function of the ID and performs no I/O. The ID must have
// passed content.ContentID.Validate; shorter IDs would not have two shard
// segments.
func (r *FSContentStore) Path(id content.ContentID) string {
	s := string(id)
	return filepath.Join(r.basePath, s[0:2], s[2:4], s)
}
