package shadow

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/shadowfs/internal/logger"
)

// PruneEmptyAncestors removes dir and its ancestors while they are empty,
// stopping before stopAt.
//
// stopAt itself is never removed, even when empty, and the walk never leaves
// stopAt. A directory that cannot be read or removed (a concurrent writer
// created an entry, permissions, ...) is logged and ends the walk.
//
// Returns the number of directories removed.
func PruneEmptyAncestors(dir, stopAt string) int {
	stop := filepath.Clean(stopAt)
	current := filepath.Clean(dir)
	removed := 0

	for within(stop, current) {
		empty, err := isEmptyDir(current)
		if err != nil {
			logger.Warn("Failed to inspect shadow directory %q: %v", current, err)
			return removed
		}
		if !empty {
			return removed
		}

		if err := os.Remove(current); err != nil {
			logger.Warn("Failed to remove shadow directory %q: %v", current, err)
			return removed
		}
		logger.Debug("Removed empty shadow directory %q", current)
		removed++

		current = filepath.Dir(current)
	}

	return removed
}

// within reports whether path is strictly below root.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// isEmptyDir reads at most one entry of dir.
func isEmptyDir(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}
