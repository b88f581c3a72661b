package shadow

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/marmos91/shadowfs/internal/logger"
	"github.com/marmos91/shadowfs/pkg/content"
)

// dirMode is used for shadow directories created on demand.
const dirMode os.FileMode = 0755

// Result is the outcome category of a Materialize call.
type Result int

const (
	// Created means a new shadow entry now references the primary file.
	Created Result = iota

	// Skipped means an entry already existed at the shadow path.
	Skipped

	// Failed means no entry could be created; Outcome.Err says why.
	Failed
)

func (r Result) String() string {
	switch r {
	case Created:
		return "created"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome describes what Materialize did.
type Outcome struct {
	Result Result

	// Symlink is true when a symbolic link was created because the hard link
	// would have crossed a device boundary.
	Symlink bool

	// Err is set when Result is Failed and wraps content.ErrLinkFailure.
	Err error
}

// Linker creates, checks and removes shadow entries.
//
// A Linker has no mutable state and is safe for concurrent use.
type Linker struct {
	link    func(oldname, newname string) error
	symlink func(oldname, newname string) error
}

// LinkerOption configures a Linker.
type LinkerOption func(*Linker)

// WithLinkFunc replaces the hard link primitive (os.Link). Used to simulate
// filesystems that reject hard links.
func WithLinkFunc(fn func(oldname, newname string) error) LinkerOption {
	return func(l *Linker) {
		l.link = fn
	}
}

// WithSymlinkFunc replaces the symbolic link primitive (os.Symlink).
func WithSymlinkFunc(fn func(oldname, newname string) error) LinkerOption {
	return func(l *Linker) {
		l.symlink = fn
	}
}

// NewLinker creates a Linker using os.Link and os.Symlink.
func NewLinker(opts ...LinkerOption) *Linker {
	l := &Linker{
		link:    os.Link,
		symlink: os.Symlink,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Materialize makes shadowPath reference the primary file.
//
// A hard link is tried first. If the filesystem rejects it because primary
// and shadowPath live on different devices (EXDEV), a symbolic link to the
// absolute primary path is created instead. Parent directories are created on
// demand; concurrent creation by unrelated writers is not an error.
//
// An existing entry at shadowPath is reported as Skipped WITHOUT checking that
// it references the same primary file. Two objects whose metadata derive the
// same shadow path (colliding instance IDs from different acquisitions) leave
// the first link in place and the second object without one. This matches the
// behaviour operators rely on and is kept until collisions are specified.
//
// Materialize never returns an error: failures are logged as warnings and
// reported as Failed.
func (l *Linker) Materialize(primary, shadowPath string) Outcome {
	// ========================================================================
	// Step 1: Skip when something already occupies the shadow path
	// ========================================================================

	if _, err := os.Lstat(shadowPath); err == nil {
		logger.Debug("Shadow entry %q already exists, skipping", shadowPath)
		return Outcome{Result: Skipped}
	} else if !errors.Is(err, os.ErrNotExist) {
		return l.failed(primary, shadowPath, err)
	}

	// ========================================================================
	// Step 2: Ensure the parent directories exist
	// ========================================================================

	if err := os.MkdirAll(filepath.Dir(shadowPath), dirMode); err != nil {
		return l.failed(primary, shadowPath, err)
	}

	// ========================================================================
	// Step 3: Hard link, falling back to a symlink across devices
	// ========================================================================

	err := l.create(l.link, primary, shadowPath)
	if err == nil {
		return Outcome{Result: Created}
	}

	if isExist(err) {
		return Outcome{Result: Skipped}
	}

	if !isCrossDevice(err) {
		return l.failed(primary, shadowPath, err)
	}

	logger.Debug("Hard link %q -> %q crosses devices (%v), using a symlink", shadowPath, primary, content.ErrCrossDevice)

	target, err := filepath.Abs(primary)
	if err != nil {
		return l.failed(primary, shadowPath, err)
	}

	if err := l.create(l.symlink, target, shadowPath); err != nil {
		if isExist(err) {
			return Outcome{Result: Skipped}
		}
		return l.failed(primary, shadowPath, err)
	}

	return Outcome{Result: Created, Symlink: true}
}

// create runs fn, retrying once if a concurrent prune (Delete or the shadow
// garbage collector) removed the still empty parent after MkdirAll.
func (l *Linker) create(fn func(oldname, newname string) error, oldname, shadowPath string) error {
	err := fn(oldname, shadowPath)
	if !errors.Is(err, unix.ENOENT) {
		return err
	}
	if _, statErr := os.Stat(oldname); statErr != nil {
		return err
	}

	logger.Debug("Shadow parent of %q vanished, recreating", shadowPath)
	if mkErr := os.MkdirAll(filepath.Dir(shadowPath), dirMode); mkErr != nil {
		return mkErr
	}
	return fn(oldname, shadowPath)
}

func (l *Linker) failed(primary, shadowPath string, cause error) Outcome {
	err := fmt.Errorf("link %q -> %q: %v: %w", shadowPath, primary, cause, content.ErrLinkFailure)
	logger.Warn("Failed to write shadow: %v", err)
	return Outcome{Result: Failed, Err: err}
}

// Resolves reports whether shadowPath references primary: either a hard link
// to the same file or a symbolic link that resolves to it.
//
// Returns false when either path does not exist.
func (l *Linker) Resolves(shadowPath, primary string) bool {
	shadowInfo, err := os.Stat(shadowPath)
	if err != nil {
		return false
	}
	primaryInfo, err := os.Stat(primary)
	if err != nil {
		return false
	}
	return os.SameFile(shadowInfo, primaryInfo)
}

// Remove deletes the shadow entry itself (never the file a symlink points to).
func (l *Linker) Remove(shadowPath string) error {
	if err := os.Remove(shadowPath); err != nil {
		return fmt.Errorf("unlink %q: %v: %w", shadowPath, err, content.ErrLinkFailure)
	}
	return nil
}

func isCrossDevice(err error) bool {
	return errors.Is(err, unix.EXDEV)
}

func isExist(err error) bool {
	return errors.Is(err, os.ErrExist) || errors.Is(err, unix.EEXIST)
}
