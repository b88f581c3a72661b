package shadow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/shadowfs/pkg/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type linkFixture struct {
	primary    string
	shadowRoot string
}

func newLinkFixture(t *testing.T) linkFixture {
	t.Helper()
	root := t.TempDir()

	primary := filepath.Join(root, "primary", "ab", "12", "ab12cd34")
	require.NoError(t, os.MkdirAll(filepath.Dir(primary), 0755))
	require.NoError(t, os.WriteFile(primary, []byte("payload"), 0644))

	shadowRoot := filepath.Join(root, "shadow")
	require.NoError(t, os.MkdirAll(shadowRoot, 0755))

	return linkFixture{primary: primary, shadowRoot: shadowRoot}
}

func (f linkFixture) shadowPath() string {
	return filepath.Join(f.shadowRoot, "12345.ab", "210318_101500", "S2_CT", "1.2.3")
}

func crossDevice(oldname, newname string) error {
	return &os.LinkError{Op: "link", Old: oldname, New: newname, Err: unix.EXDEV}
}

func TestMaterialize_HardLink(t *testing.T) {
	f := newLinkFixture(t)
	linker := NewLinker()

	outcome := linker.Materialize(f.primary, f.shadowPath())
	require.Equal(t, Created, outcome.Result)
	assert.False(t, outcome.Symlink)
	assert.NoError(t, outcome.Err)

	info, err := os.Lstat(f.shadowPath())
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())
	assert.True(t, linker.Resolves(f.shadowPath(), f.primary))

	data, err := os.ReadFile(f.shadowPath())
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestMaterialize_CrossDeviceFallback(t *testing.T) {
	f := newLinkFixture(t)
	linker := NewLinker(WithLinkFunc(crossDevice))

	outcome := linker.Materialize(f.primary, f.shadowPath())
	require.Equal(t, Created, outcome.Result)
	assert.True(t, outcome.Symlink)

	info, err := os.Lstat(f.shadowPath())
	require.NoError(t, err)
	assert.Equal(t, os.ModeSymlink, info.Mode()&os.ModeSymlink)

	target, err := os.Readlink(f.shadowPath())
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(target))
	assert.True(t, linker.Resolves(f.shadowPath(), f.primary))
}

func TestMaterialize_ExistingEntrySkipped(t *testing.T) {
	f := newLinkFixture(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(f.shadowPath()), 0755))
	require.NoError(t, os.WriteFile(f.shadowPath(), []byte("someone else"), 0644))

	linker := NewLinker()
	outcome := linker.Materialize(f.primary, f.shadowPath())
	assert.Equal(t, Skipped, outcome.Result)

	// The unrelated entry is left alone and does not resolve to the primary.
	assert.False(t, linker.Resolves(f.shadowPath(), f.primary))
}

func TestMaterialize_OtherFailure(t *testing.T) {
	f := newLinkFixture(t)
	linker := NewLinker(WithLinkFunc(func(oldname, newname string) error {
		return &os.LinkError{Op: "link", Old: oldname, New: newname, Err: unix.EPERM}
	}))

	outcome := linker.Materialize(f.primary, f.shadowPath())
	assert.Equal(t, Failed, outcome.Result)
	assert.ErrorIs(t, outcome.Err, content.ErrLinkFailure)

	_, err := os.Lstat(f.shadowPath())
	assert.True(t, os.IsNotExist(err))
}

func TestMaterialize_SymlinkFailure(t *testing.T) {
	f := newLinkFixture(t)
	linker := NewLinker(
		WithLinkFunc(crossDevice),
		WithSymlinkFunc(func(oldname, newname string) error {
			return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: unix.EACCES}
		}),
	)

	outcome := linker.Materialize(f.primary, f.shadowPath())
	assert.Equal(t, Failed, outcome.Result)
	assert.ErrorIs(t, outcome.Err, content.ErrLinkFailure)
}

func TestMaterialize_LostRace(t *testing.T) {
	f := newLinkFixture(t)
	linker := NewLinker(WithLinkFunc(func(oldname, newname string) error {
		return &os.LinkError{Op: "link", Old: oldname, New: newname, Err: unix.EEXIST}
	}))

	outcome := linker.Materialize(f.primary, f.shadowPath())
	assert.Equal(t, Skipped, outcome.Result)
}

func TestMaterialize_ParentPrunedBeforeLink(t *testing.T) {
	f := newLinkFixture(t)
	calls := 0
	linker := NewLinker(WithLinkFunc(func(oldname, newname string) error {
		calls++
		if calls == 1 {
			// A concurrent prune removes the new, still empty branch.
			require.NoError(t, os.RemoveAll(filepath.Join(f.shadowRoot, "12345.ab")))
		}
		return os.Link(oldname, newname)
	}))

	outcome := linker.Materialize(f.primary, f.shadowPath())
	require.Equal(t, Created, outcome.Result)
	assert.Equal(t, 2, calls)
	assert.True(t, linker.Resolves(f.shadowPath(), f.primary))
}

func TestMaterialize_MissingPrimaryNotRetried(t *testing.T) {
	f := newLinkFixture(t)
	calls := 0
	linker := NewLinker(WithLinkFunc(func(oldname, newname string) error {
		calls++
		return os.Link(oldname, newname)
	}))

	outcome := linker.Materialize(filepath.Join(filepath.Dir(f.primary), "missing"), f.shadowPath())
	assert.Equal(t, Failed, outcome.Result)
	assert.ErrorIs(t, outcome.Err, content.ErrLinkFailure)
	assert.Equal(t, 1, calls)
}

func TestMaterialize_ParentIsFile(t *testing.T) {
	f := newLinkFixture(t)
	// A file where the patient directory should be.
	require.NoError(t, os.WriteFile(filepath.Join(f.shadowRoot, "12345.ab"), nil, 0644))

	outcome := NewLinker().Materialize(f.primary, f.shadowPath())
	assert.Equal(t, Failed, outcome.Result)
	assert.ErrorIs(t, outcome.Err, content.ErrLinkFailure)
}

func TestResolves_Missing(t *testing.T) {
	f := newLinkFixture(t)
	linker := NewLinker()

	assert.False(t, linker.Resolves(f.shadowPath(), f.primary))

	require.Equal(t, Created, linker.Materialize(f.primary, f.shadowPath()).Result)
	require.NoError(t, os.Remove(f.primary))
	assert.False(t, linker.Resolves(f.shadowPath(), f.primary))
}

func TestRemove(t *testing.T) {
	f := newLinkFixture(t)
	linker := NewLinker(WithLinkFunc(crossDevice))

	require.Equal(t, Created, linker.Materialize(f.primary, f.shadowPath()).Result)
	require.NoError(t, linker.Remove(f.shadowPath()))

	_, err := os.Lstat(f.shadowPath())
	assert.True(t, os.IsNotExist(err))

	// Removing a symlink never touches its target.
	_, err = os.Stat(f.primary)
	assert.NoError(t, err)

	assert.ErrorIs(t, linker.Remove(f.shadowPath()), content.ErrLinkFailure)
}
