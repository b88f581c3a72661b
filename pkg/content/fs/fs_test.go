package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/marmos91/shadowfs/pkg/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FSContentStore {
	t.Helper()
	store, err := NewFSContentStore(context.Background(), filepath.Join(t.TempDir(), "primary"))
	require.NoError(t, err)
	return store
}

func TestNewFSContentStore_EmptyPath(t *testing.T) {
	_, err := NewFSContentStore(context.Background(), "")
	require.Error(t, err)
}

func TestPath_Sharding(t *testing.T) {
	store := newTestStore(t)

	got := store.Path("ab12cd34")
	assert.Equal(t, filepath.Join(store.BasePath(), "ab", "12", "ab12cd34"), got)
}

func TestWriteContent_ReadBack(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	data := []byte("hello primary store")

	require.NoError(t, store.WriteContent(ctx, "ab12cd34", data))

	got, err := store.ReadContent(ctx, "ab12cd34")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = os.Stat(filepath.Join(store.BasePath(), "ab", "12", "ab12cd34"))
	require.NoError(t, err)
}

func TestWriteContent_Empty(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.WriteContent(ctx, "0000empty", nil))

	got, err := store.ReadContent(ctx, "0000empty")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteContent_Exclusive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.WriteContent(ctx, "ab12cd34", []byte("original")))

	err := store.WriteContent(ctx, "ab12cd34", []byte("replacement"))
	require.ErrorIs(t, err, content.ErrContentExists)

	got, err := store.ReadContent(ctx, "ab12cd34")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)
}

func TestWriteContent_InvalidID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, id := range []content.ContentID{"", "abc", "ab/cd", "..", "ab\x00cd"} {
		err := store.WriteContent(ctx, id, []byte("x"))
		assert.ErrorIs(t, err, content.ErrInvalidContentID, "id %q", id)
	}
}

func TestWriteContent_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := newTestStore(t)

	err := store.WriteContent(ctx, "ab12cd34", []byte("x"))
	require.ErrorIs(t, err, context.Canceled)

	exists, err := store.ContentExists(context.Background(), "ab12cd34")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWriteContent_LargeChunked(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	data := make([]byte, largeWriteThreshold+writeChunkSize/2)
	for i := range data {
		data[i] = byte(i % 251)
	}

	require.NoError(t, store.WriteContent(ctx, "feedbeef", data))

	got, err := store.ReadContent(ctx, "feedbeef")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

// cancelAfterContext reports context.Canceled once Err has been called more
// than allowed times.
type cancelAfterContext struct {
	context.Context
	allowed int
	calls   int
}

func (c *cancelAfterContext) Err() error {
	c.calls++
	if c.calls > c.allowed {
		return context.Canceled
	}
	return nil
}

func TestWriteContent_CancelledMidWriteRemovesPartialFile(t *testing.T) {
	store := newTestStore(t)
	data := make([]byte, largeWriteThreshold+writeChunkSize)

	// One check before the file is opened and one before the first chunk;
	// the check before the second chunk fails.
	ctx := &cancelAfterContext{Context: context.Background(), allowed: 2}

	err := store.WriteContent(ctx, "ab12cd34", data)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, ctx.calls)

	exists, err := store.ContentExists(context.Background(), "ab12cd34")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = os.Stat(store.Path("ab12cd34"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.NoError(t, store.WriteContent(context.Background(), "ab12cd34", []byte("retry")))
}

func TestReadExact(t *testing.T) {
	t.Run("full read", func(t *testing.T) {
		got, err := readExact(strings.NewReader("dicom"), 5)
		require.NoError(t, err)
		assert.Equal(t, []byte("dicom"), got)
	})

	t.Run("short read is corruption", func(t *testing.T) {
		_, err := readExact(strings.NewReader("dic"), 5)
		require.ErrorIs(t, err, content.ErrCorruptedFile)
	})

	t.Run("empty source with non-zero size is corruption", func(t *testing.T) {
		_, err := readExact(strings.NewReader(""), 5)
		require.ErrorIs(t, err, content.ErrCorruptedFile)
	})

	t.Run("reader error is an I/O failure", func(t *testing.T) {
		_, err := readExact(iotest.ErrReader(errors.New("disk gone")), 5)
		require.ErrorIs(t, err, content.ErrIOFailure)
		assert.NotErrorIs(t, err, content.ErrCorruptedFile)
	})
}

func TestReadContent_TruncatedAfterStatIsCorrupted(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.WriteContent(ctx, "ab12cd34", []byte("0123456789")))

	file, err := os.Open(store.Path("ab12cd34"))
	require.NoError(t, err)
	defer file.Close()
	info, err := file.Stat()
	require.NoError(t, err)

	require.NoError(t, os.Truncate(store.Path("ab12cd34"), 4))

	_, err = readExact(file, info.Size())
	require.ErrorIs(t, err, content.ErrCorruptedFile)
}

func TestReadContent_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ReadContent(context.Background(), "ab12cd34")
	require.ErrorIs(t, err, content.ErrContentNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.WriteContent(ctx, "ab12cd34", []byte("bye")))
	require.NoError(t, store.Delete(ctx, "ab12cd34"))

	_, err := store.ReadContent(ctx, "ab12cd34")
	require.ErrorIs(t, err, content.ErrContentNotFound)

	err = store.Delete(ctx, "ab12cd34")
	require.ErrorIs(t, err, content.ErrContentNotFound)
}

func TestContentExists(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	exists, err := store.ContentExists(ctx, "ab12cd34")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.WriteContent(ctx, "ab12cd34", []byte("x")))

	exists, err = store.ContentExists(ctx, "ab12cd34")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestInitializeFanout(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.InitializeFanout(ctx))

	for _, dir := range []string{"00/00", "00/ff", "7f/80", "ff/00", "ff/ff"} {
		info, err := os.Stat(filepath.Join(store.BasePath(), filepath.FromSlash(dir)))
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}

	first, err := os.ReadDir(store.BasePath())
	require.NoError(t, err)
	assert.Len(t, first, shardWidth)

	second, err := os.ReadDir(filepath.Join(store.BasePath(), "a5"))
	require.NoError(t, err)
	assert.Len(t, second, shardWidth)

	// Idempotent
	require.NoError(t, store.InitializeFanout(ctx))
}

func TestInitializeFanout_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := newTestStore(t)

	require.ErrorIs(t, store.InitializeFanout(ctx), context.Canceled)
}
