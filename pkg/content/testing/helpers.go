package testing

import (
	"fmt"
	"testing"

	"github.com/marmos91/shadowfs/pkg/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustPut stores content and fails the test if it errors.
func mustPut(t *testing.T, store content.Store, id content.ContentID, data []byte, kind content.ContentKind) {
	t.Helper()
	err := store.Put(testContext(), id, data, kind)
	require.NoError(t, err, "Put should succeed")
}

// mustDelete deletes content and fails the test if it errors.
func mustDelete(t *testing.T, store content.Store, id content.ContentID) {
	t.Helper()
	err := store.Delete(testContext(), id)
	require.NoError(t, err, "Delete should succeed")
}

// assertContentEquals checks if content matches expected data.
func assertContentEquals(t *testing.T, store content.Store, id content.ContentID, expected []byte) {
	t.Helper()
	actual, err := store.Get(testContext(), id)
	require.NoError(t, err, "Get should succeed")
	assert.Equal(t, len(expected), len(actual), "Content size mismatch")
	assert.Equal(t, expected, actual, "Content data mismatch")
}

// assertNotFound checks that id is not stored.
func assertNotFound(t *testing.T, store content.Store, id content.ContentID) {
	t.Helper()
	_, err := store.Get(testContext(), id)
	assert.ErrorIs(t, err, content.ErrContentNotFound)
}

// structured returns structured content for instance n.
func (suite *StoreTestSuite) structured(t *testing.T, n int) []byte {
	t.Helper()
	if suite.Structured != nil {
		return suite.Structured(t, n)
	}
	return []byte(fmt.Sprintf("structured-%d", n))
}

// generateTestData creates test data of specified size.
func generateTestData(size int) []byte {
	data := make([]byte, size)
	for i := 0; i < size; i++ {
		data[i] = byte(i % 256)
	}
	return data
}

// generateTestID generates a content ID whose shard prefix varies with n.
func generateTestID(n int) content.ContentID {
	return content.ContentID(fmt.Sprintf("%02x%02x-test-%d", n%256, (n*7)%256, n))
}
