package testing

import (
	"sync"
	"testing"

	"github.com/marmos91/shadowfs/pkg/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBasicTests executes Put/Get tests.
func (suite *StoreTestSuite) RunBasicTests(t *testing.T) {
	t.Run("Put_Opaque", suite.testPutOpaque)
	t.Run("Put_Structured", suite.testPutStructured)
	t.Run("Put_Empty", suite.testPutEmpty)
	t.Run("Put_Large", suite.testPutLarge)
	t.Run("Put_Exclusive", suite.testPutExclusive)
	t.Run("Get_NotFound", suite.testGetNotFound)
}

// RunDeleteTests executes Delete tests.
func (suite *StoreTestSuite) RunDeleteTests(t *testing.T) {
	t.Run("Delete_Success", suite.testDeleteSuccess)
	t.Run("Delete_NotFound", suite.testDeleteNotFound)
	t.Run("Delete_ThenPut", suite.testDeleteThenPut)
}

// RunValidationTests executes identifier validation tests.
func (suite *StoreTestSuite) RunValidationTests(t *testing.T) {
	t.Run("InvalidIDs", suite.testInvalidIDs)
}

// RunConcurrencyTests executes tests with concurrent operations on distinct IDs.
func (suite *StoreTestSuite) RunConcurrencyTests(t *testing.T) {
	t.Run("ConcurrentDistinctIDs", suite.testConcurrentDistinctIDs)
}

// ============================================================================
// Put / Get Tests
// ============================================================================

func (suite *StoreTestSuite) testPutOpaque(t *testing.T) {
	store := suite.NewStore(t)
	id := generateTestID(1)
	data := []byte("Hello, World!")

	mustPut(t, store, id, data, content.KindOpaque)
	assertContentEquals(t, store, id, data)
}

func (suite *StoreTestSuite) testPutStructured(t *testing.T) {
	store := suite.NewStore(t)
	id := generateTestID(2)
	data := suite.structured(t, 2)

	mustPut(t, store, id, data, content.KindStructured)
	assertContentEquals(t, store, id, data)
}

func (suite *StoreTestSuite) testPutEmpty(t *testing.T) {
	store := suite.NewStore(t)
	id := generateTestID(3)

	mustPut(t, store, id, []byte{}, content.KindOpaque)

	actual, err := store.Get(testContext(), id)
	require.NoError(t, err)
	assert.Empty(t, actual)
}

func (suite *StoreTestSuite) testPutLarge(t *testing.T) {
	store := suite.NewStore(t)
	id := generateTestID(4)
	data := generateTestData(3*1024*1024 + 17)

	mustPut(t, store, id, data, content.KindOpaque)
	assertContentEquals(t, store, id, data)
}

func (suite *StoreTestSuite) testPutExclusive(t *testing.T) {
	store := suite.NewStore(t)
	id := generateTestID(5)
	original := []byte("original")

	mustPut(t, store, id, original, content.KindOpaque)

	err := store.Put(testContext(), id, []byte("replacement"), content.KindOpaque)
	assert.ErrorIs(t, err, content.ErrContentExists)
	assertContentEquals(t, store, id, original)
}

func (suite *StoreTestSuite) testGetNotFound(t *testing.T) {
	store := suite.NewStore(t)
	assertNotFound(t, store, generateTestID(6))
}

// ============================================================================
// Delete Tests
// ============================================================================

func (suite *StoreTestSuite) testDeleteSuccess(t *testing.T) {
	store := suite.NewStore(t)
	id := generateTestID(7)

	mustPut(t, store, id, suite.structured(t, 7), content.KindStructured)
	mustDelete(t, store, id)
	assertNotFound(t, store, id)
}

func (suite *StoreTestSuite) testDeleteNotFound(t *testing.T) {
	store := suite.NewStore(t)

	err := store.Delete(testContext(), generateTestID(8))
	assert.ErrorIs(t, err, content.ErrContentNotFound)
}

func (suite *StoreTestSuite) testDeleteThenPut(t *testing.T) {
	store := suite.NewStore(t)
	id := generateTestID(9)

	mustPut(t, store, id, []byte("first"), content.KindOpaque)
	mustDelete(t, store, id)
	mustPut(t, store, id, []byte("second"), content.KindOpaque)
	assertContentEquals(t, store, id, []byte("second"))
}

// ============================================================================
// Validation Tests
// ============================================================================

func (suite *StoreTestSuite) testInvalidIDs(t *testing.T) {
	store := suite.NewStore(t)

	for _, id := range []content.ContentID{"", "ab", "abc", "ab/cd", "..", "ab\\cd"} {
		err := store.Put(testContext(), id, []byte("x"), content.KindOpaque)
		assert.ErrorIs(t, err, content.ErrInvalidContentID, "Put(%q)", id)

		_, err = store.Get(testContext(), id)
		assert.ErrorIs(t, err, content.ErrInvalidContentID, "Get(%q)", id)

		err = store.Delete(testContext(), id)
		assert.ErrorIs(t, err, content.ErrInvalidContentID, "Delete(%q)", id)
	}
}

// ============================================================================
// Concurrency Tests
// ============================================================================

func (suite *StoreTestSuite) testConcurrentDistinctIDs(t *testing.T) {
	store := suite.NewStore(t)
	const workers = 16

	payloads := make([][]byte, workers)
	for i := range payloads {
		payloads[i] = suite.structured(t, 100+i)
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Put(testContext(), generateTestID(100+i), payloads[i], content.KindStructured)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
		assertContentEquals(t, store, generateTestID(100+i), payloads[i])
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Delete(testContext(), generateTestID(100+i))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
		assertNotFound(t, store, generateTestID(100+i))
	}
}
