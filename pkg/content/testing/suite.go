// Package testing provides a reusable conformance suite for content.Store
// implementations.
package testing

import (
	"context"
	"testing"

	"github.com/marmos91/shadowfs/pkg/content"
)

// StoreTestSuite is a test suite for content.Store implementations.
// It tests the interface contract, not implementation details: exclusive
// create, byte-exact reads, and delete semantics.
//
// Usage:
//
//	func TestEngineConformance(t *testing.T) {
//	    suite := &contenttesting.StoreTestSuite{
//	        NewStore: func(t *testing.T) content.Store {
//	            return newEngine(t)
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test.
	NewStore func(t *testing.T) content.Store

	// Structured produces structured content for a given instance number.
	// When nil, structured puts use opaque-looking bytes.
	Structured func(t *testing.T, n int) []byte
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("DeleteOperations", suite.RunDeleteTests)
	t.Run("Validation", suite.RunValidationTests)
	t.Run("Concurrency", suite.RunConcurrencyTests)
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}
