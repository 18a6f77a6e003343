// Package testing provides standardised tests and benchmarks for
// store implementations that satisfy the store.IStore interface.
//
// The package contains:
//   - RunStoreTests: a test suite validating the scalar and queue semantics of IStore
//   - RunStoreBenchmarks: throughput of the common operations
//
// The same suite runs against the in-memory store and against the rpc client talking
// to a live server, so both sides of the wire are held to the same contract.
//
// Example usage:
//
//	factory := func() store.IStore {
//		return lstore.NewLocalStore()
//	}
//
//	storetesting.RunStoreTests(t, "LocalStore", factory)
//	storetesting.RunStoreBenchmarks(b, "LocalStore", factory)
package testing
