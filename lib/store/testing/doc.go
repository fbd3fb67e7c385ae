// Package testing provides a conformance suite for store.IReplicaStore
// implementations. Implementations call RunReplicaStoreTests from their own
// tests with a factory that returns a fresh store.
package testing
