// Package store defines the replica store: the versioned key-value state held by
// a single replica together with its per-key locking.
//
// The package focuses on:
//   - A unified interface (IReplicaStore) used by the request handler and the
//     anti-entropy process
//   - Version bookkeeping: a key that was never written reports AbsentVersion,
//     writes carry the version computed by the coordinator
//   - Lock ownership: only the holder of a key's write lock may Put it
//
// Key Components:
//
//   - IReplicaStore Interface: the operations a replica offers on its state.
//     None of them block on a lock, a busy lock is reported immediately.
//
//   - Entry: a (value, version) pair. Versions never decrease. They advance
//     with a successful Put or with a ConditionalUpdate that carries a
//     strictly greater version.
//
//   - Error System: a structured error type with typed return codes
//     (RetCode), so callers can tell lock contention from internal failures.
//
// Implementations:
//
//	The in-memory implementation lives in the rstore package
//	("github.com/ValentinKolb/qKV/lib/store/rstore"). State is never persisted.
//
// Conditional Updates:
//
//	ConditionalUpdate is the receiving side of anti-entropy. It checks the
//	current version under the read lock, drops it and then tries the write
//	lock. Either lock being busy skips the update, the next gossip round
//	will deliver it again.
package store
