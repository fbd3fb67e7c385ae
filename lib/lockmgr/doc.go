// Package lockmgr implements the key-scoped lock table used by a replica.
//
// Each key owns one read/write lock that is created the first time the key is
// touched and is never removed. The write side of that lock is what a client
// acquires with ACQUIRE_LOCK and gives up with RELEASE_LOCK or PUT. Ownership is
// tracked by Token, an opaque identity that a replica assigns to every accepted
// connection. A token that already owns a lock may acquire it again (re-entry),
// every other token is refused until the lock is released.
//
// Non-blocking Semantics:
//
//	All acquisitions are single attempts. A busy lock is reported as a
//	failure instead of waiting for it. A client holding the lock on one
//	replica while waiting for another replica could otherwise deadlock
//	with a concurrent writer that got the locks in a different order.
//	Retrying (with backoff) is left to the caller.
//
// Read locks are independent of the ownership record: TryRLock fails while the
// write lock is held (by a token or anonymously) and succeeds otherwise.
//
// Usage Example:
//
//	locks := lockmgr.NewLockManager()
//	token := lockmgr.NewToken()
//
//	if locks.TryAcquire("user:42", token) {
//	    // ... write ...
//	    locks.Release("user:42", token)
//	}
//
// Thread Safety:
//
//	All methods are safe for concurrent use. There is no global lock,
//	contention is limited to a single key.
package lockmgr
