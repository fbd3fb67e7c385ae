package lockmgr

// ILockManager defines the interface for the key-scoped lock table of a replica.
//
// Every key owns one read/write lock. The write side can be held in two ways:
// on behalf of a Token (a client write that spans several requests) or anonymously
// for the duration of a single call (TryLock). None of the methods ever block,
// a contended lock is reported as a failure and the caller decides whether to retry.
type ILockManager interface {
	// TryAcquire acquires the write lock for key on behalf of holder.
	// If holder already owns the lock the call succeeds without re-acquiring it.
	// Return true if holder owns the lock when the call returns.
	TryAcquire(key string, holder Token) (ok bool)

	// Release releases the write lock for key if and only if it is owned by holder.
	// Releasing a lock that is not owned by holder is a no-op.
	// Return true if a lock was released.
	Release(key string, holder Token) (ok bool)

	// ReleaseAll releases every write lock owned by holder.
	// Return the number of released locks.
	ReleaseAll(holder Token) (n int)

	// Holder returns the current owner of the write lock for key.
	Holder(key string) (holder Token, held bool)

	// TryRLock acquires the read lock for key. The returned function releases it.
	TryRLock(key string) (unlock func(), ok bool)

	// TryLock acquires the write lock for key without recording an owner.
	// The returned function releases it.
	TryLock(key string) (unlock func(), ok bool)
}
