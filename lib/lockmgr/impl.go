package lockmgr

import (
	"sync"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("lockmgr")

type lockMgrImpl struct {
	// locks maps a key to its read/write lock. Entries are created lazily and never removed.
	locks *xsync.MapOf[string, *sync.RWMutex]
	// holders maps a key to the owner of its write lock (only for token owned locks)
	holders *xsync.MapOf[string, Token]
}

// NewLockManager creates a new, empty lock table
func NewLockManager() ILockManager {
	return &lockMgrImpl{
		locks:   xsync.NewMapOf[string, *sync.RWMutex](),
		holders: xsync.NewMapOf[string, Token](),
	}
}

// lockFor returns the lock of a key and creates it if necessary
func (lm *lockMgrImpl) lockFor(key string) *sync.RWMutex {
	l, _ := lm.locks.LoadOrCompute(key, func() *sync.RWMutex {
		return &sync.RWMutex{}
	})
	return l
}

// --------------------------------------------------------------------------
// Interface Methods (docu see interface.go)
// --------------------------------------------------------------------------

func (lm *lockMgrImpl) TryAcquire(key string, holder Token) bool {
	if holder == NoToken {
		return false
	}

	// Case already held: re-entry for the same holder, failure for everyone else
	if current, held := lm.holders.Load(key); held {
		return current == holder
	}

	// Case unlocked: one immediate attempt, never wait
	if !lm.lockFor(key).TryLock() {
		Logger.Debugf("write lock for %q is busy", key)
		return false
	}
	lm.holders.Store(key, holder)
	return true
}

func (lm *lockMgrImpl) Release(key string, holder Token) bool {
	if holder == NoToken {
		return false
	}

	// Clear the ownership atomically, only if it belongs to holder
	released := false
	lm.holders.Compute(key, func(current Token, loaded bool) (Token, bool) {
		if loaded && current == holder {
			released = true
			return current, true
		}
		// keep existing entries, do not create missing ones
		return current, !loaded
	})

	if released {
		lm.lockFor(key).Unlock()
	}
	return released
}

func (lm *lockMgrImpl) ReleaseAll(holder Token) int {
	if holder == NoToken {
		return 0
	}

	var keys []string
	lm.holders.Range(func(key string, current Token) bool {
		if current == holder {
			keys = append(keys, key)
		}
		return true
	})

	n := 0
	for _, key := range keys {
		if lm.Release(key, holder) {
			n++
		}
	}
	return n
}

func (lm *lockMgrImpl) Holder(key string) (Token, bool) {
	return lm.holders.Load(key)
}

func (lm *lockMgrImpl) TryRLock(key string) (func(), bool) {
	l := lm.lockFor(key)
	if !l.TryRLock() {
		return nil, false
	}
	return l.RUnlock, true
}

func (lm *lockMgrImpl) TryLock(key string) (func(), bool) {
	l := lm.lockFor(key)
	if !l.TryLock() {
		return nil, false
	}
	return l.Unlock, true
}
