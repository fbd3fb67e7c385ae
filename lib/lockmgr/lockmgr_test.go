package lockmgr

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquire(t *testing.T) {
	locks := NewLockManager()
	a, b := NewToken(), NewToken()

	require.True(t, locks.TryAcquire("k", a))

	// re-entry for the same holder
	assert.True(t, locks.TryAcquire("k", a))

	// a different holder is refused
	assert.False(t, locks.TryAcquire("k", b))

	holder, held := locks.Holder("k")
	require.True(t, held)
	assert.Equal(t, a, holder)

	// other keys are independent
	assert.True(t, locks.TryAcquire("other", b))
}

func TestTryAcquireNoToken(t *testing.T) {
	locks := NewLockManager()
	assert.False(t, locks.TryAcquire("k", NoToken))
	assert.False(t, locks.Release("k", NoToken))
}

func TestRelease(t *testing.T) {
	locks := NewLockManager()
	a, b := NewToken(), NewToken()

	require.True(t, locks.TryAcquire("k", a))

	// wrong holder is ignored
	assert.False(t, locks.Release("k", b))
	holder, held := locks.Holder("k")
	require.True(t, held)
	assert.Equal(t, a, holder)

	// right holder releases
	assert.True(t, locks.Release("k", a))
	_, held = locks.Holder("k")
	assert.False(t, held)

	// second release is a no-op
	assert.False(t, locks.Release("k", a))

	// lock is free for the next holder
	assert.True(t, locks.TryAcquire("k", b))
}

func TestReleaseUnknownKey(t *testing.T) {
	locks := NewLockManager()
	assert.False(t, locks.Release("never-seen", NewToken()))
	_, held := locks.Holder("never-seen")
	assert.False(t, held)
}

func TestReleaseAll(t *testing.T) {
	locks := NewLockManager()
	a, b := NewToken(), NewToken()

	require.True(t, locks.TryAcquire("k1", a))
	require.True(t, locks.TryAcquire("k2", a))
	require.True(t, locks.TryAcquire("k3", b))

	assert.Equal(t, 2, locks.ReleaseAll(a))
	assert.Equal(t, 0, locks.ReleaseAll(a))

	_, held := locks.Holder("k1")
	assert.False(t, held)
	_, held = locks.Holder("k2")
	assert.False(t, held)
	holder, held := locks.Holder("k3")
	require.True(t, held)
	assert.Equal(t, b, holder)
}

func TestReadLockExcludesWriter(t *testing.T) {
	locks := NewLockManager()
	a := NewToken()

	// readers share the lock
	unlock1, ok := locks.TryRLock("k")
	require.True(t, ok)
	unlock2, ok := locks.TryRLock("k")
	require.True(t, ok)

	// writer cannot get in while readers are active
	assert.False(t, locks.TryAcquire("k", a))

	unlock1()
	unlock2()
	require.True(t, locks.TryAcquire("k", a))

	// readers fail fast while the writer holds the lock
	_, ok = locks.TryRLock("k")
	assert.False(t, ok)

	require.True(t, locks.Release("k", a))
	unlock, ok := locks.TryRLock("k")
	require.True(t, ok)
	unlock()
}

func TestAnonymousWriteLock(t *testing.T) {
	locks := NewLockManager()
	a := NewToken()

	unlock, ok := locks.TryLock("k")
	require.True(t, ok)

	// token owners are refused while the anonymous lock is held
	assert.False(t, locks.TryAcquire("k", a))
	_, ok = locks.TryLock("k")
	assert.False(t, ok)

	unlock()

	require.True(t, locks.TryAcquire("k", a))
	_, ok = locks.TryLock("k")
	assert.False(t, ok)
}

func TestConcurrentAcquire(t *testing.T) {
	locks := NewLockManager()

	const workers = 50
	var winners atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if locks.TryAcquire("contended", NewToken()) {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}
