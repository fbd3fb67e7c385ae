package testing

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/qKV/lib/lockmgr"
	"github.com/ValentinKolb/qKV/lib/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunReplicaStoreTests runs the conformance suite for a store.IReplicaStore implementation.
func RunReplicaStoreTests(t *testing.T, name string, factory store.Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("GetAbsent", func(t *testing.T) {
			testGetAbsent(t, factory())
		})

		t.Run("AcquireWriteLock", func(t *testing.T) {
			testAcquireWriteLock(t, factory())
		})

		t.Run("ReleaseWriteLock", func(t *testing.T) {
			testReleaseWriteLock(t, factory())
		})

		t.Run("Put", func(t *testing.T) {
			testPut(t, factory())
		})

		t.Run("PutWrongHolder", func(t *testing.T) {
			testPutWrongHolder(t, factory())
		})

		t.Run("LockAfterPut", func(t *testing.T) {
			testLockAfterPut(t, factory())
		})

		t.Run("GetWhileLocked", func(t *testing.T) {
			testGetWhileLocked(t, factory())
		})

		t.Run("ConditionalUpdate", func(t *testing.T) {
			testConditionalUpdate(t, factory())
		})

		t.Run("ConditionalUpdateWhileLocked", func(t *testing.T) {
			testConditionalUpdateWhileLocked(t, factory())
		})

		t.Run("ReleaseAll", func(t *testing.T) {
			testReleaseAll(t, factory())
		})

		t.Run("RandomKey", func(t *testing.T) {
			testRandomKey(t, factory())
		})

		t.Run("ConcurrentWriters", func(t *testing.T) {
			testConcurrentWriters(t, factory())
		})

		t.Run("SequentialWriters", func(t *testing.T) {
			testSequentialWriters(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// write performs a full lock -> put cycle and returns the version that was written
func write(t *testing.T, s store.IReplicaStore, key, value string) int64 {
	holder := lockmgr.NewToken()
	ok, version := s.AcquireWriteLock(key, holder)
	require.True(t, ok, "lock for %s should be free", key)
	require.True(t, s.Put(key, value, holder, version+1))
	return version + 1
}

func requireEntry(t *testing.T, s store.IReplicaStore, key, value string, version int64) {
	entry, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, entry.Value)
	assert.Equal(t, version, entry.Version)
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testGetAbsent(t *testing.T, s store.IReplicaStore) {
	entry, err := s.Get("never-written")
	require.NoError(t, err)
	assert.Equal(t, "", entry.Value)
	assert.Equal(t, store.AbsentVersion, entry.Version)
	assert.False(t, entry.Exists())
	assert.Equal(t, 0, s.Len())
}

func testAcquireWriteLock(t *testing.T, s store.IReplicaStore) {
	a, b := lockmgr.NewToken(), lockmgr.NewToken()

	// unseen key starts at version 0
	ok, version := s.AcquireWriteLock("k", a)
	require.True(t, ok)
	assert.Equal(t, int64(0), version)

	// re-entry
	ok, version = s.AcquireWriteLock("k", a)
	require.True(t, ok)
	assert.Equal(t, int64(0), version)

	// a second holder fails
	ok, version = s.AcquireWriteLock("k", b)
	assert.False(t, ok)
	assert.Equal(t, int64(0), version)

	// existing key reports its version
	write(t, s, "other", "v")
	ok, version = s.AcquireWriteLock("other", b)
	require.True(t, ok)
	assert.Equal(t, int64(1), version)
}

func testReleaseWriteLock(t *testing.T, s store.IReplicaStore) {
	a, b := lockmgr.NewToken(), lockmgr.NewToken()

	ok, _ := s.AcquireWriteLock("k", a)
	require.True(t, ok)

	// releasing a lock owned by someone else is ignored
	s.ReleaseWriteLock("k", b)
	ok, _ = s.AcquireWriteLock("k", b)
	assert.False(t, ok)

	// the owner releases, the next holder succeeds immediately
	s.ReleaseWriteLock("k", a)
	ok, _ = s.AcquireWriteLock("k", b)
	assert.True(t, ok)

	// releasing an unknown key is not an error
	s.ReleaseWriteLock("unknown", a)
}

func testPut(t *testing.T, s store.IReplicaStore) {
	holder := lockmgr.NewToken()
	ok, version := s.AcquireWriteLock("k", holder)
	require.True(t, ok)

	require.True(t, s.Put("k", "v1", holder, version+1))
	requireEntry(t, s, "k", "v1", 1)
	assert.Equal(t, 1, s.Len())

	// the lock was released by the put
	assert.False(t, s.Put("k", "v2", holder, 2))
	requireEntry(t, s, "k", "v1", 1)
}

func testPutWrongHolder(t *testing.T, s store.IReplicaStore) {
	a, b := lockmgr.NewToken(), lockmgr.NewToken()

	// no lock at all
	assert.False(t, s.Put("k", "v", a, 1))
	requireEntry(t, s, "k", "", store.AbsentVersion)

	// lock owned by a different holder
	ok, _ := s.AcquireWriteLock("k", a)
	require.True(t, ok)
	assert.False(t, s.Put("k", "v", b, 1))

	// a still owns the lock
	ok, _ = s.AcquireWriteLock("k", b)
	assert.False(t, ok)
	require.True(t, s.Put("k", "v", a, 1))
	requireEntry(t, s, "k", "v", 1)
}

func testLockAfterPut(t *testing.T, s store.IReplicaStore) {
	a, b := lockmgr.NewToken(), lockmgr.NewToken()

	ok, _ := s.AcquireWriteLock("k", a)
	require.True(t, ok)
	ok, _ = s.AcquireWriteLock("k", b)
	require.False(t, ok)

	require.True(t, s.Put("k", "a", a, 1))

	ok, version := s.AcquireWriteLock("k", b)
	require.True(t, ok)
	assert.Equal(t, int64(1), version)
}

func testGetWhileLocked(t *testing.T, s store.IReplicaStore) {
	holder := lockmgr.NewToken()
	write(t, s, "k", "v")

	ok, _ := s.AcquireWriteLock("k", holder)
	require.True(t, ok)

	// readers fail fast while a writer holds the key
	_, err := s.Get("k")
	require.ErrorIs(t, err, store.ErrReadLockUnavailable)
	assert.Equal(t, store.RetCLockUnavailable, store.CodeOf(err))

	// other keys are not affected
	_, err = s.Get("other")
	require.NoError(t, err)

	s.ReleaseWriteLock("k", holder)
	requireEntry(t, s, "k", "v", 1)
}

func testConditionalUpdate(t *testing.T, s store.IReplicaStore) {
	// unseen key accepts any version >= 0
	assert.Equal(t, store.UpdateApplied, s.ConditionalUpdate("k", "x", 5))
	requireEntry(t, s, "k", "x", 5)

	// equal and lower versions are ignored
	assert.Equal(t, store.UpdateStale, s.ConditionalUpdate("k", "y", 5))
	assert.Equal(t, store.UpdateStale, s.ConditionalUpdate("k", "y", 3))
	requireEntry(t, s, "k", "x", 5)

	// repeated delivery is idempotent
	assert.Equal(t, store.UpdateApplied, s.ConditionalUpdate("k", "z", 6))
	assert.Equal(t, store.UpdateStale, s.ConditionalUpdate("k", "z", 6))
	requireEntry(t, s, "k", "z", 6)

	// the next client write continues from the repaired version
	holder := lockmgr.NewToken()
	ok, version := s.AcquireWriteLock("k", holder)
	require.True(t, ok)
	assert.Equal(t, int64(6), version)
}

func testConditionalUpdateWhileLocked(t *testing.T, s store.IReplicaStore) {
	holder := lockmgr.NewToken()
	ok, _ := s.AcquireWriteLock("k", holder)
	require.True(t, ok)

	// best effort: skipped while the key is locked
	assert.Equal(t, store.UpdateSkipped, s.ConditionalUpdate("k", "x", 9))

	require.True(t, s.Put("k", "v", holder, 1))
	requireEntry(t, s, "k", "v", 1)

	// delivered again on the next round
	assert.Equal(t, store.UpdateApplied, s.ConditionalUpdate("k", "x", 9))
	requireEntry(t, s, "k", "x", 9)
}

func testReleaseAll(t *testing.T, s store.IReplicaStore) {
	a, b := lockmgr.NewToken(), lockmgr.NewToken()

	for _, key := range []string{"k1", "k2", "k3"} {
		ok, _ := s.AcquireWriteLock(key, a)
		require.True(t, ok)
	}
	ok, _ := s.AcquireWriteLock("k4", b)
	require.True(t, ok)

	assert.Equal(t, 3, s.ReleaseAll(a))

	for _, key := range []string{"k1", "k2", "k3"} {
		ok, _ := s.AcquireWriteLock(key, b)
		assert.True(t, ok, key)
	}
	ok, _ = s.AcquireWriteLock("k4", a)
	assert.False(t, ok)
}

func testRandomKey(t *testing.T, s store.IReplicaStore) {
	_, ok := s.RandomKey()
	assert.False(t, ok)

	// locking alone does not create a key
	ok, _ = s.AcquireWriteLock("locked-only", lockmgr.NewToken())
	require.True(t, ok)
	_, ok = s.RandomKey()
	assert.False(t, ok)

	keys := map[string]bool{}
	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("key-%d", i)
		write(t, s, key, "v")
		keys[key] = true
	}

	// every sample is a stored key and eventually every key is sampled
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		key, ok := s.RandomKey()
		require.True(t, ok)
		require.True(t, keys[key], "unexpected key %s", key)
		seen[key] = true
	}
	assert.Len(t, seen, len(keys))
}

func testConcurrentWriters(t *testing.T, s store.IReplicaStore) {
	const workers = 20
	var winners atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			holder := lockmgr.NewToken()
			<-start
			if ok, version := s.AcquireWriteLock("k", holder); ok {
				winners.Add(1)
				// hold the lock long enough for everybody else to fail
				time.Sleep(200 * time.Millisecond)
				assert.True(t, s.Put("k", fmt.Sprintf("v%d", i), holder, version+1))
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	entry, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.Version)
}

func testSequentialWriters(t *testing.T, s store.IReplicaStore) {
	for i := 1; i <= 10; i++ {
		version := write(t, s, "k", fmt.Sprintf("v%d", i))
		assert.Equal(t, int64(i), version)
	}
	requireEntry(t, s, "k", "v10", 10)
}
