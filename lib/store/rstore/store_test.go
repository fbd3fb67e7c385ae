package rstore

import (
	"bytes"
	"testing"

	"github.com/ValentinKolb/qKV/lib/lockmgr"
	"github.com/ValentinKolb/qKV/lib/store"
	storetesting "github.com/ValentinKolb/qKV/lib/store/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test(t *testing.T) {
	storetesting.RunReplicaStoreTests(t, "ReplicaStore", NewReplicaStore)
}

func TestMetrics(t *testing.T) {
	s := NewReplicaStore()

	holder := lockmgr.NewToken()
	ok, _ := s.AcquireWriteLock("k", holder)
	require.True(t, ok)
	ok, _ = s.AcquireWriteLock("k", lockmgr.NewToken())
	require.False(t, ok)
	require.True(t, s.Put("k", "v", holder, 1))
	assert.Equal(t, store.UpdateStale, s.ConditionalUpdate("k", "old", 1))

	var buf bytes.Buffer
	s.WriteMetrics(&buf)
	out := buf.String()

	assert.Contains(t, out, `qkv_store_write_locks_total{result="granted"} 1`)
	assert.Contains(t, out, `qkv_store_write_locks_total{result="denied"} 1`)
	assert.Contains(t, out, `qkv_store_puts_total{result="ok"} 1`)
	assert.Contains(t, out, `qkv_store_updates_total{result="stale"} 1`)
	assert.Contains(t, out, `qkv_store_keys 1`)
}

// Two replicas converge through conditional updates in both directions
func TestAntiEntropyExchange(t *testing.T) {
	a, b := NewReplicaStore(), NewReplicaStore()
	require.Equal(t, store.UpdateApplied, a.ConditionalUpdate("k", "x", 5))
	require.Equal(t, store.UpdateApplied, b.ConditionalUpdate("k", "y", 3))

	// a -> b repairs b
	entry, err := a.Get("k")
	require.NoError(t, err)
	assert.Equal(t, store.UpdateApplied, b.ConditionalUpdate("k", entry.Value, entry.Version))

	// a stale b -> a message (version 3) is a no-op on a
	assert.Equal(t, store.UpdateStale, a.ConditionalUpdate("k", "y", 3))

	for _, s := range []store.IReplicaStore{a, b} {
		entry, err := s.Get("k")
		require.NoError(t, err)
		assert.Equal(t, store.Entry{Value: "x", Version: 5}, entry)
	}
}
