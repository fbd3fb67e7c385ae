package rstore

import (
	"io"
	"math/rand/v2"

	"github.com/ValentinKolb/qKV/lib/lockmgr"
	"github.com/ValentinKolb/qKV/lib/store"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("store")

type storeImpl struct {
	entries *xsync.MapOf[string, store.Entry]
	locks   lockmgr.ILockManager

	metrics *metrics.Set

	locksGranted   *metrics.Counter
	locksDenied    *metrics.Counter
	gets           *metrics.Counter
	getFailures    *metrics.Counter
	puts           *metrics.Counter
	putsRejected   *metrics.Counter
	updatesApplied *metrics.Counter
	updatesStale   *metrics.Counter
	updatesSkipped *metrics.Counter
}

// NewReplicaStore creates a new, empty in-memory replica store.
// All state lives in memory and is lost when the process exits.
func NewReplicaStore() store.IReplicaStore {
	set := metrics.NewSet()
	s := &storeImpl{
		entries: xsync.NewMapOf[string, store.Entry](),
		locks:   lockmgr.NewLockManager(),
		metrics: set,

		locksGranted:   set.NewCounter(`qkv_store_write_locks_total{result="granted"}`),
		locksDenied:    set.NewCounter(`qkv_store_write_locks_total{result="denied"}`),
		gets:           set.NewCounter(`qkv_store_gets_total{result="ok"}`),
		getFailures:    set.NewCounter(`qkv_store_gets_total{result="lock_unavailable"}`),
		puts:           set.NewCounter(`qkv_store_puts_total{result="ok"}`),
		putsRejected:   set.NewCounter(`qkv_store_puts_total{result="not_owner"}`),
		updatesApplied: set.NewCounter(`qkv_store_updates_total{result="applied"}`),
		updatesStale:   set.NewCounter(`qkv_store_updates_total{result="stale"}`),
		updatesSkipped: set.NewCounter(`qkv_store_updates_total{result="skipped"}`),
	}
	set.NewGauge("qkv_store_keys", func() float64 {
		return float64(s.Len())
	})
	return s
}

// version returns the current version of key or AbsentVersion.
// The caller must hold a lock of the key if the result is used for a decision.
func (s *storeImpl) version(key string) int64 {
	if e, ok := s.entries.Load(key); ok {
		return e.Version
	}
	return store.AbsentVersion
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) AcquireWriteLock(key string, holder lockmgr.Token) (bool, int64) {
	if !s.locks.TryAcquire(key, holder) {
		s.locksDenied.Inc()
		Logger.Debugf("write lock for %q denied to %s", key, holder)
		return false, 0
	}
	s.locksGranted.Inc()

	// an unseen key starts at version 0 so the first write gets version 1
	version := s.version(key)
	if version == store.AbsentVersion {
		version = 0
	}
	Logger.Debugf("write lock for %q granted to %s (version %d)", key, holder, version)
	return true, version
}

func (s *storeImpl) ReleaseWriteLock(key string, holder lockmgr.Token) {
	if s.locks.Release(key, holder) {
		Logger.Debugf("write lock for %q released by %s", key, holder)
	}
}

func (s *storeImpl) ReleaseAll(holder lockmgr.Token) int {
	n := s.locks.ReleaseAll(holder)
	if n > 0 {
		Logger.Infof("released %d abandoned write lock(s) of %s", n, holder)
	}
	return n
}

func (s *storeImpl) Get(key string) (store.Entry, error) {
	unlock, ok := s.locks.TryRLock(key)
	if !ok {
		s.getFailures.Inc()
		Logger.Warningf("failed to acquire read lock for key %q", key)
		return store.Entry{}, store.ErrReadLockUnavailable
	}
	defer unlock()

	s.gets.Inc()
	entry, found := s.entries.Load(key)
	if !found {
		return store.Entry{Version: store.AbsentVersion}, nil
	}
	return entry, nil
}

func (s *storeImpl) Put(key, value string, holder lockmgr.Token, version int64) bool {
	if current, held := s.locks.Holder(key); !held || current != holder {
		s.putsRejected.Inc()
		Logger.Debugf("put for %q rejected, %s does not own the write lock", key, holder)
		return false
	}

	// the write lock is owned by holder, so no one else can touch the key right now
	s.entries.Store(key, store.Entry{Value: value, Version: version})
	s.puts.Inc()
	s.locks.Release(key, holder)
	return true
}

func (s *storeImpl) ConditionalUpdate(key, value string, version int64) store.UpdateResult {
	// Check the current version under the read lock
	runlock, ok := s.locks.TryRLock(key)
	if !ok {
		s.updatesSkipped.Inc()
		Logger.Warningf("update of %q to version %d skipped, read lock could not be acquired", key, version)
		return store.UpdateSkipped
	}
	current := s.version(key)
	runlock()

	if version <= current {
		s.updatesStale.Inc()
		return store.UpdateStale
	}

	// Upgrade to the write lock. Another writer may have committed in between.
	unlock, ok := s.locks.TryLock(key)
	if !ok {
		s.updatesSkipped.Inc()
		Logger.Warningf("update of %q to version %d skipped, write lock could not be acquired", key, version)
		return store.UpdateSkipped
	}
	defer unlock()

	if current = s.version(key); version <= current {
		s.updatesStale.Inc()
		return store.UpdateStale
	}

	s.entries.Store(key, store.Entry{Value: value, Version: version})
	s.updatesApplied.Inc()
	Logger.Infof("updated stale entry %q from version %d to %d", key, current, version)
	return store.UpdateApplied
}

func (s *storeImpl) RandomKey() (string, bool) {
	keys := make([]string, 0, s.entries.Size())
	s.entries.Range(func(key string, _ store.Entry) bool {
		keys = append(keys, key)
		return true
	})
	if len(keys) == 0 {
		return "", false
	}
	return keys[rand.IntN(len(keys))], true
}

func (s *storeImpl) Len() int {
	return s.entries.Size()
}

func (s *storeImpl) WriteMetrics(w io.Writer) {
	s.metrics.WritePrometheus(w)
}
