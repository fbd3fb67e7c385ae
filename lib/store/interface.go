package store

import (
	"errors"
	"fmt"
	"io"

	"github.com/ValentinKolb/qKV/lib/lockmgr"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// AbsentVersion is the version reported for a key that was never written.
const AbsentVersion int64 = -1

// Entry is a versioned value. At most one entry is stored per key.
type Entry struct {
	Value   string
	Version int64
}

// Exists reports whether the entry was ever written.
func (e Entry) Exists() bool {
	return e.Version > AbsentVersion
}

// UpdateResult describes what a conditional update did.
type UpdateResult uint8

const (
	UpdateApplied UpdateResult = iota // the incoming version was newer and has been stored
	UpdateStale                       // the incoming version was not newer, nothing changed
	UpdateSkipped                     // a lock was busy, nothing changed (retry on the next round)
)

// String returns the string representation of an UpdateResult.
func (r UpdateResult) String() string {
	switch r {
	case UpdateApplied:
		return "applied"
	case UpdateStale:
		return "stale"
	case UpdateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Factory is a function type that creates a new replica store.
// It is used by the conformance tests and by the server setup.
type Factory func() IReplicaStore

// IReplicaStore is the authoritative state of one replica: a map key -> (value, version),
// a read/write lock per key and the owner of each write lock. It knows nothing about the network.
//
// Lock acquisition never blocks. Operations that need a busy lock fail immediately.
type IReplicaStore interface {
	// AcquireWriteLock acquires the write lock of key for holder.
	// On success the current version is returned (0 if the key was never written).
	// If holder already owns the lock the call succeeds again.
	// If another holder owns the lock, ok is false and version is 0.
	AcquireWriteLock(key string, holder lockmgr.Token) (ok bool, version int64)
	// ReleaseWriteLock releases the write lock of key if it is owned by holder, otherwise it does nothing.
	ReleaseWriteLock(key string, holder lockmgr.Token)
	// ReleaseAll releases every write lock owned by holder and returns how many were released.
	ReleaseAll(holder lockmgr.Token) (n int)
	// Get returns the entry for key. A key that was never written yields an entry with AbsentVersion.
	// If the read lock is busy ErrReadLockUnavailable is returned.
	Get(key string) (entry Entry, err error)
	// Put stores (value, version) for key if holder owns the write lock of key.
	// The lock is released afterward. Return false (and change nothing) if holder is not the owner.
	Put(key, value string, holder lockmgr.Token, version int64) (ok bool)
	// ConditionalUpdate stores (value, version) if version is strictly greater than the current version.
	// It is best effort: if a lock is busy the update is skipped.
	ConditionalUpdate(key, value string, version int64) UpdateResult
	// RandomKey returns a uniformly sampled key. ok is false if the store is empty.
	RandomKey() (key string, ok bool)
	// Len returns the number of stored keys.
	Len() int
	// WriteMetrics writes the metrics of the store in Prometheus text format.
	WriteMetrics(w io.Writer)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("ReplicaStoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new ReplicaStoreError with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

var (
	// ErrReadLockUnavailable is returned by Get if the read lock of the key is busy
	ErrReadLockUnavailable = NewError(RetCLockUnavailable, "read lock unavailable")
)

// CodeOf returns the return code of err, RetCSuccess for nil and RetCInternalError for foreign errors.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr.Code
	}
	return RetCInternalError
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess         RetCode = iota // 0: Command executed successfully.
	RetCInternalError                  // 1: Command failed due to an internal error.
	RetCLockUnavailable                // 2: A lock needed by the command is held elsewhere.
)

// String returns the name of the return code.
func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCLockUnavailable:
		return "LockUnavailable"
	default:
		return "Unknown"
	}
}
