package quorum

import (
	"errors"

	gometrics "github.com/rcrowley/go-metrics"
)

var (
	// ErrInvalidArgument is returned if a key or value is absent or cannot be transmitted.
	// No replica is contacted in that case.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrLockNotAcquired is returned by Put if a member of the write quorum denied the write lock
	ErrLockNotAcquired = errors.New("write lock not acquired")
	// ErrReplicaUnavailable is reported for a quorum member that could not be reached
	ErrReplicaUnavailable = errors.New("replica unavailable")
	// ErrKeyNotFound is returned by Get if every answering replica never saw the key
	ErrKeyNotFound = errors.New("key not found")
	// ErrNoReadQuorum is returned by Get if no member of the read quorum could serve the read
	ErrNoReadQuorum = errors.New("no replica of the read quorum answered")
)

// View is a read and a write quorum, each a set of distinct replica addresses in draw order
type View struct {
	Read  []string
	Write []string
}

// Result is the outcome of a successful quorum read
type Result struct {
	Value   string
	Version int64
	// Replica is the address of the replica that supplied the value
	Replica string
}

// PutResult is the outcome of a successful quorum write
type PutResult struct {
	// Version is the version assigned to the value
	Version int64
	// Written lists the replicas that stored the value
	Written []string
	// Failed lists the replicas that were locked but did not store the value
	Failed []string
}

// ICoordinator performs quorum reads and locked quorum writes over a fixed replica roster.
// It never retries on its own, callers implement backoff.
type ICoordinator interface {
	// Put writes value under key on every member of the write quorum.
	// The write locks of all members are acquired first. If any member denies the lock
	// or is unreachable, the acquired locks are released and nothing is written.
	// The new version is the highest version reported during locking plus one.
	Put(key, value string) (PutResult, error)
	// Get reads key from every member of the read quorum and returns the value with the
	// highest version. ErrKeyNotFound and ErrNoReadQuorum distinguish an unwritten key
	// from a failed read.
	Get(key string) (Result, error)
	// View returns the fixed read and write quorum. With the per-operation policy it returns
	// a sample draw only; every Put and Get draws its own quorum.
	View() View
	// Metrics returns the registry with the latency timers and failure counters of this coordinator
	Metrics() gometrics.Registry
}
