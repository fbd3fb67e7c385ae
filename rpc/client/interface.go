package client

import (
	"errors"
)

// ErrRequestRejected is returned (wrapped) if a replica answered with an invalid request response
var ErrRequestRejected = errors.New("request rejected by replica")

// IReplicaLink is a persistent connection to one replica.
// Write locks acquired through a link are owned by the link's connection,
// so the whole write protocol for a key must use the same link.
// A link must not be used by multiple goroutines at the same time for one write.
type IReplicaLink interface {
	// Endpoint returns the address of the replica
	Endpoint() string
	// AcquireLock tries to acquire the write lock of key (never blocks on the replica)
	// It returns if the lock was acquired and the current version of the key
	AcquireLock(key string) (ok bool, version int64, err error)
	// ReleaseLock releases the write lock of key if this link holds it
	ReleaseLock(key string) error
	// Get reads key. ok is false if the replica could not serve the read.
	// A key that was never written is reported with version -1.
	Get(key string) (value string, version int64, ok bool, err error)
	// Put writes key with the given version, the replica releases the lock afterward.
	// ok is false if this link does not hold the write lock.
	Put(key, value string, version int64) (ok bool, err error)
	// Update sends an anti-entropy update. The replica applies it only if the version is newer.
	Update(key, value string, version int64) error
	// Close closes the connection, the replica releases all locks held by it
	Close() error
}

// Dialer opens a link to the replica at endpoint
type Dialer func(endpoint string) (IReplicaLink, error)
