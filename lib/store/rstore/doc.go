// Package rstore implements store.IReplicaStore in memory.
//
// Entries are kept in a concurrent map (xsync.MapOf), locks in a
// lockmgr.ILockManager. Lock objects are created lazily per key and never
// removed, entries are never deleted. Every operation is counted in a
// per-store metrics set which can be exported with WriteMetrics.
package rstore
