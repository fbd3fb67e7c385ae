// Package server implements the request handling side of a replica.
//
// Every accepted connection is served by its own session. The session owns a
// freshly generated lock token (lockmgr.Token), so write locks acquired on a
// connection belong to that connection only. A session reads one request line,
// answers it with exactly one response line and repeats until the connection
// ends. Malformed lines are answered with an invalid request response and the
// connection stays usable. When the connection ends every write lock still held
// by its token is released.
//
// Key Components:
//
//   - IRPCServerAdapter: translates a decoded request into store.IReplicaStore calls.
//
//   - NewReplicaStoreServerAdapter: the adapter for the replica protocol:
//
//     ACQUIRE_LOCK -> AcquireWriteLock, RELEASE_LOCK -> ReleaseWriteLock,
//     GET -> Get, PUT -> Put, UPDATE -> ConditionalUpdate
//
//   - NewRPCServer: wires store, transport and serializer into a Server.
//
// Thread Safety:
//
//	Sessions run concurrently, the store is the only shared object and
//	synchronizes internally.
package server
