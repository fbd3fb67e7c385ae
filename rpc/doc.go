// Package rpc provides the network layer of qKV. Replicas and quorum clients
// talk over long-lived connections carrying one request line and one response
// line at a time.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - transport: Line-framed connection handling (TCP) for the server and client side.
//
//   - serializer: Message serialization (the space-separated text protocol and JSON)
//     for converting between Message objects and wire lines.
//
//   - client: ReplicaLink, the client side of a connection to one replica.
//
//   - server: The request handler of a replica. Every connection is a session
//     holding its own lock token, locks are released when the session ends.
package rpc
