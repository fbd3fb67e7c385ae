// Package transport defines the interfaces and abstractions for the replica wire
// protocol. It provides a common contract that all transport implementations must
// fulfill, the concrete socket handling lives in the base and tcp sub packages.
//
// The package focuses on:
//   - Defining clear interfaces for client and server transport layers
//   - Per-connection request handlers, since lock ownership on a replica is bound
//     to the connection that acquired the lock
//   - Line based framing: one request line, one response line
//
// Key Components:
//
//   - IRPCClientTransport: Interface for one persistent connection to a replica
//     with synchronous request/response semantics.
//
//   - IRPCServerTransport: Interface for server-side transport implementations that
//     accept connections and drive one IConnHandler per connection.
//
//   - ServerHandleFunc: Factory for the per-connection handlers.
package transport
