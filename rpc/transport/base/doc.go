// Package base provides the foundation for the transport layers of a replica and its
// clients, implementing the line based request/response protocol independent of the
// specific network protocol. It is extended with protocol-specific connectors.
//
// The package focuses on:
//   - Protocol-agnostic client and server transport implementations
//   - Line framing: every message is terminated by '\n', a trailing '\r' is ignored
//   - One goroutine per accepted connection, requests of one connection are
//     answered strictly in order
//   - Optional deadlines for every read and write
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different network protocols.
//
//   - clientTransport: One persistent connection to one endpoint. A connection that
//     failed (including a timed out request) is dropped and dialed again on the next
//     request, because a late response would otherwise be read as the answer to the
//     following request.
//
//   - serverTransport: Accepts connections, creates one transport.IConnHandler per
//     connection and closes the handler when the connection ends. Close shuts down the
//     listener and all open connections and waits for the handlers.
//
// Thread Safety:
//
//	All public methods are thread-safe. The client transport serializes requests
//	with a mutex, the server creates a dedicated goroutine for each connection.
package base
