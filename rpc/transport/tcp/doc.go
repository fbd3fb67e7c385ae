// Package tcp implements the TCP socket based transport of the replica wire protocol.
// It provides concrete implementations of the base package's connector interfaces.
//
// See the base package documentation for the framing and connection handling.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector
//
// Both connectors apply the same socket settings (no delay, keep-alive, linger and
// socket buffer sizes) to every connection. A negative linger keeps the OS default,
// a linger of 0 discards unsent data and resets the connection on close.
package tcp
