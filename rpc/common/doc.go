// Package common provides core data structures and utilities shared across
// the quorum key-value store. It defines the message model of the wire protocol,
// the configuration structures and the logging setup used by other packages.
//
// The package focuses on:
//   - Message definition for the replica request/response protocol
//   - Configuration structures (and their validation) for replicas and clients
//   - Custom logging implementation plugged into Dragonboat's logger facade
//
// Key Components:
//
//   - Message: Core data structure for all communication with a replica.
//     The same structure is used for requests and responses, the fields that
//     are set depend on MsgType. Factory functions create every valid message.
//
//   - MessageType: Enumeration of the protocol operations (lock, release, get,
//     put, update) plus the invalid request marker.
//
//   - QuorumConfig: replica roster and quorum sizes. Validate enforces
//     W > N/2 and R + W > N, so any two write quorums and any read and write
//     quorum intersect.
//
//   - ServerConfig / ClientConfig: configuration of a replica process and of a
//     quorum client, including transport tuning and timeouts.
//
//   - Logger: Custom logging implementation that integrates with Dragonboat's
//     logger package while providing consistent formatting across the application.
package common
