// Package cmd implements the command-line interface of qKV. It provides a
// hierarchical command structure for running a replica and for using the
// store as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Command for starting a replica (server + anti-entropy)
//   - client: Interactive client and one-shot put/get/perf commands
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Configuration is read from flags, environment variables (QKV_<FLAG>, e.g.
// QKV_READ_QUORUM=2), .env/.env.local files and an optional config file.
//
// See qkv -help for a list of all commands.
package cmd
