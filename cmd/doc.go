// Package cmd implements the command-line interface of shKV. It provides a
// hierarchical command structure for running the server and for interacting
// with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts the server and prints its effective configuration (serve, config)
//   - kv: Commands for key-value operations (get, set, del) and a load generator (perf)
//   - queue: Commands for FIFO queue operations (put, get, size)
//   - util: Shared utilities for flags, configuration and connecting (internal use)
//
// Client commands accept --autostart, which starts a detached "shkv serve" process
// when nobody serves the endpoint yet.
//
// See shkv -help for a list of all commands.
package cmd
