// Package rpc provides the communication layer of the shKV store: the wire
// protocol, the connection handling event loop and the client.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Request/Response protocol, configuration structures, and logging.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets). The base implementation contains the framing, the
//     single threaded server event loop and the blocking client transport.
//
//   - serializer: Payload serialization with two format options (Binary, JSON)
//     for converting between Request/Response objects and byte arrays.
//
//   - client: RPC client implementing the store interface against a remote server.
//
//   - server: RPC server that dispatches decoded requests against the local store.
//
//   - bootstrap: bind-or-connect helper that either attaches to a running server
//     or becomes the server itself.
package rpc
