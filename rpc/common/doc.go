// Package common provides core data structures and utilities shared across
// the shKV store. It defines the protocol types, configuration structures
// and error taxonomy used by the other rpc packages.
//
// The package focuses on:
//   - Request/Response definition for the client/server protocol
//   - Configuration structures for client and server components
//   - Logging integrated with the Dragonboat logger facade, backed by logrus
//   - The error taxonomy (ProtocolError, ConnectionError)
//
// Key Components:
//
//   - Request / Response: the two message kinds of the protocol. A request carries
//     an operation code, a key and (for set and queue_put) a value. A response
//     carries an optional value or a count, depending on the operation.
//
//   - OpCode: the fixed set of operations (get, set, del, queue_get, queue_put,
//     queue_size). Codes outside this set are rejected by every serializer.
//
//   - ServerConfig / ClientConfig: configuration of the endpoint, frame size limits,
//     buffers and timeouts. The server configuration can be loaded from YAML.
//
//   - ProtocolError / ConnectionError: malformed input versus transport failures.
//     A key without a value is not an error, it is a response with Found=false.
//
//   - Logger: logrus based implementation of Dragonboat's logger.ILogger so that
//     every package can use logger.GetLogger(name) like the rest of the code base.
package common
