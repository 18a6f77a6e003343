// Package transport defines the interfaces for RPC communication in shKV.
// It provides a common contract that all transport implementations must fulfill,
// so that the server and client code do not depend on the network protocol.
//
// The package focuses on:
//   - Defining clear interfaces for client and server transport layers
//   - Separating binding an endpoint (Listen) from serving it (Serve)
//   - Enabling multiple transport implementations (TCP, Unix sockets)
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transports. A client transport owns
//     exactly one connection and performs one blocking round trip per Send.
//
//   - IRPCServerTransport: Interface for server-side transports that accept connections
//     and hand every complete request frame to the registered handler.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
//
//   - IConnectionObserver: Optional callbacks for connection lifecycle events (metrics).
package transport
