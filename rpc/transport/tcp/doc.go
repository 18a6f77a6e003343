// Package tcp implements the TCP socket transport of shKV's RPC system.
// It provides the TCP specific connectors for the base package, which contains
// the event loop, the framing and the client round trip.
//
// Key Components:
//
//   - clientConnector: dials host:port and disables Nagle's algorithm
//
//   - serverConnector: listens on host:port and tunes accepted connections
//
// TCP is the default transport. Use it with an endpoint like "127.0.0.1:6666";
// port 0 lets the operating system pick a free port (see IRPCServerTransport.Addr).
package tcp
