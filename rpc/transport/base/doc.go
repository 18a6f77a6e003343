// Package base provides the protocol independent core of the shKV transports.
// Concrete transports (tcp, unix) only contribute a connector that knows how to
// listen, dial and tune a socket.
//
// Wire Format:
//
//	Every message is one frame: a 4 byte big endian payload length followed by
//	the payload. Frames larger than the configured maximum are protocol errors
//	in both directions.
//
// Server (event loop):
//
//   - One accept goroutine and one reader goroutine per connection block on the
//     runtime netpoller. They never interpret data, they only deliver readiness
//     events (accepted, bytes read, read failed) to the event loop.
//
//   - The event loop in Serve is a single goroutine. It appends read bytes to the
//     connection's accumulation buffer, cuts out complete frames, calls the handler
//     and writes the response. Because it is the only goroutine doing so, all
//     requests of all connections are handled one at a time in the order their
//     events were observed.
//
//   - Each connection is a small state machine (looplab/fsm):
//     awaiting -> processing -> awaiting, and closed on EOF, read or write errors,
//     protocol errors and panics in the handler. A closed connection is removed from
//     the active set; other connections are not affected.
//
//   - Writes carry a deadline (write timeout) so a peer that stops reading cannot
//     stall the loop forever.
//
// Client:
//
//	A client transport owns one connection and performs blocking round trips,
//	one request in flight at a time. There is no retry and no reconnect: after the
//	first fault every call returns that fault.
//
// Thread Safety:
//
//	All public methods are thread-safe. Handlers registered on the server are only
//	ever called from the event loop goroutine.
package base
