package transport

import (
	"net"

	"github.com/ValentinKolb/shKV/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests.
// It is called by the server transport for every complete frame, always from the
// transport's single event loop goroutine, and returns the payload of the response frame.
// The request slice is only valid for the duration of the call.
// A returned error closes the connection without sending a response.
type ServerHandleFunc func(req []byte) (resp []byte, err error)

// IConnectionObserver is notified about the lifecycle of server connections.
// Calls happen on the event loop goroutine and must not block.
type IConnectionObserver interface {
	// ConnectionOpened is called after a connection was accepted
	ConnectionOpened(connID uint64)
	// ConnectionClosed is called once per connection. err is nil if the peer closed
	// the connection cleanly, otherwise it is a common.ProtocolError or a common.ConnectionError.
	ConnectionClosed(connID uint64, err error)
}

// IRPCServerTransport is the interface for the RPC server transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers the handler for incoming requests
	RegisterHandler(handler ServerHandleFunc)
	// RegisterObserver registers an optional observer for connection events
	RegisterObserver(observer IConnectionObserver)
	// Listen binds the configured endpoint. It does not accept connections yet,
	// this allows a caller to find out whether it won the endpoint before serving.
	Listen(config common.ServerConfig) error
	// Serve runs the event loop. It blocks until Close is called.
	Serve() error
	// Addr returns the bound address, nil before Listen
	Addr() net.Addr
	// ActiveConnections returns the number of open connections
	ActiveConnections() int
	// Close stops the event loop and closes the listener and all connections
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and blocks until the response arrived
	Send(req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
