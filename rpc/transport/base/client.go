package base

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/shKV/rpc/common"
	"github.com/ValentinKolb/shKV/rpc/transport"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.).
// It owns one connection and allows one request in flight at a time.
type clientTransport struct {
	connector IClientConnector
	config    common.ClientConfig
	mu        sync.Mutex // serializes round trips
	conn      net.Conn
	closed    bool
	failure   error // first connection fault, returned by every later Send
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return common.ErrClientClosed
	}
	if t.conn != nil {
		return fmt.Errorf("%s transport is already connected to %s", t.connector.GetName(), t.config.Endpoint)
	}
	if config.Endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}
	if config.MaxFrameSize <= 0 {
		config.MaxFrameSize = common.DefaultMaxFrameSize
	}

	conn, err := t.connector.Connect(config.Endpoint)
	if err != nil {
		return common.NewConnectionError(config.Endpoint, err)
	}

	// Upgrade the connection with protocol-specific settings
	if err := t.connector.UpgradeConnection(conn, config); err != nil {
		conn.Close()
		return common.NewConnectionError(config.Endpoint, fmt.Errorf("failed to upgrade connection: %w", err))
	}

	t.config = config
	t.conn = conn
	Logger.Debugf("Connected to %s using %s transport", config.Endpoint, t.connector.GetName())
	return nil
}

func (t *clientTransport) Send(req []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, common.ErrClientClosed
	}
	if t.failure != nil {
		return nil, t.failure
	}
	if t.conn == nil {
		return nil, fmt.Errorf("%s transport is not connected", t.connector.GetName())
	}

	// refused before anything is written, the connection stays usable
	if len(req) > t.config.MaxFrameSize {
		return nil, common.NewProtocolError("request of %d bytes exceeds maximum of %d bytes", len(req), t.config.MaxFrameSize)
	}

	// Without a timeout the round trip blocks until the server answers
	var deadline time.Time
	if t.config.TimeoutSecond > 0 {
		deadline = time.Now().Add(time.Duration(t.config.TimeoutSecond) * time.Second)
	}
	if err := t.conn.SetDeadline(deadline); err != nil {
		return nil, t.fail(err)
	}

	if err := writeFrame(t.conn, req); err != nil {
		return nil, t.fail(err)
	}

	resp, err := readFrame(t.conn, t.config.MaxFrameSize)
	if err != nil {
		return nil, t.fail(err)
	}
	return resp, nil
}

func (t *clientTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// fail drops the connection after a fault. There is no reconnect, the error
// is kept and reported to every further call. Must be called with t.mu held.
func (t *clientTransport) fail(err error) error {
	if !common.IsProtocolError(err) {
		err = common.NewConnectionError(t.config.Endpoint, err)
	}
	t.failure = err
	t.conn.Close()
	Logger.Warningf("Dropped connection to %s: %v", t.config.Endpoint, err)
	return err
}
