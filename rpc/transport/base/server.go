package base

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/shKV/rpc/common"
	"github.com/ValentinKolb/shKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("transport/rpc")

// acceptRetryDelay is the pause after a failed Accept before trying again
const acceptRetryDelay = 50 * time.Millisecond

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

type eventKind int

const (
	evAccepted   eventKind = iota // a new connection was accepted
	evData                        // bytes were read from a connection
	evReadFailed                  // reading from a connection failed (EOF included)
)

// loopEvent is a readiness notification delivered to the event loop
type loopEvent struct {
	kind    eventKind
	netConn net.Conn    // evAccepted
	conn    *serverConn // evData, evReadFailed
	buf     *[]byte     // evData, a buffer of the pool
	n       int         // evData, bytes read into buf
	err     error       // evReadFailed
}

// serverTransport implements the core server transport functionality.
//
// One goroutine accepts connections and one goroutine per connection blocks in Read.
// Both only report what became ready over the events channel. The single loop goroutine
// in Serve consumes these events and is the only code that touches connection buffers,
// connection state and (through the handler) the store.
type serverTransport struct {
	connector  IServerConnector
	handler    transport.ServerHandleFunc
	observer   transport.IConnectionObserver
	config     common.ServerConfig
	listener   net.Listener
	conns      *xsync.MapOf[uint64, *serverConn] // active connections
	events     chan loopEvent
	done       chan struct{}
	closeOnce  sync.Once
	nextConnID atomic.Uint64
	bufferPool *sync.Pool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with the specified connector
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return &serverTransport{
		connector: connector,
		conns:     xsync.NewMapOf[uint64, *serverConn](),
		events:    make(chan loopEvent),
		done:      make(chan struct{}),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) RegisterObserver(observer transport.IConnectionObserver) {
	t.observer = observer
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	if t.listener != nil {
		return fmt.Errorf("%s transport is already listening on %s", t.connector.GetName(), t.listener.Addr())
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	t.config = config

	bufferSize := config.ReadBufferSize
	t.bufferPool = &sync.Pool{
		New: func() interface{} {
			buf := make([]byte, bufferSize)
			return &buf
		},
	}

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	t.listener = listener

	Logger.Infof("Bound %s endpoint %s (requested backlog %d, the listen queue is sized by the OS)",
		t.connector.GetName(), listener.Addr(), config.Backlog)
	return nil
}

func (t *serverTransport) Serve() error {
	if t.listener == nil {
		return fmt.Errorf("%s transport is not listening", t.connector.GetName())
	}
	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}

	go t.acceptConnections()

	Logger.Infof("Starting %s event loop on %s", t.connector.GetName(), t.listener.Addr())

	for {
		select {
		case <-t.done:
			Logger.Infof("Stopped %s event loop on %s", t.connector.GetName(), t.listener.Addr())
			return nil
		case ev := <-t.events:
			t.handleEvent(ev)
		}
	}
}

func (t *serverTransport) Addr() net.Addr {
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

func (t *serverTransport) ActiveConnections() int {
	return t.conns.Size()
}

func (t *serverTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		if t.listener != nil {
			err = t.listener.Close()
		}
		// closing the streams unblocks all reader goroutines
		t.conns.Range(func(_ uint64, c *serverConn) bool {
			c.conn.Close()
			return true
		})
	})
	return err
}

// --------------------------------------------------------------------------
// Readiness goroutines
// --------------------------------------------------------------------------

// emit hands an event to the loop. Returns false once the transport is closed.
func (t *serverTransport) emit(ev loopEvent) bool {
	select {
	case t.events <- ev:
		return true
	case <-t.done:
		return false
	}
}

// acceptConnections reports every accepted connection to the loop
func (t *serverTransport) acceptConnections() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			Logger.Errorf("Accept error: %v", err)
			select {
			case <-t.done:
				return
			case <-time.After(acceptRetryDelay):
			}
			continue
		}

		if !t.emit(loopEvent{kind: evAccepted, netConn: conn}) {
			conn.Close()
			return
		}
	}
}

// readConnection blocks in Read and reports at most ReadBufferSize bytes per event.
// It stops after the first read error, which the loop turns into closing the connection.
func (t *serverTransport) readConnection(c *serverConn) {
	for {
		buf := t.bufferPool.Get().(*[]byte)
		n, err := c.conn.Read(*buf)
		if n > 0 {
			if !t.emit(loopEvent{kind: evData, conn: c, buf: buf, n: n}) {
				return
			}
		} else {
			t.bufferPool.Put(buf)
		}

		if err != nil {
			t.emit(loopEvent{kind: evReadFailed, conn: c, err: err})
			return
		}
	}
}

// --------------------------------------------------------------------------
// Event Loop (only called from the Serve goroutine)
// --------------------------------------------------------------------------

func (t *serverTransport) handleEvent(ev loopEvent) {
	switch ev.kind {
	case evAccepted:
		t.openConnection(ev.netConn)

	case evData:
		c := ev.conn
		if !c.closed() {
			c.buf.Write((*ev.buf)[:ev.n])
			t.processFrames(c)
		}
		t.bufferPool.Put(ev.buf)

	case evReadFailed:
		c := ev.conn
		switch {
		case errors.Is(ev.err, io.EOF) && c.buf.Len() > 0:
			t.closeConnection(c, common.NewProtocolError("peer closed the connection inside a frame (%d bytes pending)", c.buf.Len()))
		case errors.Is(ev.err, io.EOF):
			t.closeConnection(c, nil)
		default:
			t.closeConnection(c, common.NewConnectionError(remoteAddr(c.conn), ev.err))
		}
	}
}

func (t *serverTransport) openConnection(conn net.Conn) {
	select {
	case <-t.done:
		conn.Close()
		return
	default:
	}

	id := t.nextConnID.Add(1)
	if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
		Logger.Warningf("Failed to upgrade connection from %s: %v", remoteAddr(conn), err)
		conn.Close()
		return
	}

	c := newServerConn(id, conn)
	t.conns.Store(id, c)
	Logger.Debugf("Accepted connection %d from %s", id, remoteAddr(conn))

	if t.observer != nil {
		t.observer.ConnectionOpened(id)
	}

	go t.readConnection(c)
}

// processFrames handles every complete frame in the connection buffer in arrival order.
// A panic while handling closes this connection only.
func (t *serverTransport) processFrames(c *serverConn) {
	defer func() {
		if r := recover(); r != nil {
			t.closeConnection(c, fmt.Errorf("panic while handling request: %v", r))
		}
	}()

	for !c.closed() {
		payload, n, err := decodeFrame(c.buf.Bytes(), t.config.MaxFrameSize)
		if errors.Is(err, common.ErrIncompleteFrame) {
			return
		}
		if err != nil {
			t.closeConnection(c, err)
			return
		}

		if err := c.transition(eventReceive); err != nil {
			t.closeConnection(c, err)
			return
		}

		start := time.Now()
		resp, err := t.handler(payload)
		c.buf.Next(n) // payload aliases the buffer, consume only after the handler returned
		if err != nil {
			t.closeConnection(c, err)
			return
		}
		Logger.Debugf("Processed request on connection %d took %s", c.id, time.Since(start))

		if len(resp) > t.config.MaxFrameSize {
			t.closeConnection(c, common.NewProtocolError("response of %d bytes exceeds maximum of %d bytes", len(resp), t.config.MaxFrameSize))
			return
		}

		timeout := time.Duration(t.config.WriteTimeoutSecond) * time.Second
		if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			t.closeConnection(c, common.NewConnectionError(remoteAddr(c.conn), err))
			return
		}

		if err := writeFrame(c.conn, resp); err != nil {
			t.closeConnection(c, common.NewConnectionError(remoteAddr(c.conn), err))
			return
		}

		if err := c.transition(eventRespond); err != nil {
			t.closeConnection(c, err)
			return
		}
	}
}

// closeConnection closes the stream and removes the connection from the active set.
// err == nil means the peer closed the connection cleanly.
func (t *serverTransport) closeConnection(c *serverConn, err error) {
	if !c.close() {
		return
	}
	t.conns.Delete(c.id)

	switch {
	case err == nil:
		Logger.Debugf("Connection %d closed by peer", c.id)
	case common.IsProtocolError(err):
		Logger.Warningf("Closing connection %d: %v", c.id, err)
	default:
		Logger.Infof("Closing connection %d: %v", c.id, err)
	}

	if t.observer != nil {
		t.observer.ConnectionClosed(c.id, err)
	}
}

// remoteAddr is a printable peer address (unix sockets have none)
func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil && addr.String() != "" {
		return addr.String()
	}
	return "local"
}
