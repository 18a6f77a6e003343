package base

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/shKV/rpc/common"
	"github.com/ValentinKolb/shKV/rpc/transport"
)

// --------------------------------------------------------------------------
// Test helpers
// --------------------------------------------------------------------------

// loopbackConnector is a minimal tcp connector on 127.0.0.1
type loopbackConnector struct{}

func (c *loopbackConnector) GetName() string { return "loopback" }

func (c *loopbackConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	return net.Listen("tcp", config.Endpoint)
}

func (c *loopbackConnector) Connect(endpoint string) (net.Conn, error) {
	return net.Dial("tcp", endpoint)
}

func (c *loopbackConnector) UpgradeConnection(net.Conn, common.ServerConfig) error { return nil }

type loopbackClientConnector struct{ loopbackConnector }

func (c *loopbackClientConnector) UpgradeConnection(net.Conn, common.ClientConfig) error { return nil }

// closeEvent is what the recordingObserver saw for one connection
type closeEvent struct {
	id  uint64
	err error
}

// recordingObserver forwards connection events to channels
type recordingObserver struct {
	opened chan uint64
	closed chan closeEvent
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{opened: make(chan uint64, 64), closed: make(chan closeEvent, 64)}
}

func (o *recordingObserver) ConnectionOpened(id uint64) { o.opened <- id }

func (o *recordingObserver) ConnectionClosed(id uint64, err error) {
	o.closed <- closeEvent{id: id, err: err}
}

func (o *recordingObserver) waitClosed(t *testing.T) closeEvent {
	t.Helper()
	select {
	case ev := <-o.closed:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatalf("Timed out waiting for a connection to close")
		return closeEvent{}
	}
}

// echoHandler answers with the request payload
func echoHandler(req []byte) ([]byte, error) {
	return append([]byte(nil), req...), nil
}

// startServer runs a transport with the given handler on a free loopback port
func startServer(t *testing.T, handler transport.ServerHandleFunc, observer transport.IConnectionObserver, maxFrameSize int) transport.IRPCServerTransport {
	t.Helper()

	config := common.DefaultServerConfig()
	config.Endpoint = "127.0.0.1:0"
	config.MaxFrameSize = maxFrameSize
	config.ReadBufferSize = 7 // tiny reads so frames span several events

	srv := NewBaseServerTransport(&loopbackConnector{})
	srv.RegisterHandler(handler)
	if observer != nil {
		srv.RegisterObserver(observer)
	}
	if err := srv.Listen(config); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	served := make(chan error, 1)
	go func() { served <- srv.Serve() }()

	t.Cleanup(func() {
		srv.Close()
		if err := <-served; err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	})
	return srv
}

// dial opens a raw connection to the server
func dial(t *testing.T, srv transport.IRPCServerTransport) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// newClient connects a client transport to the server
func newClient(t *testing.T, srv transport.IRPCServerTransport, maxFrameSize int) transport.IRPCClientTransport {
	t.Helper()
	client := NewBaseClientTransport(&loopbackClientConnector{})
	config := common.DefaultClientConfig()
	config.Endpoint = srv.Addr().String()
	config.MaxFrameSize = maxFrameSize
	config.TimeoutSecond = 5
	if err := client.Connect(config); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// expectClosed reads until the server closes the connection
func expectClosed(t *testing.T, conn net.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := io.ReadAll(conn); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			t.Fatalf("Expected server to close the connection, still open")
		}
	}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestRoundTrip(t *testing.T) {
	srv := startServer(t, echoHandler, nil, 1024)
	client := newClient(t, srv, 1024)

	for _, msg := range [][]byte{[]byte("hello"), {}, bytes.Repeat([]byte("z"), 1024)} {
		resp, err := client.Send(msg)
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		if !bytes.Equal(resp, msg) {
			t.Errorf("Expected echo of %d bytes, got %d bytes", len(msg), len(resp))
		}
	}
}

func TestFrameSplitAcrossWrites(t *testing.T) {
	srv := startServer(t, echoHandler, nil, 1024)
	conn := dial(t, srv)

	// one byte per write, the server has to assemble the frame
	for _, b := range frame([]byte("split-frame")) {
		if _, err := conn.Write([]byte{b}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		time.Sleep(time.Millisecond)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	resp, err := readFrame(conn, 1024)
	if err != nil {
		t.Fatalf("readFrame failed: %v", err)
	}
	if string(resp) != "split-frame" {
		t.Errorf("Expected split-frame, got %q", resp)
	}
}

func TestMultipleFramesInOneWrite(t *testing.T) {
	srv := startServer(t, echoHandler, nil, 1024)
	conn := dial(t, srv)

	var batch []byte
	for i := 0; i < 10; i++ {
		batch = append(batch, frame([]byte(fmt.Sprintf("msg-%d", i)))...)
	}
	if _, err := conn.Write(batch); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := 0; i < 10; i++ {
		resp, err := readFrame(conn, 1024)
		if err != nil {
			t.Fatalf("readFrame %d failed: %v", i, err)
		}
		if want := fmt.Sprintf("msg-%d", i); string(resp) != want {
			t.Errorf("Expected %s, got %s", want, resp)
		}
	}
}

func TestOversizedFrameClosesConnection(t *testing.T) {
	observer := newRecordingObserver()
	srv := startServer(t, echoHandler, observer, 16)

	other := newClient(t, srv, 16)
	bad := dial(t, srv)

	// header declares 17 bytes, no payload is needed to reject it
	if _, err := bad.Write([]byte{0, 0, 0, 17}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	expectClosed(t, bad)

	if ev := observer.waitClosed(t); !common.IsProtocolError(ev.err) {
		t.Errorf("Expected protocol error, got %v", ev.err)
	}

	if resp, err := other.Send([]byte("still ok")); err != nil || string(resp) != "still ok" {
		t.Errorf("Expected other connection to keep working, got %q, %v", resp, err)
	}
}

func TestTruncatedFrameThenDisconnect(t *testing.T) {
	observer := newRecordingObserver()
	srv := startServer(t, echoHandler, observer, 1024)

	other := newClient(t, srv, 1024)
	bad := dial(t, srv)

	// header promises 100 bytes, only 3 arrive before the peer hangs up
	bad.Write([]byte{0, 0, 0, 100, 'a', 'b', 'c'})
	time.Sleep(20 * time.Millisecond)
	bad.Close()

	if ev := observer.waitClosed(t); !common.IsProtocolError(ev.err) {
		t.Errorf("Expected protocol error for truncated frame, got %v", ev.err)
	}

	if resp, err := other.Send([]byte("after")); err != nil || string(resp) != "after" {
		t.Errorf("Expected other connection to keep working, got %q, %v", resp, err)
	}
}

func TestHandlerErrorClosesWithoutResponse(t *testing.T) {
	observer := newRecordingObserver()
	srv := startServer(t, func(req []byte) ([]byte, error) {
		if string(req) == "bad" {
			return nil, common.NewProtocolError("bad request")
		}
		return req, nil
	}, observer, 1024)

	conn := dial(t, srv)
	conn.Write(frame([]byte("bad")))
	expectClosed(t, conn)

	if ev := observer.waitClosed(t); !common.IsProtocolError(ev.err) {
		t.Errorf("Expected protocol error, got %v", ev.err)
	}
}

func TestHandlerPanicIsIsolated(t *testing.T) {
	observer := newRecordingObserver()
	srv := startServer(t, func(req []byte) ([]byte, error) {
		if string(req) == "panic" {
			panic("boom")
		}
		return req, nil
	}, observer, 1024)

	other := newClient(t, srv, 1024)
	conn := dial(t, srv)
	conn.Write(frame([]byte("panic")))
	expectClosed(t, conn)

	if ev := observer.waitClosed(t); ev.err == nil {
		t.Errorf("Expected an error for the panicking connection")
	}

	if resp, err := other.Send([]byte("alive")); err != nil || string(resp) != "alive" {
		t.Errorf("Expected server to survive the panic, got %q, %v", resp, err)
	}
}

func TestCleanDisconnect(t *testing.T) {
	observer := newRecordingObserver()
	srv := startServer(t, echoHandler, observer, 1024)

	conn := dial(t, srv)
	conn.Write(frame([]byte("x")))
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := readFrame(conn, 1024); err != nil {
		t.Fatalf("readFrame failed: %v", err)
	}
	if n := srv.ActiveConnections(); n != 1 {
		t.Errorf("Expected 1 active connection, got %d", n)
	}
	conn.Close()

	if ev := observer.waitClosed(t); ev.err != nil {
		t.Errorf("Expected clean close, got %v", ev.err)
	}
	if n := srv.ActiveConnections(); n != 0 {
		t.Errorf("Expected 0 active connections, got %d", n)
	}
}

// TestHandlerCallsAreSerialized lets many clients hammer a handler that is not
// safe for concurrent use. With the race detector this fails if two calls overlap.
func TestHandlerCallsAreSerialized(t *testing.T) {
	counter := 0
	inFlight := 0
	overlap := false

	srv := startServer(t, func(req []byte) ([]byte, error) {
		// the state is read back through the handler so that all access stays on the loop
		if string(req) == "stats" {
			return []byte(fmt.Sprintf("%d/%v", counter, overlap)), nil
		}
		inFlight++
		if inFlight > 1 {
			overlap = true
		}
		counter++
		time.Sleep(10 * time.Microsecond)
		inFlight--
		return req, nil
	}, nil, 1024)

	const clients, requests = 8, 50
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		client := newClient(t, srv, 1024)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < requests; j++ {
				if _, err := client.Send([]byte("inc")); err != nil {
					t.Errorf("Send failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	resp, err := newClient(t, srv, 1024).Send([]byte("stats"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if want := fmt.Sprintf("%d/false", clients*requests); string(resp) != want {
		t.Errorf("Expected %s, got %s", want, resp)
	}
}

func TestClientRefusesOversizedRequest(t *testing.T) {
	srv := startServer(t, echoHandler, nil, 16)
	client := newClient(t, srv, 16)

	if _, err := client.Send(bytes.Repeat([]byte("x"), 17)); !common.IsProtocolError(err) {
		t.Errorf("Expected protocol error, got %v", err)
	}

	// nothing was written, the connection is still usable
	if resp, err := client.Send([]byte("ok")); err != nil || string(resp) != "ok" {
		t.Errorf("Expected connection to stay usable, got %q, %v", resp, err)
	}
}

func TestClientRejectsOversizedResponse(t *testing.T) {
	srv := startServer(t, func(req []byte) ([]byte, error) {
		return bytes.Repeat([]byte("y"), 64), nil
	}, nil, 1024)
	client := newClient(t, srv, 16)

	if _, err := client.Send([]byte("q")); !common.IsProtocolError(err) {
		t.Errorf("Expected protocol error, got %v", err)
	}
	// the connection was dropped, the error sticks
	if _, err := client.Send([]byte("q")); !common.IsProtocolError(err) {
		t.Errorf("Expected the same error on the next call, got %v", err)
	}
}

func TestClientAfterClose(t *testing.T) {
	srv := startServer(t, echoHandler, nil, 1024)
	client := newClient(t, srv, 1024)

	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := client.Send([]byte("x")); !errors.Is(err, common.ErrClientClosed) {
		t.Errorf("Expected ErrClientClosed, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Expected second Close to succeed, got %v", err)
	}
}

func TestClientServerGone(t *testing.T) {
	srv := startServer(t, echoHandler, nil, 1024)
	client := newClient(t, srv, 1024)

	if _, err := client.Send([]byte("x")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	srv.Close()

	_, err := client.Send([]byte("x"))
	if !common.IsConnectionError(err) {
		t.Errorf("Expected connection error, got %v", err)
	}
}

func TestClientConnectRefused(t *testing.T) {
	// grab a free port and release it again
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	client := NewBaseClientTransport(&loopbackClientConnector{})
	config := common.DefaultClientConfig()
	config.Endpoint = addr
	if err := client.Connect(config); !common.IsConnectionError(err) {
		t.Errorf("Expected connection error, got %v", err)
	}
}
