package server

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/shKV/rpc/client"
	"github.com/ValentinKolb/shKV/rpc/common"
	"github.com/ValentinKolb/shKV/rpc/serializer"
	"github.com/ValentinKolb/shKV/rpc/transport/tcp"
)

// --------------------------------------------------------------------------
// Test helpers
// --------------------------------------------------------------------------

var testSerializers = []string{"binary", "json"}

// startTestServer runs a server on a free loopback port
func startTestServer(t *testing.T, serializerName string, mutate func(*common.ServerConfig)) *RPCServer {
	t.Helper()

	config := common.DefaultServerConfig()
	config.Endpoint = "127.0.0.1:0"
	config.Serializer = serializerName
	config.LogLevel = "error"
	if mutate != nil {
		mutate(&config)
	}

	ser, err := serializer.ByName(serializerName)
	if err != nil {
		t.Fatalf("ByName failed: %v", err)
	}

	s := NewRPCServer(config, tcp.NewTCPServerTransport(), ser)
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	served := make(chan error, 1)
	go func() { served <- s.Serve() }()

	t.Cleanup(func() {
		s.Close()
		if err := <-served; err != nil {
			t.Errorf("Serve returned error: %v", err)
		}
	})
	return s
}

// connect creates a client for the server
func connect(t *testing.T, s *RPCServer, serializerName string) client.IRPCStore {
	t.Helper()

	ser, _ := serializer.ByName(serializerName)
	config := common.DefaultClientConfig()
	config.Endpoint = s.Addr().String()
	config.TimeoutSecond = 5

	c, err := client.NewRPCStore(config, tcp.NewTCPClientTransport(), ser)
	if err != nil {
		t.Fatalf("NewRPCStore failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// rawFrame prefixes a payload with its length
func rawFrame(payload []byte) []byte {
	out := make([]byte, 4, 4+len(payload))
	binary.BigEndian.PutUint32(out, uint32(len(payload)))
	return append(out, payload...)
}

// expectClosed reads until the server closes the connection
func expectClosed(t *testing.T, conn net.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	data, err := io.ReadAll(conn)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		t.Fatalf("Expected server to close the connection, still open")
	}
	if len(data) != 0 {
		t.Errorf("Expected no response before close, got %d bytes", len(data))
	}
}

// --------------------------------------------------------------------------
// Scenarios
// --------------------------------------------------------------------------

// TestTwoClientScalarScenario: A sets x twice, B reads the latest value
func TestTwoClientScalarScenario(t *testing.T) {
	for _, name := range testSerializers {
		t.Run(name, func(t *testing.T) {
			s := startTestServer(t, name, nil)
			a := connect(t, s, name)
			b := connect(t, s, name)

			prev, found, err := a.Set("x", []byte("1"))
			if err != nil || found || prev != nil {
				t.Fatalf("Expected no previous value, got %q, %v, %v", prev, found, err)
			}

			prev, found, err = a.Set("x", []byte("2"))
			if err != nil || !found || string(prev) != "1" {
				t.Fatalf("Expected previous value 1, got %q, %v, %v", prev, found, err)
			}

			val, found, err := b.Get("x")
			if err != nil || !found || string(val) != "2" {
				t.Fatalf("Expected 2, got %q, %v, %v", val, found, err)
			}

			prev, found, err = b.Delete("x")
			if err != nil || !found || string(prev) != "2" {
				t.Fatalf("Expected deleted value 2, got %q, %v, %v", prev, found, err)
			}

			if _, found, _ := a.Get("x"); found {
				t.Errorf("Expected x to be gone for client A")
			}
		})
	}
}

// TestTwoClientQueueScenario: A produces, B consumes in FIFO order
func TestTwoClientQueueScenario(t *testing.T) {
	for _, name := range testSerializers {
		t.Run(name, func(t *testing.T) {
			s := startTestServer(t, name, nil)
			a := connect(t, s, name)
			b := connect(t, s, name)

			if err := a.QueuePut("q", []byte("a")); err != nil {
				t.Fatalf("QueuePut failed: %v", err)
			}
			if err := a.QueuePut("q", []byte("b")); err != nil {
				t.Fatalf("QueuePut failed: %v", err)
			}

			val, found, err := b.QueueGet("q")
			if err != nil || !found || string(val) != "a" {
				t.Fatalf("Expected a, got %q, %v, %v", val, found, err)
			}

			size, err := b.QueueSize("q")
			if err != nil || size != 1 {
				t.Fatalf("Expected size 1, got %d, %v", size, err)
			}

			val, found, err = b.QueueGet("q")
			if err != nil || !found || string(val) != "b" {
				t.Fatalf("Expected b, got %q, %v, %v", val, found, err)
			}

			val, found, err = b.QueueGet("q")
			if err != nil || found || val != nil {
				t.Fatalf("Expected no value, got %q, %v, %v", val, found, err)
			}
		})
	}
}

// TestTruncatedFrameIsolation: a peer that sends half a frame and disconnects
// does not disturb a client with a request in flight
func TestTruncatedFrameIsolation(t *testing.T) {
	s := startTestServer(t, "binary", nil)
	good := connect(t, s, "binary")

	if _, _, err := good.Set("k", []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	bad, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	req, _ := serializer.NewBinarySerializer().SerializeRequest(*common.NewSetRequest("k", []byte("evil")))
	frame := rawFrame(req)
	bad.Write(frame[:len(frame)-3])

	// requests of the healthy client keep working while the frame is pending
	for i := 0; i < 10; i++ {
		if val, _, err := good.Get("k"); err != nil || string(val) != "v" {
			t.Fatalf("Expected v, got %q, %v", val, err)
		}
	}

	bad.Close()

	deadline := time.Now().Add(5 * time.Second)
	for s.transport.ActiveConnections() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected truncated connection to be removed, %d active", s.transport.ActiveConnections())
		}
		time.Sleep(5 * time.Millisecond)
	}

	// the partial SET was never applied
	if val, _, err := good.Get("k"); err != nil || string(val) != "v" {
		t.Errorf("Expected v, got %q, %v", val, err)
	}
}

// TestMalformedPayloadClosesConnection: a well-framed but invalid payload gets no response
func TestMalformedPayloadClosesConnection(t *testing.T) {
	testCases := []struct {
		name    string
		payload []byte
	}{
		{"Garbage", []byte("definitely not a request")},
		{"Unknown op", []byte{1, 42, 0}},
		{"Set without value", []byte{1, 2, 1, 0, 0, 0, 1, 'k'}},
		{"Empty payload", []byte{}},
	}

	s := startTestServer(t, "binary", nil)
	good := connect(t, s, "binary")

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conn, err := net.Dial("tcp", s.Addr().String())
			if err != nil {
				t.Fatalf("Dial failed: %v", err)
			}
			defer conn.Close()

			conn.Write(rawFrame(tc.payload))
			expectClosed(t, conn)

			if err := good.QueuePut("alive", []byte(tc.name)); err != nil {
				t.Errorf("Expected healthy client to keep working, got %v", err)
			}
		})
	}
}

// TestOversizedRequest: the client refuses to send, the server refuses to read
func TestOversizedRequest(t *testing.T) {
	s := startTestServer(t, "binary", func(c *common.ServerConfig) { c.MaxFrameSize = 64 })

	ser := serializer.NewBinarySerializer()
	config := common.DefaultClientConfig()
	config.Endpoint = s.Addr().String()
	config.MaxFrameSize = 64
	c, err := client.NewRPCStore(config, tcp.NewTCPClientTransport(), ser)
	if err != nil {
		t.Fatalf("NewRPCStore failed: %v", err)
	}
	defer c.Close()

	if _, _, err := c.Set("k", bytes.Repeat([]byte("x"), 100)); !common.IsProtocolError(err) {
		t.Errorf("Expected protocol error from client, got %v", err)
	}
	if _, _, err := c.Set("k", []byte("small")); err != nil {
		t.Errorf("Expected small request to work, got %v", err)
	}

	// a client with a larger limit gets its connection closed by the server
	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	req, _ := ser.SerializeRequest(*common.NewSetRequest("k", bytes.Repeat([]byte("x"), 100)))
	conn.Write(rawFrame(req))
	expectClosed(t, conn)
}

// TestListenTwice: only one server can own an endpoint
func TestListenTwice(t *testing.T) {
	first := startTestServer(t, "binary", nil)

	config := common.DefaultServerConfig()
	config.Endpoint = first.Addr().String()
	config.LogLevel = "error"
	second := NewRPCServer(config, tcp.NewTCPServerTransport(), serializer.NewBinarySerializer())
	if err := second.Listen(); err == nil {
		second.Close()
		t.Fatalf("Expected second Listen on %s to fail", config.Endpoint)
	}
}

// TestMetricsEndpoint checks the exported counters and gauges
func TestMetricsEndpoint(t *testing.T) {
	s := startTestServer(t, "binary", func(c *common.ServerConfig) { c.MetricsEndpoint = "127.0.0.1:0" })
	c := connect(t, s, "binary")

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.QueuePut("q", []byte("x"))
	c.Get("a")

	addr := s.MetricsAddr()
	if addr == nil {
		t.Fatalf("Expected metrics endpoint to be bound")
	}

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)

	for _, want := range []string{
		`shkv_requests_total{op="set"} 2`,
		`shkv_requests_total{op="get"} 1`,
		`shkv_requests_total{op="queue_put"} 1`,
		`shkv_store_keys 2`,
		`shkv_store_queued_items 1`,
		`shkv_active_connections 1`,
		`shkv_connections_opened_total 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected metrics to contain %q", want)
		}
	}
}
