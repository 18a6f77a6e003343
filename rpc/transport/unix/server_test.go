package unix

import (
	"net"
	"os"
	"sync"
	"testing"

	"github.com/ValentinKolb/shKV/rpc/common"
)

// leaveStaleSocket creates a socket file at path that nobody listens on
func leaveStaleSocket(t *testing.T, path string) {
	t.Helper()
	l, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Failed to create socket: %v", err)
	}
	l.(*net.UnixListener).SetUnlinkOnClose(false)
	l.Close()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected stale socket file, got %v", err)
	}
}

// TestListenRemovesStaleSocket tests that a socket file of a dead server does not block a new one
func TestListenRemovesStaleSocket(t *testing.T) {
	config := common.DefaultServerConfig()
	config.Endpoint = t.TempDir() + "/shkv.sock"
	leaveStaleSocket(t, config.Endpoint)

	l, err := (&serverConnector{}).Listen(config)
	if err != nil {
		t.Fatalf("Expected to bind over stale socket, got %v", err)
	}
	defer l.Close()

	conn, err := net.Dial("unix", config.Endpoint)
	if err != nil {
		t.Fatalf("Failed to connect to new server: %v", err)
	}
	conn.Close()
}

// TestListenKeepsLiveSocket tests that a running server's socket is never taken over
func TestListenKeepsLiveSocket(t *testing.T) {
	config := common.DefaultServerConfig()
	config.Endpoint = t.TempDir() + "/shkv.sock"

	first, err := (&serverConnector{}).Listen(config)
	if err != nil {
		t.Fatalf("Failed to bind: %v", err)
	}
	defer first.Close()

	if second, err := (&serverConnector{}).Listen(config); err == nil {
		second.Close()
		t.Fatalf("Expected second Listen on a live socket to fail")
	}
}

// TestConcurrentListenOnStaleSocket tests that exactly one of several racing servers binds
func TestConcurrentListenOnStaleSocket(t *testing.T) {
	const (
		rounds = 10
		racers = 4
	)
	config := common.DefaultServerConfig()
	config.Endpoint = t.TempDir() + "/shkv.sock"

	for round := 0; round < rounds; round++ {
		leaveStaleSocket(t, config.Endpoint)

		var wg sync.WaitGroup
		listeners := make(chan net.Listener, racers)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if l, err := (&serverConnector{}).Listen(config); err == nil {
					listeners <- l
				}
			}()
		}
		wg.Wait()
		close(listeners)

		bound := 0
		for l := range listeners {
			bound++
			// keep the file so the next round starts from a stale socket again
			l.(*net.UnixListener).SetUnlinkOnClose(false)
			l.Close()
		}
		if bound != 1 {
			t.Fatalf("Round %d: expected exactly one bound server, got %d", round, bound)
		}
	}
}
