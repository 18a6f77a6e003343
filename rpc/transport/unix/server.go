package unix

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ValentinKolb/shKV/rpc/common"
	"github.com/ValentinKolb/shKV/rpc/transport"
	"github.com/ValentinKolb/shKV/rpc/transport/base"
)

const (
	// staleProbeTimeout bounds the dial used to tell a live socket from a stale file
	staleProbeTimeout = 500 * time.Millisecond
	// staleProbeRetry separates the two probes. A server that has bound the path but
	// not yet called listen refuses connections for a moment.
	staleProbeRetry = 50 * time.Millisecond
)

// serverConnector implements the IServerConnector interface for Unix sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "unix"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	socketPath := config.Endpoint

	// probe, stale removal and bind happen under one lock, otherwise a second server
	// could unlink the socket the first one just bound
	unlock, err := lockEndpoint(socketPath)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// A socket file left behind by a crashed server is removed. A socket that still
	// accepts connections belongs to a running server and must not be touched.
	if _, err := os.Stat(socketPath); err == nil {
		if socketInUse(socketPath) {
			return nil, fmt.Errorf("socket %s is in use by another server", socketPath)
		}
		if err := os.Remove(socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create Unix socket: %w", err)
	}
	return listener, nil
}

func (c *serverConnector) UpgradeConnection(net.Conn, common.ServerConfig) error {
	return nil
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewUnixServerTransport creates a new Unix server transport
func NewUnixServerTransport() transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{})
}

// socketInUse reports whether a server answers on the socket path
func socketInUse(socketPath string) bool {
	for i := 0; i < 2; i++ {
		if i > 0 {
			time.Sleep(staleProbeRetry)
		}
		if probe, err := net.DialTimeout("unix", socketPath, staleProbeTimeout); err == nil {
			probe.Close()
			return true
		}
	}
	return false
}

// lockEndpoint takes an exclusive lock on a file next to the socket and returns the
// release function. The lock file is never removed, racing servers must lock the same inode.
func lockEndpoint(socketPath string) (func(), error) {
	f, err := os.OpenFile(socketPath+".lock", os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open socket lock: %w", err)
	}
	if err := flock(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to lock socket %s: %w", socketPath, err)
	}
	return func() {
		unflock(f)
		f.Close()
	}, nil
}
