package bootstrap

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ValentinKolb/shKV/rpc/client"
	"github.com/ValentinKolb/shKV/rpc/common"
	"github.com/ValentinKolb/shKV/rpc/serializer"
	"github.com/ValentinKolb/shKV/rpc/server"
	"github.com/ValentinKolb/shKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("bootstrap")

const (
	initialBackoff = 20 * time.Millisecond
	maxBackoff     = 500 * time.Millisecond
)

// Options describe how to reach the shared store and how to host it if nobody does
type Options struct {
	// Server is used when this process ends up hosting the store
	Server common.ServerConfig
	// Client is used to connect, its endpoint must match the server endpoint
	Client common.ClientConfig

	Serializer      serializer.IRPCSerializer
	ServerTransport func() transport.IRPCServerTransport
	ClientTransport func() transport.IRPCClientTransport

	// Spawn, if set, replaces hosting the server in this process. It is called at most
	// once, e.g. to start a detached server process, and Attach keeps connecting until
	// that server answers.
	Spawn func() error
}

// Attachment is a connected client, plus the server if this process won the endpoint
type Attachment struct {
	Store client.IRPCStore
	// Server is nil if another process hosts the store
	Server *server.RPCServer
}

// Close closes the client and, if hosted here, the server. Other clients of a
// hosted server lose their connection and the stored data is gone.
func (a *Attachment) Close() error {
	err := a.Store.Close()
	if a.Server != nil {
		if serr := a.Server.Close(); err == nil {
			err = serr
		}
	}
	return err
}

// Attach connects to the shared store, starting it when no server is reachable.
//
// Every round first tries to connect. If that fails the process tries to bind the
// endpoint itself. Losing that race means another process just became the server,
// so the next round connects to it. Rounds are separated by a jittered exponential
// backoff and end when ctx is done.
func Attach(ctx context.Context, opts Options) (*Attachment, error) {
	if opts.Serializer == nil || opts.ClientTransport == nil {
		return nil, fmt.Errorf("serializer and client transport are required")
	}
	if opts.Spawn == nil && opts.ServerTransport == nil {
		return nil, fmt.Errorf("either a server transport or a spawn function is required")
	}

	backoff := initialBackoff
	spawned := false
	var lastErr error

	for attempt := 1; ; attempt++ {
		// 1. somebody else may already serve the endpoint
		store, err := client.NewRPCStore(opts.Client, opts.ClientTransport(), opts.Serializer)
		if err == nil {
			Logger.Debugf("Attached to %s after %d attempt(s)", opts.Client.Endpoint, attempt)
			return &Attachment{Store: store}, nil
		}
		if !common.IsConnectionError(err) {
			return nil, err
		}
		lastErr = err

		// 2. try to become the server
		if opts.Spawn != nil {
			if !spawned {
				spawned = true
				if err := opts.Spawn(); err != nil {
					return nil, fmt.Errorf("failed to start server: %w", err)
				}
				Logger.Infof("Started server for %s", opts.Client.Endpoint)
			}
		} else {
			attachment, err := host(opts)
			if err == nil {
				return attachment, nil
			}
			// 3. bind failed, most likely another process won the endpoint
			Logger.Debugf("Could not host %s: %v", opts.Server.Endpoint, err)
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("attach to %s gave up after %d attempt(s): %w", opts.Client.Endpoint, attempt, lastErr)
		case <-time.After(jitter(backoff)):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// host binds the endpoint, serves it in the background and connects to it
func host(opts Options) (*Attachment, error) {
	srv := server.NewRPCServer(opts.Server, opts.ServerTransport(), opts.Serializer)
	if err := srv.Listen(); err != nil {
		return nil, err
	}

	go func() {
		if err := srv.Serve(); err != nil {
			Logger.Errorf("Server on %s stopped: %v", opts.Server.Endpoint, err)
		}
	}()

	clientConfig := opts.Client
	clientConfig.Endpoint = srv.Addr().String()
	store, err := client.NewRPCStore(clientConfig, opts.ClientTransport(), opts.Serializer)
	if err != nil {
		srv.Close()
		return nil, fmt.Errorf("failed to connect to own server: %w", err)
	}

	Logger.Infof("Hosting shared store on %s", srv.Addr())
	return &Attachment{Store: store, Server: srv}, nil
}

// jitter spreads d by +-20% so that racing processes do not retry in lockstep
func jitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.8 + 0.4*rand.Float64()))
}
