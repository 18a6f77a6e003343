package server

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/ValentinKolb/shKV/lib/store"
	"github.com/ValentinKolb/shKV/lib/store/lstore"
	"github.com/ValentinKolb/shKV/rpc/common"
	"github.com/ValentinKolb/shKV/rpc/serializer"
	"github.com/ValentinKolb/shKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc")

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		adapter:    NewIStoreServerAdapter(),
	}
}

// RPCServer hosts one store and serves it over a transport.
// The store is only ever touched from the transport's event loop goroutine.
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	adapter    IRPCServerAdapter
	store      store.IStore
	metrics    *serverMetrics

	mu          sync.Mutex
	listening   bool
	metricsAddr net.Addr
	stop        context.CancelFunc
}

// handle is the transport handler: decode, execute, encode
func (s *RPCServer) handle(reqBytes []byte) ([]byte, error) {
	start := time.Now()

	var req common.Request
	if err := s.serializer.DeserializeRequest(reqBytes, &req); err != nil {
		return nil, fmt.Errorf("failed to deserialize request: %w", err)
	}

	resp, err := s.adapter.Handle(&req, s.store)
	if err != nil {
		return nil, err
	}

	respBytes, err := s.serializer.SerializeResponse(*resp)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize response: %w", err)
	}

	s.metrics.requestHandled(req.Op, start)
	if req.Op != common.OpGet && req.Op != common.OpQueueSize {
		s.metrics.storeChanged(s.store)
	}
	return respBytes, nil
}

// Listen initializes logging, the store and the metrics and binds the endpoint.
// An error means the endpoint could not be bound, e.g. because another server owns it.
func (s *RPCServer) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listening {
		return nil
	}

	// Init logger
	if err := common.InitLoggers(s.config.LogLevel); err != nil {
		return err
	}

	s.store = lstore.NewLocalStore()
	s.metrics = newServerMetrics(s.transport.ActiveConnections)

	s.transport.RegisterHandler(s.handle)
	s.transport.RegisterObserver(s.metrics)

	if err := s.transport.Listen(s.config); err != nil {
		return err
	}
	s.listening = true

	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel

	if s.config.MetricsEndpoint != "" {
		addr, err := s.metrics.serve(ctx, s.config.MetricsEndpoint)
		if err != nil {
			// the store is served even without metrics
			Logger.Errorf("%v", err)
		}
		s.metricsAddr = addr
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof("%s", s.config.String())
	return nil
}

// Serve starts the RPC server.
// It binds the endpoint if Listen was not called before and then runs the event loop
// until Close is called.
func (s *RPCServer) Serve() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.transport.Serve()
}

// Addr returns the bound address of the store endpoint, nil before Listen
func (s *RPCServer) Addr() net.Addr {
	return s.transport.Addr()
}

// MetricsAddr returns the bound address of the metrics endpoint, nil if disabled
func (s *RPCServer) MetricsAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metricsAddr
}

// Close stops the event loop and the metrics endpoint. All stored data is lost.
func (s *RPCServer) Close() error {
	s.mu.Lock()
	if s.stop != nil {
		s.stop()
	}
	s.mu.Unlock()
	return s.transport.Close()
}
