package client

import (
	"sync"

	"github.com/ValentinKolb/shKV/rpc/common"
	"github.com/ValentinKolb/shKV/rpc/serializer"
	"github.com/ValentinKolb/shKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
type rpcClientAdapter struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer

	mu      sync.Mutex
	failure error // set once the stream can no longer be trusted
}

// invokeRPCRequest sends a request and returns the decoded response.
// A response that cannot be decoded or that answers a different operation means the
// stream is out of sync: the connection is closed and the error is returned for this
// and every later call.
func (a *rpcClientAdapter) invokeRPCRequest(req *common.Request) (*common.Response, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.failure != nil {
		return nil, a.failure
	}

	// Serialize the request, invalid requests never reach the wire
	reqBytes, err := a.serializer.SerializeRequest(*req)
	if err != nil {
		return nil, err
	}

	// Blocking round trip
	respBytes, err := a.transport.Send(reqBytes)
	if err != nil {
		return nil, err
	}

	// Deserialize the response
	resp := &common.Response{}
	if err := a.serializer.DeserializeResponse(respBytes, resp); err != nil {
		return nil, a.fail(err)
	}

	// Check if the response belongs to the request
	if resp.Op != req.Op {
		return nil, a.fail(common.NewProtocolError("unexpected response operation %s, expected %s", resp.Op, req.Op))
	}

	return resp, nil
}

// fail closes the transport and remembers err. Must be called with a.mu held.
func (a *rpcClientAdapter) fail(err error) error {
	a.failure = err
	if cerr := a.transport.Close(); cerr != nil {
		Logger.Debugf("Closing transport to %s: %v", a.config.Endpoint, cerr)
	}
	Logger.Warningf("Dropped connection to %s: %v", a.config.Endpoint, err)
	return err
}

// close closes the transport. Later calls return common.ErrClientClosed.
func (a *rpcClientAdapter) close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.failure = common.ErrClientClosed
	return a.transport.Close()
}
