package client

import (
	"fmt"
	"io"

	"github.com/ValentinKolb/shKV/lib/store"
	"github.com/ValentinKolb/shKV/rpc/common"
	"github.com/ValentinKolb/shKV/rpc/serializer"
	"github.com/ValentinKolb/shKV/rpc/transport"
)

// IRPCStore is a store.IStore that lives on a server. Close releases the connection.
type IRPCStore interface {
	store.IStore
	io.Closer
}

// NewRPCStore creates a new RPC store
// The function takes a config, a transport and a serializer as parameters.
// It connects the transport and returns an error if no server is reachable.
func NewRPCStore(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (IRPCStore, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC store
	s := rpcStore{
		rpcClientAdapter{
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	// Return the RPC store
	return &s, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Get(key string) (value []byte, found bool, err error) {
	resp, err := i.invokeRPCRequest(common.NewGetRequest(key))
	if err != nil {
		return nil, false, err
	}
	return resp.Value, resp.Found, nil
}

func (i *rpcStore) Set(key string, value []byte) (prev []byte, found bool, err error) {
	resp, err := i.invokeRPCRequest(common.NewSetRequest(key, value))
	if err != nil {
		return nil, false, err
	}
	return resp.Value, resp.Found, nil
}

func (i *rpcStore) Delete(key string) (prev []byte, found bool, err error) {
	resp, err := i.invokeRPCRequest(common.NewDeleteRequest(key))
	if err != nil {
		return nil, false, err
	}
	return resp.Value, resp.Found, nil
}

func (i *rpcStore) QueueGet(key string) (value []byte, found bool, err error) {
	resp, err := i.invokeRPCRequest(common.NewQueueGetRequest(key))
	if err != nil {
		return nil, false, err
	}
	return resp.Value, resp.Found, nil
}

func (i *rpcStore) QueuePut(key string, value []byte) (err error) {
	_, err = i.invokeRPCRequest(common.NewQueuePutRequest(key, value))
	return err
}

func (i *rpcStore) QueueSize(key string) (size uint64, err error) {
	resp, err := i.invokeRPCRequest(common.NewQueueSizeRequest(key))
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (i *rpcStore) Info() (info store.Info, err error) {
	return store.Info{}, fmt.Errorf("info is not supported by the rpc store")
}

func (i *rpcStore) Close() error {
	return i.close()
}
