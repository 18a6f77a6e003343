package server

import (
	"github.com/ValentinKolb/shKV/lib/store"
	"github.com/ValentinKolb/shKV/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters.
// It is responsible for mapping a decoded request onto the store.
type IRPCServerAdapter interface {
	// Handle executes a request against the store and returns the response.
	// A returned error closes the connection of the request, a missing entry is not an error.
	Handle(req *common.Request, store store.IStore) (resp *common.Response, err error)
}
