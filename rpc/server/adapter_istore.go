package server

import (
	"fmt"

	"github.com/ValentinKolb/shKV/lib/store"
	"github.com/ValentinKolb/shKV/rpc/common"
)

func NewIStoreServerAdapter() IRPCServerAdapter {
	return &iStoreServerAdapterImpl{}
}

type iStoreServerAdapterImpl struct{}

func (adapter *iStoreServerAdapterImpl) Handle(req *common.Request, store store.IStore) (*common.Response, error) {
	// Check for nil store
	if store == nil {
		return nil, fmt.Errorf("handler: store is nil")
	}

	// The serializer validated already, but the adapter may be used on its own
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Handle different operations
	switch req.Op {
	case common.OpGet:
		val, found, err := store.Get(req.Key)
		if err != nil {
			return nil, err
		}
		return common.NewValueResponse(req.Op, val, found), nil
	case common.OpSet:
		prev, found, err := store.Set(req.Key, req.Value)
		if err != nil {
			return nil, err
		}
		return common.NewValueResponse(req.Op, prev, found), nil
	case common.OpDelete:
		prev, found, err := store.Delete(req.Key)
		if err != nil {
			return nil, err
		}
		return common.NewValueResponse(req.Op, prev, found), nil
	case common.OpQueueGet:
		val, found, err := store.QueueGet(req.Key)
		if err != nil {
			return nil, err
		}
		return common.NewValueResponse(req.Op, val, found), nil
	case common.OpQueuePut:
		if err := store.QueuePut(req.Key, req.Value); err != nil {
			return nil, err
		}
		return common.NewQueuePutResponse(), nil
	case common.OpQueueSize:
		size, err := store.QueueSize(req.Key)
		if err != nil {
			return nil, err
		}
		return common.NewQueueSizeResponse(size), nil
	default:
		return nil, common.NewProtocolError("unsupported operation: %s", req.Op)
	}
}
