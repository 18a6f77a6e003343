package server

import (
	"reflect"
	"testing"

	"github.com/ValentinKolb/shKV/lib/store/lstore"
	"github.com/ValentinKolb/shKV/rpc/common"
)

// TestIStoreAdapter runs a request sequence against a local store
func TestIStoreAdapter(t *testing.T) {
	adapter := NewIStoreServerAdapter()
	s := lstore.NewLocalStore()

	steps := []struct {
		req  *common.Request
		want *common.Response
	}{
		{common.NewGetRequest("k"), &common.Response{Op: common.OpGet}},
		{common.NewSetRequest("k", []byte("1")), &common.Response{Op: common.OpSet}},
		{common.NewSetRequest("k", []byte("2")), &common.Response{Op: common.OpSet, Found: true, Value: []byte("1")}},
		{common.NewGetRequest("k"), &common.Response{Op: common.OpGet, Found: true, Value: []byte("2")}},
		{common.NewDeleteRequest("k"), &common.Response{Op: common.OpDelete, Found: true, Value: []byte("2")}},
		{common.NewDeleteRequest("k"), &common.Response{Op: common.OpDelete}},
		{common.NewSetRequest("empty", []byte{}), &common.Response{Op: common.OpSet}},
		{common.NewGetRequest("empty"), &common.Response{Op: common.OpGet, Found: true, Value: []byte{}}},
		{common.NewQueueSizeRequest("q"), &common.Response{Op: common.OpQueueSize}},
		{common.NewQueuePutRequest("q", []byte("a")), &common.Response{Op: common.OpQueuePut}},
		{common.NewQueuePutRequest("q", []byte("b")), &common.Response{Op: common.OpQueuePut}},
		{common.NewQueueSizeRequest("q"), &common.Response{Op: common.OpQueueSize, Count: 2}},
		{common.NewQueueGetRequest("q"), &common.Response{Op: common.OpQueueGet, Found: true, Value: []byte("a")}},
		{common.NewQueueGetRequest("q"), &common.Response{Op: common.OpQueueGet, Found: true, Value: []byte("b")}},
		{common.NewQueueGetRequest("q"), &common.Response{Op: common.OpQueueGet}},
	}

	for i, step := range steps {
		got, err := adapter.Handle(step.req, s)
		if err != nil {
			t.Fatalf("Step %d (%s %s) failed: %v", i, step.req.Op, step.req.Key, err)
		}
		if !reflect.DeepEqual(got, step.want) {
			t.Errorf("Step %d (%s %s): expected %+v, got %+v", i, step.req.Op, step.req.Key, step.want, got)
		}
	}
}

func TestIStoreAdapterRejects(t *testing.T) {
	adapter := NewIStoreServerAdapter()

	if _, err := adapter.Handle(common.NewGetRequest("k"), nil); err == nil {
		t.Errorf("Expected error for nil store")
	}

	invalid := []*common.Request{
		{Op: common.OpUnknown, Key: "k"},
		{Op: common.OpSet, Key: "k"},
		{Op: common.OpGet, Key: "k", Value: []byte("v")},
	}
	for _, req := range invalid {
		if _, err := adapter.Handle(req, lstore.NewLocalStore()); !common.IsProtocolError(err) {
			t.Errorf("Expected protocol error for %+v, got %v", req, err)
		}
	}
}
