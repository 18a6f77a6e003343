package lstore

import (
	"testing"

	"github.com/ValentinKolb/shKV/lib/store"
	storetesting "github.com/ValentinKolb/shKV/lib/store/testing"
)

func Test(t *testing.T) {
	storetesting.RunStoreTests(t, "LocalStore", func() store.IStore {
		return NewLocalStore()
	})
}

func Benchmark(b *testing.B) {
	storetesting.RunStoreBenchmarks(b, "LocalStore", func() store.IStore {
		return NewLocalStore()
	})
}

// TestInfo checks the bookkeeping behind Info
func TestInfo(t *testing.T) {
	s := NewLocalStore()

	s.Set("a", []byte("12"))
	s.Set("a", []byte("1234")) // replace
	s.Set("b", []byte{})
	s.QueuePut("q", []byte("xyz"))
	s.QueuePut("q", []byte("x"))
	s.QueueGet("nope")

	info, err := s.Info()
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	expected := store.Info{
		Keys:        2,
		Queues:      1,
		QueuedItems: 2,
		SizeBytes:   uint64(len("a")+4) + uint64(len("b")) + uint64(len("q")+3+1),
	}
	if info != expected {
		t.Errorf("Expected %+v, got %+v", expected, info)
	}

	s.Delete("a")
	s.Delete("b")
	s.QueueGet("q")
	s.QueueGet("q")

	info, _ = s.Info()
	if info != (store.Info{}) {
		t.Errorf("Expected empty info after removing everything, got %+v", info)
	}
}
