package testing

import (
	"fmt"
	"testing"

	"github.com/ValentinKolb/shKV/lib/store"
)

// RunStoreBenchmarks runs all benchmarks for an IStore implementation.
// Operations are issued from one goroutine, as the server's event loop does.
func RunStoreBenchmarks(b *testing.B, name string, factory StoreFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory())
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory())
		})

		b.Run("Delete", func(b *testing.B) {
			benchmarkDelete(b, factory())
		})

		b.Run("QueuePutGet", func(b *testing.B) {
			benchmarkQueuePutGet(b, factory())
		})

		b.Run("QueueBacklog", func(b *testing.B) {
			benchmarkQueueBacklog(b, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}
	return keys
}

func benchmarkSet(b *testing.B, s store.IStore) {
	keys := benchmarkKeys(1024)
	value := []byte("benchmark-value")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := s.Set(keys[i%len(keys)], value); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkGet(b *testing.B, s store.IStore) {
	keys := benchmarkKeys(1024)
	for _, k := range keys {
		s.Set(k, []byte("benchmark-value"))
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := s.Get(keys[i%len(keys)]); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkDelete(b *testing.B, s store.IStore) {
	keys := benchmarkKeys(1024)
	value := []byte("benchmark-value")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := keys[i%len(keys)]
		s.Set(k, value)
		if _, _, err := s.Delete(k); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkQueuePutGet(b *testing.B, s store.IStore) {
	value := []byte("benchmark-value")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.QueuePut("q", value); err != nil {
			b.Fatal(err)
		}
		if _, _, err := s.QueueGet("q"); err != nil {
			b.Fatal(err)
		}
	}
}

// benchmarkQueueBacklog fills a queue with b.N elements before draining it
func benchmarkQueueBacklog(b *testing.B, factory StoreFactory) {
	s := factory()
	value := []byte("benchmark-value")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.QueuePut("q", value)
	}
	for i := 0; i < b.N; i++ {
		s.QueueGet("q")
	}
}
