package testing

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/ValentinKolb/shKV/lib/store"
)

// StoreFactory is a function that creates a new, empty instance of an IStore implementation
type StoreFactory func() store.IStore

// RunStoreTests runs a comprehensive test suite for an IStore implementation.
// The tests use the store from a single goroutine only.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("SetReturnsPrevious", func(t *testing.T) {
			testSetReturnsPrevious(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("QueueFIFO", func(t *testing.T) {
			testQueueFIFO(t, factory())
		})

		t.Run("QueueSize", func(t *testing.T) {
			testQueueSize(t, factory())
		})

		t.Run("QueueMissDoesNotCreate", func(t *testing.T) {
			testQueueMissDoesNotCreate(t, factory())
		})

		t.Run("NamespacesAreIndependent", func(t *testing.T) {
			testNamespacesAreIndependent(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			testRealisticUsage(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func mustGet(t *testing.T, s store.IStore, key string) ([]byte, bool) {
	t.Helper()
	val, found, err := s.Get(key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	return val, found
}

func mustQueueSize(t *testing.T, s store.IStore, key string) uint64 {
	t.Helper()
	size, err := s.QueueSize(key)
	if err != nil {
		t.Fatalf("QueueSize(%q) failed: %v", key, err)
	}
	return size
}

func mustQueuePut(t *testing.T, s store.IStore, key string, value []byte) {
	t.Helper()
	if err := s.QueuePut(key, value); err != nil {
		t.Fatalf("QueuePut(%q) failed: %v", key, err)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, s store.IStore) {
	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	if _, _, err := s.Set(testKey, testValue1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	result, exists := mustGet(t, s, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	if _, _, err := s.Set(testKey, testValue2); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	result, exists = mustGet(t, s, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	if _, exists = mustGet(t, s, "nonexistent-key"); exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}
}

func testSetReturnsPrevious(t *testing.T, s store.IStore) {
	prev, found, err := s.Set("x", []byte("1"))
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if found || prev != nil {
		t.Errorf("Expected no previous value for a new key, got %q (found=%v)", prev, found)
	}

	prev, found, err = s.Set("x", []byte("2"))
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !found || !bytes.Equal(prev, []byte("1")) {
		t.Errorf("Expected previous value 1, got %q (found=%v)", prev, found)
	}

	// overwriting with the same value still reports it as previous
	prev, found, _ = s.Set("x", []byte("2"))
	if !found || !bytes.Equal(prev, []byte("2")) {
		t.Errorf("Expected previous value 2, got %q (found=%v)", prev, found)
	}
}

func testDelete(t *testing.T, s store.IStore) {
	s.Set("k", []byte("v"))

	prev, found, err := s.Delete("k")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !found || !bytes.Equal(prev, []byte("v")) {
		t.Errorf("Expected removed value v, got %q (found=%v)", prev, found)
	}

	if _, exists := mustGet(t, s, "k"); exists {
		t.Errorf("Expected key to be gone after Delete")
	}

	// second delete is a miss, not an error
	prev, found, err = s.Delete("k")
	if err != nil {
		t.Fatalf("Delete of missing key failed: %v", err)
	}
	if found || prev != nil {
		t.Errorf("Expected miss for second Delete, got %q (found=%v)", prev, found)
	}
}

func testQueueFIFO(t *testing.T, s store.IStore) {
	const n = 100
	for i := 0; i < n; i++ {
		mustQueuePut(t, s, "q", []byte(fmt.Sprintf("item-%d", i)))
	}

	for i := 0; i < n; i++ {
		val, found, err := s.QueueGet("q")
		if err != nil {
			t.Fatalf("QueueGet failed: %v", err)
		}
		expected := []byte(fmt.Sprintf("item-%d", i))
		if !found || !bytes.Equal(val, expected) {
			t.Fatalf("Expected %s at position %d, got %q (found=%v)", expected, i, val, found)
		}
	}

	val, found, err := s.QueueGet("q")
	if err != nil {
		t.Fatalf("QueueGet failed: %v", err)
	}
	if found || val != nil {
		t.Errorf("Expected empty queue, got %q (found=%v)", val, found)
	}
}

func testQueueSize(t *testing.T, s store.IStore) {
	if size := mustQueueSize(t, s, "q"); size != 0 {
		t.Errorf("Expected size 0 for unknown queue, got %d", size)
	}

	mustQueuePut(t, s, "q", []byte("a"))
	mustQueuePut(t, s, "q", []byte("b"))
	if size := mustQueueSize(t, s, "q"); size != 2 {
		t.Errorf("Expected size 2, got %d", size)
	}

	s.QueueGet("q")
	if size := mustQueueSize(t, s, "q"); size != 1 {
		t.Errorf("Expected size 1, got %d", size)
	}

	s.QueueGet("q")
	if size := mustQueueSize(t, s, "q"); size != 0 {
		t.Errorf("Expected size 0 after draining, got %d", size)
	}
}

func testQueueMissDoesNotCreate(t *testing.T, s store.IStore) {
	for i := 0; i < 3; i++ {
		if _, found, _ := s.QueueGet("never"); found {
			t.Fatalf("Expected miss on unknown queue")
		}
	}
	if size := mustQueueSize(t, s, "never"); size != 0 {
		t.Errorf("Expected size 0 after misses, got %d", size)
	}

	// a miss must not leave anything behind that Info would count
	info, err := s.Info()
	if err != nil {
		t.Skip("Info not supported")
	}
	if info.Queues != 0 || info.QueuedItems != 0 {
		t.Errorf("Expected no queues after misses, got %+v", info)
	}
}

func testNamespacesAreIndependent(t *testing.T, s store.IStore) {
	s.Set("shared", []byte("scalar"))
	mustQueuePut(t, s, "shared", []byte("queued"))

	val, found := mustGet(t, s, "shared")
	if !found || !bytes.Equal(val, []byte("scalar")) {
		t.Errorf("Expected scalar value to survive QueuePut, got %q", val)
	}

	s.Delete("shared")
	if size := mustQueueSize(t, s, "shared"); size != 1 {
		t.Errorf("Expected queue to survive Delete of the scalar, got size %d", size)
	}

	val, found, _ = s.QueueGet("shared")
	if !found || !bytes.Equal(val, []byte("queued")) {
		t.Errorf("Expected queued value, got %q", val)
	}
}

func testEdgeCases(t *testing.T, s store.IStore) {
	// Empty key
	s.Set("", []byte("empty-key"))
	if val, found := mustGet(t, s, ""); !found || !bytes.Equal(val, []byte("empty-key")) {
		t.Errorf("Expected empty key to be stored, got %q (found=%v)", val, found)
	}

	// Empty value is a value, not a miss
	s.Set("empty", []byte{})
	val, found := mustGet(t, s, "empty")
	if !found {
		t.Errorf("Expected empty value to be found")
	}
	if val == nil || len(val) != 0 {
		t.Errorf("Expected non-nil empty value, got %#v", val)
	}

	// Empty queue element
	mustQueuePut(t, s, "eq", []byte{})
	val, found, _ = s.QueueGet("eq")
	if !found || val == nil || len(val) != 0 {
		t.Errorf("Expected non-nil empty queue element, got %#v (found=%v)", val, found)
	}

	// Binary data and unicode keys
	binary := []byte{0, 1, 2, 0xff, 0}
	s.Set("ключ", binary)
	if val, _ := mustGet(t, s, "ключ"); !bytes.Equal(val, binary) {
		t.Errorf("Expected binary value to be preserved, got %v", val)
	}

	// Large value
	large := bytes.Repeat([]byte("x"), 64*1024)
	s.Set("large", large)
	if val, _ := mustGet(t, s, "large"); !bytes.Equal(val, large) {
		t.Errorf("Expected large value to be preserved (len %d)", len(val))
	}
}

func testRealisticUsage(t *testing.T, s store.IStore) {
	// producer / consumer pattern over two queues and a status key
	for i := 0; i < 50; i++ {
		mustQueuePut(t, s, "jobs", []byte(fmt.Sprintf("job-%d", i)))
	}

	processed := 0
	for {
		job, found, err := s.QueueGet("jobs")
		if err != nil {
			t.Fatalf("QueueGet failed: %v", err)
		}
		if !found {
			break
		}
		mustQueuePut(t, s, "done", append([]byte("done-"), job...))
		s.Set("last", job)
		processed++
	}

	if processed != 50 {
		t.Errorf("Expected 50 processed jobs, got %d", processed)
	}
	if size := mustQueueSize(t, s, "done"); size != 50 {
		t.Errorf("Expected 50 done entries, got %d", size)
	}
	if val, _ := mustGet(t, s, "last"); !bytes.Equal(val, []byte("job-49")) {
		t.Errorf("Expected last job-49, got %s", val)
	}

	first, _, _ := s.QueueGet("done")
	if !bytes.Equal(first, []byte("done-job-0")) {
		t.Errorf("Expected done-job-0 first, got %s", first)
	}
}
