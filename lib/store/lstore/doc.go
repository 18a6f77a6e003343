// Package lstore implements the local, in-memory store of shKV based on the
// store.IStore interface. Data is stored entirely in memory and is lost when the
// process ends.
//
// Implementation Details:
//
//   - Scalars: a plain Go map from key to value.
//
//   - Queues: a map from key to a ring buffer. A queue is created by the first
//     QueuePut for its key and removed again when its last element is taken, so
//     misses never create entries. Elements are returned in insertion order.
//
//   - Info: key, queue and byte counters are maintained on every write, Info is O(1).
//
// Thread Safety:
//
//	The local store performs no locking. The server owns it from its single event
//	loop goroutine, which serializes every operation. Callers that share a store
//	between goroutines have to guard it themselves.
//
// Usage Example:
//
//	s := lstore.NewLocalStore()
//	prev, found, _ := s.Set("x", []byte("1")) // prev == nil, found == false
//	s.QueuePut("jobs", []byte("a"))
//	head, found, _ := s.QueueGet("jobs") // "a", true
package lstore
