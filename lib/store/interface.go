package store

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the interface of the shared data set: a scalar namespace (key -> value)
// and an independent queue namespace (key -> FIFO of values).
// A missing entry is never an error, it is reported by found == false.
// Errors are only returned by implementations that can fail, e.g. a remote store.
type IStore interface {
	// Get returns the current value for a key.
	Get(key string) (value []byte, found bool, err error)
	// Set stores the value for a key and returns the value it replaced.
	Set(key string, value []byte) (prev []byte, found bool, err error)
	// Delete removes the value for a key and returns it.
	Delete(key string) (prev []byte, found bool, err error)
	// QueueGet removes and returns the oldest element of the queue for a key.
	// A miss does not create an empty queue.
	QueueGet(key string) (value []byte, found bool, err error)
	// QueuePut appends a value to the tail of the queue for a key, creating the queue if needed.
	QueuePut(key string, value []byte) (err error)
	// QueueSize returns the number of queued elements for a key (0 for unknown keys).
	QueueSize(key string) (size uint64, err error)
	// Info returns statistics about the stored data.
	// It is not guaranteed that every implementation supports this!
	Info() (info Info, err error)
}

// Info holds statistics about a store.
type Info struct {
	Keys        int    `json:"keys"`         // number of scalar entries
	Queues      int    `json:"queues"`       // number of non-empty queues
	QueuedItems uint64 `json:"queued_items"` // elements over all queues
	SizeBytes   uint64 `json:"size_bytes"`   // key and value bytes held by the store
}
