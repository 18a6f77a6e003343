package lstore

import (
	"github.com/ValentinKolb/shKV/lib/store"
)

type storeImpl struct {
	values map[string][]byte
	queues map[string]*queue

	// bookkeeping for Info, updated by every write
	queuedItems uint64
	sizeBytes   uint64
}

// NewLocalStore creates a new, empty in-memory store.
// The store is not safe for concurrent use: it must be owned by a single goroutine
// (the server's event loop) or guarded by the caller.
func NewLocalStore() store.IStore {
	return &storeImpl{
		values: make(map[string][]byte),
		queues: make(map[string]*queue),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	val, ok := s.values[key]
	return val, ok, nil
}

func (s *storeImpl) Set(key string, value []byte) ([]byte, bool, error) {
	if value == nil {
		value = []byte{}
	}
	prev, ok := s.values[key]
	if ok {
		s.sizeBytes -= uint64(len(key) + len(prev))
	}
	s.values[key] = value
	s.sizeBytes += uint64(len(key) + len(value))
	return prev, ok, nil
}

func (s *storeImpl) Delete(key string) ([]byte, bool, error) {
	prev, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	delete(s.values, key)
	s.sizeBytes -= uint64(len(key) + len(prev))
	return prev, true, nil
}

func (s *storeImpl) QueueGet(key string) ([]byte, bool, error) {
	q, ok := s.queues[key]
	if !ok {
		return nil, false, nil
	}
	val, ok := q.pop()
	if !ok {
		return nil, false, nil
	}
	s.queuedItems--
	s.sizeBytes -= uint64(len(val))

	// drop drained queues so that the map only holds non-empty ones
	if q.len() == 0 {
		delete(s.queues, key)
		s.sizeBytes -= uint64(len(key))
	}
	return val, true, nil
}

func (s *storeImpl) QueuePut(key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	q, ok := s.queues[key]
	if !ok {
		q = newQueue()
		s.queues[key] = q
		s.sizeBytes += uint64(len(key))
	}
	q.push(value)
	s.queuedItems++
	s.sizeBytes += uint64(len(value))
	return nil
}

func (s *storeImpl) QueueSize(key string) (uint64, error) {
	q, ok := s.queues[key]
	if !ok {
		return 0, nil
	}
	return uint64(q.len()), nil
}

func (s *storeImpl) Info() (store.Info, error) {
	return store.Info{
		Keys:        len(s.values),
		Queues:      len(s.queues),
		QueuedItems: s.queuedItems,
		SizeBytes:   s.sizeBytes,
	}, nil
}
