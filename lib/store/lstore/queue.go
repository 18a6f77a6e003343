package lstore

// minQueueCapacity is the capacity of a freshly created queue
const minQueueCapacity = 8

// queue is a FIFO of values backed by a growable ring buffer.
// Both ends are O(1); the buffer shrinks again when it is mostly empty.
type queue struct {
	buf   [][]byte
	head  int // index of the oldest element
	count int
}

func newQueue() *queue {
	return &queue{buf: make([][]byte, minQueueCapacity)}
}

// push appends v at the tail
func (q *queue) push(v []byte) {
	if q.count == len(q.buf) {
		q.resize(len(q.buf) * 2)
	}
	q.buf[(q.head+q.count)%len(q.buf)] = v
	q.count++
}

// pop removes and returns the head. ok is false for an empty queue.
func (q *queue) pop() (v []byte, ok bool) {
	if q.count == 0 {
		return nil, false
	}
	v = q.buf[q.head]
	q.buf[q.head] = nil // release the reference for the GC
	q.head = (q.head + 1) % len(q.buf)
	q.count--

	if len(q.buf) > minQueueCapacity && q.count <= len(q.buf)/4 {
		q.resize(len(q.buf) / 2)
	}
	return v, true
}

func (q *queue) len() int {
	return q.count
}

// resize copies the elements in order into a buffer of the given capacity
func (q *queue) resize(capacity int) {
	buf := make([][]byte, capacity)
	for i := 0; i < q.count; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
}
