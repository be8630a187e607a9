package cache

import (
	"sync"
	"time"
)

type opKind int

const (
	opSet opKind = iota
	opAppend
)

// bufferedWrite is one entry awaiting a flush to the remote backend.
type bufferedWrite struct {
	op    opKind
	key   string
	value []byte
	ttl   time.Duration // opSet only
	max   int64         // opAppend only
}

// fallbackQueue is a bounded FIFO of writes that could not reach the remote
// backend. When full, the oldest entry is dropped. A failed flush requeues
// the entry at the front so drain order is preserved.
//
// This is the only in-process mutable state shared across requests; the
// mutex guards every read, append, and drain.
type fallbackQueue struct {
	mu      sync.Mutex
	entries []bufferedWrite
	limit   int
}

func newFallbackQueue(limit int) *fallbackQueue {
	if limit <= 0 {
		limit = 1000
	}
	return &fallbackQueue{limit: limit}
}

// push appends a write, evicting the oldest entry when the queue is full.
func (q *fallbackQueue) push(w bufferedWrite) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= q.limit {
		q.entries = q.entries[1:]
	}
	q.entries = append(q.entries, w)
}

// pop removes and returns the oldest entry.
func (q *fallbackQueue) pop() (bufferedWrite, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return bufferedWrite{}, false
	}
	w := q.entries[0]
	q.entries = q.entries[1:]
	return w, true
}

// requeueFront puts a failed flush back at the head of the queue.
func (q *fallbackQueue) requeueFront(w bufferedWrite) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= q.limit {
		// Keep the oldest write; drop from the tail instead so the retried
		// entry does not silently vanish.
		q.entries = q.entries[:q.limit-1]
	}
	q.entries = append([]bufferedWrite{w}, q.entries...)
}

func (q *fallbackQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
