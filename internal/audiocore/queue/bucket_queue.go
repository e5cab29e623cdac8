// Package queue implements the lock-protected dual bucket queue used for
// zero-copy hand-off between a device's capture loop (producer) and the
// disk worker (consumer).
//
// Grounded in buffer_queue.c's DualQueue_s: two FIFOs sharing a pool of
// buckets, a single mutex, and one "owned" slot per side. The original's
// doubly-linked ring of bucket nodes is replaced here by two plain slice
// FIFOs preserving the same allocate/own/free contract and invariants.
package queue

import (
	"sync"

	"github.com/rom9/multirec/internal/audiocore"
)

// DualQueue hands audiocore.Chunk buffers between one producer and one
// consumer without copying. It pre-allocates bucketCount chunks, all
// starting in the empty FIFO, and auto-grows the empty pool whenever the
// producer returns a chunk and finds the empty pool drained.
type DualQueue struct {
	mu sync.Mutex

	empty []*audiocore.Chunk
	full  []*audiocore.Chunk

	producerOwned *audiocore.Chunk
	consumerOwned *audiocore.Chunk

	grown     bool
	allocated int
}

// New creates a DualQueue with bucketCount chunks pre-allocated into the
// empty FIFO.
func New(bucketCount int) *DualQueue {
	q := &DualQueue{
		empty: make([]*audiocore.Chunk, 0, bucketCount),
	}
	for range bucketCount {
		q.empty = append(q.empty, audiocore.NewChunk())
	}
	q.allocated = bucketCount
	return q
}

// ProdOwn pops the head of the empty FIFO into the producer-owned slot and
// returns it. A nil return means the empty FIFO was drained despite
// auto-grow, which the caller should treat as a fatal invariant violation
// (see ErrQueueExhausted).
func (q *DualQueue) ProdOwn() *audiocore.Chunk {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.empty) == 0 {
		return nil
	}
	c := q.empty[0]
	q.empty = q.empty[1:]
	q.producerOwned = c
	return c
}

// ProdFree pushes the producer-owned chunk onto the tail of the full FIFO,
// clears the producer-owned slot, and auto-grows the empty pool by one
// chunk if it is now empty.
func (q *DualQueue) ProdFree() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.producerOwned == nil {
		return
	}
	q.full = append(q.full, q.producerOwned)
	q.producerOwned = nil

	if len(q.empty) == 0 {
		q.empty = append(q.empty, audiocore.NewChunk())
		q.allocated++
		q.grown = true
	}
}

// ConsOwn pops the head of the full FIFO into the consumer-owned slot. A
// nil return means there is nothing to do yet; this is benign.
func (q *DualQueue) ConsOwn() *audiocore.Chunk {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.full) == 0 {
		return nil
	}
	c := q.full[0]
	q.full = q.full[1:]
	q.consumerOwned = c
	return c
}

// ConsFree pushes the consumer-owned chunk onto the tail of the empty FIFO
// and clears the consumer-owned slot.
func (q *DualQueue) ConsFree() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.consumerOwned == nil {
		return
	}
	q.empty = append(q.empty, q.consumerOwned)
	q.consumerOwned = nil
}

// ProdLen returns the count of full buckets awaiting the consumer.
func (q *DualQueue) ProdLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.full)
}

// ConsLen returns the count of empty buckets awaiting the producer.
func (q *DualQueue) ConsLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.empty)
}

// HasGrown reports whether the queue has grown since the last call, then
// resets the flag. True at most once per growth event.
func (q *DualQueue) HasGrown() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	v := q.grown
	q.grown = false
	return v
}

// Allocated returns the total number of chunks ever allocated into this
// queue (invariant 1's conservation total).
func (q *DualQueue) Allocated() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.allocated
}

// Owned reports whether the producer and/or consumer currently hold a
// chunk, for invariant bookkeeping in tests.
func (q *DualQueue) Owned() (producerOwned, consumerOwned bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.producerOwned != nil, q.consumerOwned != nil
}
