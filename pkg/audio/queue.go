package audio

import (
	"context"
	"sync/atomic"
)

// Queue is a fixed-capacity single-producer/single-consumer handoff carrying
// chunks from a capture callback to a channel pipeline. The producer side is
// non-blocking: [Queue.TryPush] on a full queue drops the incoming chunk and
// returns false. The consumer side may block via [Queue.Pop].
//
// Capacity is fixed at construction. The drop policy is drop-newest: under
// overflow the queue keeps the oldest buffered audio so segmentation sees a
// contiguous prefix rather than a stream with holes in the middle.
type Queue struct {
	ch      chan Chunk
	dropped atomic.Int64
}

// NewQueue creates a Queue with the given capacity. Capacities below 1 are
// raised to 1.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan Chunk, capacity)}
}

// TryPush enqueues c without blocking. It returns false when the queue is
// full; the chunk is dropped and the drop counter incremented. Safe to call
// from a real-time audio callback: no locks, no allocation.
func (q *Queue) TryPush(c Chunk) bool {
	select {
	case q.ch <- c:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Pop removes and returns the oldest chunk, blocking until one is available
// or ctx is done. The second return value is false when ctx expired first.
func (q *Queue) Pop(ctx context.Context) (Chunk, bool) {
	select {
	case c := <-q.ch:
		return c, true
	case <-ctx.Done():
		return Chunk{}, false
	}
}

// Len returns the number of currently buffered chunks.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the fixed capacity.
func (q *Queue) Cap() int { return cap(q.ch) }

// Dropped returns the total number of chunks dropped by TryPush.
func (q *Queue) Dropped() int64 { return q.dropped.Load() }
