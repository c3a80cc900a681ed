// Package sigqueue provides a bounded, overwrite-oldest queue sitting
// between a bus signal subscription and its consumer loop.
//
// The bus delivers property-change notifications at its own pace; the
// consumer drains them on a bounded-wait poll. If the consumer falls
// behind, the oldest undelivered notification is discarded rather than
// blocking the producer. Dropped notifications are harmless here: every
// reaction to a signal ends in a full registry refresh anyway.
package sigqueue

import (
	"sync/atomic"
	"time"
)

// Queue is a bounded buffer with overwrite-oldest semantics.
// Producers never block; consumers read through PopTimeout.
type Queue[T any] struct {
	ch      chan T
	dropped atomic.Int64
	closed  atomic.Bool
}

// New creates a Queue with the given capacity. Panics if capacity <= 0.
func New[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		panic("sigqueue: capacity must be > 0")
	}
	return &Queue[T]{ch: make(chan T, capacity)}
}

// Push inserts v, discarding the oldest element when the buffer is full.
// It never blocks indefinitely.
func (q *Queue[T]) Push(v T) {
	select {
	case q.ch <- v:
	default:
		select {
		case <-q.ch: // drop oldest
			q.dropped.Add(1)
		default:
		}
		q.ch <- v
	}
}

// PopTimeout waits up to d for an element. ok is false when the wait
// timed out, or when the queue is closed and drained; callers tell the
// two apart with Closed. A timeout is a normal poll cycle, not an error.
func (q *Queue[T]) PopTimeout(d time.Duration) (v T, ok bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case v, ok = <-q.ch:
		return v, ok
	case <-timer.C:
		var zero T
		return zero, false
	}
}

// Len returns the number of buffered elements.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Dropped reports how many elements were overwritten since creation.
func (q *Queue[T]) Dropped() int64 {
	return q.dropped.Load()
}

// Closed reports whether Close has been called. A closed queue still
// yields its buffered elements; once PopTimeout returns ok=false on a
// closed queue, it is drained for good.
func (q *Queue[T]) Closed() bool {
	return q.closed.Load()
}

// Close closes the queue. Push after Close panics.
func (q *Queue[T]) Close() {
	q.closed.Store(true)
	close(q.ch)
}
