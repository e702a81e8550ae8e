package engine

import (
	"sync"
)

// callQueue is a thread-safe FIFO of submitted calls.
//
// Any goroutine may enqueue; only the Run loop dequeues. The signal channel
// lets Run wait for work and context cancellation in one select.
type callQueue struct {
	mu     sync.Mutex
	calls  []*call
	closed bool
	signal chan struct{} // buffered, size 1
}

func newCallQueue() *callQueue {
	return &callQueue{
		calls:  make([]*call, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds c to the back of the queue.
// Returns false if the queue is closed.
func (q *callQueue) Enqueue(c *call) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.calls = append(q.calls, c)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front call without blocking.
func (q *callQueue) TryDequeue() (*call, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.calls) == 0 {
		return nil, false
	}

	c := q.calls[0]
	q.calls[0] = nil // release for GC

	if len(q.calls) == 1 {
		q.calls = q.calls[:0]
	} else {
		q.calls = q.calls[1:]
	}

	return c, true
}

// Wait returns a channel that signals when calls may be available.
// It is closed when the queue closes.
func (q *callQueue) Wait() <-chan struct{} {
	return q.signal
}

func (q *callQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.calls)
}

// Closed reports whether Close has been called.
func (q *callQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops further enqueues and wakes the Run loop.
func (q *callQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Drain removes and returns every queued call.
func (q *callQueue) Drain() []*call {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.calls
	q.calls = nil
	return out
}
