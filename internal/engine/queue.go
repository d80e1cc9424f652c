package engine

import "sync"

// funcQueue is the unbounded FIFO behind Loop.
//
// Unbounded so that a completion posted from inside a delivery (a Task
// that answers synchronously) never blocks the thread that must drain it.
//
// The signal channel (buffer 1) coalesces wake-ups for the Run loop.
type funcQueue struct {
	mu     sync.Mutex
	items  []func()
	closed bool
	signal chan struct{}
}

func newFuncQueue() *funcQueue {
	return &funcQueue{
		items:  make([]func(), 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds fn to the back of the queue. Returns false once closed.
func (q *funcQueue) Enqueue(fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, fn)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front item without blocking.
func (q *funcQueue) TryDequeue() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}

	fn := q.items[0]
	// Release the closure for GC.
	q.items[0] = nil
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return fn, true
}

// Wait signals that items may be available. Closed when the queue closes.
func (q *funcQueue) Wait() <-chan struct{} {
	return q.signal
}

func (q *funcQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *funcQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close rejects further items and wakes waiters. Queued items stay.
func (q *funcQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
