package testutil

import "sync"

// ManualDispatcher is a delivery context that only runs work when the test
// says so.
//
// Post may be called from any goroutine; Drain runs the queued work on the
// calling goroutine, including work posted while draining. Tests step time
// explicitly, which makes every emission order reproducible.
//
// Thread-safety: Post, Pending and Close are safe for concurrent use.
// Drain must be called from one goroutine at a time.
type ManualDispatcher struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
}

// NewManualDispatcher creates an empty dispatcher.
func NewManualDispatcher() *ManualDispatcher {
	return &ManualDispatcher{}
}

// Post queues fn. Returns false after Close.
func (d *ManualDispatcher) Post(fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}
	d.queue = append(d.queue, fn)
	return true
}

// Drain runs queued work until the queue is empty and returns how many
// functions ran.
func (d *ManualDispatcher) Drain() int {
	ran := 0
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return ran
		}
		fn := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mu.Unlock()

		fn()
		ran++
	}
}

// Pending returns the number of queued functions.
func (d *ManualDispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Close rejects further posts. Queued work is kept for a final Drain.
func (d *ManualDispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}
