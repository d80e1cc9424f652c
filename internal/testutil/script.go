package testutil

import "sync"

// Call is one pending invocation of a scripted asynchronous collaborator.
type Call[T any] struct {
	// Args holds whatever the collaborator was invoked with.
	Args []string

	mu        sync.Mutex
	done      func(T, error)
	settled   bool
	cancelled bool
}

// Resolve completes the call with v. It returns false if the call was
// already resolved or failed.
func (c *Call[T]) Resolve(v T) bool {
	return c.settle(v, nil)
}

// Fail completes the call with err.
func (c *Call[T]) Fail(err error) bool {
	var zero T
	return c.settle(zero, err)
}

// Cancelled reports whether the caller cancelled this call.
func (c *Call[T]) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// Settled reports whether Resolve or Fail has been called.
func (c *Call[T]) Settled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settled
}

func (c *Call[T]) settle(v T, err error) bool {
	c.mu.Lock()
	if c.settled {
		c.mu.Unlock()
		return false
	}
	c.settled = true
	done := c.done
	c.mu.Unlock()

	// Deliberately delivered even when cancelled: a real network call can
	// finish after its caller lost interest, and the caller must cope.
	done(v, err)
	return true
}

// Script is a fake asynchronous collaborator whose calls stay pending until
// the test settles them.
//
// Thread-safety: all methods are safe for concurrent use.
type Script[T any] struct {
	mu    sync.Mutex
	calls []*Call[T]
}

// NewScript creates a Script with no calls.
func NewScript[T any]() *Script[T] {
	return &Script[T]{}
}

// Start records a call and returns a task body compatible with signal.Task.
func (s *Script[T]) Start(args ...string) func(done func(T, error)) func() {
	return func(done func(T, error)) func() {
		call := &Call[T]{Args: args, done: done}

		s.mu.Lock()
		s.calls = append(s.calls, call)
		s.mu.Unlock()

		return func() {
			call.mu.Lock()
			call.cancelled = true
			call.mu.Unlock()
		}
	}
}

// Calls returns every call made so far, oldest first.
func (s *Script[T]) Calls() []*Call[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Call[T], len(s.calls))
	copy(out, s.calls)
	return out
}

// Len returns the number of calls made so far.
func (s *Script[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Last returns the most recent call, or nil.
func (s *Script[T]) Last() *Call[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.calls) == 0 {
		return nil
	}
	return s.calls[len(s.calls)-1]
}

// Oldest returns the oldest call that has not been settled, or nil.
func (s *Script[T]) Oldest() *Call[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.calls {
		if !c.Settled() {
			return c
		}
	}
	return nil
}

// Pending returns the calls not yet settled, oldest first. Cancelled calls
// are included: they can still be settled.
func (s *Script[T]) Pending() []*Call[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Call[T]
	for _, c := range s.calls {
		if !c.Settled() {
			out = append(out, c)
		}
	}
	return out
}

// Recorder collects values delivered to it, in order.
//
// Thread-safety: safe for concurrent use.
type Recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

// NewRecorder creates an empty Recorder.
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{}
}

// Add records v. Pass it to Subscribe.
func (r *Recorder[T]) Add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

// Values returns a copy of everything recorded.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]T, len(r.values))
	copy(out, r.values)
	return out
}

// Last returns the most recent value and whether there is one.
func (r *Recorder[T]) Last() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	if len(r.values) == 0 {
		return zero, false
	}
	return r.values[len(r.values)-1], true
}

// Len returns how many values were recorded.
func (r *Recorder[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

// Reset forgets everything recorded so far.
func (r *Recorder[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = nil
}
