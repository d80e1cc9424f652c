// Package activity tracks in-flight asynchronous operations and derives a
// "busy" signal from them.
//
// The tracker's counter is the only mutable state the form engine owns.
// It is touched exclusively on the delivery thread, so it is a plain int.
package activity

import (
	"log/slog"

	"github.com/roach88/signupflow/internal/metrics"
	"github.com/roach88/signupflow/internal/signal"
)

// Tracker counts tracked operations that are currently executing.
//
// INVARIANTS:
//   - count >= 0 at all times
//   - each tracked operation decrements exactly once, whether it completes,
//     fails, or is cancelled
//   - Busy() is count > 0, deduplicated
type Tracker struct {
	d       signal.Dispatcher
	count   int
	counts  *signal.Source[int]
	busy    *signal.Signal[bool]
	metrics metrics.Recorder
	logger  *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMetrics reports starts and settles to rec.
func WithMetrics(rec metrics.Recorder) Option {
	return func(t *Tracker) {
		t.metrics = rec
	}
}

// WithLogger sets the logger for invariant violations.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// NewTracker creates a Tracker whose completions are delivered on d.
// Busy() starts out false.
func NewTracker(d signal.Dispatcher, opts ...Option) *Tracker {
	t := &Tracker{
		d:       d,
		counts:  signal.NewSourceWith(0),
		metrics: metrics.Nop(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}

	inFlight := signal.Map[int, bool](t.counts, func(n int) bool { return n > 0 })
	t.busy = signal.DistinctUntilChanged[bool](inFlight)
	return t
}

// Busy is true while one or more tracked operations are executing.
func (t *Tracker) Busy() *signal.Signal[bool] {
	return t.busy
}

// Count returns the number of operations in flight.
func (t *Tracker) Count() int {
	return t.count
}

func (t *Tracker) acquire() {
	t.count++
	t.metrics.ActivityStarted()
	t.counts.Emit(t.count)
}

func (t *Tracker) release(outcome string) {
	if t.count == 0 {
		t.logger.Error("activity release without matching acquire", "outcome", outcome)
		return
	}
	t.count--
	t.metrics.ActivitySettled(outcome)
	t.counts.Emit(t.count)
}

// Track wraps task so that t counts it while it runs.
//
// The counter is incremented when the returned Task starts (which happens
// on the delivery thread) and decremented exactly once: when the wrapped
// task completes, with or without an error, or when the returned cancel
// func is called, whichever comes first. A completion that arrives after
// cancellation is still forwarded to done; the caller decides whether it
// is stale.
func Track[T any](t *Tracker, task signal.Task[T]) signal.Task[T] {
	return func(done func(T, error)) func() {
		t.acquire()

		released := false
		release := func(outcome string) {
			if released {
				return
			}
			released = true
			t.release(outcome)
		}

		cancelInner := task(func(v T, err error) {
			t.d.Post(func() {
				release(metrics.OutcomeCompleted)
				done(v, err)
			})
		})

		return func() {
			release(metrics.OutcomeCancelled)
			if cancelInner != nil {
				cancelInner()
			}
		}
	}
}
