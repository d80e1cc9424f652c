package engine

import (
	"context"
	"fmt"
	"log/slog"
)

// Loop is the single delivery thread every signal of an Engine lives on.
//
// Thread-safety model:
//   - Post(): safe from any goroutine
//   - Run() or Drain(): from exactly one goroutine at a time
//   - Stop(): safe from any goroutine
//
// Loop implements signal.Dispatcher.
type Loop struct {
	queue  *funcQueue
	logger *slog.Logger
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithLoopLogger sets the logger for lifecycle and panic reports.
func WithLoopLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger
	}
}

// NewLoop creates an idle Loop.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		queue:  newFuncQueue(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post queues fn to run on the delivery thread. Returns false once the
// loop has been stopped; fn is then dropped.
func (l *Loop) Post(fn func()) bool {
	return l.queue.Enqueue(fn)
}

// Run executes posted work in FIFO order until ctx is cancelled or Stop is
// called. Work still queued at Stop is run before Run returns.
//
// A panicking fn is logged and the loop keeps going: one bad delivery must
// not take the whole form down.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Debug("loop starting")

	for {
		if fn, ok := l.queue.TryDequeue(); ok {
			l.run(fn)
			continue
		}

		select {
		case <-ctx.Done():
			l.logger.Debug("loop stopping: context cancelled")
			l.queue.Close()
			return ctx.Err()

		case <-l.queue.Wait():
			if l.queue.Closed() && l.queue.Len() == 0 {
				l.logger.Debug("loop stopping: stopped")
				return nil
			}
		}
	}
}

// Drain runs queued work on the calling goroutine until the queue is empty,
// including work posted while draining. It returns how many functions ran.
// Tests and the scenario harness use Drain instead of Run to step time.
func (l *Loop) Drain() int {
	ran := 0
	for {
		fn, ok := l.queue.TryDequeue()
		if !ok {
			return ran
		}
		l.run(fn)
		ran++
	}
}

// Stop rejects further posts and makes Run return once the queue is empty.
func (l *Loop) Stop() {
	l.queue.Close()
}

// Pending returns the number of queued functions.
func (l *Loop) Pending() int {
	return l.queue.Len()
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("delivery panicked", "panic", fmt.Sprint(r))
		}
	}()
	fn()
}
