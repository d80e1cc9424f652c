package signal

import (
	"log/slog"
	"sync/atomic"
)

type switchConfig[B any] struct {
	name       string
	pending    B
	hasPending bool
	recover    func(error) B
	logger     *slog.Logger
}

// SwitchOption configures SwitchLatest.
type SwitchOption[B any] func(*switchConfig[B])

// StartWith emits v each time a new Task is started and does not complete
// during its own start call. Used for per-field "checking..." states: a
// check answered locally skips the pending state.
func StartWith[B any](v B) SwitchOption[B] {
	return func(c *switchConfig[B]) {
		c.pending = v
		c.hasPending = true
	}
}

// RecoverWith maps a Task failure to a value instead of dropping it.
func RecoverWith[B any](fn func(error) B) SwitchOption[B] {
	return func(c *switchConfig[B]) {
		c.recover = fn
	}
}

// Named labels log lines emitted for this switch.
func Named[B any](name string) SwitchOption[B] {
	return func(c *switchConfig[B]) {
		c.name = name
	}
}

// WithLogger sets the logger used for stale and dropped completions.
func WithLogger[B any](logger *slog.Logger) SwitchOption[B] {
	return func(c *switchConfig[B]) {
		c.logger = logger
	}
}

// SwitchLatest starts the Task f(a) for every value a of src and forwards
// its result. When src produces a new value before the previous Task has
// finished, the previous Task is cancelled and its result, should it still
// arrive, is discarded.
//
// Completions are posted onto d, so Tasks may complete on any goroutine.
//
// A failed Task is mapped through RecoverWith when configured. Without it
// the failure is logged and dropped: the output signal keeps its previous
// value and is never terminated.
func SwitchLatest[A, B any](d Dispatcher, src Observable[A], f func(A) Task[B], opts ...SwitchOption[B]) *Signal[B] {
	cfg := &switchConfig[B]{name: "switch", logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	out := newSignal[B]()
	var gen Generation
	var cancel func()

	src.Subscribe(func(a A) {
		token := gen.Next()
		if cancel != nil {
			cancel()
			cancel = nil
		}

		// A Task may complete synchronously inside f(a)(...). The completion
		// is still posted, so it lands after cancel has been recorded.
		var starting, completedEarly atomic.Bool
		starting.Store(true)

		guard := &once[B]{fn: func(b B, err error) {
			if starting.Load() {
				completedEarly.Store(true)
			}
			d.Post(func() {
				if !gen.IsCurrent(token) {
					cfg.logger.Debug("discarding stale completion",
						"switch", cfg.name,
						"generation", token,
						"current", gen.Current())
					return
				}
				cancel = nil

				if err != nil {
					if cfg.recover == nil {
						cfg.logger.Warn("dropping failed task",
							"switch", cfg.name,
							"generation", token,
							"error", err)
						return
					}
					b = cfg.recover(err)
				}
				out.emit(b)
			})
		}}

		c := f(a)(guard.call)
		starting.Store(false)

		if !gen.IsCurrent(token) {
			// f(a) re-entered src and superseded itself.
			if c != nil {
				c()
			}
			return
		}
		cancel = c

		if cfg.hasPending && !completedEarly.Load() {
			out.emit(cfg.pending)
		}
	})

	return out
}
