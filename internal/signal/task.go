package signal

import (
	"context"
	"sync"
)

// Task is an asynchronous operation that produces one value or one error.
//
// Calling a Task starts it. The Task must not block: it arranges for done
// to be called later, from any goroutine. Only the first call to done
// counts. The returned cancel func is invoked on the delivery thread when
// the Task's result is no longer wanted; it must be safe to call after
// done, and a cancelled Task may still call done (the caller discards it).
type Task[T any] func(done func(T, error)) (cancel func())

func noop() {}

// Go runs fn on its own goroutine with a context that is cancelled when the
// Task is cancelled. Blocking collaborators (HTTP clients, timers) are
// adapted to Tasks with Go.
func Go[T any](fn func(ctx context.Context) (T, error)) Task[T] {
	return func(done func(T, error)) func() {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			defer cancel()
			v, err := fn(ctx)
			done(v, err)
		}()
		return cancel
	}
}

// Just completes immediately with v.
func Just[T any](v T) Task[T] {
	return func(done func(T, error)) func() {
		done(v, nil)
		return noop
	}
}

// Fail completes immediately with err.
func Fail[T any](err error) Task[T] {
	return func(done func(T, error)) func() {
		var zero T
		done(zero, err)
		return noop
	}
}

// Never never completes. It models a hung collaborator.
func Never[T any]() Task[T] {
	return func(done func(T, error)) func() {
		return noop
	}
}

// MapTask transforms the value of a successful Task. Errors pass through.
func MapTask[A, B any](t Task[A], f func(A) B) Task[B] {
	return func(done func(B, error)) func() {
		return t(func(a A, err error) {
			if err != nil {
				var zero B
				done(zero, err)
				return
			}
			done(f(a), nil)
		})
	}
}

// Recover turns a failed Task into a successful one whose value is
// fallback(err). This is how failures become values at the point they
// enter the engine.
func Recover[T any](t Task[T], fallback func(error) T) Task[T] {
	return func(done func(T, error)) func() {
		return t(func(v T, err error) {
			if err != nil {
				done(fallback(err), nil)
				return
			}
			done(v, nil)
		})
	}
}

// once guards done against double completion from misbehaving Tasks.
// Tasks may complete off the delivery thread, hence the mutex.
type once[T any] struct {
	mu   sync.Mutex
	done bool
	fn   func(T, error)
}

func (o *once[T]) call(v T, err error) {
	o.mu.Lock()
	if o.done {
		o.mu.Unlock()
		return
	}
	o.done = true
	o.mu.Unlock()
	o.fn(v, err)
}
