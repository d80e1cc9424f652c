package signal

// Dispatcher is the delivery context every signal operation runs on.
//
// Post schedules fn to run on the delivery thread after work already
// queued. It may be called from any goroutine. It returns false if the
// dispatcher has shut down, in which case fn is dropped.
type Dispatcher interface {
	Post(fn func()) bool
}

// Cancel detaches a subscriber. Calling it more than once is harmless.
type Cancel func()

// Observable is anything a combinator can subscribe to.
type Observable[T any] interface {
	Subscribe(fn func(T)) Cancel
}

type subscriber[T any] struct {
	id     uint64
	fn     func(T)
	active bool
}

// Signal is a replay-1 multicast value stream.
//
// INVARIANTS:
//   - Subscribers are notified in subscription order.
//   - A subscriber added while a value is cached receives that value
//     before Subscribe returns.
//   - A subscriber removed during delivery receives no further values,
//     including the remainder of the current delivery.
type Signal[T any] struct {
	last   T
	has    bool
	replay bool
	nextID uint64
	subs   []*subscriber[T]
}

func newSignal[T any]() *Signal[T] {
	return &Signal[T]{replay: true}
}

// Subscribe registers fn and replays the cached value, if any.
func (s *Signal[T]) Subscribe(fn func(T)) Cancel {
	s.nextID++
	sub := &subscriber[T]{id: s.nextID, fn: fn, active: true}
	s.subs = append(s.subs, sub)

	if s.replay && s.has {
		fn(s.last)
	}

	return func() {
		if !sub.active {
			return
		}
		sub.active = false
		s.remove(sub.id)
	}
}

// Value returns the cached value and whether one has been produced yet.
func (s *Signal[T]) Value() (T, bool) {
	return s.last, s.has
}

// Subscribers returns the number of attached subscribers.
func (s *Signal[T]) Subscribers() int {
	return len(s.subs)
}

// emit caches v and delivers it to a snapshot of the current subscribers.
// Subscribers attached during delivery do not see v twice: they got it
// through replay when they subscribed.
func (s *Signal[T]) emit(v T) {
	if s.replay {
		s.last = v
		s.has = true
	}

	snapshot := make([]*subscriber[T], len(s.subs))
	copy(snapshot, s.subs)
	for _, sub := range snapshot {
		if sub.active {
			sub.fn(v)
		}
	}
}

func (s *Signal[T]) remove(id uint64) {
	for i, sub := range s.subs {
		if sub.id == id {
			// Nil the slot before reslicing so the closure can be collected.
			copy(s.subs[i:], s.subs[i+1:])
			s.subs[len(s.subs)-1] = nil
			s.subs = s.subs[:len(s.subs)-1]
			return
		}
	}
}

// Source is a Signal its owner can push values into. It is the form's
// input side: text fields write into a Source.
type Source[T any] struct {
	*Signal[T]
}

// NewSource creates a Source with no value yet.
func NewSource[T any]() *Source[T] {
	return &Source[T]{Signal: newSignal[T]()}
}

// NewSourceWith creates a Source that already holds initial.
func NewSourceWith[T any](initial T) *Source[T] {
	s := NewSource[T]()
	s.last = initial
	s.has = true
	return s
}

// Emit publishes v. Must be called on the delivery thread.
func (s *Source[T]) Emit(v T) {
	s.emit(v)
}

// Events is a Source that does not replay. It models discrete ticks such
// as a button tap: a subscriber attached after a tap must not see it.
type Events[T any] struct {
	*Signal[T]
}

// NewEvents creates an empty event stream.
func NewEvents[T any]() *Events[T] {
	return &Events[T]{Signal: &Signal[T]{}}
}

// Emit delivers v to the current subscribers. Must be called on the
// delivery thread.
func (e *Events[T]) Emit(v T) {
	e.emit(v)
}
