package signal

// Map applies f to every value of src.
func Map[A, B any](src Observable[A], f func(A) B) *Signal[B] {
	out := newSignal[B]()
	src.Subscribe(func(a A) {
		out.emit(f(a))
	})
	return out
}

// latest holds the most recent value of one combineLatest input.
type latest[T any] struct {
	v   T
	has bool
}

func (l *latest[T]) set(v T) {
	l.v = v
	l.has = true
}

// CombineLatest2 emits f(a, b) whenever a or b produces a value, once both
// have produced at least one. Equal results are not suppressed.
func CombineLatest2[A, B, R any](a Observable[A], b Observable[B], f func(A, B) R) *Signal[R] {
	out := newSignal[R]()
	var la latest[A]
	var lb latest[B]

	recompute := func() {
		if la.has && lb.has {
			out.emit(f(la.v, lb.v))
		}
	}

	a.Subscribe(func(v A) { la.set(v); recompute() })
	b.Subscribe(func(v B) { lb.set(v); recompute() })
	return out
}

// CombineLatest4 is CombineLatest2 over four inputs.
func CombineLatest4[A, B, C, D, R any](
	a Observable[A],
	b Observable[B],
	c Observable[C],
	d Observable[D],
	f func(A, B, C, D) R,
) *Signal[R] {
	out := newSignal[R]()
	var la latest[A]
	var lb latest[B]
	var lc latest[C]
	var ld latest[D]

	recompute := func() {
		if la.has && lb.has && lc.has && ld.has {
			out.emit(f(la.v, lb.v, lc.v, ld.v))
		}
	}

	a.Subscribe(func(v A) { la.set(v); recompute() })
	b.Subscribe(func(v B) { lb.set(v); recompute() })
	c.Subscribe(func(v C) { lc.set(v); recompute() })
	d.Subscribe(func(v D) { ld.set(v); recompute() })
	return out
}

// WithLatestFrom emits f(p, o) for every value p of primary, where o is the
// latest value of other. Values of other never trigger an emission on their
// own. Primary values that arrive before other has a value are dropped.
func WithLatestFrom[P, O, R any](primary Observable[P], other Observable[O], f func(P, O) R) *Signal[R] {
	out := newSignal[R]()
	var lo latest[O]

	// Subscribe to other first so a replayed primary value can sample it.
	other.Subscribe(func(v O) { lo.set(v) })
	primary.Subscribe(func(p P) {
		if lo.has {
			out.emit(f(p, lo.v))
		}
	})
	return out
}

// DistinctUntilChanged drops any value equal to the one before it.
func DistinctUntilChanged[T comparable](src Observable[T]) *Signal[T] {
	out := newSignal[T]()
	var prev latest[T]

	src.Subscribe(func(v T) {
		if prev.has && prev.v == v {
			return
		}
		prev.set(v)
		out.emit(v)
	})
	return out
}
