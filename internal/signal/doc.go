// Package signal implements the replay-1 value streams the form engine is
// built from.
//
// A Signal is hot and multicast: it holds the most recently produced value
// and hands it to every new subscriber synchronously, then forwards later
// values in order. Signals never terminate and never carry errors. Any
// failure of an asynchronous operation must be turned into a value before
// it enters a Signal (see Recover and RecoverWith).
//
// THREADING:
//
// Signals have no locks. Every Emit, every Subscribe, and every combinator
// construction must happen on one logical delivery thread, represented by a
// Dispatcher. Asynchronous work (Task) runs wherever it likes, but its
// completion is always posted back onto the Dispatcher before it touches a
// Signal. A runtime that delivers on more than one goroutine must add its
// own synchronisation.
//
// COMBINATORS:
//
//   - Map: one output per input, synchronous.
//   - CombineLatest2/4: recompute on any input once every input has a value.
//   - WithLatestFrom: sample a second signal when the primary emits.
//   - DistinctUntilChanged: drop a value equal to the previous one.
//   - SwitchLatest: start a Task per input value, cancel the previous one,
//     and forward only the result of the latest Task (Generation token).
package signal
