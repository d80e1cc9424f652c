// Package gate decides whether the signup form may be submitted.
package gate

import (
	"github.com/roach88/signupflow/internal/signal"
	"github.com/roach88/signupflow/internal/validation"
)

// Allow reports whether submission is permitted: all three fields are
// Valid and no operation is in flight.
func Allow(username, password, repeated validation.Result, busy bool) bool {
	return username.IsValid() && password.IsValid() && repeated.IsValid() && !busy
}

// Decision is Allow with the reasons it was refused.
type Decision struct {
	Allow bool

	// Blockers names each reason in field order, e.g.
	// "username: validating" or "busy". Empty when Allow is true.
	Blockers []string
}

// Evaluate explains the gate for one set of inputs. Allow and Evaluate
// always agree.
func Evaluate(username, password, repeated validation.Result, busy bool) Decision {
	var blockers []string
	check := func(field string, r validation.Result) {
		if r.IsValid() {
			return
		}
		reason := field + ": " + r.Kind.String()
		if r.Message != "" {
			reason += " (" + r.Message + ")"
		}
		blockers = append(blockers, reason)
	}

	check(validation.FieldUsername, username)
	check(validation.FieldPassword, password)
	check(validation.FieldRepeatedPassword, repeated)
	if busy {
		blockers = append(blockers, "busy")
	}

	return Decision{
		Allow:    len(blockers) == 0,
		Blockers: blockers,
	}
}

// New derives the submit-enabled signal. It recomputes Allow whenever any
// input changes and emits only actual transitions.
func New(
	username, password, repeated signal.Observable[validation.Result],
	busy signal.Observable[bool],
) *signal.Signal[bool] {
	allowed := signal.CombineLatest4[validation.Result, validation.Result, validation.Result, bool, bool](
		username, password, repeated, busy, Allow)
	return signal.DistinctUntilChanged[bool](allowed)
}
