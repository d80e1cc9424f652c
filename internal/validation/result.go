// Package validation turns raw form text into validation results.
//
// It holds the Result value type, the Service contract the engine consumes,
// a policy-driven Service implementation (Rules), and the Join that wires
// per-field and cross-field checks into signals.
package validation

import "fmt"

// Kind tags a Result.
type Kind int

const (
	// KindEmpty means the field has no text yet.
	KindEmpty Kind = iota
	// KindValidating means an asynchronous check is in flight.
	KindValidating
	// KindValid means the field is acceptable.
	KindValid
	// KindInvalid means the text breaks a rule; Message says which.
	KindInvalid
	// KindUnavailable means the check itself could not be performed.
	KindUnavailable
)

// String returns the kind's trace name.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindValidating:
		return "validating"
	case KindValid:
		return "valid"
	case KindInvalid:
		return "invalid"
	case KindUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is an immutable validation outcome. The zero value is Empty.
// Results are comparable, which is what lets signals deduplicate them.
type Result struct {
	Kind    Kind
	Message string
}

// Empty is the result for a field with no text.
func Empty() Result { return Result{Kind: KindEmpty} }

// Validating is the pending result while an asynchronous check runs.
func Validating() Result { return Result{Kind: KindValidating} }

// Valid is an acceptable result with a human message.
func Valid(message string) Result { return Result{Kind: KindValid, Message: message} }

// Invalid is a rule violation with a human reason.
func Invalid(reason string) Result { return Result{Kind: KindInvalid, Message: reason} }

// Unavailable is the result when the validation service failed.
func Unavailable(message string) Result { return Result{Kind: KindUnavailable, Message: message} }

// IsValid reports whether the result allows submission.
func (r Result) IsValid() bool {
	return r.Kind == KindValid
}

// String renders the result for traces, e.g. `valid("Password acceptable")`
// or `empty`.
func (r Result) String() string {
	if r.Message == "" {
		return r.Kind.String()
	}
	return fmt.Sprintf("%s(%q)", r.Kind, r.Message)
}
