package harness

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] step %d %s = %s\n", ev.Seq, ev.Step, ev.Signal, ev.Value)
		}
	}
	return buf.String()
}

// assertFinal checks that each named output ends with the given value.
func assertFinal(result *Result, a Assertion) error {
	final := result.Final()

	names := make([]string, 0, len(a.Values))
	for name := range a.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	var mismatches []string
	for _, name := range names {
		got, ok := final[name]
		if !ok {
			got = "<no value>"
		}
		if got != a.Values[name] {
			mismatches = append(mismatches, fmt.Sprintf("%s = %s (want %s)", name, got, a.Values[name]))
		}
	}
	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinal,
		Expected: fmt.Sprintf("%v", a.Values),
		Actual:   strings.Join(mismatches, "; "),
		Trace:    result.Trace,
	}
}

// assertSequence checks the exact list of values a signal emitted.
func assertSequence(result *Result, a Assertion) error {
	got := result.Values(a.Signal)
	if len(got) == 0 && len(a.Sequence) == 0 {
		return nil
	}
	if reflect.DeepEqual(got, a.Sequence) {
		return nil
	}
	return &AssertionError{
		Type:     AssertSequence,
		Expected: fmt.Sprintf("%s emits %v", a.Signal, a.Sequence),
		Actual:   fmt.Sprintf("%s emitted %v", a.Signal, got),
		Trace:    result.Trace,
	}
}

// assertCount checks how often a signal emitted one value.
func assertCount(result *Result, a Assertion) error {
	n := 0
	for _, v := range result.Values(a.Signal) {
		if v == a.Value {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCount,
		Expected: fmt.Sprintf("%s = %s exactly %d times", a.Signal, a.Value, a.Count),
		Actual:   fmt.Sprintf("found %d times", n),
		Trace:    result.Trace,
	}
}

// assertNever checks that a signal never emitted a value.
func assertNever(result *Result, a Assertion) error {
	for _, ev := range result.Trace {
		if ev.Signal == a.Signal && ev.Value == a.Value {
			return &AssertionError{
				Type:     AssertNever,
				Expected: fmt.Sprintf("%s never emits %s", a.Signal, a.Value),
				Actual:   fmt.Sprintf("emitted at seq %d (step %d)", ev.Seq, ev.Step),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

func assertPrompts(result *Result, a Assertion) error {
	if len(result.Prompts) == 0 && len(a.Messages) == 0 {
		return nil
	}
	if reflect.DeepEqual(result.Prompts, a.Messages) {
		return nil
	}
	return &AssertionError{
		Type:     AssertPrompts,
		Expected: fmt.Sprintf("prompts %q", a.Messages),
		Actual:   fmt.Sprintf("prompts %q", result.Prompts),
	}
}

func assertCalls(result *Result, a Assertion) error {
	if got := result.Calls[a.Target]; got != a.Count {
		return &AssertionError{
			Type:     AssertCalls,
			Expected: fmt.Sprintf("%d %s calls", a.Count, a.Target),
			Actual:   fmt.Sprintf("%d %s calls", got, a.Target),
		}
	}
	return nil
}

// EvaluateAssertions runs every assertion and returns one message per
// failure, prefixed with the assertion index.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertFinal:
			err = assertFinal(result, a)
		case AssertSequence:
			err = assertSequence(result, a)
		case AssertCount:
			err = assertCount(result, a)
		case AssertNever:
			err = assertNever(result, a)
		case AssertPrompts:
			err = assertPrompts(result, a)
		case AssertCalls:
			err = assertCalls(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %s", i, err.Error()))
		}
	}
	return errs
}
