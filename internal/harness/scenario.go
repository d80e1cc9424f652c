package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/signupflow/internal/engine"
	"github.com/roach88/signupflow/internal/validation"
)

// Scenario is a scripted session against the signup engine: a list of
// user actions and collaborator answers, then assertions on what the
// engine emitted.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Policy is optional CUE source for the validation rules. Empty means
	// the default policy.
	Policy string `yaml:"policy,omitempty"`

	// Taken, when non-empty, makes username lookups answer immediately:
	// listed names are taken, all others available. Without it every
	// lookup stays pending until a resolve step settles it.
	Taken []string `yaml:"taken,omitempty"`

	// Session is the session id stamped on emissions. Defaults to
	// DefaultSession so golden files stay stable.
	Session string `yaml:"session,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// DefaultSession is used when a scenario names no session.
const DefaultSession = "scenario"

// Step is one thing that happens to the form. Exactly one field is set.
type Step struct {
	// Set types into a text field.
	Set *SetStep `yaml:"set,omitempty"`

	// Submit taps the submit button.
	Submit bool `yaml:"submit,omitempty"`

	// Resolve answers a pending collaborator call.
	Resolve *ResolveStep `yaml:"resolve,omitempty"`

	// Acknowledge taps the default action of the oldest open prompt.
	Acknowledge bool `yaml:"acknowledge,omitempty"`

	// Dismiss closes the oldest open prompt without an action.
	Dismiss bool `yaml:"dismiss,omitempty"`
}

// SetStep replaces the text of one field.
type SetStep struct {
	Field string `yaml:"field"`
	Value string `yaml:"value"`
}

// ResolveStep settles one pending call of a scripted collaborator.
type ResolveStep struct {
	// Target is TargetUsername or TargetSignup.
	Target string `yaml:"target"`

	// Outcome depends on Target: available, taken or fail for usernames;
	// success, rejected or fail for signups.
	Outcome string `yaml:"outcome"`

	// Which picks among pending calls: latest (default) or oldest.
	Which string `yaml:"which,omitempty"`
}

// Form fields.
const (
	FieldUsername         = "username"
	FieldPassword         = "password"
	FieldRepeatedPassword = "repeated_password"
)

// Collaborator targets.
const (
	TargetUsername = "username"
	TargetSignup   = "signup"
	TargetPrompt   = "prompt"
)

// Outcomes.
const (
	OutcomeAvailable = "available"
	OutcomeTaken     = "taken"
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeFail      = "fail"
)

// Call selectors.
const (
	WhichLatest = "latest"
	WhichOldest = "oldest"
)

// Assertion validates the trace or the final outputs.
type Assertion struct {
	// Type specifies the assertion type:
	//   - "final": outputs hold Values after the last step
	//   - "sequence": Signal emitted exactly Sequence, in order
	//   - "count": Signal emitted Value exactly Count times
	//   - "never": Signal never emitted Value
	//   - "prompts": the user was shown exactly Messages, in order
	//   - "calls": Target was called exactly Count times
	Type string `yaml:"type"`

	Signal   string            `yaml:"signal,omitempty"`
	Value    string            `yaml:"value,omitempty"`
	Values   map[string]string `yaml:"values,omitempty"`
	Sequence []string          `yaml:"sequence,omitempty"`
	Count    int               `yaml:"count,omitempty"`
	Messages []string          `yaml:"messages,omitempty"`
	Target   string            `yaml:"target,omitempty"`
}

// Assertion type constants.
const (
	AssertFinal    = "final"
	AssertSequence = "sequence"
	AssertCount    = "count"
	AssertNever    = "never"
	AssertPrompts  = "prompts"
	AssertCalls    = "calls"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario is LoadScenario for in-memory YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// ValidationPolicy returns the scenario's policy, parsed.
func (s *Scenario) ValidationPolicy() (validation.Policy, error) {
	if s.Policy == "" {
		return validation.DefaultPolicy(), nil
	}
	return validation.ParsePolicy(s.Name+".policy", []byte(s.Policy))
}

// SessionID returns the session id to stamp, applying the default.
func (s *Scenario) SessionID() string {
	if s.Session == "" {
		return DefaultSession
	}
	return s.Session
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if _, err := s.ValidationPolicy(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
		if len(s.Taken) > 0 && step.Resolve != nil && step.Resolve.Target == TargetUsername {
			return fmt.Errorf("steps[%d]: username lookups answer immediately when taken is set", i)
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateStep checks that a step names exactly one well-formed action.
func validateStep(index int, st *Step) error {
	actions := 0
	for _, set := range []bool{st.Set != nil, st.Submit, st.Resolve != nil, st.Acknowledge, st.Dismiss} {
		if set {
			actions++
		}
	}
	if actions != 1 {
		return fmt.Errorf("steps[%d]: exactly one of set, submit, resolve, acknowledge, dismiss is required (got %d)", index, actions)
	}

	switch {
	case st.Set != nil:
		switch st.Set.Field {
		case FieldUsername, FieldPassword, FieldRepeatedPassword:
		default:
			return fmt.Errorf("steps[%d]: unknown field %q", index, st.Set.Field)
		}
	case st.Resolve != nil:
		r := st.Resolve
		var outcomes []string
		switch r.Target {
		case TargetUsername:
			outcomes = []string{OutcomeAvailable, OutcomeTaken, OutcomeFail}
		case TargetSignup:
			outcomes = []string{OutcomeSuccess, OutcomeRejected, OutcomeFail}
		default:
			return fmt.Errorf("steps[%d]: unknown resolve target %q", index, r.Target)
		}
		if !contains(outcomes, r.Outcome) {
			return fmt.Errorf("steps[%d]: outcome %q is not valid for %s (want one of %v)", index, r.Outcome, r.Target, outcomes)
		}
		switch r.Which {
		case "", WhichLatest, WhichOldest:
		default:
			return fmt.Errorf("steps[%d]: which must be latest or oldest, got %q", index, r.Which)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertFinal:
		if len(a.Values) == 0 {
			return fmt.Errorf("assertions[%d]: values is required for final", index)
		}
		for name := range a.Values {
			if !isOutput(name) {
				return fmt.Errorf("assertions[%d]: unknown output %q", index, name)
			}
		}
	case AssertSequence:
		if !isSignal(a.Signal) {
			return fmt.Errorf("assertions[%d]: unknown signal %q for sequence", index, a.Signal)
		}
	case AssertCount:
		if !isSignal(a.Signal) {
			return fmt.Errorf("assertions[%d]: unknown signal %q for count", index, a.Signal)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for count", index)
		}
	case AssertNever:
		if !isSignal(a.Signal) {
			return fmt.Errorf("assertions[%d]: unknown signal %q for never", index, a.Signal)
		}
	case AssertPrompts:
		// An empty list asserts that no prompt was shown.
	case AssertCalls:
		switch a.Target {
		case TargetUsername, TargetSignup, TargetPrompt:
		default:
			return fmt.Errorf("assertions[%d]: unknown target %q for calls", index, a.Target)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for calls", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

var outputNames = []string{
	engine.OutputValidatedUsername,
	engine.OutputValidatedPassword,
	engine.OutputValidatedPasswordRepeated,
	engine.OutputSignupEnabled,
	engine.OutputSignedIn,
	engine.OutputSigningIn,
}

var inputNames = []string{
	engine.InputUsername,
	engine.InputPassword,
	engine.InputRepeatedPassword,
	engine.InputSubmit,
}

func isOutput(name string) bool {
	return contains(outputNames, name)
}

func isSignal(name string) bool {
	return isOutput(name) || contains(inputNames, name)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Describe renders a step for traces, e.g. "set username=alice".
// Password values are masked.
func (st Step) Describe() string {
	switch {
	case st.Set != nil:
		v := st.Set.Value
		if st.Set.Field != FieldUsername {
			v = mask(v)
		}
		return fmt.Sprintf("set %s=%q", st.Set.Field, v)
	case st.Submit:
		return "submit"
	case st.Resolve != nil:
		which := st.Resolve.Which
		if which == "" {
			which = WhichLatest
		}
		return fmt.Sprintf("resolve %s %s (%s)", which, st.Resolve.Target, st.Resolve.Outcome)
	case st.Acknowledge:
		return "acknowledge"
	case st.Dismiss:
		return "dismiss"
	}
	return "noop"
}

func mask(s string) string {
	out := make([]rune, 0, len(s))
	for range s {
		out = append(out, '*')
	}
	return string(out)
}
