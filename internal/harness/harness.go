package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/signupflow/internal/engine"
	"github.com/roach88/signupflow/internal/signal"
	"github.com/roach88/signupflow/internal/signup"
	"github.com/roach88/signupflow/internal/store"
	"github.com/roach88/signupflow/internal/testutil"
	"github.com/roach88/signupflow/internal/validation"
)

// errScripted is the failure delivered by "fail" outcomes.
var errScripted = errors.New("scripted failure")

// Harness drives one scenario. The engine runs on a Loop that is drained
// after every step, so each step's effects have fully propagated before
// the next one starts.
type Harness struct {
	loop    *engine.Loop
	form    *engine.Form
	store   *store.Store
	lookups *testutil.Script[bool]
	signups *testutil.Script[bool]
	prompts *signup.PromptQueue
	shown   []string
	logger  *slog.Logger

	staticLookups int

	step     int
	steps    map[int64]int
	latest   map[string]string
	writeErr error
}

type scriptedAvailability struct{ script *testutil.Script[bool] }

func (s scriptedAvailability) UsernameAvailable(username string) signal.Task[bool] {
	return s.script.Start(username)
}

// countingAvailability answers from a fixed list and counts the lookups.
type countingAvailability struct {
	static *validation.StaticAvailability
	calls  *int
}

func (c countingAvailability) UsernameAvailable(username string) signal.Task[bool] {
	*c.calls++
	return c.static.UsernameAvailable(username)
}

type scriptedAPI struct{ script *testutil.Script[bool] }

func (s scriptedAPI) Signup(username, password string) signal.Task[bool] {
	return s.script.Start(username, password)
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory emission log; the trace is
// read back from it, so a scenario exercises the same persistence path as
// a live session. Errors are returned for setup problems and for steps
// that cannot be carried out (e.g. resolving when nothing is pending).
// Failed assertions are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	policy, err := scenario.ValidationPolicy()
	if err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		loop:    engine.NewLoop(),
		store:   st,
		lookups: testutil.NewScript[bool](),
		signups: testutil.NewScript[bool](),
		logger:  slog.New(slog.DiscardHandler),
		steps:   make(map[int64]int),
		latest:  make(map[string]string),
	}
	h.prompts = signup.NewPromptQueue(func(p signup.Prompt) {
		h.shown = append(h.shown, p.Message)
	})

	var availability validation.Availability = scriptedAvailability{h.lookups}
	if len(scenario.Taken) > 0 {
		availability = countingAvailability{
			static: validation.NewStaticAvailability(scenario.Taken...),
			calls:  &h.staticLookups,
		}
	}

	rules, err := validation.NewRules(policy, availability)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation rules: %w", err)
	}

	h.form, err = engine.NewForm(h.loop, engine.Dependencies{
		Validation: rules,
		API:        scriptedAPI{h.signups},
		Wireframe:  h.prompts,
	},
		engine.WithLogger(h.logger),
		engine.WithSessionID(scenario.SessionID()))
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	h.form.Engine().Observe(func(em engine.Emission) { h.record(ctx, em) })
	h.loop.Drain()

	result := NewResult()
	result.Snapshots = append(result.Snapshots, h.snapshot("setup"))

	for i, step := range scenario.Steps {
		h.step = i + 1
		if err := h.execute(step); err != nil {
			return nil, fmt.Errorf("steps[%d] (%s): %w", i, step.Describe(), err)
		}
		h.loop.Drain()
		result.Snapshots = append(result.Snapshots, h.snapshot(step.Describe()))
	}
	h.loop.Stop()

	if h.writeErr != nil {
		return nil, fmt.Errorf("failed to log emission: %w", h.writeErr)
	}
	if err := h.readTrace(ctx, result); err != nil {
		return nil, err
	}

	result.Prompts = append([]string{}, h.shown...)
	result.Calls[TargetUsername] = h.lookups.Len() + h.staticLookups
	result.Calls[TargetSignup] = h.signups.Len()
	result.Calls[TargetPrompt] = len(h.shown)

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// record logs an emission and remembers output values for snapshots.
func (h *Harness) record(ctx context.Context, em engine.Emission) {
	h.steps[em.Seq] = h.step
	if isOutput(em.Signal) {
		h.latest[em.Signal] = em.Value
	}
	if h.writeErr != nil {
		return
	}
	h.writeErr = h.store.WriteEmission(ctx, store.Emission{
		SessionID: em.Session,
		Seq:       em.Seq,
		Signal:    em.Signal,
		Value:     em.Value,
	})
}

func (h *Harness) readTrace(ctx context.Context, result *Result) error {
	rows, err := h.store.ReadSession(ctx, h.form.Engine().Session())
	if err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}
	if len(rows) != len(h.steps) {
		return fmt.Errorf("trace has %d rows, observed %d emissions", len(rows), len(h.steps))
	}
	for _, row := range rows {
		result.Trace = append(result.Trace, TraceEvent{
			Step:   h.steps[row.Seq],
			Seq:    row.Seq,
			Signal: row.Signal,
			Value:  row.Value,
		})
	}
	return nil
}

func (h *Harness) execute(st Step) error {
	switch {
	case st.Set != nil:
		var ok bool
		switch st.Set.Field {
		case FieldUsername:
			ok = h.form.SetUsername(st.Set.Value)
		case FieldPassword:
			ok = h.form.SetPassword(st.Set.Value)
		case FieldRepeatedPassword:
			ok = h.form.SetRepeatedPassword(st.Set.Value)
		default:
			return fmt.Errorf("unknown field %q", st.Set.Field)
		}
		if !ok {
			return fmt.Errorf("loop rejected input")
		}
	case st.Submit:
		if !h.form.Submit() {
			return fmt.Errorf("loop rejected submit")
		}
	case st.Resolve != nil:
		return h.resolve(st.Resolve)
	case st.Acknowledge:
		if !h.prompts.Acknowledge() {
			return fmt.Errorf("no prompt is open")
		}
	case st.Dismiss:
		if !h.prompts.Dismiss() {
			return fmt.Errorf("no prompt is open")
		}
	default:
		return fmt.Errorf("step has no action")
	}
	return nil
}

func (h *Harness) resolve(r *ResolveStep) error {
	script := h.lookups
	if r.Target == TargetSignup {
		script = h.signups
	}

	pending := script.Pending()
	if len(pending) == 0 {
		return fmt.Errorf("no pending %s call", r.Target)
	}
	call := pending[len(pending)-1]
	if r.Which == WhichOldest {
		call = pending[0]
	}

	switch r.Outcome {
	case OutcomeAvailable, OutcomeSuccess:
		call.Resolve(true)
	case OutcomeTaken, OutcomeRejected:
		call.Resolve(false)
	case OutcomeFail:
		call.Fail(errScripted)
	default:
		return fmt.Errorf("unknown outcome %q", r.Outcome)
	}
	return nil
}

// snapshot captures the outputs and the live collaborator calls.
func (h *Harness) snapshot(label string) Snapshot {
	values := make(map[string]string, len(h.latest))
	for k, v := range h.latest {
		values[k] = v
	}
	return Snapshot{
		Step:   h.step,
		Label:  label,
		Values: values,
		Pending: map[string]int{
			TargetUsername: live(h.lookups),
			TargetSignup:   live(h.signups),
			TargetPrompt:   len(h.prompts.Pending()),
		},
	}
}

// live counts pending calls whose caller still wants the answer.
func live(s *testutil.Script[bool]) int {
	n := 0
	for _, c := range s.Pending() {
		if !c.Cancelled() {
			n++
		}
	}
	return n
}
