package engine

import (
	"log/slog"
	"strconv"

	"github.com/roach88/signupflow/internal/activity"
	"github.com/roach88/signupflow/internal/gate"
	"github.com/roach88/signupflow/internal/metrics"
	"github.com/roach88/signupflow/internal/signal"
	"github.com/roach88/signupflow/internal/signup"
	"github.com/roach88/signupflow/internal/validation"
)

// Output trace names, in the order Observe reports them.
const (
	OutputValidatedUsername         = "validated_username"
	OutputValidatedPassword         = "validated_password"
	OutputValidatedPasswordRepeated = "validated_password_repeated"
	OutputSignupEnabled             = "signup_enabled"
	OutputSignedIn                  = "signed_in"
	OutputSigningIn                 = "signing_in"
)

// Inputs are the four signals the form feeds the engine.
type Inputs struct {
	Username         signal.Observable[string]
	Password         signal.Observable[string]
	RepeatedPassword signal.Observable[string]
	Submits          signal.Observable[struct{}]
}

// Dependencies are the engine's collaborators.
type Dependencies struct {
	Validation validation.Service
	API        signup.API
	Wireframe  signup.Wireframe
}

// Emission is one value of one signal, stamped for the trace.
type Emission struct {
	Session string
	Seq     int64
	Signal  string
	Value   string
}

// Output is a named, trace-renderable engine output.
type Output struct {
	Name      string
	subscribe func(fn func(string)) signal.Cancel
}

// Engine is the signup form's reactive core.
//
// It owns no mutable state except the activity tracker's counter; every
// output is derived from the inputs by the signal graph built in New.
//
// CRITICAL: New, Observe, and every accessor must be called on the
// delivery thread the engine was built with.
type Engine struct {
	session string
	clock   *Clock
	logger  *slog.Logger

	tracker       *activity.Tracker
	validated     validation.Validated
	signupEnabled *signal.Signal[bool]
	signedIn      *signal.Signal[bool]

	outputs   []Output
	observers []func(Emission)
	latest    map[string]Emission
}

type engineConfig struct {
	logger  *slog.Logger
	metrics metrics.Recorder
	session string
	ids     SessionIDGenerator
	clock   *Clock
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithLogger sets the logger for the engine and every component it wires.
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithMetrics reports activity, validation, and signup metrics to rec.
func WithMetrics(rec metrics.Recorder) Option {
	return func(c *engineConfig) {
		c.metrics = rec
	}
}

// WithSessionID names the session explicitly.
func WithSessionID(id string) Option {
	return func(c *engineConfig) {
		c.session = id
	}
}

// WithSessionIDGenerator draws the session id from gen.
// Ignored when WithSessionID is also given.
func WithSessionIDGenerator(gen SessionIDGenerator) Option {
	return func(c *engineConfig) {
		c.ids = gen
	}
}

// WithClock stamps emissions from clock instead of a fresh one.
func WithClock(clock *Clock) Option {
	return func(c *engineConfig) {
		c.clock = clock
	}
}

// New wires the engine: Tracker, then the validation Join, then the submit
// Coordinator, then the Gate.
//
// Returns an *Error when an input or dependency is missing.
func New(d signal.Dispatcher, in Inputs, deps Dependencies, opts ...Option) (*Engine, error) {
	if d == nil {
		return nil, missingDependency("Dispatcher")
	}
	if err := checkInputs(in); err != nil {
		return nil, err
	}
	if err := checkDependencies(deps); err != nil {
		return nil, err
	}

	cfg := &engineConfig{
		logger:  slog.Default(),
		metrics: metrics.Nop(),
		ids:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.session == "" {
		cfg.session = cfg.ids.Generate()
	}
	if cfg.clock == nil {
		cfg.clock = NewClock()
	}

	logger := cfg.logger.With("session", cfg.session)

	e := &Engine{
		session: cfg.session,
		clock:   cfg.clock,
		logger:  logger,
		latest:  make(map[string]Emission),
	}

	e.tracker = activity.NewTracker(d,
		activity.WithMetrics(cfg.metrics),
		activity.WithLogger(logger))

	e.validated = validation.Join(d, validation.Inputs{
		Username:         in.Username,
		Password:         in.Password,
		RepeatedPassword: in.RepeatedPassword,
	}, deps.Validation,
		validation.WithLogger(logger),
		validation.WithMetrics(cfg.metrics))

	coordinator := signup.NewCoordinator(d, signup.CoordinatorInput{
		Username: in.Username,
		Password: in.Password,
		Submits:  in.Submits,
	}, deps.API, deps.Wireframe, e.tracker,
		signup.WithLogger(logger),
		signup.WithMetrics(cfg.metrics))
	e.signedIn = coordinator.SignedIn()

	e.signupEnabled = gate.New(
		e.validated.Username,
		e.validated.Password,
		e.validated.RepeatedPassword,
		e.tracker.Busy())

	e.outputs = []Output{
		resultOutput(OutputValidatedUsername, e.validated.Username),
		resultOutput(OutputValidatedPassword, e.validated.Password),
		resultOutput(OutputValidatedPasswordRepeated, e.validated.RepeatedPassword),
		boolOutput(OutputSignupEnabled, e.signupEnabled),
		boolOutput(OutputSignedIn, e.signedIn),
		boolOutput(OutputSigningIn, e.tracker.Busy()),
	}
	for _, out := range e.outputs {
		name := out.Name
		out.subscribe(func(v string) { e.publish(name, v) })
	}

	logger.Debug("engine wired")
	return e, nil
}

func checkInputs(in Inputs) error {
	switch {
	case in.Username == nil:
		return missingInput("Username")
	case in.Password == nil:
		return missingInput("Password")
	case in.RepeatedPassword == nil:
		return missingInput("RepeatedPassword")
	case in.Submits == nil:
		return missingInput("Submits")
	}
	return nil
}

func checkDependencies(deps Dependencies) error {
	switch {
	case deps.Validation == nil:
		return missingDependency("Validation")
	case deps.API == nil:
		return missingDependency("API")
	case deps.Wireframe == nil:
		return missingDependency("Wireframe")
	}
	return nil
}

func resultOutput(name string, s *signal.Signal[validation.Result]) Output {
	return Output{
		Name: name,
		subscribe: func(fn func(string)) signal.Cancel {
			return s.Subscribe(func(r validation.Result) { fn(r.String()) })
		},
	}
}

func boolOutput(name string, s *signal.Signal[bool]) Output {
	return Output{
		Name: name,
		subscribe: func(fn func(string)) signal.Cancel {
			return s.Subscribe(func(b bool) { fn(strconv.FormatBool(b)) })
		},
	}
}

// publish stamps a value and hands it to every observer.
func (e *Engine) publish(name, value string) {
	em := Emission{
		Session: e.session,
		Seq:     e.clock.Next(),
		Signal:  name,
		Value:   value,
	}
	if e.isOutput(name) {
		e.latest[name] = em
	}
	for _, fn := range e.observers {
		fn(em)
	}
}

func (e *Engine) isOutput(name string) bool {
	for _, out := range e.outputs {
		if out.Name == name {
			return true
		}
	}
	return false
}

// Observe calls fn with every emission from now on. The latest emission of
// each output that has a value is replayed first, in output order, with
// its original seq.
func (e *Engine) Observe(fn func(Emission)) {
	for _, out := range e.outputs {
		if em, ok := e.latest[out.Name]; ok {
			fn(em)
		}
	}
	e.observers = append(e.observers, fn)
}

// Session returns the session id stamped on every emission.
func (e *Engine) Session() string {
	return e.session
}

// Outputs lists the six outputs in trace order.
func (e *Engine) Outputs() []Output {
	out := make([]Output, len(e.outputs))
	copy(out, e.outputs)
	return out
}

// ValidatedUsername is the username field's result.
func (e *Engine) ValidatedUsername() *signal.Signal[validation.Result] {
	return e.validated.Username
}

// ValidatedPassword is the password field's result.
func (e *Engine) ValidatedPassword() *signal.Signal[validation.Result] {
	return e.validated.Password
}

// ValidatedPasswordRepeated is the repeated password field's result.
func (e *Engine) ValidatedPasswordRepeated() *signal.Signal[validation.Result] {
	return e.validated.RepeatedPassword
}

// SignupEnabled is true when the form may be submitted.
func (e *Engine) SignupEnabled() *signal.Signal[bool] {
	return e.signupEnabled
}

// SignedIn carries the result of each finished attempt.
func (e *Engine) SignedIn() *signal.Signal[bool] {
	return e.signedIn
}

// SigningIn is true while a signup call is in flight.
func (e *Engine) SigningIn() *signal.Signal[bool] {
	return e.tracker.Busy()
}

// State is a snapshot of every output.
type State struct {
	Username         validation.Result
	Password         validation.Result
	RepeatedPassword validation.Result
	SignupEnabled    bool
	SigningIn        bool

	// SignedIn is meaningful only when HasSignedIn is true.
	SignedIn    bool
	HasSignedIn bool
}

// Decision explains the submit gate for this snapshot.
func (s State) Decision() gate.Decision {
	return gate.Evaluate(s.Username, s.Password, s.RepeatedPassword, s.SigningIn)
}

// State reads the current value of every output.
func (e *Engine) State() State {
	var s State
	s.Username, _ = e.validated.Username.Value()
	s.Password, _ = e.validated.Password.Value()
	s.RepeatedPassword, _ = e.validated.RepeatedPassword.Value()
	s.SignupEnabled, _ = e.signupEnabled.Value()
	s.SigningIn, _ = e.tracker.Busy().Value()
	s.SignedIn, s.HasSignedIn = e.signedIn.Value()
	return s
}
