package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/signupflow/internal/config"
	"github.com/roach88/signupflow/internal/engine"
	"github.com/roach88/signupflow/internal/gate"
	"github.com/roach88/signupflow/internal/metrics"
	"github.com/roach88/signupflow/internal/signup"
	"github.com/roach88/signupflow/internal/store"
	"github.com/roach88/signupflow/internal/validation"
)

// waitTimeout bounds the "wait" command.
const waitTimeout = 30 * time.Second

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database          string
	Policy            string
	UsernameCheckURL  string
	Taken             []string
	SignupDelay       time.Duration
	SignupFailureRate float64
	MetricsAddr       string
	HTTPTimeout       time.Duration
	Seed              uint64

	// SessionIDs overrides the session id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	SessionIDs engine.SessionIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fill in the signup form interactively",
		Long: `Run the signup form on stdin.

Commands, one per line:
  username <text>   set the username field
  password <text>   set the password field
  repeat <text>     set the repeated password field
  submit            tap the signup button (refused while it is disabled)
  ok                acknowledge the oldest prompt
  dismiss           close the oldest prompt without acknowledging
  wait              block until the current signup attempt finishes
  status            print every output and why signup is blocked
  help              list commands
  quit              exit

Every output change is printed as "<output> = <value>". Settings not given
as flags are read from SIGNUPFLOW_* environment variables.

Examples:
  signupflow run
  signupflow run --db ./signup.db --taken admin,root,alice
  signupflow run --username-check-url https://api.github.com/users --metrics-addr :9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid environment", err)
			}
			applyConfig(cmd, opts, cfg)
			return runSession(opts, cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Database, "db", "", "log emissions to this SQLite database")
	f.StringVar(&opts.Policy, "policy", "", "CUE validation policy file")
	f.StringVar(&opts.UsernameCheckURL, "username-check-url", "", "check availability with GET <url>/<username> (404 = free)")
	f.StringSliceVar(&opts.Taken, "taken", nil, "usernames treated as taken when no check URL is set")
	f.DurationVar(&opts.SignupDelay, "signup-delay", 0, "simulated signup latency")
	f.Float64Var(&opts.SignupFailureRate, "signup-failure-rate", 0, "probability that a simulated signup fails")
	f.StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.DurationVar(&opts.HTTPTimeout, "http-timeout", 0, "timeout for availability requests")
	f.Uint64Var(&opts.Seed, "seed", 0, "seed for simulated failures (0 = random)")

	return cmd
}

// applyConfig fills every flag the user did not set from cfg.
func applyConfig(cmd *cobra.Command, opts *RunOptions, cfg config.Config) {
	changed := cmd.Flags().Changed

	if !changed("db") {
		opts.Database = cfg.DB
	}
	if !changed("policy") {
		opts.Policy = cfg.Policy
	}
	if !changed("username-check-url") {
		opts.UsernameCheckURL = cfg.UsernameCheckURL
	}
	if !changed("taken") {
		opts.Taken = cfg.TakenUsernames
	}
	if !changed("signup-delay") {
		opts.SignupDelay = cfg.SignupDelay
	}
	if !changed("signup-failure-rate") {
		opts.SignupFailureRate = cfg.SignupFailureRate
	}
	if !changed("metrics-addr") {
		opts.MetricsAddr = cfg.MetricsAddr
	}
	if !changed("http-timeout") {
		opts.HTTPTimeout = cfg.HTTPTimeout
	}
}

// syncWriter serializes writes from the loop and the input goroutine.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// session is one interactive run.
type session struct {
	opts    *RunOptions
	loop    *engine.Loop
	form    *engine.Form
	prompts *signup.PromptQueue
	out     io.Writer
}

func runSession(opts *RunOptions, cmd *cobra.Command) error {
	if opts.SignupFailureRate < 0 || opts.SignupFailureRate > 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--signup-failure-rate must be within [0, 1], got %g", opts.SignupFailureRate))
	}

	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildDependencies(opts, logger)
	if err != nil {
		return err
	}

	out := &syncWriter{w: cmd.OutOrStdout()}
	s := &session{
		opts: opts,
		loop: engine.NewLoop(engine.WithLoopLogger(logger)),
		out:  out,
	}
	s.prompts = signup.NewPromptQueue(func(p signup.Prompt) {
		fmt.Fprintf(out, "[prompt] %s (type %s)\n", p.Message, strings.ToLower(p.CancelAction))
	})
	deps.Wireframe = s.prompts

	rec := metrics.Nop()
	if opts.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		rec = metrics.NewPrometheusRecorder(reg)
		shutdown := serveMetrics(opts.MetricsAddr, reg, logger)
		defer shutdown()
	}

	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithMetrics(rec),
	}
	if opts.SessionIDs != nil {
		engineOpts = append(engineOpts, engine.WithSessionIDGenerator(opts.SessionIDs))
	}

	// Nothing runs the loop yet, so this goroutine is the delivery thread.
	s.form, err = engine.NewForm(s.loop, deps, engineOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create engine", err)
	}

	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		s.form.Engine().Observe(logTo(ctx, st, logger))
	}

	fmt.Fprintf(out, "session %s\n", s.form.Engine().Session())
	s.form.Engine().Observe(func(em engine.Emission) {
		if !strings.HasPrefix(em.Signal, "input.") {
			fmt.Fprintf(out, "%s = %s\n", em.Signal, em.Value)
		}
	})

	loopDone := make(chan error, 1)
	go func() { loopDone <- s.loop.Run(ctx) }()

	err = s.readCommands(ctx, cmd.InOrStdin())

	s.loop.Stop()
	if loopErr := <-loopDone; loopErr != nil && !errors.Is(loopErr, context.Canceled) {
		return WrapExitError(ExitFailure, "loop error", loopErr)
	}
	logger.Debug("session ended", "session", s.form.Engine().Session())
	return err
}

// buildDependencies wires validation and the simulated signup API from
// the options. The Wireframe is filled in by the caller.
func buildDependencies(opts *RunOptions, logger *slog.Logger) (engine.Dependencies, error) {
	policy := validation.DefaultPolicy()
	if opts.Policy != "" {
		p, err := validation.LoadPolicy(opts.Policy)
		if err != nil {
			return engine.Dependencies{}, WrapExitError(ExitCommandError, "failed to load policy", err)
		}
		policy = p
	}

	var availability validation.Availability
	if opts.UsernameCheckURL != "" {
		availability = validation.NewHTTPAvailability(opts.UsernameCheckURL, &http.Client{Timeout: opts.HTTPTimeout})
		logger.Debug("checking usernames over HTTP", "url", opts.UsernameCheckURL)
	} else {
		availability = validation.NewStaticAvailability(opts.Taken...)
		logger.Debug("checking usernames against a fixed list", "taken", opts.Taken)
	}

	rules, err := validation.NewRules(policy, availability)
	if err != nil {
		return engine.Dependencies{}, WrapExitError(ExitCommandError, "failed to create validation rules", err)
	}

	var rng *rand.Rand
	if opts.Seed != 0 {
		rng = rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	}

	return engine.Dependencies{
		Validation: rules,
		API:        signup.NewSimulatedAPI(opts.SignupDelay, opts.SignupFailureRate, rng),
	}, nil
}

// logTo returns an observer writing every emission to st. Write failures
// are logged once; the session carries on without the log.
func logTo(ctx context.Context, st *store.Store, logger *slog.Logger) func(engine.Emission) {
	failed := false
	return func(em engine.Emission) {
		if failed {
			return
		}
		err := st.WriteEmission(ctx, store.Emission{
			SessionID: em.Session,
			Seq:       em.Seq,
			Signal:    em.Signal,
			Value:     em.Value,
		})
		if err != nil {
			failed = true
			logger.Error("emission log disabled", "error", err)
		}
	}
}

// serveMetrics serves reg on addr until the returned func is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// readCommands executes lines from in until quit, EOF or ctx is done.
func (s *session) readCommands(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := s.execute(ctx, line)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}

// execute runs one command line and reports whether to quit.
func (s *session) execute(ctx context.Context, line string) (bool, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(line), " ")

	switch name {
	case "":
	case "username":
		s.form.SetUsername(arg)
	case "password":
		s.form.SetPassword(arg)
	case "repeat":
		s.form.SetRepeatedPassword(arg)
	case "submit":
		return false, s.submit(ctx)
	case "ok":
		if !s.prompts.Acknowledge() {
			fmt.Fprintln(s.out, "no prompt is open")
		}
	case "dismiss":
		if !s.prompts.Dismiss() {
			fmt.Fprintln(s.out, "no prompt is open")
		}
	case "wait":
		return false, s.wait(ctx)
	case "status":
		return false, s.status(ctx)
	case "help":
		fmt.Fprintln(s.out, "commands: username, password, repeat, submit, ok, dismiss, wait, status, help, quit")
	case "quit", "exit":
		return true, nil
	default:
		fmt.Fprintf(s.out, "unknown command %q (type help)\n", name)
	}
	return false, nil
}

// settled runs fn on the loop once nothing else is queued, and waits for
// it to finish.
func (s *session) settled(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	var barrier func()
	barrier = func() {
		if s.loop.Pending() > 0 && s.loop.Post(barrier) {
			return
		}
		fn()
		close(done)
	}
	if !s.loop.Post(barrier) {
		return NewExitError(ExitFailure, "loop stopped")
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// submit taps the button only if the gate currently allows it.
func (s *session) submit(ctx context.Context) error {
	var decision gate.Decision
	if err := s.settled(ctx, func() { decision = s.form.Engine().State().Decision() }); err != nil {
		return WrapExitError(ExitFailure, "submit", err)
	}
	if !decision.Allow {
		fmt.Fprintf(s.out, "signup is disabled: %s\n", strings.Join(decision.Blockers, ", "))
		return nil
	}
	s.form.Submit()
	return nil
}

// wait blocks until no signup attempt is in flight. Completions arrive from
// other goroutines as several posts, so the loop must look idle twice in a
// row.
func (s *session) wait(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, waitTimeout)
	defer cancel()

	idle := 0
	for {
		var busy bool
		if err := s.settled(ctx, func() { busy = s.form.Engine().State().SigningIn }); err != nil {
			return WrapExitError(ExitFailure, "wait", err)
		}
		if busy {
			idle = 0
		} else if idle++; idle == 2 {
			return nil
		}
		select {
		case <-ctx.Done():
			return WrapExitError(ExitFailure, "wait", ctx.Err())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// statusView is the status command's output.
type statusView struct {
	Session          string   `json:"session"`
	Username         string   `json:"username"`
	Password         string   `json:"password"`
	RepeatedPassword string   `json:"repeated_password"`
	SignupEnabled    bool     `json:"signup_enabled"`
	SigningIn        bool     `json:"signing_in"`
	SignedIn         *bool    `json:"signed_in"`
	Blockers         []string `json:"blockers,omitempty"`
	Prompts          int      `json:"open_prompts"`
}

func (s *session) status(ctx context.Context) error {
	var view statusView
	err := s.settled(ctx, func() {
		st := s.form.Engine().State()
		view = statusView{
			Session:          s.form.Engine().Session(),
			Username:         st.Username.String(),
			Password:         st.Password.String(),
			RepeatedPassword: st.RepeatedPassword.String(),
			SignupEnabled:    st.SignupEnabled,
			SigningIn:        st.SigningIn,
			Blockers:         st.Decision().Blockers,
		}
		if st.HasSignedIn {
			signedIn := st.SignedIn
			view.SignedIn = &signedIn
		}
	})
	if err != nil {
		return WrapExitError(ExitFailure, "status", err)
	}
	view.Prompts = len(s.prompts.Pending())

	if s.opts.Format == "json" {
		return json.NewEncoder(s.out).Encode(view)
	}

	signedIn := "-"
	if view.SignedIn != nil {
		signedIn = fmt.Sprint(*view.SignedIn)
	}
	fmt.Fprintf(s.out, "username:          %s\n", view.Username)
	fmt.Fprintf(s.out, "password:          %s\n", view.Password)
	fmt.Fprintf(s.out, "repeated_password: %s\n", view.RepeatedPassword)
	fmt.Fprintf(s.out, "signup_enabled:    %t\n", view.SignupEnabled)
	fmt.Fprintf(s.out, "signing_in:        %t\n", view.SigningIn)
	fmt.Fprintf(s.out, "signed_in:         %s\n", signedIn)
	fmt.Fprintf(s.out, "open_prompts:      %d\n", view.Prompts)
	if len(view.Blockers) > 0 {
		fmt.Fprintf(s.out, "blocked by:        %s\n", strings.Join(view.Blockers, ", "))
	}
	return nil
}
