package signup

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/signupflow/internal/activity"
	"github.com/roach88/signupflow/internal/metrics"
	"github.com/roach88/signupflow/internal/signal"
)

// Acknowledgement texts.
const (
	MessageSignedIn     = "Signed in."
	MessageSignInFailed = "Sign in failed."
	ActionOK            = "OK"
)

// CoordinatorInput are the signals a submit attempt samples.
type CoordinatorInput struct {
	Username signal.Observable[string]
	Password signal.Observable[string]
	Submits  signal.Observable[struct{}]
}

// Coordinator turns submit taps into signup attempts.
//
// Each attempt moves Idle -> Submitting -> Prompting -> Idle:
//
//   - Submitting: the latest username and password are sampled and
//     API.Signup runs under the activity tracker. A second submit while
//     one is in flight cancels the first and discards its result. A failed
//     call counts as false.
//   - Prompting: the user is shown MessageSignedIn or MessageSignInFailed.
//     The attempt's boolean becomes SignedIn once the prompt completes,
//     whatever action was picked. A failed or dismissed prompt yields false.
//
// There is no retry; the user submits again.
type Coordinator struct {
	signedIn *signal.Signal[bool]
}

type coordinatorConfig struct {
	logger  *slog.Logger
	metrics metrics.Recorder
	ids     func() string
}

// Option configures a Coordinator.
type Option func(*coordinatorConfig)

// WithLogger sets the logger for attempts.
func WithLogger(logger *slog.Logger) Option {
	return func(c *coordinatorConfig) {
		c.logger = logger
	}
}

// WithMetrics reports every attempt's result.
func WithMetrics(rec metrics.Recorder) Option {
	return func(c *coordinatorConfig) {
		c.metrics = rec
	}
}

// WithAttemptIDs replaces the UUIDv7 attempt id source.
func WithAttemptIDs(next func() string) Option {
	return func(c *coordinatorConfig) {
		c.ids = next
	}
}

// attempt is one submit with the credentials it sampled.
type attempt struct {
	id       string
	username string
	password string
}

// outcome is a finished Submitting stage.
type outcome struct {
	id       string
	signedIn bool
}

// NewCoordinator wires the submit pipeline. Must be called on the delivery
// thread d.
func NewCoordinator(
	d signal.Dispatcher,
	in CoordinatorInput,
	api API,
	wireframe Wireframe,
	tracker *activity.Tracker,
	opts ...Option,
) *Coordinator {
	cfg := &coordinatorConfig{
		logger:  slog.Default(),
		metrics: metrics.Nop(),
		ids:     func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(cfg)
	}

	type credentials struct{ username, password string }

	latest := signal.CombineLatest2[string, string, credentials](in.Username, in.Password,
		func(u, p string) credentials { return credentials{u, p} })

	attempts := signal.WithLatestFrom[struct{}, credentials, attempt](in.Submits, latest,
		func(_ struct{}, c credentials) attempt {
			return attempt{id: cfg.ids(), username: c.username, password: c.password}
		})

	loggedIn := signal.SwitchLatest[attempt, outcome](d, attempts,
		func(a attempt) signal.Task[outcome] {
			cfg.logger.Info("signup attempt started", "attempt", a.id, "username", a.username)

			call := activity.Track(tracker, api.Signup(a.username, a.password))
			call = signal.Recover(call, func(err error) bool {
				cfg.logger.Warn("signup call failed", "attempt", a.id, "error", err)
				return false
			})
			return signal.MapTask(call, func(ok bool) outcome {
				return outcome{id: a.id, signedIn: ok}
			})
		},
		signal.Named[outcome]("signup"),
		signal.WithLogger[outcome](cfg.logger),
	)

	loggedIn.Subscribe(func(o outcome) {
		result := metrics.ResultRejected
		if o.signedIn {
			result = metrics.ResultSignedIn
		}
		cfg.metrics.SignupAttempt(result)
		cfg.logger.Info("signup attempt finished", "attempt", o.id, "signed_in", o.signedIn)
	})

	signedIn := signal.SwitchLatest[outcome, bool](d, loggedIn,
		func(o outcome) signal.Task[bool] {
			message := MessageSignInFailed
			if o.signedIn {
				message = MessageSignedIn
			}
			prompt := wireframe.PromptFor(message, ActionOK, nil)
			return signal.MapTask(prompt, func(string) bool { return o.signedIn })
		},
		signal.RecoverWith(func(err error) bool {
			cfg.logger.Info("acknowledgement did not complete", "error", err)
			return false
		}),
		signal.Named[bool]("acknowledge"),
		signal.WithLogger[bool](cfg.logger),
	)

	return &Coordinator{signedIn: signedIn}
}

// SignedIn carries the result of each completed attempt. It has no value
// until the first attempt's prompt completes.
func (c *Coordinator) SignedIn() *signal.Signal[bool] {
	return c.signedIn
}
