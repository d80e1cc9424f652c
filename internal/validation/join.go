package validation

import (
	"log/slog"

	"github.com/roach88/signupflow/internal/metrics"
	"github.com/roach88/signupflow/internal/signal"
)

// Field names used in logs, metrics, and traces.
const (
	FieldUsername         = "username"
	FieldPassword         = "password"
	FieldRepeatedPassword = "repeated_password"
)

// Inputs are the raw text signals of the three fields.
type Inputs struct {
	Username         signal.Observable[string]
	Password         signal.Observable[string]
	RepeatedPassword signal.Observable[string]
}

// Validated holds one result signal per field.
type Validated struct {
	Username         *signal.Signal[Result]
	Password         *signal.Signal[Result]
	RepeatedPassword *signal.Signal[Result]
}

type joinConfig struct {
	logger  *slog.Logger
	metrics metrics.Recorder
}

// JoinOption configures Join.
type JoinOption func(*joinConfig)

// WithLogger sets the logger for service failures.
func WithLogger(logger *slog.Logger) JoinOption {
	return func(c *joinConfig) {
		c.logger = logger
	}
}

// WithMetrics counts every result per field.
func WithMetrics(rec metrics.Recorder) JoinOption {
	return func(c *joinConfig) {
		c.metrics = rec
	}
}

// Join wires the field checks of svc onto the input signals.
//
//   - Username: each new value starts svc.ValidateUsername and cancels the
//     previous check. The field reads Validating while a check is in
//     flight. A failed check becomes Unavailable("Error contacting server").
//   - Password: svc.ValidatePassword of the latest value.
//   - RepeatedPassword: svc.ValidateRepeatedPassword of the latest pair,
//     recomputed when either side changes.
//
// Must be called on the delivery thread d.
func Join(d signal.Dispatcher, in Inputs, svc Service, opts ...JoinOption) Validated {
	cfg := &joinConfig{logger: slog.Default(), metrics: metrics.Nop()}
	for _, opt := range opts {
		opt(cfg)
	}

	username := signal.SwitchLatest[string, Result](d, in.Username,
		svc.ValidateUsername,
		signal.StartWith(Validating()),
		signal.RecoverWith(func(err error) Result {
			cfg.logger.Warn("username check failed", "error", err)
			return Unavailable(MessageServiceFailure)
		}),
		signal.Named[Result]("validate_username"),
		signal.WithLogger[Result](cfg.logger),
	)

	password := signal.Map[string, Result](in.Password, svc.ValidatePassword)

	repeated := signal.CombineLatest2[string, string, Result](in.Password, in.RepeatedPassword,
		svc.ValidateRepeatedPassword)

	v := Validated{
		Username:         username,
		Password:         password,
		RepeatedPassword: repeated,
	}
	v.record(cfg.metrics)
	return v
}

func (v Validated) record(rec metrics.Recorder) {
	observe := func(field string, s *signal.Signal[Result]) {
		s.Subscribe(func(r Result) {
			rec.ValidationResult(field, r.Kind.String())
		})
	}
	observe(FieldUsername, v.Username)
	observe(FieldPassword, v.Password)
	observe(FieldRepeatedPassword, v.RepeatedPassword)
}
