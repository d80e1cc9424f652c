package engine

import (
	"strings"
	"unicode/utf8"

	"github.com/roach88/signupflow/internal/signal"
)

// Input trace names.
const (
	InputUsername         = "input.username"
	InputPassword         = "input.password"
	InputRepeatedPassword = "input.repeated_password"
	InputSubmit           = "input.submit"
)

// Form owns the four input signals of an Engine and lets any goroutine
// drive them.
//
// Text fields start out holding "", like a freshly rendered text field, so
// every validated output has a value from the start. Each setter posts onto
// the dispatcher and returns false if the dispatcher refused the work.
// Inputs are reported to the engine's observers before they propagate,
// with passwords masked.
type Form struct {
	d        signal.Dispatcher
	engine   *Engine
	username *signal.Source[string]
	password *signal.Source[string]
	repeated *signal.Source[string]
	submits  *signal.Events[struct{}]
}

// NewForm creates the input signals and an Engine over them. Must be called
// on the delivery thread d.
func NewForm(d signal.Dispatcher, deps Dependencies, opts ...Option) (*Form, error) {
	f := &Form{
		d:        d,
		username: signal.NewSourceWith(""),
		password: signal.NewSourceWith(""),
		repeated: signal.NewSourceWith(""),
		submits:  signal.NewEvents[struct{}](),
	}

	e, err := New(d, Inputs{
		Username:         f.username,
		Password:         f.password,
		RepeatedPassword: f.repeated,
		Submits:          f.submits,
	}, deps, opts...)
	if err != nil {
		return nil, err
	}
	f.engine = e
	return f, nil
}

// Engine returns the engine behind the form.
func (f *Form) Engine() *Engine {
	return f.engine
}

// SetUsername replaces the username text.
func (f *Form) SetUsername(text string) bool {
	return f.d.Post(func() {
		f.engine.publish(InputUsername, text)
		f.username.Emit(text)
	})
}

// SetPassword replaces the password text.
func (f *Form) SetPassword(text string) bool {
	return f.d.Post(func() {
		f.engine.publish(InputPassword, mask(text))
		f.password.Emit(text)
	})
}

// SetRepeatedPassword replaces the repeated password text.
func (f *Form) SetRepeatedPassword(text string) bool {
	return f.d.Post(func() {
		f.engine.publish(InputRepeatedPassword, mask(text))
		f.repeated.Emit(text)
	})
}

// Submit taps the submit button. The tap is not gated here: a front end
// is expected to consult SignupEnabled first.
func (f *Form) Submit() bool {
	return f.d.Post(func() {
		f.engine.publish(InputSubmit, "tap")
		f.submits.Emit(struct{}{})
	})
}

// mask hides password text in traces, keeping only its length.
func mask(text string) string {
	return strings.Repeat("*", utf8.RuneCountInString(text))
}
