package validation

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/signupflow/internal/signal"
)

// Messages shown next to each field.
const (
	MessageUsernameAvailable = "Username available"
	MessageUsernameTaken     = "Username already taken"
	MessagePasswordOK        = "Password acceptable"
	MessagePasswordRepeated  = "Password repeated"
	MessagePasswordDifferent = "Password different"
	MessageServiceFailure    = "Error contacting server"
)

// Service validates the three signup fields.
//
// ValidateUsername may be slow and may fail; it is the only asynchronous
// check. The password checks are pure and synchronous.
type Service interface {
	ValidateUsername(username string) signal.Task[Result]
	ValidatePassword(password string) Result
	ValidateRepeatedPassword(password, repeated string) Result
}

// Availability answers whether a username is free to register.
type Availability interface {
	UsernameAvailable(username string) signal.Task[bool]
}

// Rules is the policy-driven Service. Local rules reject bad input without
// any network traffic; only well-formed usernames reach Availability.
type Rules struct {
	policy       Policy
	availability Availability
}

// NewRules creates a Rules service.
func NewRules(policy Policy, availability Availability) (*Rules, error) {
	if availability == nil {
		return nil, fmt.Errorf("new rules: availability checker is required")
	}
	if policy.pattern == nil {
		if err := policy.compile(); err != nil {
			return nil, fmt.Errorf("new rules: %w", err)
		}
	}
	return &Rules{policy: policy, availability: availability}, nil
}

// Policy returns the rules in force.
func (r *Rules) Policy() Policy {
	return r.policy
}

// ValidateUsername checks the local rules, then asks Availability.
// Lookup failures are returned as the Task's error; the caller decides how
// to present them.
func (r *Rules) ValidateUsername(username string) signal.Task[Result] {
	name := norm.NFC.String(username)
	if name == "" {
		return signal.Just(Empty())
	}
	if res, ok := r.checkUsername(name); !ok {
		return signal.Just(res)
	}

	return signal.MapTask(r.availability.UsernameAvailable(name), func(available bool) Result {
		if available {
			return Valid(MessageUsernameAvailable)
		}
		return Invalid(MessageUsernameTaken)
	})
}

func (r *Rules) checkUsername(name string) (Result, bool) {
	n := utf8.RuneCountInString(name)
	switch {
	case n < r.policy.UsernameMinLength:
		return Invalid(fmt.Sprintf("Username must be at least %d characters", r.policy.UsernameMinLength)), false
	case n > r.policy.UsernameMaxLength:
		return Invalid(fmt.Sprintf("Username must be at most %d characters", r.policy.UsernameMaxLength)), false
	case !r.policy.pattern.MatchString(name):
		return Invalid(r.policy.UsernameHint), false
	}
	return Result{}, true
}

// ValidatePassword checks the password length in characters, after NFC
// normalisation so composed and decomposed accents count the same.
func (r *Rules) ValidatePassword(password string) Result {
	pw := norm.NFC.String(password)
	if pw == "" {
		return Empty()
	}
	if utf8.RuneCountInString(pw) < r.policy.PasswordMinLength {
		return Invalid(fmt.Sprintf("Password must be at least %d characters", r.policy.PasswordMinLength))
	}
	return Valid(MessagePasswordOK)
}

// ValidateRepeatedPassword checks that repeated matches password.
func (r *Rules) ValidateRepeatedPassword(password, repeated string) Result {
	rep := norm.NFC.String(repeated)
	if rep == "" {
		return Empty()
	}
	if rep == norm.NFC.String(password) {
		return Valid(MessagePasswordRepeated)
	}
	return Invalid(MessagePasswordDifferent)
}
