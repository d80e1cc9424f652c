package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/signupflow/internal/signal"
	"github.com/roach88/signupflow/internal/testutil"
)

// scriptedAvailability holds every lookup pending until the test settles it.
type scriptedAvailability struct {
	script *testutil.Script[bool]
}

func (s *scriptedAvailability) UsernameAvailable(username string) signal.Task[bool] {
	return s.script.Start(username)
}

func newTestRules(t *testing.T) (*Rules, *testutil.Script[bool]) {
	t.Helper()
	script := testutil.NewScript[bool]()
	rules, err := NewRules(DefaultPolicy(), &scriptedAvailability{script: script})
	require.NoError(t, err)
	return rules, script
}

// settle runs a Task to completion and returns its outcome.
func settle[T any](task signal.Task[T]) (T, bool, error) {
	var (
		got  T
		gerr error
		done bool
	)
	task(func(v T, err error) {
		got, gerr, done = v, err, true
	})
	return got, done, gerr
}

func TestResult_String(t *testing.T) {
	assert.Equal(t, "empty", Empty().String())
	assert.Equal(t, "validating", Validating().String())
	assert.Equal(t, `valid("Password acceptable")`, Valid(MessagePasswordOK).String())
	assert.Equal(t, `invalid("Password different")`, Invalid(MessagePasswordDifferent).String())
	assert.Equal(t, `unavailable("Error contacting server")`, Unavailable(MessageServiceFailure).String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}

func TestResult_OnlyValidIsValid(t *testing.T) {
	assert.True(t, Valid("ok").IsValid())
	for _, r := range []Result{Empty(), Validating(), Invalid("x"), Unavailable("y"), {}} {
		assert.False(t, r.IsValid(), "%s must not be valid", r)
	}
}

func TestRules_ValidateUsername_Empty(t *testing.T) {
	rules, script := newTestRules(t)

	got, done, err := settle(rules.ValidateUsername(""))
	require.True(t, done)
	require.NoError(t, err)
	assert.Equal(t, Empty(), got)
	assert.Equal(t, 0, script.Len(), "no lookup for an empty field")
}

func TestRules_ValidateUsername_LocalRules(t *testing.T) {
	rules, script := newTestRules(t)

	tests := []struct {
		name     string
		username string
		want     Result
	}{
		{"too short", "ab", Invalid("Username must be at least 3 characters")},
		{"too long", "abcdefghijklmnopqrstuvwxyz0123456789abcd", Invalid("Username must be at most 39 characters")},
		{"bad characters", "al ice", Invalid("Username can only contain letters and digits")},
		{"punctuation", "alice!", Invalid("Username can only contain letters and digits")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, done, err := settle(rules.ValidateUsername(tt.username))
			require.True(t, done, "local rules answer immediately")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, 0, script.Len(), "local violations must not reach the network")
}

func TestRules_ValidateUsername_Lookup(t *testing.T) {
	rules, script := newTestRules(t)

	var results []Result
	collect := func(r Result, err error) {
		require.NoError(t, err)
		results = append(results, r)
	}

	rules.ValidateUsername("alice")(collect)
	rules.ValidateUsername("admin")(collect)
	require.Equal(t, 2, script.Len())
	assert.Equal(t, []string{"alice"}, script.Calls()[0].Args)

	script.Calls()[0].Resolve(true)
	script.Calls()[1].Resolve(false)

	assert.Equal(t, []Result{
		Valid(MessageUsernameAvailable),
		Invalid(MessageUsernameTaken),
	}, results)
}

func TestRules_ValidateUsername_LookupFailure(t *testing.T) {
	rules, script := newTestRules(t)

	var gotErr error
	rules.ValidateUsername("alice")(func(_ Result, err error) { gotErr = err })
	script.Last().Fail(errors.New("dns failure"))

	assert.EqualError(t, gotErr, "dns failure")
}

func TestRules_ValidatePassword(t *testing.T) {
	rules, _ := newTestRules(t)

	assert.Equal(t, Empty(), rules.ValidatePassword(""))
	assert.Equal(t, Invalid("Password must be at least 5 characters"), rules.ValidatePassword("abcd"))
	assert.Equal(t, Valid(MessagePasswordOK), rules.ValidatePassword("secret1"))

	// A decomposed "e\u0301" is two code points but one character after NFC
	assert.Equal(t, Invalid("Password must be at least 5 characters"), rules.ValidatePassword("abce\u0301"))
	assert.Equal(t, Valid(MessagePasswordOK), rules.ValidatePassword("abcde\u0301"))
}

func TestRules_ValidateRepeatedPassword(t *testing.T) {
	rules, _ := newTestRules(t)

	assert.Equal(t, Empty(), rules.ValidateRepeatedPassword("secret1", ""))
	assert.Equal(t, Invalid(MessagePasswordDifferent), rules.ValidateRepeatedPassword("secret1", "secret2"))
	assert.Equal(t, Valid(MessagePasswordRepeated), rules.ValidateRepeatedPassword("secret1", "secret1"))

	// Composed and decomposed forms are the same password
	assert.Equal(t, Valid(MessagePasswordRepeated), rules.ValidateRepeatedPassword("caf\u00e9!", "cafe\u0301!"))
}

func TestNewRules_RequiresAvailability(t *testing.T) {
	_, err := NewRules(DefaultPolicy(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "availability")
}

func TestNewRules_CompilesLiteralPolicy(t *testing.T) {
	p := Policy{
		UsernameMinLength: 1,
		UsernameMaxLength: 8,
		UsernamePattern:   `^[a-z]+$`,
		UsernameHint:      "lowercase only",
		PasswordMinLength: 1,
	}
	rules, err := NewRules(p, NewStaticAvailability())
	require.NoError(t, err)

	got, _, _ := settle(rules.ValidateUsername("Bob"))
	assert.Equal(t, Invalid("lowercase only"), got)

	_, err = NewRules(Policy{UsernamePattern: "("}, NewStaticAvailability())
	require.Error(t, err)
}
