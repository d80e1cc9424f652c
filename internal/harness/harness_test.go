package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/signupflow/internal/engine"
)

func TestRun_TestdataScenariosPass(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_TraceIsStampedAndAttributed(t *testing.T) {
	s := &Scenario{
		Name:        "trace",
		Description: "d",
		Session:     "session-7",
		Steps: []Step{
			{Set: &SetStep{Field: FieldUsername, Value: "alice"}},
			{Set: &SetStep{Field: FieldPassword, Value: "pw"}},
		},
		Assertions: []Assertion{{Type: AssertPrompts}},
	}

	result, err := Run(s)
	require.NoError(t, err)

	require.NotEmpty(t, result.Trace)
	for i, ev := range result.Trace {
		if i > 0 {
			assert.Greater(t, ev.Seq, result.Trace[i-1].Seq)
		}
	}

	// The construction replay carries every output but signed_in.
	var setup []string
	for _, ev := range result.Trace {
		if ev.Step == 0 {
			setup = append(setup, ev.Signal)
		}
	}
	assert.Equal(t, []string{
		engine.OutputValidatedUsername,
		engine.OutputValidatedPassword,
		engine.OutputValidatedPasswordRepeated,
		engine.OutputSignupEnabled,
		engine.OutputSigningIn,
	}, setup)

	for _, ev := range result.Trace {
		switch ev.Signal {
		case engine.InputUsername:
			assert.Equal(t, 1, ev.Step)
			assert.Equal(t, "alice", ev.Value)
		case engine.InputPassword:
			assert.Equal(t, 2, ev.Step)
			assert.Equal(t, "**", ev.Value)
		}
	}
	assert.Equal(t, []string{"empty", `invalid("Password must be at least 5 characters")`},
		result.Values(engine.OutputValidatedPassword))
}

func TestRun_Snapshots(t *testing.T) {
	s := &Scenario{
		Name:        "snapshots",
		Description: "d",
		Steps: []Step{
			{Set: &SetStep{Field: FieldUsername, Value: "alice"}},
			{Resolve: &ResolveStep{Target: TargetUsername, Outcome: OutcomeFail}},
		},
		Assertions: []Assertion{{Type: AssertPrompts}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Snapshots, 3)

	assert.Equal(t, "setup", result.Snapshots[0].Label)
	assert.Equal(t, "empty", result.Snapshots[0].Values[engine.OutputValidatedUsername])
	_, hasSignedIn := result.Snapshots[0].Values[engine.OutputSignedIn]
	assert.False(t, hasSignedIn)

	assert.Equal(t, 1, result.Snapshots[1].Pending[TargetUsername])
	assert.Equal(t, "validating", result.Snapshots[1].Values[engine.OutputValidatedUsername])

	assert.Equal(t, 0, result.Snapshots[2].Pending[TargetUsername])
	assert.Equal(t, `unavailable("Error contacting server")`, result.Final()[engine.OutputValidatedUsername])
	assert.Equal(t, 1, result.Calls[TargetUsername])
}

func TestRun_FailedAssertionsAreReported(t *testing.T) {
	s := &Scenario{
		Name:        "failing",
		Description: "d",
		Steps:       []Step{{Set: &SetStep{Field: FieldUsername, Value: "ab"}}},
		Assertions: []Assertion{
			{Type: AssertFinal, Values: map[string]string{engine.OutputSignupEnabled: "true"}},
			{Type: AssertCalls, Target: TargetUsername, Count: 0},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1, "short usernames never reach the lookup")
	assert.Contains(t, result.Errors[0], "assertion 0")
	assert.Contains(t, result.Errors[0], "signup_enabled = false (want true)")
}

func TestRun_StepErrors(t *testing.T) {
	tests := []struct {
		name    string
		step    Step
		wantErr string
	}{
		{"resolve with nothing pending", Step{Resolve: &ResolveStep{Target: TargetSignup, Outcome: OutcomeSuccess}}, "no pending signup call"},
		{"acknowledge without prompt", Step{Acknowledge: true}, "no prompt is open"},
		{"dismiss without prompt", Step{Dismiss: true}, "no prompt is open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Scenario{
				Name:        "errors",
				Description: "d",
				Steps:       []Step{tt.step},
				Assertions:  []Assertion{{Type: AssertPrompts}},
			}
			_, err := Run(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "steps[0]")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_BadPolicy(t *testing.T) {
	s := &Scenario{
		Name:        "policy",
		Description: "d",
		Policy:      "password_min_length: -1",
		Steps:       []Step{{Submit: true}},
		Assertions:  []Assertion{{Type: AssertPrompts}},
	}
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid policy")
}
