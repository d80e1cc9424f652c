package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/signupflow/internal/config"
	"github.com/roach88/signupflow/internal/engine"
	"github.com/roach88/signupflow/internal/store"
)

// executeRun drives the run command with input as stdin. The simulated
// backend answers at once and never fails unless args say otherwise.
func executeRun(t *testing.T, format, input string, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	cmd := newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: format},
		SessionIDs:  engine.NewFixedGenerator("run-1"),
	})
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(input))
	cmd.SetArgs(append([]string{"--signup-delay", "0", "--signup-failure-rate", "0"}, args...))

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRunRejectsArguments(t *testing.T) {
	_, _, err := executeRun(t, "text", "", "extra")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestRunBadFailureRate(t *testing.T) {
	_, _, err := executeRun(t, "text", "", "--signup-failure-rate", "1.5")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--signup-failure-rate")
}

func TestRunMissingPolicy(t *testing.T) {
	_, _, err := executeRun(t, "text", "", "--policy", filepath.Join(t.TempDir(), "gone.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load policy")
}

func TestRunPrintsInitialOutputs(t *testing.T) {
	out, _, err := executeRun(t, "text", "quit\n")
	require.NoError(t, err)

	assert.Contains(t, out, "session run-1")
	assert.Contains(t, out, "validated_username = empty")
	assert.Contains(t, out, "validated_password = empty")
	assert.Contains(t, out, "validated_password_repeated = empty")
	assert.Contains(t, out, "signup_enabled = false")
	assert.Contains(t, out, "signing_in = false")
	assert.NotContains(t, out, "signed_in =")
}

func TestRunSignupSucceeds(t *testing.T) {
	db := filepath.Join(t.TempDir(), "run.db")
	input := strings.Join([]string{
		"username alice",
		"password secret1",
		"repeat secret1",
		"submit",
		"wait",
		"ok",
		"status",
		"quit",
	}, "\n") + "\n"

	out, _, err := executeRun(t, "text", input, "--db", db, "--taken", "admin")
	require.NoError(t, err)

	assert.Contains(t, out, `validated_username = valid("Username available")`)
	assert.Contains(t, out, `validated_password_repeated = valid("Password repeated")`)
	assert.Contains(t, out, "signing_in = true")
	assert.Contains(t, out, "[prompt] Signed in. (type ok)")
	assert.Contains(t, out, "signed_in = true")
	assert.Contains(t, out, "signed_in:         true")
	assert.Contains(t, out, "open_prompts:      0")

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	emissions, err := st.ReadSession(context.Background(), "run-1")
	require.NoError(t, err)

	signals := make(map[string]string)
	for _, em := range emissions {
		signals[em.Signal] = em.Value
	}
	assert.Equal(t, "alice", signals[engine.InputUsername])
	assert.Equal(t, "*******", signals[engine.InputPassword], "passwords are masked")
	assert.Equal(t, "tap", signals[engine.InputSubmit])
	assert.Equal(t, "true", signals[engine.OutputSignedIn])
}

func TestRunSignupFailsThenDismissed(t *testing.T) {
	input := "username alice\npassword secret1\nrepeat secret1\nsubmit\nwait\ndismiss\nstatus\n"

	out, _, err := executeRun(t, "text", input, "--signup-failure-rate", "1")
	require.NoError(t, err)

	assert.Contains(t, out, "[prompt] Sign in failed. (type ok)")
	assert.Contains(t, out, "signed_in = false")
}

func TestRunSubmitRefusedWhileDisabled(t *testing.T) {
	out, _, err := executeRun(t, "text", "username admin\nsubmit\nstatus\nquit\n", "--taken", "admin")
	require.NoError(t, err)

	assert.Contains(t, out, `validated_username = invalid("Username already taken")`)
	assert.Contains(t, out, "signup is disabled: ")
	assert.Contains(t, out, "blocked by:")
	assert.NotContains(t, out, "signing_in = true")
}

func TestRunPolicyFile(t *testing.T) {
	policy := writeFile(t, t.TempDir(), "policy.cue", "password_min_length: 8\n")

	out, _, err := executeRun(t, "text", "password secret1\nstatus\n", "--policy", policy)
	require.NoError(t, err)
	assert.Contains(t, out, `invalid("Password must be at least 8 characters")`)
}

func TestRunStatusJSON(t *testing.T) {
	out, _, err := executeRun(t, "json", "username alice\nstatus\n")
	require.NoError(t, err)

	assert.Contains(t, out, `"session":"run-1"`)
	assert.Contains(t, out, `"username":"valid(\"Username available\")"`)
	assert.Contains(t, out, `"signed_in":null`)
	assert.Contains(t, out, `"blockers":["password: empty"`)
}

func TestRunPromptCommandsWithoutPrompt(t *testing.T) {
	out, _, err := executeRun(t, "text", "ok\ndismiss\nfrobnicate\nhelp\n")
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(out, "no prompt is open"))
	assert.Contains(t, out, `unknown command "frobnicate" (type help)`)
	assert.Contains(t, out, "commands: username, password")
}

func TestRunEnvironmentDefaults(t *testing.T) {
	t.Setenv("SIGNUPFLOW_TAKEN_USERNAMES", "bob")

	out, _, err := executeRun(t, "text", "username bob\nstatus\n")
	require.NoError(t, err)
	assert.Contains(t, out, `validated_username = invalid("Username already taken")`)
}

func TestRunFlagOverridesEnvironment(t *testing.T) {
	t.Setenv("SIGNUPFLOW_TAKEN_USERNAMES", "bob")

	out, _, err := executeRun(t, "text", "username bob\nstatus\n", "--taken", "carol")
	require.NoError(t, err)
	assert.Contains(t, out, `validated_username = valid("Username available")`)
}

func TestApplyConfigKeepsChangedFlags(t *testing.T) {
	opts := &RunOptions{RootOptions: &RootOptions{}}
	cmd := newRunCommand(opts)
	require.NoError(t, cmd.Flags().Set("db", "flag.db"))

	applyConfig(cmd, opts, configFor(t, map[string]string{
		"SIGNUPFLOW_DB":     "env.db",
		"SIGNUPFLOW_POLICY": "env.cue",
	}))

	assert.Equal(t, "flag.db", opts.Database)
	assert.Equal(t, "env.cue", opts.Policy)
	assert.Equal(t, []string{"admin", "root"}, opts.Taken)
}

func configFor(t *testing.T, vars map[string]string) config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(vars)
	require.NoError(t, err)
	return cfg
}
