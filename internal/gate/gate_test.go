package gate

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/signupflow/internal/signal"
	"github.com/roach88/signupflow/internal/testutil"
	"github.com/roach88/signupflow/internal/validation"
)

var (
	ok      = validation.Valid("ok")
	bad     = validation.Invalid("bad")
	pending = validation.Validating()
	down    = validation.Unavailable(validation.MessageServiceFailure)
	empty   = validation.Empty()
)

func TestAllow(t *testing.T) {
	tests := []struct {
		name                        string
		username, password, repeated validation.Result
		busy                        bool
		want                        bool
	}{
		{"all valid and idle", ok, ok, ok, false, true},
		{"all valid but busy", ok, ok, ok, true, false},
		{"invalid username", bad, ok, ok, false, false},
		{"username validating", pending, ok, ok, false, false},
		{"service unavailable", down, ok, ok, false, false},
		{"empty password", ok, empty, ok, false, false},
		{"repeat mismatch", ok, ok, bad, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allow(tt.username, tt.password, tt.repeated, tt.busy))
		})
	}
}

func TestEvaluate_ListsBlockers(t *testing.T) {
	d := Evaluate(pending, validation.Invalid("Password must be at least 5 characters"), empty, true)

	assert.False(t, d.Allow)
	assert.Equal(t, []string{
		"username: validating",
		"password: invalid (Password must be at least 5 characters)",
		"repeated_password: empty",
		"busy",
	}, d.Blockers)
}

func TestEvaluate_OpenGateHasNoBlockers(t *testing.T) {
	d := Evaluate(ok, ok, ok, false)
	assert.True(t, d.Allow)
	assert.Empty(t, d.Blockers)
}

type gateInputs struct {
	username, password, repeated *signal.Source[validation.Result]
	busy                         *signal.Source[bool]
	out                          *signal.Signal[bool]
}

func newGate() gateInputs {
	in := gateInputs{
		username: signal.NewSourceWith(empty),
		password: signal.NewSourceWith(empty),
		repeated: signal.NewSourceWith(empty),
		busy:     signal.NewSourceWith(false),
	}
	in.out = New(in.username, in.password, in.repeated, in.busy)
	return in
}

func TestNew_TransitionsOnceWhenAllValid(t *testing.T) {
	g := newGate()
	rec := testutil.NewRecorder[bool]()
	g.out.Subscribe(rec.Add)

	g.username.Emit(pending)
	g.username.Emit(validation.Valid(validation.MessageUsernameAvailable))
	g.password.Emit(validation.Valid(validation.MessagePasswordOK))
	g.repeated.Emit(validation.Valid(validation.MessagePasswordRepeated))

	assert.Equal(t, []bool{false, true}, rec.Values())
}

func TestNew_DeduplicatesRecomputations(t *testing.T) {
	g := newGate()
	rec := testutil.NewRecorder[bool]()
	g.out.Subscribe(rec.Add)

	// Three recomputations that all evaluate to false.
	g.username.Emit(bad)
	g.password.Emit(ok)
	g.busy.Emit(true)

	assert.Equal(t, []bool{false}, rec.Values())
}

func TestNew_BusyClosesGate(t *testing.T) {
	g := newGate()
	g.username.Emit(ok)
	g.password.Emit(ok)
	g.repeated.Emit(ok)

	rec := testutil.NewRecorder[bool]()
	g.out.Subscribe(rec.Add)

	g.busy.Emit(true)
	g.busy.Emit(false)

	assert.Equal(t, []bool{true, false, true}, rec.Values())
}

// TestNew_MatchesAllowForRandomSequences drives the gate with random input
// sequences and checks after every step that its value equals Allow over
// the latest inputs and that no two consecutive emissions are equal.
func TestNew_MatchesAllowForRandomSequences(t *testing.T) {
	results := []validation.Result{ok, bad, pending, down, empty}
	rng := rand.New(rand.NewPCG(7, 11))

	for run := 0; run < 200; run++ {
		g := newGate()
		rec := testutil.NewRecorder[bool]()
		g.out.Subscribe(rec.Add)

		u, p, r, b := empty, empty, empty, false
		for step := 0; step < 40; step++ {
			switch rng.IntN(4) {
			case 0:
				u = results[rng.IntN(len(results))]
				g.username.Emit(u)
			case 1:
				p = results[rng.IntN(len(results))]
				g.password.Emit(p)
			case 2:
				r = results[rng.IntN(len(results))]
				g.repeated.Emit(r)
			case 3:
				b = rng.IntN(2) == 0
				g.busy.Emit(b)
			}

			got, has := g.out.Value()
			require.True(t, has)
			require.Equal(t, Allow(u, p, r, b), got, "run %d step %d", run, step)
		}

		values := rec.Values()
		for i := 1; i < len(values); i++ {
			require.NotEqual(t, values[i-1], values[i], "run %d: duplicate emission at %d", run, i)
		}
	}
}
