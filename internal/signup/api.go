// Package signup submits the form and reports whether the user is signed in.
package signup

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/roach88/signupflow/internal/signal"
)

// API is the account backend.
type API interface {
	// Signup registers the account. A false result and a failure both
	// mean the user is not signed in.
	Signup(username, password string) signal.Task[bool]
}

// Wireframe presents an acknowledgement to the user.
type Wireframe interface {
	// PromptFor shows message with a cancel action and optional extra
	// actions, and completes with the action the user picked.
	PromptFor(message, cancelAction string, actions []string) signal.Task[string]
}

// SimulatedAPI is a stand-in backend: each call waits Delay and then
// succeeds unless a random draw falls below FailureRate.
type SimulatedAPI struct {
	Delay       time.Duration
	FailureRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedAPI creates a SimulatedAPI. rng may be nil, in which case a
// randomly seeded source is used.
func NewSimulatedAPI(delay time.Duration, failureRate float64, rng *rand.Rand) *SimulatedAPI {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &SimulatedAPI{
		Delay:       delay,
		FailureRate: failureRate,
		rng:         rng,
	}
}

// Signup waits Delay, honouring cancellation, then draws the outcome.
func (a *SimulatedAPI) Signup(username, password string) signal.Task[bool] {
	return signal.Go(func(ctx context.Context) (bool, error) {
		if a.Delay > 0 {
			timer := time.NewTimer(a.Delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-timer.C:
			}
		}
		return !a.fail(), nil
	})
}

func (a *SimulatedAPI) fail() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.rng == nil {
		a.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return a.rng.Float64() < a.FailureRate
}
