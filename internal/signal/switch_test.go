package signal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/signupflow/internal/testutil"
)

func TestSwitchLatest_ForwardsResult(t *testing.T) {
	d := testutil.NewManualDispatcher()
	script := testutil.NewScript[int]()
	src := NewSource[string]()

	out := SwitchLatest[string, int](d, src, func(s string) Task[int] {
		return script.Start(s)
	})
	rec := testutil.NewRecorder[int]()
	out.Subscribe(rec.Add)

	src.Emit("a")
	require.Equal(t, 1, script.Len())

	script.Last().Resolve(42)
	assert.Equal(t, 0, rec.Len(), "completion must be delivered through the dispatcher")

	d.Drain()
	assert.Equal(t, []int{42}, rec.Values())
}

func TestSwitchLatest_CancelsSupersededTask(t *testing.T) {
	d := testutil.NewManualDispatcher()
	script := testutil.NewScript[int]()
	src := NewSource[string]()

	out := SwitchLatest[string, int](d, src, func(s string) Task[int] {
		return script.Start(s)
	})
	rec := testutil.NewRecorder[int]()
	out.Subscribe(rec.Add)

	src.Emit("first")
	src.Emit("second")

	calls := script.Calls()
	require.Len(t, calls, 2)
	assert.True(t, calls[0].Cancelled(), "first task must be cancelled")
	assert.False(t, calls[1].Cancelled())

	// The superseded task finishes late, after the newer one
	calls[1].Resolve(2)
	calls[0].Resolve(1)
	d.Drain()

	assert.Equal(t, []int{2}, rec.Values(), "stale result must be discarded")
}

func TestSwitchLatest_StaleResultDiscardedEvenIfFirst(t *testing.T) {
	d := testutil.NewManualDispatcher()
	script := testutil.NewScript[int]()
	src := NewSource[string]()

	out := SwitchLatest[string, int](d, src, func(s string) Task[int] {
		return script.Start(s)
	})
	rec := testutil.NewRecorder[int]()
	out.Subscribe(rec.Add)

	src.Emit("first")
	src.Emit("second")

	calls := script.Calls()
	calls[0].Resolve(1)
	d.Drain()
	assert.Equal(t, 0, rec.Len())

	calls[1].Resolve(2)
	d.Drain()
	assert.Equal(t, []int{2}, rec.Values())
}

func TestSwitchLatest_StartWithEmitsPending(t *testing.T) {
	d := testutil.NewManualDispatcher()
	script := testutil.NewScript[string]()
	src := NewSource[string]()

	out := SwitchLatest[string, string](d, src, func(s string) Task[string] {
		return script.Start(s)
	}, StartWith("checking"))

	rec := testutil.NewRecorder[string]()
	out.Subscribe(rec.Add)

	src.Emit("alice")
	assert.Equal(t, []string{"checking"}, rec.Values())

	script.Last().Resolve("checked alice")
	d.Drain()
	assert.Equal(t, []string{"checking", "checked alice"}, rec.Values())
}

func TestSwitchLatest_StartWithSkippedForImmediateResult(t *testing.T) {
	d := testutil.NewManualDispatcher()
	src := NewSource[string]()

	out := SwitchLatest[string, string](d, src, func(s string) Task[string] {
		return Just("local " + s)
	}, StartWith("checking"))

	rec := testutil.NewRecorder[string]()
	out.Subscribe(rec.Add)

	src.Emit("ab")
	assert.Equal(t, 0, rec.Len(), "an answer available at start needs no pending state")

	d.Drain()
	assert.Equal(t, []string{"local ab"}, rec.Values())
}

func TestSwitchLatest_RecoverWithMapsFailure(t *testing.T) {
	d := testutil.NewManualDispatcher()
	src := NewSource[string]()

	out := SwitchLatest[string, string](d, src, func(string) Task[string] {
		return Fail[string](errors.New("boom"))
	}, RecoverWith(func(err error) string { return "recovered: " + err.Error() }))

	rec := testutil.NewRecorder[string]()
	out.Subscribe(rec.Add)

	src.Emit("x")
	d.Drain()

	assert.Equal(t, []string{"recovered: boom"}, rec.Values())
}

func TestSwitchLatest_FailureWithoutRecoverKeepsSignalAlive(t *testing.T) {
	d := testutil.NewManualDispatcher()
	script := testutil.NewScript[int]()
	src := NewSource[string]()

	out := SwitchLatest[string, int](d, src, func(s string) Task[int] {
		return script.Start(s)
	})
	rec := testutil.NewRecorder[int]()
	out.Subscribe(rec.Add)

	src.Emit("a")
	script.Last().Fail(errors.New("network down"))
	d.Drain()
	assert.Equal(t, 0, rec.Len())

	// Signal keeps working after a failure
	src.Emit("b")
	script.Last().Resolve(7)
	d.Drain()
	assert.Equal(t, []int{7}, rec.Values())
}

func TestSwitchLatest_DoubleCompletionIgnored(t *testing.T) {
	d := testutil.NewManualDispatcher()
	src := NewSource[string]()

	out := SwitchLatest[string, int](d, src, func(string) Task[int] {
		return func(done func(int, error)) func() {
			done(1, nil)
			done(2, nil)
			return func() {}
		}
	})
	rec := testutil.NewRecorder[int]()
	out.Subscribe(rec.Add)

	src.Emit("a")
	d.Drain()

	assert.Equal(t, []int{1}, rec.Values())
}

func TestSwitchLatest_DroppedAfterDispatcherClosed(t *testing.T) {
	d := testutil.NewManualDispatcher()
	script := testutil.NewScript[int]()
	src := NewSource[string]()

	out := SwitchLatest[string, int](d, src, func(s string) Task[int] {
		return script.Start(s)
	})
	rec := testutil.NewRecorder[int]()
	out.Subscribe(rec.Add)

	src.Emit("a")
	d.Close()
	script.Last().Resolve(1)
	d.Drain()

	assert.Equal(t, 0, rec.Len())
}

func TestGo_CancelsContext(t *testing.T) {
	started := make(chan struct{})
	finished := make(chan error, 1)

	task := Go(func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})

	cancel := task(func(_ int, err error) { finished <- err })
	<-started
	cancel()

	select {
	case err := <-finished:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("task did not observe cancellation")
	}
}

func TestGo_DeliversValue(t *testing.T) {
	results := make(chan int, 1)

	task := Go(func(context.Context) (int, error) { return 5, nil })
	task(func(v int, err error) {
		assert.NoError(t, err)
		results <- v
	})

	select {
	case v := <-results:
		assert.Equal(t, 5, v)
	case <-time.After(time.Second):
		t.Fatal("task did not complete")
	}
}

func TestMapTask_And_Recover(t *testing.T) {
	var got []string
	collect := func(v string, err error) {
		require.NoError(t, err)
		got = append(got, v)
	}

	MapTask(Just(3), func(n int) string { return "n=" + string(rune('0'+n)) })(collect)
	Recover(Fail[string](errors.New("x")), func(error) string { return "fallback" })(collect)
	Recover(Just("ok"), func(error) string { return "fallback" })(collect)

	assert.Equal(t, []string{"n=3", "fallback", "ok"}, got)
}

func TestMapTask_PassesErrorThrough(t *testing.T) {
	var gotErr error
	MapTask(Fail[int](errors.New("bad")), func(n int) int { return n })(func(_ int, err error) {
		gotErr = err
	})
	assert.EqualError(t, gotErr, "bad")
}
