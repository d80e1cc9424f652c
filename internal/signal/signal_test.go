package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/signupflow/internal/testutil"
)

func TestSignal_ReplaysLatestToLateSubscriber(t *testing.T) {
	src := NewSource[int]()
	src.Emit(1)
	src.Emit(2)

	rec := testutil.NewRecorder[int]()
	src.Subscribe(rec.Add)

	// Only the latest value is replayed, not the history
	assert.Equal(t, []int{2}, rec.Values())

	src.Emit(3)
	assert.Equal(t, []int{2, 3}, rec.Values())
}

func TestSignal_NoReplayBeforeFirstValue(t *testing.T) {
	src := NewSource[string]()
	rec := testutil.NewRecorder[string]()
	src.Subscribe(rec.Add)

	assert.Equal(t, 0, rec.Len())

	_, ok := src.Value()
	assert.False(t, ok)
}

func TestSignal_NewSourceWithReplaysInitial(t *testing.T) {
	src := NewSourceWith("")
	rec := testutil.NewRecorder[string]()
	src.Subscribe(rec.Add)

	assert.Equal(t, []string{""}, rec.Values())
}

func TestSignal_MulticastInSubscriptionOrder(t *testing.T) {
	src := NewSource[int]()
	var order []string

	src.Subscribe(func(int) { order = append(order, "first") })
	src.Subscribe(func(int) { order = append(order, "second") })
	src.Emit(7)

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestSignal_CancelStopsDelivery(t *testing.T) {
	src := NewSource[int]()
	rec := testutil.NewRecorder[int]()

	cancel := src.Subscribe(rec.Add)
	src.Emit(1)
	cancel()
	cancel() // idempotent
	src.Emit(2)

	assert.Equal(t, []int{1}, rec.Values())
	assert.Equal(t, 0, src.Subscribers())
}

func TestSignal_CancelDuringDelivery(t *testing.T) {
	src := NewSource[int]()
	rec := testutil.NewRecorder[int]()

	var cancelSecond Cancel
	src.Subscribe(func(int) {
		if cancelSecond != nil {
			cancelSecond()
		}
	})
	cancelSecond = src.Subscribe(rec.Add)

	src.Emit(1)

	// The second subscriber was removed by the first before its turn
	assert.Equal(t, 0, rec.Len())
	assert.Equal(t, 1, src.Subscribers())
}

func TestEvents_DoNotReplay(t *testing.T) {
	taps := NewEvents[struct{}]()
	taps.Emit(struct{}{})

	rec := testutil.NewRecorder[struct{}]()
	taps.Subscribe(rec.Add)
	assert.Equal(t, 0, rec.Len(), "a late subscriber must not see an old tap")

	taps.Emit(struct{}{})
	assert.Equal(t, 1, rec.Len())

	_, ok := taps.Value()
	assert.False(t, ok)
}

func TestGeneration_Tokens(t *testing.T) {
	var g Generation
	assert.Equal(t, uint64(0), g.Current())

	first := g.Next()
	require.True(t, g.IsCurrent(first))

	second := g.Next()
	assert.False(t, g.IsCurrent(first), "older token must be stale")
	assert.True(t, g.IsCurrent(second))
	assert.Equal(t, uint64(2), g.Current())
}
