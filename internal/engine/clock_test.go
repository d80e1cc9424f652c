package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_StartsAtZero(t *testing.T) {
	assert.Equal(t, int64(0), NewClock().Current())
	assert.Equal(t, int64(41), NewClockAt(41).Current())
}

func TestClock_NextIncrements(t *testing.T) {
	c := NewClockAt(10)

	assert.Equal(t, int64(11), c.Next())
	assert.Equal(t, int64(12), c.Next())
	assert.Equal(t, int64(12), c.Current(), "Current does not advance")
}

func TestClock_UniqueUnderContention(t *testing.T) {
	c := NewClock()
	const goroutines, calls = 50, 100

	var wg sync.WaitGroup
	seqs := make(chan int64, goroutines*calls)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				seqs <- c.Next()
			}
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool)
	for seq := range seqs {
		assert.False(t, seen[seq], "seq %d handed out twice", seq)
		seen[seq] = true
	}
	assert.Len(t, seen, goroutines*calls)
}
