package conversation

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDebounceTimerResetFiresOnce(t *testing.T) {
	var fired atomic.Int32

	var timer debounceTimer
	require.True(t, timer.wire(func() { fired.Add(1) }))
	require.False(t, timer.wire(func() { fired.Add(100) }))

	for i := 0; i < 10; i++ {
		timer.reset(40 * time.Millisecond)
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	require.Equal(t, int32(1), fired.Load())
}

func TestDebounceTimerDispose(t *testing.T) {
	var fired atomic.Int32

	var timer debounceTimer
	timer.wire(func() { fired.Add(1) })
	timer.reset(20 * time.Millisecond)
	require.True(t, timer.pending())

	require.True(t, timer.dispose())
	require.False(t, timer.dispose())
	require.False(t, timer.pending())

	timer.reset(time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, fired.Load())
}

func TestDebounceTimerRearmAfterFire(t *testing.T) {
	var fired atomic.Int32

	var timer debounceTimer
	timer.wire(func() { fired.Add(1) })

	timer.reset(immediateDelay)
	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)

	timer.reset(immediateDelay)
	require.Eventually(t, func() bool { return fired.Load() == 2 }, time.Second, time.Millisecond)
}
