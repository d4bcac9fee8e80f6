package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReaperSweep(t *testing.T) {
	store := NewStore(time.Hour, "preamble")
	defer store.Clear()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	store.now = func() time.Time { return base }
	stale := store.UpsertTurn("alice", userTurn("1", "a"), false, nil)

	store.now = func() time.Time { return base.Add(20 * time.Hour) }
	store.UpsertTurn("bob", userTurn("2", "b"), false, nil)

	reaper := NewReaper(store, time.Minute, 24*time.Hour)
	reaper.now = func() time.Time { return base.Add(25 * time.Hour) }

	require.Equal(t, []string{"alice"}, reaper.Sweep())
	require.False(t, store.IsTracked("alice"))
	require.True(t, store.IsTracked("bob"))
	require.False(t, stale.timer.pending())

	require.Empty(t, reaper.Sweep())
}

func TestReaperRun(t *testing.T) {
	store := NewStore(time.Hour, "preamble")
	defer store.Clear()

	store.UpsertTurn("alice", userTurn("1", "a"), false, nil)

	reaper := NewReaper(store, 10*time.Millisecond, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reaper.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
