package usage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestTracker(threshold int) (*Tracker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}

	tracker := NewTracker(threshold, 24*time.Hour)
	tracker.now = clock.Now

	return tracker, clock
}

func TestIsCapMetThreshold(t *testing.T) {
	tracker, clock := newTestTracker(10)

	for i := 0; i < 9; i++ {
		tracker.RecordCompletion("user")
		clock.Advance(time.Minute)
	}
	require.False(t, tracker.IsCapMet("user"))

	tracker.RecordCompletion("user")
	require.True(t, tracker.IsCapMet("user"))
	require.Equal(t, 10, tracker.Count("user"))

	require.False(t, tracker.IsCapMet("other"))
}

func TestIsCapMetOldestAgesOut(t *testing.T) {
	tracker, clock := newTestTracker(10)

	tracker.RecordCompletion("user")
	clock.Advance(time.Hour)
	for i := 0; i < 9; i++ {
		tracker.RecordCompletion("user")
	}
	require.True(t, tracker.IsCapMet("user"))

	// the first completion is now exactly 24h old and leaves the window
	clock.Advance(23 * time.Hour)
	require.False(t, tracker.IsCapMet("user"))
	require.Equal(t, 9, tracker.Count("user"))
}

func TestCapInformedResetsWithWindow(t *testing.T) {
	tracker, clock := newTestTracker(2)

	tracker.RecordCompletion("user")
	tracker.RecordCompletion("user")
	require.True(t, tracker.IsCapMet("user"))
	require.False(t, tracker.IsCapInformed("user"))

	tracker.MarkCapInformed("user")
	require.True(t, tracker.IsCapInformed("user"))
	require.True(t, tracker.IsCapMet("user"))
	require.True(t, tracker.IsCapInformed("user"))

	clock.Advance(25 * time.Hour)
	require.False(t, tracker.IsCapMet("user"))
	require.False(t, tracker.IsCapInformed("user"))
}

func TestExpiredRecordsAreDropped(t *testing.T) {
	tracker, clock := newTestTracker(5)

	tracker.RecordCompletion("user")
	clock.Advance(48 * time.Hour)

	require.Equal(t, 0, tracker.Count("user"))
	require.NotContains(t, tracker.records, "user")
}
