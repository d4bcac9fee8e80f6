package conversation

import (
	"context"
	"log/slog"
	"time"
)

// Reaper forgets conversations that have been inactive for longer than the retention window.
type Reaper struct {
	store     *Store
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewReaper(store *Store, interval, retention time.Duration) *Reaper {
	return &Reaper{
		store:     store,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep removes stale conversations once and returns their user IDs.
func (r *Reaper) Sweep() []string {
	removed := r.store.RemoveInactive(r.now().Add(-r.retention))
	if len(removed) > 0 {
		slog.Debug("Removed stale conversations",
			"count", len(removed),
			"remaining", r.store.Len(),
		)
	}

	return removed
}
