package usage

import (
	"log/slog"
	"sync"
	"time"

	"supportbot/app/config"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

type record struct {
	completions []time.Time
	informed    bool
}

// Tracker counts completed bot replies per user over a rolling window.
type Tracker struct {
	threshold int
	window    time.Duration
	now       func() time.Time

	mu      sync.Mutex
	records map[string]*record
}

func New(di *do.Injector) (*Tracker, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewTracker(cfg.Usage.Threshold, cfg.Usage.Window), nil
}

func NewTracker(threshold int, window time.Duration) *Tracker {
	return &Tracker{
		threshold: threshold,
		window:    window,
		now:       time.Now,
		records:   make(map[string]*record),
	}
}

func (t *Tracker) RecordCompletion(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := t.recordLocked(userID)
	r.completions = append(r.completions, t.now())
}

// IsCapMet prunes expired completions and reports whether the user reached the threshold.
// Falling below the threshold resets the informed flag, so the next capped window warns again.
func (t *Tracker) IsCapMet(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records[userID]
	if !ok {
		return false
	}

	capped := t.pruneLocked(userID, r) >= t.threshold
	if !capped {
		r.informed = false
	}

	return capped
}

func (t *Tracker) IsCapInformed(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records[userID]
	return ok && r.informed
}

func (t *Tracker) MarkCapInformed(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.recordLocked(userID).informed = true
}

// Count returns the number of completions inside the window.
func (t *Tracker) Count(userID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records[userID]
	if !ok {
		return 0
	}

	return t.pruneLocked(userID, r)
}

func (t *Tracker) Threshold() int {
	return t.threshold
}

func (t *Tracker) recordLocked(userID string) *record {
	r, ok := t.records[userID]
	if !ok {
		r = &record{}
		t.records[userID] = r
	}

	return r
}

func (t *Tracker) pruneLocked(userID string, r *record) int {
	cutoff := t.now().Add(-t.window)

	r.completions = pie.Filter(r.completions, func(ts time.Time) bool {
		return ts.After(cutoff)
	})

	if len(r.completions) == 0 && !r.informed {
		delete(t.records, userID)
		slog.Debug("Usage record expired", "user_id", userID)
	}

	return len(r.completions)
}
