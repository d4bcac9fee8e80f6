package conversation

import (
	"sync"
	"time"
)

// immediateDelay is the "one tick" interval used for fast-tracked turns.
const immediateDelay = time.Millisecond

// debounceTimer is a one-shot, rearmable delayed call. Reset cancels any
// pending fire and schedules a new one; a fire that lost the race against a
// Reset or Dispose is dropped via the generation check, so at most one
// callback runs per armed window.
type debounceTimer struct {
	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	disposed   bool
	fire       func()
}

func (t *debounceTimer) wire(fire func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fire != nil {
		return false
	}

	t.fire = fire
	return true
}

func (t *debounceTimer) reset(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disposed {
		return
	}

	if t.timer != nil {
		t.timer.Stop()
	}

	t.generation++
	generation := t.generation

	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		if t.disposed || t.generation != generation || t.fire == nil {
			t.mu.Unlock()
			return
		}
		fire := t.fire
		t.mu.Unlock()

		fire()
	})
}

func (t *debounceTimer) pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return !t.disposed && t.timer != nil
}

// dispose stops the timer for good. It reports whether this call did the disposal.
func (t *debounceTimer) dispose() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disposed {
		return false
	}

	t.disposed = true
	t.generation++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}

	return true
}
