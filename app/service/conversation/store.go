package conversation

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"supportbot/app/model"

	"github.com/elliotchance/pie/v2"
)

// Store maps user IDs to their conversations. Upserts, removals and timer
// rearms for one key happen under the store lock, the long-running
// orchestration never does.
type Store struct {
	quietPeriod time.Duration
	preamble    string
	now         func() time.Time

	mu            sync.RWMutex
	conversations map[string]*Conversation
	onFire        func(*Conversation)
}

func NewStore(quietPeriod time.Duration, preamble string) *Store {
	return &Store{
		quietPeriod:   quietPeriod,
		preamble:      preamble,
		now:           time.Now,
		conversations: make(map[string]*Conversation),
	}
}

// Bind sets the callback every debounce timer fires into. Only the first call has effect.
func (s *Store) Bind(onFire func(*Conversation)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.onFire == nil {
		s.onFire = onFire
	}
}

// UpsertTurn appends a user turn, creating the conversation on first use, and
// rearms its debounce timer. A turn that follows a bot reply is always
// fast-tracked. A nil onComplete keeps the previous callback.
func (s *Store) UpsertTurn(userID string, turn *model.UserTurn, respondImmediately bool, onComplete CompleteFunc) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[userID]
	if !ok {
		conv = newConversation(userID, s.preamble)
		s.conversations[userID] = conv
	}

	conv.mu.Lock()
	if conv.appendLocked(turn, s.now()) {
		respondImmediately = true
	}
	if onComplete != nil {
		conv.onComplete = onComplete
	}
	conv.mu.Unlock()

	conv.timer.wire(func() {
		s.dispatch(conv)
	})

	delay := s.quietPeriod
	if respondImmediately {
		delay = immediateDelay
	}
	conv.timer.reset(delay)

	slog.Debug("Upserted turn",
		"user_id", userID,
		"created", !ok,
		"immediate", respondImmediately,
		"delay", delay,
	)

	return conv
}

func (s *Store) dispatch(conv *Conversation) {
	s.mu.RLock()
	onFire := s.onFire
	s.mu.RUnlock()

	if onFire == nil {
		slog.Warn("Debounce timer fired without a handler", "user_id", conv.userID)
		return
	}

	onFire(conv)
}

// Remove deletes the conversation and disposes its timer. Missing users are not an error.
func (s *Store) Remove(userID string) bool {
	s.mu.Lock()
	conv, ok := s.conversations[userID]
	if ok {
		delete(s.conversations, userID)
		conv.markRemoved()
	}
	s.mu.Unlock()

	if !ok {
		return false
	}

	conv.timer.dispose()
	slog.Debug("Removed conversation", "user_id", userID)

	return true
}

// removeCycle removes conv only if it is still the entry for its user and
// cycle is still its pending, unanswered cycle. A turn that arrived in the
// meantime keeps the conversation alive.
func (s *Store) removeCycle(conv *Conversation, cycle uint64) bool {
	s.mu.Lock()
	current, ok := s.conversations[conv.userID]
	if !ok || current != conv {
		s.mu.Unlock()
		return false
	}

	conv.mu.Lock()
	removable := conv.currentLocked(cycle)
	if removable {
		conv.removed = true
		delete(s.conversations, conv.userID)
	}
	conv.mu.Unlock()
	s.mu.Unlock()

	if !removable {
		return false
	}

	conv.timer.dispose()
	return true
}

// RemoveInactive removes every conversation whose last activity is before cutoff.
func (s *Store) RemoveInactive(cutoff time.Time) []string {
	s.mu.Lock()
	stale := make([]*Conversation, 0)
	for userID, conv := range s.conversations {
		if conv.LastActive().Before(cutoff) {
			delete(s.conversations, userID)
			conv.markRemoved()
			stale = append(stale, conv)
		}
	}
	s.mu.Unlock()

	for _, conv := range stale {
		conv.timer.dispose()
	}

	return pie.Sort(pie.Map(stale, (*Conversation).UserID))
}

// Clear removes every conversation.
func (s *Store) Clear() int {
	s.mu.Lock()
	all := s.conversations
	s.conversations = make(map[string]*Conversation)
	s.mu.Unlock()

	for _, conv := range all {
		conv.markRemoved()
		conv.timer.dispose()
	}

	return len(all)
}

func (s *Store) Get(userID string) (*Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[userID]
	return conv, ok
}

func (s *Store) IsTracked(userID string) bool {
	_, ok := s.Get(userID)
	return ok
}

func (s *Store) MarkCapInformed(userID string) {
	conv, ok := s.Get(userID)
	if !ok {
		return
	}

	conv.mu.Lock()
	conv.usageCapInformed = true
	conv.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.conversations)
}

// Snapshots returns copies of all conversations ordered by user ID.
func (s *Store) Snapshots() []Snapshot {
	s.mu.RLock()
	conversations := make([]*Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		conversations = append(conversations, conv)
	}
	s.mu.RUnlock()

	snapshots := pie.Map(conversations, (*Conversation).Snapshot)

	return pie.SortUsing(snapshots, func(a, b Snapshot) bool {
		return strings.Compare(a.UserID, b.UserID) < 0
	})
}
