package conversation

import (
	"sync"
	"time"

	"supportbot/app/model"
)

// CompleteFunc delivers the outcome of a pending turn back to the chat.
type CompleteFunc func(success bool, text string) error

// Conversation is the tracked state of one user. Turns[0] is always the preamble.
type Conversation struct {
	userID string
	timer  debounceTimer

	mu               sync.Mutex
	turns            []model.Turn
	lastActive       time.Time
	responded        bool
	usageCapInformed bool
	onComplete       CompleteFunc

	// cycle increments on every upsert; a run is only allowed to settle the
	// cycle it started with.
	cycle    uint64
	inFlight bool
	refire   bool
	// removed is set once the store dropped the conversation; no run may
	// settle it afterwards.
	removed bool
}

// Snapshot is a lock-free copy of a conversation.
type Snapshot struct {
	UserID           string
	Turns            []model.Turn
	LastActive       time.Time
	Responded        bool
	UsageCapInformed bool
	QuestionCount    int
	InFlight         bool
}

// run is what an orchestration needs from the conversation at fire time.
type run struct {
	cycle      uint64
	turns      []model.Turn
	onComplete CompleteFunc
}

func newConversation(userID, preamble string) *Conversation {
	return &Conversation{
		userID:    userID,
		turns:     []model.Turn{&model.SystemTurn{Content: preamble, Preamble: true}},
		responded: true,
	}
}

func (c *Conversation) UserID() string {
	return c.userID
}

func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		UserID:           c.userID,
		Turns:            model.CloneTurns(c.turns),
		LastActive:       c.lastActive,
		Responded:        c.responded,
		UsageCapInformed: c.usageCapInformed,
		QuestionCount:    c.questionCountLocked(),
		InFlight:         c.inFlight,
	}
}

func (c *Conversation) IsResponded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.responded
}

// MarkResponded settles the conversation without a reply. Idempotent.
func (c *Conversation) MarkResponded() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.responded = true
}

func (c *Conversation) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lastActive
}

// QuestionCount is the number of user turns, the preamble excluded.
func (c *Conversation) QuestionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.questionCountLocked()
}

func (c *Conversation) questionCountLocked() int {
	count := 0
	for _, turn := range c.turns {
		if _, ok := turn.(*model.UserTurn); ok {
			count++
		}
	}

	return count
}

// appendLocked folds earlier unresolved user turns into the new one and
// reports whether the bot had just replied.
func (c *Conversation) appendLocked(turn *model.UserTurn, now time.Time) (afterReply bool) {
	switch last := c.turns[len(c.turns)-1].(type) {
	case *model.SystemTurn:
		afterReply = !last.Preamble
	case *model.UserTurn:
	}

	for _, existing := range c.turns {
		switch t := existing.(type) {
		case *model.UserTurn:
			t.Responded = true
		case *model.SystemTurn:
		}
	}

	c.turns = append(c.turns, turn)
	c.lastActive = now
	c.responded = false
	c.cycle++

	return afterReply
}

// begin claims the pending cycle for an orchestration. It refuses when the
// last turn is not a user turn, when nothing is owed, or when another run is
// still in flight; in the latter case the timer is rearmed once that run ends.
func (c *Conversation) begin() (run, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.removed {
		return run{}, false
	}

	if c.inFlight {
		c.refire = true
		return run{}, false
	}

	if _, ok := c.turns[len(c.turns)-1].(*model.UserTurn); !ok || c.responded {
		return run{}, false
	}

	c.inFlight = true

	return run{
		cycle:      c.cycle,
		turns:      model.CloneTurns(c.turns),
		onComplete: c.onComplete,
	}, true
}

// current reports whether the run still owns the conversation: it was not
// removed, nobody answered in the meantime and no newer turn arrived.
func (c *Conversation) current(cycle uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.currentLocked(cycle)
}

func (c *Conversation) currentLocked(cycle uint64) bool {
	return !c.removed && !c.responded && c.cycle == cycle
}

func (c *Conversation) markRemoved() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removed = true
}

// commit appends the bot reply if the run is still current.
func (c *Conversation) commit(cycle uint64, reply string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.currentLocked(cycle) {
		return false
	}

	if last, ok := c.turns[len(c.turns)-1].(*model.UserTurn); ok {
		last.Responded = true
	}

	c.turns = append(c.turns, &model.SystemTurn{Content: reply})
	c.lastActive = now
	c.responded = true

	return true
}

// finish ends a run. The cycle it started with is always settled; a newer
// cycle stays pending and is refired if its timer went off during the run.
func (c *Conversation) finish(cycle uint64) {
	c.mu.Lock()
	c.inFlight = false
	if c.cycle == cycle {
		c.responded = true
	}
	refire := c.refire && !c.responded
	c.refire = false
	c.mu.Unlock()

	if refire {
		c.timer.reset(immediateDelay)
	}
}
