package model

// Turn is one unit of conversational content: either *UserTurn or *SystemTurn.
// Consumers switch over both variants.
type Turn interface {
	isTurn()
}

// UserTurn is a chat message authored by the tracked user.
type UserTurn struct {
	MessageID   string
	Content     string
	Attachments []string
	// Responded is set once the turn no longer needs its own answer, either
	// because a newer turn folded it in or because the bot replied.
	Responded bool
}

// SystemTurn is either the instruction preamble or a previous bot reply.
type SystemTurn struct {
	Content  string
	Preamble bool
}

func (*UserTurn) isTurn()   {}
func (*SystemTurn) isTurn() {}

// CloneTurns deep-copies turns so the result can be read without holding
// the owning conversation's lock.
func CloneTurns(turns []Turn) []Turn {
	result := make([]Turn, 0, len(turns))

	for _, turn := range turns {
		switch t := turn.(type) {
		case *UserTurn:
			c := *t
			c.Attachments = append([]string(nil), t.Attachments...)
			result = append(result, &c)
		case *SystemTurn:
			c := *t
			result = append(result, &c)
		}
	}

	return result
}
