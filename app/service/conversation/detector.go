package conversation

import "log/slog"

// Outcome is the Answered-Detector's verdict for a reply-type message.
type Outcome int

const (
	// OutcomeFallThrough means the message is not a reply to someone else; handle it normally.
	OutcomeFallThrough Outcome = iota
	// OutcomeFollowUp means the author replied to the bot's answer; append and fast-track.
	OutcomeFollowUp
	// OutcomeAnswered means a third party answered the referenced author, whose
	// conversation is now settled without a bot reply.
	OutcomeAnswered
	// OutcomeIgnored means the message does not concern any tracked exchange.
	OutcomeIgnored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFallThrough:
		return "fall_through"
	case OutcomeFollowUp:
		return "follow_up"
	case OutcomeAnswered:
		return "answered"
	case OutcomeIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

type Detector struct {
	store *Store
	botID func() string
}

func NewDetector(store *Store, botID func() string) *Detector {
	return &Detector{
		store: store,
		botID: botID,
	}
}

// Classify inspects a reply written by authorID to a message of referencedID.
func (d *Detector) Classify(authorID, referencedID string) Outcome {
	if referencedID == authorID {
		return OutcomeFallThrough
	}

	if botID := d.botID(); botID != "" && referencedID == botID {
		conv, ok := d.store.Get(authorID)
		if !ok || !conv.IsResponded() {
			return OutcomeIgnored
		}

		return OutcomeFollowUp
	}

	conv, ok := d.store.Get(referencedID)
	if !ok {
		return OutcomeIgnored
	}

	conv.MarkResponded()
	slog.Info("Question answered by another chatter",
		"user_id", referencedID,
		"answered_by", authorID,
	)

	return OutcomeAnswered
}
