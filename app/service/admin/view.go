package admin

import (
	"time"

	"supportbot/app/model"
	"supportbot/app/service/conversation"

	"github.com/elliotchance/pie/v2"
)

type ConversationView struct {
	UserID           string     `json:"user_id"`
	LastActive       time.Time  `json:"last_active"`
	Responded        bool       `json:"responded"`
	UsageCapInformed bool       `json:"usage_cap_informed"`
	InFlight         bool       `json:"in_flight"`
	Questions        int        `json:"questions"`
	Turns            []TurnView `json:"turns,omitempty"`
}

type TurnView struct {
	Kind        string   `json:"kind"`
	MessageID   string   `json:"message_id,omitempty"`
	Content     string   `json:"content"`
	Attachments []string `json:"attachments,omitempty"`
	Responded   bool     `json:"responded,omitempty"`
}

type UsageView struct {
	UserID    string `json:"user_id"`
	Count     int    `json:"count"`
	Threshold int    `json:"threshold"`
	Capped    bool   `json:"capped"`
	Informed  bool   `json:"informed"`
}

func newConversationView(snapshot conversation.Snapshot, withTurns bool) ConversationView {
	view := ConversationView{
		UserID:           snapshot.UserID,
		LastActive:       snapshot.LastActive,
		Responded:        snapshot.Responded,
		UsageCapInformed: snapshot.UsageCapInformed,
		InFlight:         snapshot.InFlight,
		Questions:        snapshot.QuestionCount,
	}

	if withTurns {
		view.Turns = pie.Map(snapshot.Turns, newTurnView)
	}

	return view
}

func newTurnView(turn model.Turn) TurnView {
	switch t := turn.(type) {
	case *model.UserTurn:
		return TurnView{
			Kind:        "user",
			MessageID:   t.MessageID,
			Content:     t.Content,
			Attachments: t.Attachments,
			Responded:   t.Responded,
		}
	case *model.SystemTurn:
		kind := "reply"
		if t.Preamble {
			kind = "preamble"
		}
		return TurnView{Kind: kind, Content: t.Content}
	default:
		return TurnView{Kind: "unknown"}
	}
}
