package model

import "time"

// ChatMessage is an inbound chat line as seen by the intake loop.
type ChatMessage struct {
	Channel  string
	ID       string
	UserID   string
	Username string
	Text     string
	Badges   map[string]int
	// FirstMessage is true when the platform flags this as the author's first
	// message in the channel.
	FirstMessage bool
	Time         time.Time

	ReplyParentMsgID  string
	ReplyParentUserID string
	// ReplyParentUserLogin and ReplyParentBody describe the message being
	// replied to, as the platform echoes it back.
	ReplyParentUserLogin string
	ReplyParentBody      string
}

func (m ChatMessage) IsReply() bool {
	return m.ReplyParentMsgID != "" && m.ReplyParentUserID != ""
}
