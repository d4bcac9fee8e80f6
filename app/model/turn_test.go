package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCloneTurnsIsDeep(t *testing.T) {
	user := &UserTurn{MessageID: "1", Content: "seeding stuck", Attachments: []string{"https://i.imgur.com/a.png"}}
	turns := []Turn{&SystemTurn{Content: "preamble", Preamble: true}, user}

	cloned := CloneTurns(turns)
	require.Len(t, cloned, 2)

	user.Responded = true
	user.Attachments[0] = "changed"

	clonedUser, ok := cloned[1].(*UserTurn)
	require.True(t, ok)
	require.False(t, clonedUser.Responded)
	require.Equal(t, "https://i.imgur.com/a.png", clonedUser.Attachments[0])

	clonedSystem, ok := cloned[0].(*SystemTurn)
	require.True(t, ok)
	require.True(t, clonedSystem.Preamble)
}

func TestChatMessageIsReply(t *testing.T) {
	require.False(t, ChatMessage{ID: "1"}.IsReply())
	require.False(t, ChatMessage{ReplyParentMsgID: "2"}.IsReply())
	require.True(t, ChatMessage{ReplyParentMsgID: "2", ReplyParentUserID: "42"}.IsReply())
}
