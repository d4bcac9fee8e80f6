package queue

import (
	"testing"

	"supportbot/app/model"

	"github.com/stretchr/testify/require"
)

func TestAddPreservesOrder(t *testing.T) {
	s := NewService(4)

	require.True(t, s.Add(model.ChatMessage{ID: "1"}))
	require.True(t, s.Add(model.ChatMessage{ID: "2"}))

	require.Equal(t, "1", (<-s.Channel()).ID)
	require.Equal(t, "2", (<-s.Channel()).ID)
}

func TestAddDropsWhenFull(t *testing.T) {
	s := NewService(1)

	require.True(t, s.Add(model.ChatMessage{ID: "1"}))
	require.False(t, s.Add(model.ChatMessage{ID: "2"}))
}

func TestShutdownClosesChannel(t *testing.T) {
	s := NewService(1)

	require.NoError(t, s.Shutdown())
	require.NoError(t, s.Shutdown())
	require.False(t, s.Add(model.ChatMessage{ID: "1"}))

	_, ok := <-s.Channel()
	require.False(t, ok)
}
