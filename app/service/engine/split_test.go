package engine

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{name: "empty", text: "  \n ", limit: 10, want: nil},
		{name: "fits", text: "hello world", limit: 11, want: []string{"hello world"}},
		{name: "newlines flattened", text: "a\n\nb\nc", limit: 10, want: []string{"a b c"}},
		{name: "word aligned", text: "one two three four", limit: 9, want: []string{"one two", "three", "four"}},
		{name: "long word", text: "abcdefghij xy", limit: 4, want: []string{"abcd", "efgh", "ij", "xy"}},
		{name: "runes", text: "привет мир", limit: 6, want: []string{"привет", "мир"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, splitMessage(tt.text, tt.limit))
		})
	}
}

func TestSplitMessageRespectsLimit(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 60)

	chunks := splitMessage(text, maxMessageLength)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		require.LessOrEqual(t, utf8.RuneCountInString(chunk), maxMessageLength)
	}
	require.Equal(t, strings.Join(strings.Fields(text), " "), strings.Join(chunks, " "))
}
