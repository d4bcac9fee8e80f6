package engine

import (
	"strings"
	"unicode/utf8"
)

const maxMessageLength = 500

// splitMessage flattens text onto one line and cuts it into word-aligned chunks
// of at most limit runes. Words longer than limit are hard-split.
func splitMessage(text string, limit int) []string {
	var (
		chunks []string
		b      strings.Builder
		n      int
	)

	flush := func() {
		if n > 0 {
			chunks = append(chunks, b.String())
			b.Reset()
			n = 0
		}
	}

	for _, word := range strings.Fields(text) {
		runes := []rune(word)
		for len(runes) > limit {
			flush()
			chunks = append(chunks, string(runes[:limit]))
			runes = runes[limit:]
		}
		if len(runes) == 0 {
			continue
		}

		word = string(runes)
		size := utf8.RuneCountInString(word)

		if n > 0 && n+1+size > limit {
			flush()
		}
		if n > 0 {
			b.WriteByte(' ')
			n++
		}

		b.WriteString(word)
		n += size
	}

	flush()

	return chunks
}
