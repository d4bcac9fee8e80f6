package conversation

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrEmptyResponse     = errors.New("empty response")
	ErrOffTopic          = errors.New("question classified as off-topic")
	ErrMalformedResponse = errors.New("response has no body after the classification line")
)

var (
	lineBreakRegex   = regexp.MustCompile(`\r\n|\r|\n`)
	blankLinesRegex  = regexp.MustCompile(`\n{3,}`)
	doubleSpaceRegex = regexp.MustCompile(`[ \t]{2,}`)
)

// ParseResponse validates a raw backend answer. The first line is a yes/no
// gate; it contains sentinel when the question is off-topic. When strip is
// set only the lines after the gate are returned, otherwise the whole text.
func ParseResponse(raw, sentinel string, strip bool) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyResponse
	}

	lines := lineBreakRegex.Split(strings.TrimSpace(raw), -1)
	if strings.Contains(lines[0], sentinel) {
		return "", ErrOffTopic
	}

	if len(lines) < 2 {
		return "", ErrMalformedResponse
	}

	text := strings.Join(lines, "\n")
	if strip {
		text = strings.Join(lines[1:], "\n")
	}

	text = tidy(text)
	if text == "" {
		return "", ErrMalformedResponse
	}

	return text, nil
}

func tidy(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(doubleSpaceRegex.ReplaceAllString(line, " "))
	}

	text = strings.Join(lines, "\n")
	text = blankLinesRegex.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
