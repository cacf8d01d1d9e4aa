package scorer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minAlphaChars = 8
	minTokens     = 3
	minContent    = 2

	// Passages in this length band read as complete prose and get no
	// short-text penalty.
	rewardMinChars = 80
)

// Quality computes a query-independent quality scalar in [0,1] for passage
// text. It penalizes fragments, bare list markers, and heading-only text,
// and rewards moderate-length complete sentences. Computed once at index
// time and stored alongside the passage.
func Quality(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	if countAlpha(trimmed) < minAlphaChars {
		return 0.1
	}

	q := 1.0

	tokens := Tokenize(trimmed)
	if len(tokens) < minTokens {
		q *= 0.5
	}
	if len(ContentTokens(trimmed)) < minContent {
		q *= 0.5
	}

	if isListItem(trimmed) {
		q *= 0.75
	}
	if isHeading(trimmed) {
		q *= 0.7
	}

	// Fragment penalty: prose that trails off without terminal punctuation
	if !isHeading(trimmed) && !endsTerminated(trimmed) {
		q *= 0.8
	}

	if len(trimmed) < rewardMinChars {
		q *= 0.9
	}

	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}
	return q
}

func countAlpha(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

func isHeading(s string) bool {
	return strings.HasPrefix(s, "#")
}

func isListItem(s string) bool {
	for _, prefix := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	// Ordered list markers like "1. " or "12) "
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i+1 < len(s) && (s[i] == '.' || s[i] == ')') && s[i+1] == ' ' {
		return true
	}
	return false
}

func endsTerminated(s string) bool {
	last, _ := utf8.DecodeLastRuneInString(s)
	switch last {
	case '.', '!', '?', ':', '"', '\'', ')', ']':
		return true
	}
	return false
}
