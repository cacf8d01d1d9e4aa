package scorer

import (
	"strings"
	"unicode"
)

// stopwords are high-frequency words excluded from lexical overlap and
// content-token counting.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "from": {}, "had": {}, "has": {},
	"have": {}, "he": {}, "her": {}, "his": {}, "i": {}, "in": {}, "into": {},
	"is": {}, "it": {}, "its": {}, "my": {}, "no": {}, "not": {}, "of": {},
	"on": {}, "or": {}, "our": {}, "she": {}, "so": {}, "that": {}, "the": {},
	"their": {}, "them": {}, "then": {}, "there": {}, "they": {}, "this": {},
	"to": {}, "was": {}, "we": {}, "were": {}, "will": {}, "with": {},
	"you": {}, "your": {},
}

// Tokenize lower-cases text and splits it into alphanumeric word tokens
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ContentTokens returns the tokens of text with stopwords removed
func ContentTokens(text string) []string {
	tokens := Tokenize(text)
	content := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, stop := stopwords[tok]; !stop {
			content = append(content, tok)
		}
	}
	return content
}

// tokenSet builds a membership set from content tokens
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range ContentTokens(text) {
		set[tok] = struct{}{}
	}
	return set
}

// LexOverlap measures lexical similarity between two texts as the share of
// shared content words relative to the smaller word set. Returns a value in
// [0,1]; either text having no content words yields 0.
func LexOverlap(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	smaller, larger := setA, setB
	if len(setB) < len(setA) {
		smaller, larger = setB, setA
	}

	shared := 0
	for tok := range smaller {
		if _, ok := larger[tok]; ok {
			shared++
		}
	}

	return float64(shared) / float64(len(smaller))
}
