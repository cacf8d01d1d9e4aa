package glossary

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrUnavailable is returned when the glossary collaborator cannot be reached
	ErrUnavailable = errors.New("glossary unavailable")
)

// Glossary reports the recognized concept labels present in a piece of text.
// It is consulted identically at passage index time and on the live query
// window, so both sides of an active-concept match use the same label set.
type Glossary interface {
	RecognizedConcepts(ctx context.Context, text string) ([]string, error)
	Close() error
}

var (
	backtickRE   = regexp.MustCompile("`+")
	nonWordRE    = regexp.MustCompile(`[^\w\s-]`)
	whitespaceRE = regexp.MustCompile(`\s+`)
)

// NormalizeLabel canonicalizes a concept label: code markers and punctuation
// stripped, whitespace collapsed, lower-cased. Two surface forms that
// normalize equal are the same concept.
func NormalizeLabel(label string) string {
	label = strings.TrimSpace(label)
	label = backtickRE.ReplaceAllString(label, "")
	label = nonWordRE.ReplaceAllString(label, "")
	label = whitespaceRE.ReplaceAllString(label, " ")
	return strings.ToLower(strings.TrimSpace(label))
}

// Matcher finds known terms in text with case-insensitive whole-term
// matching. A term matches only when not embedded in a longer word on
// either side, so "Ice" never matches inside "justice".
type Matcher struct {
	// terms maps the lower-cased surface form to the normalized label
	terms map[string]string
}

// NewMatcher builds a matcher over the given terms. Terms that normalize to
// fewer than three characters are dropped as too ambiguous to match.
func NewMatcher(terms []string) *Matcher {
	m := &Matcher{terms: make(map[string]string, len(terms))}
	for _, t := range terms {
		norm := NormalizeLabel(t)
		if len(norm) < 3 {
			continue
		}
		m.terms[strings.ToLower(strings.TrimSpace(t))] = norm
	}
	return m
}

// Match returns the normalized labels of all terms present in text, sorted
// and de-duplicated.
func (m *Matcher) Match(text string) []string {
	if len(m.terms) == 0 || strings.TrimSpace(text) == "" {
		return nil
	}
	lower := strings.ToLower(text)

	found := make(map[string]struct{})
	for surface, label := range m.terms {
		if containsTerm(lower, surface) {
			found[label] = struct{}{}
		}
	}
	if len(found) == 0 {
		return nil
	}

	out := make([]string, 0, len(found))
	for label := range found {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// containsTerm reports whether term occurs in text at a word boundary on
// both sides. Both inputs must already be lower-cased.
func containsTerm(text, term string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], term)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(term)
		if !wordRuneBefore(text, idx) && !wordRuneAt(text, end) {
			return true
		}
		start = idx + 1
	}
}

func wordRuneBefore(s string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return isWordRune(r)
}

func wordRuneAt(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return isWordRune(r)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Static is an in-process Glossary over a fixed term list. Used when the
// collaborator endpoint is not configured, and in tests.
type Static struct {
	matcher *Matcher
}

// NewStatic builds a glossary from a fixed set of terms
func NewStatic(terms []string) *Static {
	return &Static{matcher: NewMatcher(terms)}
}

// RecognizedConcepts returns the known terms present in text
func (s *Static) RecognizedConcepts(_ context.Context, text string) ([]string, error) {
	return s.matcher.Match(text), nil
}

// Close is a no-op for the static glossary
func (s *Static) Close() error { return nil }

// Noop recognizes nothing. Used when no glossary is configured; active-hit
// boosting then contributes zero everywhere.
type Noop struct{}

func (Noop) RecognizedConcepts(context.Context, string) ([]string, error) { return nil, nil }
func (Noop) Close() error                                                { return nil }
