// Package keyword finds configured keywords in OCR text, line by line.
package keyword

import (
	"strings"

	"github.com/GriffinCanCode/screenwatch/internal/fingerprint"
)

// Match is one keyword hit: the keyword, the trimmed line it appeared in,
// and the fingerprint that identifies that line for deduplication.
type Match struct {
	Keyword     string
	Line        string
	Fingerprint fingerprint.Sum
}

// Matcher holds the keyword set for one session.
type Matcher struct {
	keywords []string
}

// NewMatcher keeps keywords in the given order; that order decides which
// keyword reports a line first when several share it.
func NewMatcher(keywords []string) *Matcher {
	return &Matcher{keywords: append([]string(nil), keywords...)}
}

// Keywords returns a copy of the keyword set.
func (m *Matcher) Keywords() []string {
	return append([]string(nil), m.keywords...)
}

// Find returns, for each keyword, the first line that contains it and that
// claim accepts. A refused line is passed over and the keyword's next
// matching line is tried, so a line taken by an earlier keyword in the same
// pass does not hide the later lines of another. A nil claim accepts every
// line. Matching is case-sensitive exact substring search.
func (m *Matcher) Find(text string, claim func(fingerprint.Sum) bool) []Match {
	if text == "" || len(m.keywords) == 0 {
		return nil
	}
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil
	}

	// fingerprints are computed lazily, once per line
	sums := make([]fingerprint.Sum, len(lines))
	var matches []Match
	for _, kw := range m.keywords {
		for i, line := range lines {
			if !strings.Contains(line, kw) {
				continue
			}
			if sums[i].IsZero() {
				sums[i] = fingerprint.OfString(line)
			}
			if claim != nil && !claim(sums[i]) {
				continue
			}
			matches = append(matches, Match{Keyword: kw, Line: line, Fingerprint: sums[i]})
			break
		}
	}
	return matches
}

// splitLines trims each line and drops blank ones.
func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	out := raw[:0]
	for _, line := range raw {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
