// Package match provides string canonicalization and similarity scoring for
// cross-site title/artist matching. Free text scraped from different sites
// disagrees on case, punctuation, diacritics, and decorative suffixes; this
// package reduces both sides to a comparable form before any lookup happens.
package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	nonWordRegex    = regexp.MustCompile(`[^a-z0-9\s]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// Normalize reduces free text to a canonical comparable form: lower-cased,
// diacritics stripped via NFKD decomposition, punctuation removed, whitespace
// collapsed. Normalize is idempotent and returns "" for empty input.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	decomposed := norm.NFKD.String(text)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if !unicode.IsMark(r) {
			b.WriteRune(r)
		}
	}

	lowered := strings.ToLower(b.String())
	lowered = nonWordRegex.ReplaceAllString(lowered, " ")
	lowered = whitespaceRegex.ReplaceAllString(lowered, " ")
	return strings.TrimSpace(lowered)
}

// KeyFor returns the canonical lookup key for an (artist, title) pair.
// Inputs that normalize identically collide deliberately; that bucketing is
// the exact-key level of fuzzy tolerance.
func KeyFor(artist, title string) string {
	return Normalize(artist) + "|" + Normalize(title)
}

// EmptyKey reports whether key carries no usable content, i.e. both the
// artist and title halves normalized to nothing. Such keys must never be
// looked up: an empty key would bucket every blank observation together.
func EmptyKey(key string) bool {
	return strings.TrimSpace(strings.ReplaceAll(key, "|", " ")) == ""
}
