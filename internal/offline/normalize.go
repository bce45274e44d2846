// Package offline matches visitor questions against the curated offline answer bank.
package offline

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonWord    = regexp.MustCompile(`[^\p{L}\p{N}_\s\x{0600}-\x{06FF}]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Normalize lower-cases text, strips diacritics, replaces punctuation with spaces and collapses whitespace.
// Arabic letters are preserved.
func Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	if stripped, _, err := transform.String(t, text); err == nil {
		text = stripped
	}
	text = nonWord.ReplaceAllString(text, " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

// Score compares two normalized strings: 1 on equality, 0.9 on containment, else token Jaccard.
func Score(query, variant string) float64 {
	if query == "" || variant == "" {
		return 0
	}
	if query == variant {
		return 1
	}
	if strings.Contains(variant, query) || strings.Contains(query, variant) {
		return 0.9
	}
	q := tokenSet(query)
	v := tokenSet(variant)
	if len(q) == 0 || len(v) == 0 {
		return 0
	}
	inter := 0
	for tok := range q {
		if _, ok := v[tok]; ok {
			inter++
		}
	}
	union := len(q) + len(v) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
