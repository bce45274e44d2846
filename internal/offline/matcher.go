package offline

import (
	"sort"
	"strings"

	"github.com/hyperjump/tayyib/internal/models"
)

// DefaultTagBonus is added to a suggestion's score when one of its entry's tags appears in the query.
const DefaultTagBonus = 0.15

// Matcher scores queries against a Table. Pure and synchronous.
type Matcher struct {
	table    *Table
	tagBonus float64
}

// NewMatcher creates a matcher over table. A non-positive tagBonus uses DefaultTagBonus.
func NewMatcher(table *Table, tagBonus float64) *Matcher {
	if tagBonus <= 0 {
		tagBonus = DefaultTagBonus
	}
	return &Matcher{table: table, tagBonus: tagBonus}
}

// Match returns the entry with the best scoring variant in lang and that score.
// Returns nil and 0 when nothing scores above zero.
func (m *Matcher) Match(query string, lang models.Lang) (*models.OfflineEntry, float64) {
	nq := Normalize(query)
	var best *models.OfflineEntry
	bestScore := 0.0
	entries := m.table.entries(lang)
	for i := range entries {
		for _, v := range entries[i].variants {
			if s := Score(nq, v.normalized); s > bestScore {
				bestScore = s
				best = &entries[i].entry
			}
		}
	}
	if best == nil {
		return nil, 0
	}
	e := *best
	return &e, bestScore
}

// Suggest ranks every stored phrasing in lang against query and returns up to limit distinct
// phrasings with a positive score, best first.
func (m *Matcher) Suggest(query string, lang models.Lang, limit int) []string {
	entries := m.table.entries(lang)
	if limit <= 0 || len(entries) == 0 {
		return []string{}
	}
	nq := Normalize(query)

	type candidate struct {
		text  string
		score float64
	}
	var candidates []candidate
	for _, e := range entries {
		bonus := 0.0
		for _, tag := range e.tags {
			if strings.Contains(nq, tag) {
				bonus = m.tagBonus
				break
			}
		}
		for _, v := range e.variants {
			candidates = append(candidates, candidate{text: v.text, score: Score(nq, v.normalized) + bonus})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	seen := make(map[string]struct{})
	out := make([]string, 0, limit)
	for _, c := range candidates {
		if c.score <= 0 {
			continue
		}
		if _, ok := seen[c.text]; ok {
			continue
		}
		seen[c.text] = struct{}{}
		out = append(out, c.text)
		if len(out) >= limit {
			break
		}
	}
	return out
}
