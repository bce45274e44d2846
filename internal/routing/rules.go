package routing

import (
	"strings"

	"github.com/hyperjump/tayyib/internal/models"
)

var outOfScopeKeywords = []string{
	"visa",
	"immigration",
	"passport",
	"medical",
	"vaccine",
	"health",
	"legal",
	"law",
	"lawsuit",
	"court",
	"hajj",
	"employment",
}

// OutOfScope reports whether the query touches a topic the kiosk does not cover.
func OutOfScope(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range outOfScopeKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

var interrogatives = map[string]struct{}{
	"how": {}, "what": {}, "where": {}, "when": {}, "why": {}, "who": {}, "which": {},
	"can": {}, "does": {}, "do": {}, "is": {}, "are": {}, "should": {}, "will": {}, "tell": {},
}

// Vague reports whether a query is too short to answer without a clarifier:
// fewer than four words, no question mark and no leading interrogative.
func Vague(query string) bool {
	q := strings.TrimSpace(query)
	words := strings.Fields(q)
	if len(words) >= 4 {
		return false
	}
	if strings.ContainsAny(q, "?؟") {
		return false
	}
	first := ""
	if len(words) > 0 {
		first = strings.ToLower(words[0])
	}
	_, ok := interrogatives[first]
	return !ok
}

// EffectiveQuery joins the previous user turn with the latest one when the latest
// looks like an answer to a clarifier. The result is only used for matching and retrieval.
func EffectiveQuery(q models.Query) string {
	latest := q.Text
	users := q.UserMessages()
	if len(users) < 2 {
		return latest
	}
	original := users[len(users)-2].Content
	if strings.EqualFold(strings.TrimSpace(original), strings.TrimSpace(latest)) {
		return latest
	}
	return original + " (" + latest + ")"
}

// clarifiedQuery appends a single-turn clarifier choice to the query.
func clarifiedQuery(q models.Query) string {
	if !q.Clarified() {
		return q.Text
	}
	return q.Text + "\nClarifier choice: " + strings.TrimSpace(q.ClarifierChoice)
}

// recentHistory keeps the last limit messages.
func recentHistory(history []models.ChatMessage, limit int) []models.ChatMessage {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}
