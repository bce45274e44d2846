package models

import "strings"

// Mode identifies which caller-facing API produced a query.
type Mode string

const (
	// ModeAsk is the single-turn, non-streaming API.
	ModeAsk Mode = "ask"
	// ModeChat is the conversational, streaming API.
	ModeChat Mode = "chat"
	// ModeFeedback marks rating rows in analytics.
	ModeFeedback Mode = "feedback"
)

// Role tags a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one role-tagged turn of a conversation.
type ChatMessage struct {
	Role    Role   `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content"`
}

// Query is the immutable input to the routing engine for one request.
type Query struct {
	Text            string
	Lang            Lang
	SessionID       string
	Mode            Mode
	ClarifierChoice string
	// History is ordered oldest first and includes the latest user message.
	History []ChatMessage
}

// Clarified reports whether the caller attached a prior clarifier choice.
func (q *Query) Clarified() bool {
	return strings.TrimSpace(q.ClarifierChoice) != ""
}

// UserMessages returns the user turns of the history in order.
func (q *Query) UserMessages() []ChatMessage {
	var out []ChatMessage
	for _, m := range q.History {
		if m.Role == RoleUser {
			out = append(out, m)
		}
	}
	return out
}

// FirstTurn reports whether the conversation holds at most one message.
func (q *Query) FirstTurn() bool {
	return len(q.History) <= 1
}

// LatestUserMessage returns the most recent user message and whether one exists.
func LatestUserMessage(history []ChatMessage) (ChatMessage, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			return history[i], true
		}
	}
	return ChatMessage{}, false
}
