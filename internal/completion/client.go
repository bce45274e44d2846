// Package completion talks to the generative text provider: structured JSON answers and token streams.
package completion

import (
	"context"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// Role values accepted in a Prompt.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a prompt.
type Message struct {
	Role    string
	Content string
}

// Prompt is a system instruction plus ordered conversation turns.
type Prompt struct {
	System      string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// Schema is a named JSON schema the provider must conform to.
type Schema struct {
	Name       string
	Definition jsonschema.Definition
}

// Client is the provider boundary used by the routing engine.
type Client interface {
	// Complete decodes a schema-conforming JSON reply into out. Failures are *Error.
	Complete(ctx context.Context, prompt Prompt, schema *Schema, out any) error
	// Stream opens a token stream. Opening failures are *Error; the caller must Close the stream.
	Stream(ctx context.Context, prompt Prompt) (Stream, error)
}

// Stream is a finite, single-consumer sequence of text fragments.
type Stream interface {
	// Next advances to the next non-empty fragment. It returns false at the end or on failure.
	Next() bool
	// Text returns the current fragment.
	Text() string
	// Full returns everything received so far.
	Full() string
	// Err returns the failure that ended the stream, if any, as *Error.
	Err() error
	// Close releases the provider connection. Safe to call more than once.
	Close() error
}

// AnswerPayload is the structured grounded or general answer.
type AnswerPayload struct {
	Direct    string   `json:"direct"`
	Steps     []string `json:"steps"`
	Mistakes  []string `json:"mistakes"`
	FollowUps []string `json:"follow_ups"`
}

// ClarifierPayload is a clarifying question with quick-reply phrasings.
type ClarifierPayload struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

var stringList = jsonschema.Definition{
	Type:  jsonschema.Array,
	Items: &jsonschema.Definition{Type: jsonschema.String},
}

// AnswerSchema constrains answers to a direct statement, steps, mistakes and follow-ups.
var AnswerSchema = &Schema{
	Name: "kiosk_answer",
	Definition: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"direct":     {Type: jsonschema.String},
			"steps":      stringList,
			"mistakes":   stringList,
			"follow_ups": stringList,
		},
		Required:             []string{"direct", "steps", "mistakes", "follow_ups"},
		AdditionalProperties: false,
	},
}

// ClarifierSchema constrains clarifier replies to a question and options.
var ClarifierSchema = &Schema{
	Name: "kiosk_clarifier",
	Definition: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"question": {Type: jsonschema.String},
			"options":  stringList,
		},
		Required:             []string{"question", "options"},
		AdditionalProperties: false,
	},
}
