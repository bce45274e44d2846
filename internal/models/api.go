package models

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// AskRequest is the single-turn request body.
type AskRequest struct {
	Lang            Lang   `json:"lang" validate:"required,oneof=EN AR FR"`
	Query           string `json:"query" validate:"max=2000"`
	SessionID       string `json:"session_id" validate:"required,max=200"`
	Clarified       bool   `json:"clarified,omitempty"`
	ClarifierChoice string `json:"clarifier_choice,omitempty" validate:"max=500"`
}

// Validate checks the request shape. Lang is upper-cased first so "en" is accepted.
func (r *AskRequest) Validate() error {
	r.Lang = Lang(strings.ToUpper(strings.TrimSpace(string(r.Lang))))
	if err := validatorInstance().Struct(r); err != nil {
		return fmt.Errorf("invalid ask request: %w", err)
	}
	return nil
}

// ToQuery converts the request into an engine query.
func (r *AskRequest) ToQuery() Query {
	q := Query{
		Text:      r.Query,
		Lang:      r.Lang,
		SessionID: r.SessionID,
		Mode:      ModeAsk,
	}
	if r.Clarified {
		q.ClarifierChoice = r.ClarifierChoice
	}
	return q
}

// AskResponse is the non-streaming response body.
type AskResponse struct {
	Answer             Answer       `json:"answer"`
	Sources            []SourceItem `json:"sources"`
	Confidence         float64      `json:"confidence"`
	RefinementChips    []string     `json:"refinement_chips"`
	Route              Route        `json:"route"`
	RouteUsed          string       `json:"route_used"`
	LatencyMS          int64        `json:"latency_ms"`
	ClarifyingQuestion *string      `json:"clarifying_question,omitempty"`
	ErrorCode          *ErrorCode   `json:"error_code,omitempty"`
	ErrorMessage       *string      `json:"error_message,omitempty"`
	DebugNotes         *string      `json:"debug_notes,omitempty"`
	GeneralMode        *bool        `json:"general_mode,omitempty"`
}

// NewAskResponse builds the response for a normalized decision.
func NewAskResponse(d *RouteDecision, latencyMS int64) *AskResponse {
	d.Normalize()
	resp := &AskResponse{
		Answer:          Answer{Steps: []string{}, Mistakes: []string{}},
		Sources:         ToSourceItems(d.Sources),
		Confidence:      d.Confidence,
		RefinementChips: d.Chips,
		Route:           d.Route,
		RouteUsed:       d.Route.Label(),
		LatencyMS:       latencyMS,
	}
	if d.Answer != nil {
		resp.Answer.Direct = d.Answer.Direct
		if d.Answer.Steps != nil {
			resp.Answer.Steps = d.Answer.Steps
		}
		if d.Answer.Mistakes != nil {
			resp.Answer.Mistakes = d.Answer.Mistakes
		}
	}
	resp.ClarifyingQuestion = optString(d.ClarifyingQuestion)
	resp.ErrorMessage = optString(d.ErrorMessage)
	resp.DebugNotes = optString(d.DebugNotes)
	if d.ErrorCode != "" {
		c := d.ErrorCode
		resp.ErrorCode = &c
	}
	if d.GeneralMode {
		t := true
		resp.GeneralMode = &t
	}
	return resp
}

// SafeAskResponse is the fixed response substituted for any unexpected failure.
func SafeAskResponse() *AskResponse {
	return NewAskResponse(&RouteDecision{
		Route:              RouteErrorFallback,
		ClarifyingQuestion: "I couldn't complete that request. Please try again or rephrase.",
		ErrorCode:          ErrAsk,
		ErrorMessage:       "The request could not be completed.",
		DebugNotes:         "fallback: exception",
	}, 0)
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ChatRequest is the conversational request body.
type ChatRequest struct {
	Lang      Lang          `json:"lang" validate:"required,oneof=EN AR FR"`
	Messages  []ChatMessage `json:"messages" validate:"max=100,dive"`
	SessionID string        `json:"session_id" validate:"max=200"`
}

// Validate checks the request shape.
func (r *ChatRequest) Validate() error {
	r.Lang = Lang(strings.ToUpper(strings.TrimSpace(string(r.Lang))))
	if err := validatorInstance().Struct(r); err != nil {
		return fmt.Errorf("invalid chat request: %w", err)
	}
	return nil
}

// ToQuery converts the request into an engine query keyed on the latest user message.
func (r *ChatRequest) ToQuery() Query {
	q := Query{
		Lang:      r.Lang,
		SessionID: r.SessionID,
		Mode:      ModeChat,
		History:   r.Messages,
	}
	if latest, ok := LatestUserMessage(r.Messages); ok {
		q.Text = latest.Content
	}
	return q
}

// FeedbackRequest records a visitor rating at the end of a session.
type FeedbackRequest struct {
	SessionID      string   `json:"session_id" validate:"required,max=200"`
	Rating         int      `json:"rating_1_5" validate:"min=1,max=5"`
	TimeOnScreenMS int64    `json:"time_on_screen_ms" validate:"min=0"`
	LastRouteUsed  *string  `json:"last_route_used,omitempty"`
	LastConfidence *float64 `json:"last_confidence,omitempty"`
}

// Validate checks the request shape.
func (r *FeedbackRequest) Validate() error {
	if err := validatorInstance().Struct(r); err != nil {
		return fmt.Errorf("invalid feedback request: %w", err)
	}
	return nil
}

// RetrieveRequest asks for raw retriever output (diagnostics).
type RetrieveRequest struct {
	Lang  Lang   `json:"lang" validate:"required,oneof=EN AR FR"`
	Query string `json:"query" validate:"required,max=2000"`
	TopK  int    `json:"top_k" validate:"min=0,max=50"`
}

// Validate checks the request shape and applies the default top_k.
func (r *RetrieveRequest) Validate() error {
	r.Lang = Lang(strings.ToUpper(strings.TrimSpace(string(r.Lang))))
	if err := validatorInstance().Struct(r); err != nil {
		return fmt.Errorf("invalid retrieve request: %w", err)
	}
	if r.TopK == 0 {
		r.TopK = 5
	}
	return nil
}

// RetrieveResponse is the raw retriever output.
type RetrieveResponse struct {
	Results    []RetrievedSource `json:"results"`
	Confidence float64           `json:"confidence"`
}
