package models

// StreamEventType distinguishes text fragments from the terminal metadata record.
type StreamEventType string

const (
	EventToken StreamEventType = "token"
	EventMeta  StreamEventType = "meta"
)

// ChatMeta is the terminal metadata record of a streamed reply.
type ChatMeta struct {
	StreamID           string       `json:"stream_id"`
	Sources            []SourceItem `json:"sources"`
	Confidence         float64      `json:"confidence"`
	RefinementChips    []string     `json:"refinement_chips"`
	Route              Route        `json:"route"`
	RouteUsed          string       `json:"route_used"`
	LatencyMS          int64        `json:"latency_ms"`
	ClarifyingQuestion *string      `json:"clarifying_question,omitempty"`
	GeneralMode        *bool        `json:"general_mode,omitempty"`
	ErrorCode          *ErrorCode   `json:"error_code,omitempty"`
}

// StreamEvent is either a text fragment or the single terminal metadata record.
type StreamEvent struct {
	Type StreamEventType
	Text string
	Meta *ChatMeta
}

// TokenEvent returns a text fragment event.
func TokenEvent(text string) StreamEvent {
	return StreamEvent{Type: EventToken, Text: text}
}

// MetaEvent returns the terminal metadata event for a decision.
func MetaEvent(streamID string, d *RouteDecision, latencyMS int64) StreamEvent {
	d.Normalize()
	if latencyMS < 0 {
		latencyMS = 0
	}
	meta := &ChatMeta{
		StreamID:        streamID,
		Sources:         ToSourceItems(d.Sources),
		Confidence:      d.Confidence,
		RefinementChips: d.Chips,
		Route:           d.Route,
		RouteUsed:       d.Route.Label(),
		LatencyMS:       latencyMS,
	}
	if d.ClarifyingQuestion != "" {
		q := d.ClarifyingQuestion
		meta.ClarifyingQuestion = &q
	}
	if d.GeneralMode {
		t := true
		meta.GeneralMode = &t
	}
	if d.ErrorCode != "" {
		c := d.ErrorCode
		meta.ErrorCode = &c
	}
	return StreamEvent{Type: EventMeta, Meta: meta}
}
