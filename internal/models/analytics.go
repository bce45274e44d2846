package models

import "time"

// AnalyticsEvent is one row of the analytics log: a routed request or a feedback rating.
// Raw query text is never stored, only its salted hash.
type AnalyticsEvent struct {
	SessionID      string
	Lang           Lang
	Mode           Mode
	Rating         *int
	TimeOnScreenMS *int64
	RouteUsed      string
	Confidence     *float64
	SourcesCount   *int
	ErrorCode      ErrorCode
	LatencyMS      *int64
	HashedQuery    string
	Timestamp      time.Time
}

// RequestEvent builds the analytics row for a routed request.
func RequestEvent(q Query, d *RouteDecision, latencyMS int64, hashedQuery string) *AnalyticsEvent {
	confidence := Clamp01(d.Confidence)
	sources := len(d.Sources)
	return &AnalyticsEvent{
		SessionID:    q.SessionID,
		Lang:         q.Lang,
		Mode:         q.Mode,
		RouteUsed:    d.Route.Label(),
		Confidence:   &confidence,
		SourcesCount: &sources,
		ErrorCode:    d.ErrorCode,
		LatencyMS:    &latencyMS,
		HashedQuery:  hashedQuery,
	}
}

// FeedbackEvent builds the analytics row for a rating.
func FeedbackEvent(r *FeedbackRequest) *AnalyticsEvent {
	rating := r.Rating
	onScreen := r.TimeOnScreenMS
	ev := &AnalyticsEvent{
		SessionID:      r.SessionID,
		Mode:           ModeFeedback,
		Rating:         &rating,
		TimeOnScreenMS: &onScreen,
		Confidence:     r.LastConfidence,
	}
	if r.LastRouteUsed != nil {
		ev.RouteUsed = *r.LastRouteUsed
	}
	return ev
}
