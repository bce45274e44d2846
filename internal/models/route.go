package models

import "math"

// Route is the terminal category of how a query was answered.
type Route string

const (
	RouteScopeRejected     Route = "scope_rejected"
	RouteOffline           Route = "offline"
	RouteRetrievalGrounded Route = "retrieval_grounded"
	RouteUngroundedGeneral Route = "ungrounded_general"
	RouteClarification     Route = "clarification"
	RouteErrorFallback     Route = "error_fallback"
)

// Routes is the closed set of routes.
var Routes = []Route{
	RouteScopeRejected,
	RouteOffline,
	RouteRetrievalGrounded,
	RouteUngroundedGeneral,
	RouteClarification,
	RouteErrorFallback,
}

// Valid reports whether r is in the closed route set.
func (r Route) Valid() bool {
	for _, known := range Routes {
		if r == known {
			return true
		}
	}
	return false
}

// Label returns the coarse wire label used by kiosk clients: offline, rag, general or fallback.
func (r Route) Label() string {
	switch r {
	case RouteOffline:
		return "offline"
	case RouteRetrievalGrounded:
		return "rag"
	case RouteUngroundedGeneral:
		return "general"
	default:
		return "fallback"
	}
}

// ErrorCode is the small taxonomy of failure codes surfaced to callers and analytics.
type ErrorCode string

const (
	ErrMissingCredential   ErrorCode = "missing_credential"
	ErrRateLimited         ErrorCode = "rate_limited"
	ErrProvider5xx         ErrorCode = "provider_5xx"
	ErrTimeout             ErrorCode = "timeout"
	ErrProvider            ErrorCode = "provider_error"
	ErrMalformedOutput     ErrorCode = "malformed_provider_output"
	ErrSessionLimitReached ErrorCode = "session_limit_reached"
	ErrEmptyQuery          ErrorCode = "empty_query"
	ErrChat                ErrorCode = "chat_error"
	ErrAsk                 ErrorCode = "ask_error"
)

// RouteDecision is the engine's verdict for one query.
type RouteDecision struct {
	Route              Route
	Confidence         float64
	Sources            []RetrievedSource
	Chips              []string
	ClarifyingQuestion string
	// Answer is set for offline and generated single-turn answers.
	Answer       *Answer
	GeneralMode  bool
	ErrorCode    ErrorCode
	ErrorMessage string
	DebugNotes   string
}

// Normalize enforces the decision invariants: confidence in [0,1], non-nil slices,
// and no source-backed route without sources.
func (d *RouteDecision) Normalize() {
	d.Confidence = Clamp01(d.Confidence)
	if d.Sources == nil {
		d.Sources = []RetrievedSource{}
	}
	if d.Chips == nil {
		d.Chips = []string{}
	}
	if len(d.Sources) == 0 && (d.Route == RouteOffline || d.Route == RouteRetrievalGrounded) {
		d.Route = RouteErrorFallback
	}
	if !d.Route.Valid() {
		d.Route = RouteErrorFallback
	}
}

// Clamp01 bounds v to [0,1]; NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
