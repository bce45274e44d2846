// Package routing decides how each kiosk query is answered: scope rejection, a curated offline
// answer, a grounded or general generation, or a clarifying question.
package routing

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/tayyib/internal/completion"
	"github.com/hyperjump/tayyib/internal/config"
	"github.com/hyperjump/tayyib/internal/models"
	"github.com/hyperjump/tayyib/internal/observability"
	"github.com/hyperjump/tayyib/internal/retrieval"
	"github.com/hyperjump/tayyib/pkg/utils"
	"go.uber.org/zap"
)

// Retriever looks up scored sources. It never fails; failures come back empty.
type Retriever interface {
	Retrieve(ctx context.Context, query string, lang models.Lang, topK int) retrieval.Result
}

// Matcher looks up curated offline answers and suggestion phrasings.
type Matcher interface {
	Match(query string, lang models.Lang) (*models.OfflineEntry, float64)
	Suggest(query string, lang models.Lang, limit int) []string
}

// Plan is how a streamed reply is realized. Exactly one of Text or Prompt carries the body.
type Plan struct {
	Decision models.RouteDecision
	// Text is precomposed and delivered in fragments.
	Text string
	// Preamble is delivered before the generated stream.
	Preamble string
	// Prompt is streamed from the completion provider when set.
	Prompt *completion.Prompt
	// Fallback replaces the plan when generation fails or produces nothing.
	Fallback *Plan
}

// Engine is the routing state machine shared by the single-turn and conversational APIs.
type Engine struct {
	matcher   Matcher
	retriever Retriever
	llm       completion.Client
	cfg       config.RoutingConfig
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewEngine creates an engine.
func NewEngine(matcher Matcher, retriever Retriever, llm completion.Client, cfg config.RoutingConfig, metrics *observability.Metrics, logger *zap.Logger) *Engine {
	return &Engine{
		matcher:   matcher,
		retriever: retriever,
		llm:       llm,
		cfg:       cfg,
		metrics:   metrics,
		logger:    utils.OrNop(logger),
	}
}

// assessment is everything learned about a query before generation.
type assessment struct {
	lang models.Lang
	// query is what the visitor typed; effective is what matching and retrieval see.
	query     string
	effective string

	outOfScope bool

	entry          *models.OfflineEntry
	offlineScore   float64
	offlineSources []models.RetrievedSource

	sources    []models.RetrievedSource
	confidence float64
}

func (e *Engine) assess(ctx context.Context, lang models.Lang, query, effective string, checkScope bool) *assessment {
	a := &assessment{lang: lang, query: query, effective: effective}
	if checkScope && OutOfScope(query) {
		a.outOfScope = true
		return a
	}

	if entry, score := e.matcher.Match(effective, lang); entry != nil && score >= e.cfg.OfflineThreshold {
		res := e.retriever.Retrieve(ctx, effective, lang, e.cfg.OfflineTopK)
		approved := make([]models.RetrievedSource, 0, len(res.Sources))
		for _, s := range models.FilterByScore(res.Sources, e.cfg.MinSourceScore) {
			if entry.AllowsSource(s.SourceID) {
				approved = append(approved, s)
			}
		}
		if len(approved) > 0 {
			a.entry = entry
			a.offlineScore = score
			a.offlineSources = approved
			return a
		}
		e.logger.Debug("offline match without approved sources", zap.String("entry", entry.ID))
	}

	res := e.retriever.Retrieve(ctx, effective, lang, e.cfg.TopKFor(string(lang)))
	a.sources = models.FilterByScore(res.Sources, e.cfg.MinSourceScore)
	a.confidence = res.Confidence
	return a
}

func (e *Engine) weak(a *assessment) bool {
	return len(a.sources) < e.cfg.MinSources || a.confidence < e.cfg.GroundingThreshold
}

// Ask answers a single-turn query. It always returns a well-formed decision.
func (e *Engine) Ask(ctx context.Context, q models.Query) (d *models.RouteDecision) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("ask routing panicked", zap.Any("panic", r))
			d = &models.RouteDecision{
				Route:              models.RouteErrorFallback,
				ClarifyingQuestion: Clarifier(q.Text, q.Lang),
				Chips:              ClarifierOptions(q.Text, q.Lang),
				ErrorCode:          models.ErrAsk,
				DebugNotes:         "fallback: exception",
			}
		}
		d.Normalize()
		e.logDecision(models.ModeAsk, q.Lang, d)
	}()

	a := e.assess(ctx, q.Lang, q.Text, clarifiedQuery(q), !q.Clarified())
	switch {
	case a.outOfScope:
		return e.scopeDecision(a)
	case a.entry != nil:
		d := e.offlineDecision(a)
		answer := cloneAnswer(a.entry.Answer)
		d.Answer = &answer
		return d
	case e.weak(a) && q.Clarified():
		return e.askGeneral(ctx, a)
	case e.weak(a):
		return e.clarify(ctx, a)
	}
	return e.askGrounded(ctx, a)
}

// Plan routes the latest turn of a conversation and describes how to stream the reply.
func (e *Engine) Plan(ctx context.Context, q models.Query) (p *Plan) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("chat routing panicked", zap.Any("panic", r))
			p = &Plan{
				Decision: models.RouteDecision{Route: models.RouteErrorFallback, ErrorCode: models.ErrChat},
				Text:     ChatErrorMessage(q.Lang),
			}
		}
		p.Decision.Normalize()
		e.logDecision(models.ModeChat, q.Lang, &p.Decision)
	}()

	latest := q.Text
	a := e.assess(ctx, q.Lang, latest, EffectiveQuery(q), true)
	switch {
	case a.outOfScope:
		d := e.scopeDecision(a)
		return &Plan{Decision: *d, Text: d.ClarifyingQuestion}
	case a.entry != nil:
		return &Plan{Decision: *e.offlineDecision(a), Text: OfflineProse(a.entry.Answer, a.lang)}
	case e.weak(a) && q.FirstTurn() && Vague(latest):
		d := e.clarify(ctx, a)
		return &Plan{Decision: *d, Text: d.ClarifyingQuestion}
	}

	history := recentHistory(q.History, e.cfg.MaxHistoryMessages)
	chips := e.matcher.Suggest(latest, a.lang, e.cfg.SuggestionLimit)
	if e.weak(a) {
		prompt := chatPrompt(ungroundedChatSystem(a.lang), history)
		return &Plan{
			Decision: models.RouteDecision{
				Route:       models.RouteUngroundedGeneral,
				Chips:       chips,
				GeneralMode: true,
				DebugNotes:  "general: weak_sources",
			},
			Preamble: Disclaimer(a.lang) + "\n\n",
			Prompt:   &prompt,
			Fallback: e.fallbackPlan(a),
		}
	}
	prompt := chatPrompt(groundedChatSystem(a.lang, a.sources), history)
	return &Plan{
		Decision: models.RouteDecision{
			Route:      models.RouteRetrievalGrounded,
			Confidence: a.confidence,
			Sources:    a.sources,
			Chips:      chips,
			DebugNotes: "rag",
		},
		Prompt:   &prompt,
		Fallback: e.fallbackPlan(a),
	}
}

func (e *Engine) scopeDecision(a *assessment) *models.RouteDecision {
	return &models.RouteDecision{
		Route:              models.RouteScopeRejected,
		ClarifyingQuestion: ScopeMessage(a.lang),
		Chips:              e.suggestionChips(a),
		DebugNotes:         "fallback: out_of_scope",
	}
}

func (e *Engine) offlineDecision(a *assessment) *models.RouteDecision {
	return &models.RouteDecision{
		Route:      models.RouteOffline,
		Confidence: a.offlineScore,
		Sources:    a.offlineSources,
		DebugNotes: "offline: " + a.entry.ID,
	}
}

func (e *Engine) askGrounded(ctx context.Context, a *assessment) *models.RouteDecision {
	var out completion.AnswerPayload
	if err := e.llm.Complete(ctx, groundedAskPrompt(a.effective, a.lang, a.sources), completion.AnswerSchema, &out); err != nil {
		return e.providerFallback(a, err)
	}
	answer := toAnswer(out)
	if answer.Empty() || len(a.sources) < e.cfg.MinSources {
		return e.ruleClarification(a, "fallback: empty_answer")
	}
	return &models.RouteDecision{
		Route:      models.RouteRetrievalGrounded,
		Confidence: a.confidence,
		Sources:    a.sources,
		Answer:     answer,
		Chips:      e.followUps(a, out.FollowUps),
		DebugNotes: "rag",
	}
}

func (e *Engine) askGeneral(ctx context.Context, a *assessment) *models.RouteDecision {
	var out completion.AnswerPayload
	if err := e.llm.Complete(ctx, ungroundedAskPrompt(a.effective, a.lang), completion.AnswerSchema, &out); err != nil {
		return e.providerFallback(a, err)
	}
	answer := toAnswer(out)
	if answer.Empty() {
		return e.ruleClarification(a, "fallback: clarified_no_answer")
	}
	disclaimer := Disclaimer(a.lang)
	if !strings.HasPrefix(answer.Direct, disclaimer) {
		answer.Direct = strings.TrimSpace(disclaimer + " " + answer.Direct)
	}
	return &models.RouteDecision{
		Route:       models.RouteUngroundedGeneral,
		Answer:      answer,
		Chips:       e.followUps(a, out.FollowUps),
		GeneralMode: true,
		DebugNotes:  "general: clarified_no_sources",
	}
}

// clarify asks the provider for a clarifying question and falls back to the keyword rules.
func (e *Engine) clarify(ctx context.Context, a *assessment) *models.RouteDecision {
	var out completion.ClarifierPayload
	err := e.llm.Complete(ctx, clarifyPrompt(a.query, a.lang), completion.ClarifierSchema, &out)
	question := strings.TrimSpace(out.Question)
	if err != nil || question == "" {
		if err != nil {
			e.metrics.RecordProviderError(string(completion.CodeOf(err)))
			e.logger.Debug("clarifier generation failed", zap.String("error_code", string(completion.CodeOf(err))))
		}
		return e.ruleClarification(a, "fallback: rag_low_clarify_rule")
	}
	chips := cleanList(out.Options, e.cfg.SuggestionLimit)
	if len(chips) == 0 {
		chips = e.suggestionChips(a)
	}
	return &models.RouteDecision{
		Route:              models.RouteClarification,
		Confidence:         a.confidence,
		ClarifyingQuestion: question,
		Chips:              chips,
		DebugNotes:         "fallback: rag_low_clarify_llm",
	}
}

func (e *Engine) ruleClarification(a *assessment, notes string) *models.RouteDecision {
	return &models.RouteDecision{
		Route:              models.RouteClarification,
		Confidence:         a.confidence,
		ClarifyingQuestion: Clarifier(a.query, a.lang),
		Chips:              e.suggestionChips(a),
		DebugNotes:         notes,
	}
}

// providerFallback converts a completion failure into a route. Malformed output counts as an
// empty answer; everything else is an error fallback carrying the code.
func (e *Engine) providerFallback(a *assessment, err error) *models.RouteDecision {
	code := completion.CodeOf(err)
	e.metrics.RecordProviderError(string(code))
	if code == models.ErrMalformedOutput {
		d := e.ruleClarification(a, "fallback: malformed_output")
		d.ErrorCode = code
		return d
	}
	return &models.RouteDecision{
		Route:              models.RouteErrorFallback,
		Confidence:         a.confidence,
		ClarifyingQuestion: Clarifier(a.query, a.lang),
		Chips:              e.suggestionChips(a),
		ErrorCode:          code,
		ErrorMessage:       "LLM step unavailable; using clarifier",
		DebugNotes:         fmt.Sprintf("fallback: %s", code),
	}
}

func (e *Engine) fallbackPlan(a *assessment) *Plan {
	d := models.RouteDecision{
		Route:              models.RouteErrorFallback,
		Confidence:         a.confidence,
		ClarifyingQuestion: Clarifier(a.query, a.lang),
		Chips:              e.suggestionChips(a),
		DebugNotes:         "fallback: generation_failed",
	}
	return &Plan{Decision: d, Text: d.ClarifyingQuestion}
}

// suggestionChips prefers curated phrasings and falls back to the clarifier options.
func (e *Engine) suggestionChips(a *assessment) []string {
	if chips := e.matcher.Suggest(a.query, a.lang, e.cfg.SuggestionLimit); len(chips) > 0 {
		return chips
	}
	return ClarifierOptions(a.query, a.lang)
}

func (e *Engine) followUps(a *assessment, generated []string) []string {
	if chips := cleanList(generated, e.cfg.SuggestionLimit); len(chips) > 0 {
		return chips
	}
	return e.matcher.Suggest(a.query, a.lang, e.cfg.SuggestionLimit)
}

func (e *Engine) logDecision(mode models.Mode, lang models.Lang, d *models.RouteDecision) {
	e.logger.Debug("route decided",
		zap.String("mode", string(mode)),
		zap.String("lang", string(lang)),
		zap.String("route", string(d.Route)),
		zap.Int("sources", len(d.Sources)),
		zap.Float64("confidence", d.Confidence),
		zap.String("error_code", string(d.ErrorCode)))
}

func toAnswer(p completion.AnswerPayload) *models.Answer {
	a := &models.Answer{
		Direct:   strings.TrimSpace(p.Direct),
		Steps:    cleanList(p.Steps, 0),
		Mistakes: cleanList(p.Mistakes, 0),
	}
	if a.Direct == "" && len(a.Steps) > 0 {
		a.Direct = a.Steps[0]
	}
	return a
}

func cloneAnswer(a models.Answer) models.Answer {
	return models.Answer{
		Direct:   a.Direct,
		Steps:    append([]string{}, a.Steps...),
		Mistakes: append([]string{}, a.Mistakes...),
	}
}

// cleanList trims items, drops blanks and caps the result at limit when limit > 0.
func cleanList(items []string, limit int) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
