// Package stream realizes one conversational reply as an ordered sequence of text fragments
// followed by a single terminal metadata event.
package stream

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/tayyib/internal/completion"
	"github.com/hyperjump/tayyib/internal/models"
	"github.com/hyperjump/tayyib/internal/observability"
	"github.com/hyperjump/tayyib/internal/routing"
	"github.com/hyperjump/tayyib/internal/storage"
	"github.com/hyperjump/tayyib/pkg/utils"
	"go.uber.org/zap"
)

const recordTimeout = 2 * time.Second

// Planner routes a conversational query.
type Planner interface {
	Plan(ctx context.Context, q models.Query) *routing.Plan
}

// SessionCounter reports how many turns a session has already used.
type SessionCounter interface {
	CountPriorTurns(ctx context.Context, sessionID string, mode models.Mode) (int, error)
}

// Recorder is the analytics sink.
type Recorder interface {
	Record(ctx context.Context, ev *models.AnalyticsEvent) error
}

// Options tunes the pipeline.
type Options struct {
	// MaxMessagesPerSession caps chat turns per session; 0 disables the cap.
	MaxMessagesPerSession int
	FragmentSize          int
	HashSalt              string
}

// Pipeline streams chat replies. Safe for concurrent use; each Run is independent.
type Pipeline struct {
	planner  Planner
	llm      completion.Client
	sessions SessionCounter
	recorder Recorder
	opts     Options
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewPipeline creates a pipeline. sessions and recorder may be nil.
func NewPipeline(planner Planner, llm completion.Client, sessions SessionCounter, recorder Recorder, opts Options, metrics *observability.Metrics, logger *zap.Logger) *Pipeline {
	if opts.FragmentSize <= 0 {
		opts.FragmentSize = 8
	}
	return &Pipeline{
		planner:  planner,
		llm:      llm,
		sessions: sessions,
		recorder: recorder,
		opts:     opts,
		metrics:  metrics,
		logger:   utils.OrNop(logger),
	}
}

// run is the state of one reply.
type run struct {
	p        *Pipeline
	ctx      context.Context
	q        models.Query
	start    time.Time
	streamID string
	yield    func(models.StreamEvent) bool
	open     bool
	done     bool
	inYield  bool
}

// Run returns the event sequence for q. The sequence is single-use. A consumer that stops
// pulling cancels the reply and releases any provider connection.
func (p *Pipeline) Run(ctx context.Context, q models.Query) iter.Seq[models.StreamEvent] {
	return func(yield func(models.StreamEvent) bool) {
		r := &run{
			p:        p,
			ctx:      ctx,
			q:        q,
			start:    time.Now(),
			streamID: uuid.NewString(),
			yield:    yield,
			open:     true,
		}
		defer r.handlePanic()
		r.execute()
	}
}

func (r *run) execute() {
	lang := r.q.Lang
	if strings.TrimSpace(r.q.Text) == "" {
		r.text(routing.EmptyQueryMessage(lang))
		r.finish(&models.RouteDecision{Route: models.RouteErrorFallback, ErrorCode: models.ErrEmptyQuery}, false)
		return
	}
	if r.limitReached() {
		r.p.metrics.RecordSessionLimit()
		r.text(routing.SessionLimitMessage(lang, r.p.opts.MaxMessagesPerSession))
		r.finish(&models.RouteDecision{Route: models.RouteErrorFallback, ErrorCode: models.ErrSessionLimitReached}, false)
		return
	}

	plan := r.p.planner.Plan(r.ctx, r.q)
	if plan.Prompt == nil {
		r.text(plan.Text)
		r.finish(&plan.Decision, true)
		return
	}
	r.generate(plan)
}

func (r *run) limitReached() bool {
	limit := r.p.opts.MaxMessagesPerSession
	if limit <= 0 || strings.TrimSpace(r.q.SessionID) == "" || r.p.sessions == nil {
		return false
	}
	n, err := r.p.sessions.CountPriorTurns(r.ctx, r.q.SessionID, models.ModeChat)
	if err != nil {
		r.p.logger.Warn("session count failed", zap.Error(err))
		n = 0
	}
	return n >= limit
}

func (r *run) generate(plan *routing.Plan) {
	s, err := r.p.llm.Stream(r.ctx, *plan.Prompt)
	if err != nil {
		r.fallback(plan, err)
		return
	}
	defer s.Close()

	r.text(plan.Preamble)
	for r.open && s.Next() {
		r.emit(models.TokenEvent(s.Text()))
	}
	if !r.open {
		r.p.logger.Debug("stream consumer went away", zap.String("stream_id", r.streamID))
		return
	}
	if r.ctx.Err() != nil {
		r.p.logger.Debug("stream cancelled", zap.String("stream_id", r.streamID))
		return
	}

	err = s.Err()
	switch {
	case err != nil && strings.TrimSpace(s.Full()) == "":
		r.fallback(plan, err)
	case err != nil:
		code := completion.CodeOf(err)
		r.p.metrics.RecordProviderError(string(code))
		d := plan.Decision
		d.Route = models.RouteErrorFallback
		d.ErrorCode = code
		r.finish(&d, true)
	case strings.TrimSpace(s.Full()) == "":
		fb := r.fallbackOf(plan)
		d := fb.Decision
		d.Route = models.RouteClarification
		d.DebugNotes = "fallback: empty_answer"
		r.text(fb.Text)
		r.finish(&d, true)
	default:
		r.finish(&plan.Decision, true)
	}
}

// fallback replaces a failed generation with the plan's clarifier.
func (r *run) fallback(plan *routing.Plan, err error) {
	code := completion.CodeOf(err)
	r.p.metrics.RecordProviderError(string(code))
	r.p.logger.Warn("generation failed, using clarifier",
		zap.String("stream_id", r.streamID), zap.String("error_code", string(code)))
	fb := r.fallbackOf(plan)
	d := fb.Decision
	d.ErrorCode = code
	r.text(fb.Text)
	r.finish(&d, true)
}

func (r *run) fallbackOf(plan *routing.Plan) *routing.Plan {
	if plan.Fallback != nil {
		return plan.Fallback
	}
	return &routing.Plan{
		Decision: models.RouteDecision{Route: models.RouteErrorFallback},
		Text:     routing.ChatErrorMessage(r.q.Lang),
	}
}

func (r *run) emit(ev models.StreamEvent) {
	if !r.open {
		return
	}
	r.inYield = true
	r.open = r.yield(ev)
	r.inYield = false
}

// text emits s in fixed-size fragments.
func (r *run) text(s string) {
	for _, frag := range utils.Chunk(s, r.p.opts.FragmentSize) {
		if !r.open {
			return
		}
		r.emit(models.TokenEvent(frag))
	}
}

// finish emits the terminal metadata event and records the turn.
func (r *run) finish(d *models.RouteDecision, record bool) {
	if r.done {
		return
	}
	r.done = true
	elapsed := time.Since(r.start)
	latency := elapsed.Milliseconds()
	r.emit(models.MetaEvent(r.streamID, d, latency))
	r.p.metrics.RecordRequest(string(models.ModeChat), string(d.Route), elapsed)
	if record {
		r.record(d, latency)
	}
}

func (r *run) record(d *models.RouteDecision, latency int64) {
	if r.p.recorder == nil {
		return
	}
	q := r.q
	q.Mode = models.ModeChat
	ev := models.RequestEvent(q, d, latency, storage.HashQuery(q.Text, r.p.opts.HashSalt))
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), recordTimeout)
	defer cancel()
	if err := r.p.recorder.Record(ctx, ev); err != nil {
		r.p.logger.Warn("analytics record failed", zap.Error(err))
	}
}

func (r *run) handlePanic() {
	v := recover()
	if v == nil {
		return
	}
	if r.inYield {
		panic(v)
	}
	r.p.logger.Error("chat stream panicked", zap.Any("panic", v), zap.String("stream_id", r.streamID))
	if r.done {
		return
	}
	r.text(routing.ChatErrorMessage(r.q.Lang))
	r.finish(&models.RouteDecision{Route: models.RouteErrorFallback, ErrorCode: models.ErrChat}, true)
}

// Collect drains seq into the concatenated text and the terminal metadata.
func Collect(seq iter.Seq[models.StreamEvent]) (string, *models.ChatMeta, error) {
	var b strings.Builder
	var meta *models.ChatMeta
	for ev := range seq {
		switch ev.Type {
		case models.EventToken:
			b.WriteString(ev.Text)
		case models.EventMeta:
			meta = ev.Meta
		}
	}
	if meta == nil {
		return b.String(), nil, errors.New("stream ended without metadata")
	}
	return b.String(), meta, nil
}
