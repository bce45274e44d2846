package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/tayyib/internal/models"
	"github.com/hyperjump/tayyib/internal/routing"
	"github.com/hyperjump/tayyib/internal/storage"
	"go.uber.org/zap"
)

const recordTimeout = 2 * time.Second

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("ask handler panicked", zap.Any("panic", rec))
			s.respondJSON(w, http.StatusOK, models.SafeAskResponse())
		}
	}()

	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := req.ToQuery()
	var d *models.RouteDecision
	if strings.TrimSpace(q.Text) == "" {
		d = &models.RouteDecision{
			Route:              models.RouteErrorFallback,
			ClarifyingQuestion: routing.EmptyQueryMessage(q.Lang),
			Chips:              routing.ClarifierOptions("", q.Lang),
			ErrorCode:          models.ErrEmptyQuery,
		}
	} else {
		d = s.deps.Engine.Ask(r.Context(), q)
	}

	elapsed := time.Since(start)
	resp := models.NewAskResponse(d, elapsed.Milliseconds())
	if !s.config.DevMode {
		resp.DebugNotes = nil
	}
	s.deps.Metrics.RecordRequest(string(models.ModeAsk), string(d.Route), elapsed)
	s.respondJSON(w, http.StatusOK, resp)
	s.record(r.Context(), models.RequestEvent(q, d, resp.LatencyMS, storage.HashQuery(q.Text, s.config.Privacy.QueryHashSalt)))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range s.deps.Pipeline.Run(r.Context(), req.ToQuery()) {
		if err := writeEvent(w, ev); err != nil {
			s.logger.Debug("chat client went away", zap.Error(err))
			return
		}
		flusher.Flush()
	}
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req models.RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	res := s.deps.Retriever.Retrieve(r.Context(), req.Query, req.Lang, req.TopK)
	results := res.Sources
	if results == nil {
		results = []models.RetrievedSource{}
	}
	s.respondJSON(w, http.StatusOK, models.RetrieveResponse{Results: results, Confidence: res.Confidence})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req models.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.record(r.Context(), models.FeedbackEvent(&req))
	s.respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"version":    s.deps.Version.Version,
		"build_time": s.deps.Version.BuildTime,
		"event_mode": s.config.EventMode,
	})
}

// handleDiag reports configuration and the last provider failure. Dev mode only.
func (s *Server) handleDiag(w http.ResponseWriter, r *http.Request) {
	if !s.config.DevMode {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}
	cfg := s.config
	resp := map[string]interface{}{
		"openai_key_present": cfg.Completion.APIKey != "",
		"completion_model":   cfg.Completion.Model,
		"embedding_provider": cfg.Embedding.Provider,
		"embedding_model":    cfg.Embedding.Model,
		"vector_index_type":  cfg.VectorIndex.Type,
		"database_path":      cfg.Storage.DatabasePath,
		"offline_pack_path":  cfg.Storage.OfflinePackPath,
		"event_mode":         cfg.EventMode,
		"path_sizes": storage.PathSizes(map[string]string{
			"database":     cfg.Storage.DatabasePath,
			"offline_pack": cfg.Storage.OfflinePackPath,
			"vector_index": cfg.Storage.VectorIndexPath,
		}),
	}
	if s.deps.Index != nil {
		resp["vector_index_size"] = s.deps.Index.Size()
	}

	var lastErr interface{}
	if e, at := s.deps.ErrorLog.Last(); e != nil {
		lastErr = map[string]interface{}{
			"error_code": e.Code,
			"status":     e.Status,
			"message":    e.Error(),
			"at":         at.UTC().Format(time.RFC3339),
		}
	}
	resp["last_provider_error"] = lastErr

	if s.deps.Storage != nil {
		if counts, err := s.deps.Storage.RouteCounts(r.Context()); err == nil {
			resp["route_counts"] = counts
		} else {
			s.logger.Warn("diag: route counts failed", zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// record writes an analytics row. Failures are logged and never reach the caller.
func (s *Server) record(ctx context.Context, ev *models.AnalyticsEvent) {
	if s.deps.Storage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.deps.Storage.Record(ctx, ev); err != nil {
		s.logger.Warn("analytics record failed", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
