// Package server provides the HTTP API of the kiosk assistant.
package server

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/tayyib/internal/completion"
	"github.com/hyperjump/tayyib/internal/config"
	"github.com/hyperjump/tayyib/internal/models"
	"github.com/hyperjump/tayyib/internal/observability"
	"github.com/hyperjump/tayyib/internal/routing"
	"github.com/hyperjump/tayyib/internal/storage"
	"github.com/hyperjump/tayyib/internal/vector"
	"github.com/hyperjump/tayyib/pkg/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Asker answers single-turn queries.
type Asker interface {
	Ask(ctx context.Context, q models.Query) *models.RouteDecision
}

// Streamer produces the event sequence of a conversational reply.
type Streamer interface {
	Run(ctx context.Context, q models.Query) iter.Seq[models.StreamEvent]
}

// VersionInfo is reported by /api/version.
type VersionInfo struct {
	Version   string
	BuildTime string
}

// Deps are the components the server routes requests to. Storage, Index, ErrorLog,
// Metrics and Gatherer may be nil.
type Deps struct {
	Engine    Asker
	Pipeline  Streamer
	Retriever routing.Retriever
	Storage   storage.Storage
	Index     vector.Index
	ErrorLog  *completion.ErrorLog
	Metrics   *observability.Metrics
	Gatherer  prometheus.Gatherer
	Config    *config.Config
	Version   VersionInfo
}

// Server is the HTTP server for the kiosk API.
type Server struct {
	deps   Deps
	config *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, logger *zap.Logger) *Server {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Defaults()
	}
	return &Server{
		deps:   deps,
		config: cfg,
		logger: utils.OrNop(logger),
	}
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if s.config.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.Server.RequestTimeout))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/ask", s.handleAsk)
		r.Post("/chat", s.handleChat)
		r.Post("/rag_test", s.handleRetrieve)
		r.Post("/feedback", s.handleFeedback)
		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)
		r.Get("/diag", s.handleDiag)
	})
	if s.deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
