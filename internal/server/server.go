// Package server exposes the HTTP API: the chat stream, task and context
// management, session and artifact routes, submission pack export, and
// provider switching.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/hackhero/internal/agent"
	"github.com/nextlevelbuilder/hackhero/internal/artifacts"
	"github.com/nextlevelbuilder/hackhero/internal/config"
	"github.com/nextlevelbuilder/hackhero/internal/export"
	"github.com/nextlevelbuilder/hackhero/internal/ingest"
	"github.com/nextlevelbuilder/hackhero/internal/providers"
	"github.com/nextlevelbuilder/hackhero/internal/rag"
	"github.com/nextlevelbuilder/hackhero/internal/store"
)

// defaultCORSOrigins admits the dashboard dev server when no origins are
// configured.
var defaultCORSOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}

// Deps holds the collaborators the handlers dispatch into.
type Deps struct {
	Stores    *store.Stores
	Agent     *agent.Orchestrator
	Ingestor  *ingest.Service
	Retrieval *rag.Manager
	Artifacts *artifacts.Service
	Exporter  *export.Service
	Provider  *providers.Manager
	Log       *slog.Logger
}

// Server is the HTTP front of the runtime.
type Server struct {
	cfg       *config.Config
	stores    *store.Stores
	agent     *agent.Orchestrator
	ingestor  *ingest.Service
	retrieval *rag.Manager
	artifacts *artifacts.Service
	exporter  *export.Service
	provider  *providers.Manager
	log       *slog.Logger

	httpServer *http.Server
}

// New creates the server. Deps.Log may be nil.
func New(cfg *config.Config, d Deps) *Server {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:       cfg,
		stores:    d.Stores,
		agent:     d.Agent,
		ingestor:  d.Ingestor,
		retrieval: d.Retrieval,
		artifacts: d.Artifacts,
		exporter:  d.Exporter,
		provider:  d.Provider,
		log:       log,
	}
}

// Router builds the route tree with CORS and rate limiting applied.
func (s *Server) Router() http.Handler {
	origins := []string(s.cfg.Server.CORSOrigins)
	if len(origins) == 0 {
		origins = defaultCORSOrigins
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	r.Use(rateLimit(s.cfg.Server.RateLimitRPM))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/chat-stream", s.handleChatStream)

		r.Get("/todos", s.handleListTodos)
		r.Post("/todos", s.handleAddTodo)
		r.Delete("/todos", s.handleClearTodos)
		r.Put("/todos/{todoID}", s.handleUpdateTodo)
		r.Delete("/todos/{todoID}", s.handleDeleteTodo)

		r.Post("/context/rules", s.handleUploadRules)
		r.Post("/context/add-text", s.handleAddText)
		r.Get("/context/status", s.handleContextStatus)
		r.Get("/context/list", s.handleContextList)

		r.Get("/chat-sessions", s.handleListSessions)
		r.Get("/chat-sessions/{sessionID}", s.handleGetSession)
		r.Put("/chat-sessions/{sessionID}/title", s.handleUpdateTitle)
		r.Delete("/chat-sessions/{sessionID}", s.handleDeleteSession)

		r.Get("/chat-sessions/{sessionID}/project-artifacts", s.handleListArtifacts)
		r.Get("/chat-sessions/{sessionID}/project-artifacts/{artifactType}", s.handleGetArtifact)
		r.Post("/chat-sessions/{sessionID}/derive-project-idea", s.handleDeriveIdea)
		r.Post("/chat-sessions/{sessionID}/create-tech-stack", s.handleCreateTechStack)
		r.Post("/chat-sessions/{sessionID}/summarize-chat-history", s.handleSummarize)

		r.Post("/export/submission-pack", s.handleExport)

		r.Get("/ollama/status", s.handleProviderStatus)
		r.Get("/ollama/model", s.handleGetModel)
		r.Post("/ollama/model", s.handleSetModel)
		r.Get("/provider", s.handleGetProvider)
		r.Post("/provider", s.handleSetProvider)
	})

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully. Only the
// header read is deadline-bound; chat streams stay open as long as the turn
// runs.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.ListenAddr(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info("http server starting", "addr", s.cfg.ListenAddr())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// requestLog records each request at debug level.
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("http request",
			"method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// rateLimit throttles mutating requests at rpm requests per minute across
// all clients. rpm <= 0 disables it.
func rateLimit(rpm int) func(http.Handler) http.Handler {
	if rpm <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 5)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodDelete:
				if !limiter.Allow() {
					writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
