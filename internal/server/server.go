// Package server is the HTTP API: set logging, memory and suggestion reads,
// imports, metrics and the MCP endpoint.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/claude/movementmemory/internal/engine"
	"github.com/claude/movementmemory/internal/ingest/alpha"
	"github.com/claude/movementmemory/internal/mcp"
	"github.com/claude/movementmemory/internal/models"
	"github.com/claude/movementmemory/internal/observability"
	"github.com/claude/movementmemory/internal/progression"
	"github.com/claude/movementmemory/internal/storage"
)

// Store is the pass-through persistence the handlers read directly.
type Store interface {
	UserStore
	QuerySets(ctx context.Context, key progression.Key, start, end time.Time) ([]models.SetRecord, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store   Store
	engine  *engine.Service
	alpha   *alpha.Provider
	metrics *observability.Metrics
	log     *slog.Logger
	apiKey  string
	router  chi.Router

	tailscale      WhoIser
	limiter        RequestRateLimiter
	setsPerMinute  int
	metricsHandler http.Handler
	mcpHandler     http.Handler
}

// New creates a new Server with all routes configured.
func New(store Store, svc *engine.Service, alphaProvider *alpha.Provider, apiKey string, metrics *observability.Metrics, log *slog.Logger) *Server {
	s := &Server{
		store:   store,
		engine:  svc,
		alpha:   alphaProvider,
		metrics: metrics,
		log:     log,
		apiKey:  apiKey,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// SetTailscale switches identity from the dev user to tailnet WhoIs lookups.
func (s *Server) SetTailscale(who WhoIser) { s.tailscale = who }

// SetRateLimiter limits set writes per user.
func (s *Server) SetRateLimiter(l RequestRateLimiter, perMinute int) {
	s.limiter = l
	s.setsPerMinute = perMinute
}

// SetMetricsHandler mounts h at /metrics.
func (s *Server) SetMetricsHandler(h http.Handler) { s.metricsHandler = h }

// SetMCP serves the MCP server over streamable HTTP at /mcp, scoped to the
// caller's user.
func (s *Server) SetMCP(srv *mcpserver.MCPServer) {
	s.mcpHandler = mcpserver.NewStreamableHTTPServer(srv,
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return mcp.WithUserID(ctx, userIDFromContext(r))
		}),
	)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log, s.metrics))
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/metrics", optional(func() http.Handler { return s.metricsHandler }))

	s.router.Group(func(r chi.Router) {
		r.Use(s.identify)

		// Ingest endpoints (API key required)
		r.Route("/api/v1/ingest", func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/alpha", s.handleAlphaIngest)
		})

		r.Route("/api/v1/sets", func(r chi.Router) {
			r.Use(s.rateLimitSets)
			r.Post("/", s.handleLogSet)
			r.Put("/{id}", s.handleEditSet)
			r.Delete("/{id}", s.handleDeleteSet)
		})

		r.Route("/api/v1/exercises/{exercise}", func(r chi.Router) {
			r.Get("/sets", s.handleQuerySets)
			r.Get("/memory", s.handleMemory)
			r.Get("/suggestion", s.handleSuggestion)
			r.Post("/recompute", s.handleRecompute)
		})

		r.Get("/api/v1/memory", s.handleMemories)
		r.Get("/api/v1/me", s.handleMe)
		r.Get("/api/v1/import-logs", s.handleImportLogs)

		r.Handle("/mcp", optional(func() http.Handler { return s.mcpHandler }))
	})
}

// identify picks tailnet or dev identity per request, so SetTailscale may be
// called after New.
func (s *Server) identify(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tailscale == nil {
			dev.ServeHTTP(w, r)
			return
		}
		TailscaleIdentity(s.tailscale, s.store)(next).ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitSets(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RateLimit(s.limiter, "sets", s.setsPerMinute, s.metrics)(next).ServeHTTP(w, r)
	})
}

// optional serves the handler returned by get, or 404 while it is unset.
func optional(get func() http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := get()
		if h == nil {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	}
}
