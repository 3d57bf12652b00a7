package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/covercompare/engine/internal/auth"
	"github.com/covercompare/engine/internal/compare"
	"github.com/covercompare/engine/internal/viewmodel"
)

// Server is the coverage comparison engine's HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
type ServerConfig struct {
	// Required dependencies.
	Orchestrator    *compare.Orchestrator
	Assembler       *viewmodel.Assembler
	Workbench       workbenchAPI
	JWTMgr          *auth.JWTManager
	AdminAPIKeyHash string
	Logger          *slog.Logger

	// Optional: when set, GET /admin/events/{event_id} attaches ranked
	// canonical-code suggestions for the reviewing admin (SPEC_FULL.md
	// §D). Nil disables the suggestions field entirely.
	Suggester suggesterAPI

	// Optional: when set, the same compile/compare operations are exposed as
	// MCP tools at /mcp for agent-based callers (SPEC_FULL.md §D.3).
	MCPServer *mcpserver.MCPServer

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
	CORSAllowedOrigins  []string // Allowed origins for CORS; ["*"] permits all.
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		Orchestrator:    cfg.Orchestrator,
		Assembler:       cfg.Assembler,
		Workbench:       cfg.Workbench,
		Suggester:       cfg.Suggester,
		JWTMgr:          cfg.JWTMgr,
		AdminAPIKeyHash: cfg.AdminAPIKeyHash,
		Logger:          cfg.Logger,
		Version:         cfg.Version,
		MaxRequestBody:  cfg.MaxRequestBodyBytes,
	})

	mux := http.NewServeMux()

	// Public (no auth required).
	mux.HandleFunc("POST /auth/token", h.HandleAuthToken)
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /config", h.HandleConfig)

	// Core engine surface (no auth — these are read-only derivations over
	// the public proposal universe, not admin mutations).
	mux.HandleFunc("POST /compile", h.HandleCompile)
	mux.HandleFunc("POST /compare", h.HandleCompare)

	// Admin Mapping Workbench (spec.md §4.15) — every route requires a
	// valid admin actor JWT.
	adminOnly := func(next http.HandlerFunc) http.Handler {
		return adminAuthMiddleware(cfg.JWTMgr, next)
	}
	mux.Handle("GET /admin/events", adminOnly(h.HandleAdminQueue))
	mux.Handle("GET /admin/events/{event_id}", adminOnly(h.HandleAdminEventDetail))
	mux.Handle("POST /admin/events/{event_id}/approve", adminOnly(h.HandleAdminApprove))
	mux.Handle("POST /admin/events/{event_id}/reject", adminOnly(h.HandleAdminReject))
	mux.Handle("POST /admin/events/{event_id}/snooze", adminOnly(h.HandleAdminSnooze))

	// MCP StreamableHTTP transport — same compile/compare operations, for
	// agent callers (cmd/comparemcp exposes the equivalent stdio transport).
	if cfg.MCPServer != nil {
		mcpHTTP := mcpserver.NewStreamableHTTPServer(cfg.MCPServer)
		mux.Handle("/mcp", mcpHTTP)
	}

	// Middleware chain (outermost executes first):
	// request ID → security headers → CORS → tracing → logging → baggage → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = baggageMiddleware(handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = corsMiddleware(cfg.CORSAllowedOrigins, handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  2 * cfg.ReadTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// Handlers returns the underlying Handlers.
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
