// Package covercompare is the public entrypoint for embedding the coverage
// comparison engine.
//
// cmd/compareservice imports this package to construct and run the server:
//
//	app, err := covercompare.New(
//	    covercompare.WithVersion(version),
//	    covercompare.WithLogger(logger),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph enforces a strict no-cycle rule: covercompare (root)
// imports internal/*, but internal/* never imports covercompare (root).
package covercompare

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/covercompare/engine/internal/admin"
	"github.com/covercompare/engine/internal/admin/suggest"
	"github.com/covercompare/engine/internal/aliasindex"
	"github.com/covercompare/engine/internal/auth"
	"github.com/covercompare/engine/internal/canon"
	"github.com/covercompare/engine/internal/compare"
	"github.com/covercompare/engine/internal/config"
	"github.com/covercompare/engine/internal/embedding"
	"github.com/covercompare/engine/internal/mcp"
	"github.com/covercompare/engine/internal/server"
	"github.com/covercompare/engine/internal/storage"
	"github.com/covercompare/engine/internal/telemetry"
	"github.com/covercompare/engine/internal/universe"
	"github.com/covercompare/engine/internal/viewmodel"
	"github.com/covercompare/engine/migrations"
)

// App is the coverage comparison engine's server lifecycle. Construct with
// New(), run with Run(). App has no public fields — use New() options to
// configure it.
type App struct {
	cfg          config.Config
	db           *storage.DB
	srv          *server.Server
	otelShutdown telemetry.Shutdown
	logger       *slog.Logger
	version      string
}

// New loads configuration, connects to storage, runs embedded migrations,
// and assembles the HTTP server. It does not start serving — call Run.
func New(opts ...Option) (*App, error) {
	var o resolvedOptions
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.aliasIndexPath != "" {
		cfg.AliasIndexPath = o.aliasIndexPath
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("covercompare starting", "version", version, "port", cfg.Port)

	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	db, err := storage.New(context.Background(), cfg.QueryDatabaseURL, cfg.AdminDatabaseURL, logger)
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("storage: %w", err)
	}

	if err := db.RunMigrations(context.Background(), migrations.FS); err != nil {
		db.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("migrations: %w", err)
	}
	for i, extraFS := range o.extraMigrations {
		if err := db.RunMigrations(context.Background(), extraFS); err != nil {
			db.Close()
			_ = otelShutdown(context.Background())
			return nil, fmt.Errorf("extra migrations[%d]: %w", i, err)
		}
	}

	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
	if err != nil {
		db.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("auth: %w", err)
	}

	adminKeyHash, err := auth.HashAPIKey(cfg.AdminAPIKey)
	if err != nil {
		db.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("admin api key: %w", err)
	}

	// Canonical coverage registry (spec.md §5): loaded once from the
	// coverage_standard table migrated above, then frozen for the life of
	// the process.
	registry := canon.New()
	if err := registry.Load(context.Background(), db); err != nil {
		db.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("canon: %w", err)
	}

	// Alias Index (spec.md §4.2): loaded once from the 가입설계서 workbook.
	// Failure here is fatal — query recall must refuse to run on a stale
	// or missing index rather than silently degrade to raw-query matching.
	aliasIdx := aliasindex.New()
	if err := aliasIdx.Load(context.Background(), cfg.AliasIndexPath); err != nil {
		db.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("aliasindex: %w", err)
	}

	universeStore := universe.New(db.QueryPool())
	workbench := admin.New(db.AdminPool(), registry)
	orchestrator := compare.New(universeStore, db, aliasIdx)
	assembler := viewmodel.NewAssembler(nil)

	mcpSrv := mcp.New(orchestrator, assembler, version)

	// Admin suggestion surface (internal/admin/suggest) is entirely
	// optional: it only activates when a Qdrant endpoint is configured, and
	// its absence never blocks startup — reviewers just see no suggestions.
	suggester := newSuggester(context.Background(), cfg, logger)

	srv := server.New(server.ServerConfig{
		Orchestrator:        orchestrator,
		Assembler:           assembler,
		Workbench:           workbench,
		Suggester:           suggester,
		JWTMgr:              jwtMgr,
		AdminAPIKeyHash:     adminKeyHash,
		Logger:              logger,
		MCPServer:           mcpSrv.MCPServer(),
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	return &App{
		cfg:          cfg,
		db:           db,
		srv:          srv,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// newSuggester builds the Admin Mapping Workbench's advisory suggestion
// index when a Qdrant endpoint is configured, or returns nil when it isn't.
// Construction failures are logged and treated as "suggestions disabled"
// rather than fatal — the suggestion surface is advisory only and must
// never gate startup of the compare/resolve path (SPEC_FULL.md §D).
func newSuggester(ctx context.Context, cfg config.Config, logger *slog.Logger) *suggest.Index {
	if cfg.QdrantURL == "" {
		return nil
	}

	var embedProvider embedding.Provider
	if cfg.EmbeddingProvider == "openai" {
		p, err := embedding.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
		if err != nil {
			logger.Warn("admin suggest: embedding provider unavailable, suggestions disabled", "error", err)
			return nil
		}
		embedProvider = p
	} else {
		embedProvider = embedding.NoopProvider{}
	}

	host, port, useTLS, err := parseQdrantAddr(cfg.QdrantURL)
	if err != nil {
		logger.Warn("admin suggest: invalid qdrant address, suggestions disabled", "error", err)
		return nil
	}

	idx, err := suggest.New(suggest.Config{
		Host:       host,
		Port:       port,
		APIKey:     cfg.QdrantAPIKey,
		UseTLS:     useTLS,
		Collection: cfg.QdrantCollection,
		Dims:       uint64(cfg.EmbeddingDimensions),
	}, embedProvider)
	if err != nil {
		logger.Warn("admin suggest: qdrant unavailable, suggestions disabled", "error", err)
		return nil
	}
	if err := idx.EnsureCollection(ctx, uint64(cfg.EmbeddingDimensions)); err != nil {
		logger.Warn("admin suggest: ensure collection failed, suggestions disabled", "error", err)
		return nil
	}
	return idx
}

// parseQdrantAddr splits a COVERCOMPARE_QDRANT_URL value (e.g.
// "localhost:6334" or "https://qdrant.internal:6334") into the host/port/TLS
// triple suggest.Config needs.
func parseQdrantAddr(raw string) (host string, port int, useTLS bool, err error) {
	addr := raw
	if strings.HasPrefix(addr, "https://") {
		useTLS = true
		addr = strings.TrimPrefix(addr, "https://")
	} else if strings.HasPrefix(addr, "http://") {
		addr = strings.TrimPrefix(addr, "http://")
	}

	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, false, fmt.Errorf("parse qdrant address %q: %w", raw, err)
	}
	portNum, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, false, fmt.Errorf("parse qdrant port %q: %w", raw, err)
	}
	return h, portNum, useTLS, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled or a fatal
// server error occurs. On return, Shutdown is called automatically —
// callers should not call Shutdown separately.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	return a.Shutdown(context.Background())
}

// Shutdown gracefully drains the HTTP server and closes the database pools
// and OTEL provider.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("covercompare shutting down")

	if err := a.srv.Shutdown(ctx); err != nil {
		a.logger.Error("http shutdown error", "error", err)
	}

	a.db.Close()

	if err := a.otelShutdown(ctx); err != nil {
		a.logger.Error("otel shutdown error", "error", err)
	}

	return nil
}

// Handler returns the root HTTP handler, for use by tests that want to drive
// the assembled server without binding a port.
func (a *App) Handler() http.Handler {
	return a.srv.Handler()
}
