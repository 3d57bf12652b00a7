// Command comparemcp runs the coverage comparison engine's MCP tools over
// stdio, for agent callers that launch the engine as a subprocess rather
// than talking to the HTTP API's StreamableHTTP transport.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/covercompare/engine/internal/aliasindex"
	"github.com/covercompare/engine/internal/compare"
	"github.com/covercompare/engine/internal/config"
	"github.com/covercompare/engine/internal/mcp"
	"github.com/covercompare/engine/internal/storage"
	"github.com/covercompare/engine/internal/universe"
	"github.com/covercompare/engine/internal/viewmodel"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()

	db, err := storage.New(ctx, cfg.QueryDatabaseURL, cfg.AdminDatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close()

	aliasIdx := aliasindex.New()
	if err := aliasIdx.Load(ctx, cfg.AliasIndexPath); err != nil {
		return fmt.Errorf("aliasindex: %w", err)
	}

	universeStore := universe.New(db.QueryPool())
	orchestrator := compare.New(universeStore, db, aliasIdx)
	assembler := viewmodel.NewAssembler(nil)

	mcpSrv := mcp.New(orchestrator, assembler, version)

	return mcpserver.ServeStdio(mcpSrv.MCPServer())
}
