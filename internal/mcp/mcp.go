// Package mcp implements the Model Context Protocol server for the coverage
// comparison engine: the same compile/compare operations the HTTP API
// exposes, reachable by MCP-compatible agent callers (SPEC_FULL.md §D.3).
package mcp

import (
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/covercompare/engine/internal/compare"
	"github.com/covercompare/engine/internal/viewmodel"
)

const serverInstructions = `You have access to covercompare, a Korean cancer-insurance coverage
comparison engine.

WORKFLOW:

1. Call covercompare_compile with the user's free-text request. This turns it
   into a deterministic compiled query plus a decision trace, and tells you
   which selections (insurers, surgery method, cancer subtype, ...) are still
   ambiguous and need to be asked back to the user.

2. Once insurers and comparison basis are resolved, call covercompare_compare
   with the compiled query and one or two insurer codes. This returns a
   presentable comparison: a snapshot, a per-insurer fact table, and any
   policy evidence panels backing a gap or a disease-scope caveat.

Never invent coverage amounts or policy language yourself — every fact in
the returned view model is sourced from the proposal universe or a cited
policy span; if covercompare_compare reports the coverage as out-of-universe
or unmapped, say so rather than guessing.`

// Server wraps the MCP server with the comparison engine's service layer.
type Server struct {
	mcpServer    *mcpserver.MCPServer
	orchestrator *compare.Orchestrator
	assembler    *viewmodel.Assembler
}

// New creates and configures an MCP server exposing the compile/compare
// tools. version is reported during the MCP initialize handshake.
func New(orchestrator *compare.Orchestrator, assembler *viewmodel.Assembler, version string) *Server {
	s := &Server{orchestrator: orchestrator, assembler: assembler}

	s.mcpServer = mcpserver.NewMCPServer(
		"covercompare",
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithInstructions(serverInstructions),
	)

	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup
// (stdio in cmd/comparemcp, StreamableHTTP mounted at /mcp in internal/server).
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
