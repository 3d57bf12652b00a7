package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/covercompare/engine/internal/compiler"
	"github.com/covercompare/engine/internal/model"
)

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("covercompare_compile",
			mcplib.WithDescription(`Turn a free-text coverage request into a deterministic compiled query.

WHEN TO USE: call this first with the user's raw question (e.g. "삼성화재랑 한화 암보험 비교해줘").
It returns the compiled query plus a decision trace, and a list of
required_selections you must ask the user about before calling
covercompare_compare (e.g. which insurers, which cancer subtype).`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("user_query",
				mcplib.Description("The user's free-text request, in Korean or English."),
				mcplib.Required(),
			),
			mcplib.WithString("selected_insurers",
				mcplib.Description("Comma-separated insurer codes already confirmed by the user (e.g. \"SAMSUNG,HANWHA\"). Omit if not yet known."),
			),
		),
		s.handleCompile,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("covercompare_compare",
			mcplib.WithDescription(`Run the comparison engine over a compiled query and one or two insurers.

WHEN TO USE: after covercompare_compile has returned a query with no
remaining required_selections. Returns a snapshot, a per-insurer fact
table, and any policy evidence panels backing comparability gaps.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("query",
				mcplib.Description("The compiled_request.query value from covercompare_compile."),
				mcplib.Required(),
			),
			mcplib.WithString("insurer_a",
				mcplib.Description("First insurer code (e.g. \"SAMSUNG\")."),
				mcplib.Required(),
			),
			mcplib.WithString("insurer_b",
				mcplib.Description("Optional second insurer code for a head-to-head comparison."),
			),
		),
		s.handleCompare,
	)
}

func (s *Server) handleCompile(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	userQuery := request.GetString("user_query", "")
	if userQuery == "" {
		return errorResult("user_query is required"), nil
	}

	var insurers []model.InsurerCode
	if raw := request.GetString("selected_insurers", ""); raw != "" {
		for _, code := range strings.Split(raw, ",") {
			code = strings.TrimSpace(code)
			if code != "" {
				insurers = append(insurers, model.InsurerCode(code))
			}
		}
	}

	result := compiler.Compile(compiler.Request{
		UserQuery:        userQuery,
		SelectedInsurers: insurers,
	})
	required := compiler.DetectClarificationNeeded(userQuery, insurers)

	resultData, err := json.MarshalIndent(map[string]any{
		"compiled_request":    result.CompiledRequest,
		"compiler_debug":      result.CompilerDebug,
		"required_selections": required,
	}, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("encode result: %v", err)), nil
	}

	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}

func (s *Server) handleCompare(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	query := request.GetString("query", "")
	insurerA := request.GetString("insurer_a", "")
	if query == "" || insurerA == "" {
		return errorResult("query and insurer_a are required"), nil
	}

	var insurerB *model.InsurerCode
	if raw := request.GetString("insurer_b", ""); raw != "" {
		code := model.InsurerCode(raw)
		insurerB = &code
	}

	result, err := s.orchestrator.Compare(ctx, query, model.InsurerCode(insurerA), insurerB)
	if err != nil {
		return errorResult(fmt.Sprintf("compare failed: %v", err)), nil
	}

	vm, err := s.assembler.Assemble("", query, "", result)
	if err != nil {
		return errorResult(fmt.Sprintf("assemble view model failed: %v", err)), nil
	}

	resultData, err := json.MarshalIndent(vm, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("encode result: %v", err)), nil
	}

	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}
