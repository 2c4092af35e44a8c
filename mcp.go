// CLAUDE:SUMMARY Registers the flagwatch MCP tools: handle membership check, session stats and recorded annotation history.
package flagwatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/flagwatch/kit"
)

// RegisterMCP registers flagwatch tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server, logger *slog.Logger) {
	s.registerCheckTool(srv, logger)
	s.registerStatsTool(srv, logger)
	s.registerRecentTool(srv, logger)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	sch := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sch["required"] = required
	}
	return sch
}

// --- check ---

type checkRequest struct {
	Handles []string `json:"handles"`
}

type checkResponse struct {
	Results []CheckResult `json:"results"`
}

func (s *Service) registerCheckTool(srv *mcp.Server, logger *slog.Logger) {
	tool := &mcp.Tool{
		Name:        "flagwatch_check",
		Description: "Check whether handles are on the loaded block-list. Returns each handle's fingerprint and listed status.",
		InputSchema: inputSchema(map[string]any{
			"handles": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Handles as @name, /name or name"},
		}, []string{"handles"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*checkRequest)
		if len(r.Handles) == 0 {
			return nil, errors.New("handles is required")
		}
		return checkResponse{Results: s.Check(r.Handles...)}, nil
	}

	kit.RegisterMCPTool[checkRequest](srv, tool, kit.Logging(logger, "flagwatch_check")(endpoint))
}

// --- stats ---

func (s *Service) registerStatsTool(srv *mcp.Server, logger *slog.Logger) {
	tool := &mcp.Tool{
		Name:        "flagwatch_stats",
		Description: "Report block-list size and annotation engine counters for this session.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return s.Status(), nil
	}

	kit.RegisterMCPTool[struct{}](srv, tool, kit.Logging(logger, "flagwatch_stats")(endpoint))
}

// --- recent ---

type recentRequest struct {
	Limit int `json:"limit,omitempty"`
}

func (s *Service) registerRecentTool(srv *mcp.Server, logger *slog.Logger) {
	tool := &mcp.Tool{
		Name:        "flagwatch_recent",
		Description: "List the newest annotation events recorded by the sqlite sink, with per-surface totals.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Maximum events to return (default 50)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*recentRequest)
		if r.Limit < 0 {
			return nil, errors.New("limit must not be negative")
		}
		return s.Recent(ctx, r.Limit)
	}

	kit.RegisterMCPTool[recentRequest](srv, tool, kit.Logging(logger, "flagwatch_recent")(endpoint))
}
