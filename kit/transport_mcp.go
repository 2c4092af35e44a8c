package kit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/flagwatch/idgen"
)

var newCallID = idgen.Prefixed("mcp_", idgen.Default)

// RegisterMCPTool exposes endpoint as an MCP tool. The call arguments are
// decoded into a fresh *Req (absent arguments leave it zero) and the
// endpoint's response is returned as JSON text. Decode and endpoint
// failures become tool errors so the client sees them as results.
func RegisterMCPTool[Req any](srv *mcp.Server, tool *mcp.Tool, endpoint Endpoint) {
	srv.AddTool(tool, func(ctx context.Context, call *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := new(Req)
		if args := call.Params.Arguments; len(args) > 0 && string(args) != "null" {
			if err := json.Unmarshal(args, req); err != nil {
				return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
			}
		}

		ctx = WithRequestID(WithTransport(ctx, "mcp"), newCallID())
		resp, err := endpoint(ctx, req)
		if err != nil {
			return toolError(err), nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			return toolError(fmt.Errorf("marshal: %w", err)), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func toolError(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}
