// Package tools exposes the operation catalog as MCP tools, grouped into
// action-style tool families the way MCP clients expect. Every handler
// routes through the same registry the wire protocol uses, so validation
// and error classification behave identically on both surfaces.
package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/droidctl/internal/dispatch"
	"github.com/standardbeagle/droidctl/internal/registry"
)

// RegisterAll adds the full droidctl tool surface to an MCP server.
func RegisterAll(server *mcp.Server, core *dispatch.Core) {
	RegisterOperationsTool(server, core)
	RegisterDeviceTools(server, core)
	RegisterScreenTools(server, core)
	RegisterInputTools(server, core)
	RegisterAppTools(server, core)
	RegisterNetworkTools(server, core)
	RegisterFileTools(server, core)
}

// invoke runs a catalog operation and classifies failures for tool output.
func invoke(ctx context.Context, core *dispatch.Core, op string, args map[string]any) (*registry.Result, *mcp.CallToolResult) {
	result, err := core.Registry().Invoke(ctx, op, args)
	if err != nil {
		return nil, errorResult(fmt.Sprintf("%s: %v", dispatch.ErrorKindOf(err), err))
	}
	return result, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// OperationsInput defines input for the operations tool.
type OperationsInput struct{}

// OperationsOutput defines output for operations.
type OperationsOutput struct {
	Count      int             `json:"count"`
	Operations []registry.Spec `json:"operations"`
}

// RegisterOperationsTool adds the catalog-discovery tool.
func RegisterOperationsTool(server *mcp.Server, core *dispatch.Core) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "operations",
		Description: "List every supported device-control operation with its parameters and output kind.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, input OperationsInput) (*mcp.CallToolResult, OperationsOutput, error) {
		specs := core.Registry().DescribeAll()
		return nil, OperationsOutput{Count: len(specs), Operations: specs}, nil
	})
}
