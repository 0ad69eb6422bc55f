package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/droidctl/internal/dispatch"
	"github.com/standardbeagle/droidctl/internal/ops"
)

// ScreenInput defines input for the screen tool.
type ScreenInput struct {
	Action string `json:"action" jsonschema:"Action: screenshot, hierarchy, find"`
	Device string `json:"device,omitempty" jsonschema:"Device serial (defaults to the only connected device)"`
	// Find criteria (at least one required for find)
	Text        string `json:"text,omitempty" jsonschema:"For find: exact element text"`
	ResourceID  string `json:"resource_id,omitempty" jsonschema:"For find: resource id"`
	ClassName   string `json:"class_name,omitempty" jsonschema:"For find: widget class name"`
	ContentDesc string `json:"content_desc,omitempty" jsonschema:"For find: content description"`
}

// ScreenOutput defines output for screen.
type ScreenOutput struct {
	// For hierarchy
	Hierarchy string `json:"hierarchy,omitempty"`
	// For find
	Count    int           `json:"count,omitempty"`
	Elements []ops.Element `json:"elements,omitempty"`
}

// RegisterScreenTools adds screenshot and UI inspection tools.
func RegisterScreenTools(server *mcp.Server, core *dispatch.Core) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "screen",
		Description: `Capture and inspect the device screen.
Examples:
  screen {action: "screenshot"}
  screen {action: "hierarchy"}
  screen {action: "find", text: "Sign in"}
  screen {action: "find", resource_id: "com.example:id/login"}`,
	}, makeScreenHandler(core))
}

func makeScreenHandler(core *dispatch.Core) func(context.Context, *mcp.CallToolRequest, ScreenInput) (*mcp.CallToolResult, ScreenOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ScreenInput) (*mcp.CallToolResult, ScreenOutput, error) {
		switch input.Action {
		case "screenshot":
			result, errRes := invoke(ctx, core, "screenshot", map[string]any{"device": input.Device})
			if errRes != nil {
				return errRes, ScreenOutput{}, nil
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.ImageContent{Data: result.Binary, MIMEType: result.MIMEType},
				},
			}, ScreenOutput{}, nil

		case "hierarchy":
			result, errRes := invoke(ctx, core, "ui_hierarchy", map[string]any{"device": input.Device})
			if errRes != nil {
				return errRes, ScreenOutput{}, nil
			}
			return nil, ScreenOutput{Hierarchy: result.Text}, nil

		case "find":
			result, errRes := invoke(ctx, core, "find_element", map[string]any{
				"device":       input.Device,
				"text":         input.Text,
				"resource_id":  input.ResourceID,
				"class_name":   input.ClassName,
				"content_desc": input.ContentDesc,
			})
			if errRes != nil {
				return errRes, ScreenOutput{}, nil
			}
			payload, _ := result.Value.(map[string]any)
			count, _ := payload["count"].(int)
			elements, _ := payload["elements"].([]ops.Element)
			return nil, ScreenOutput{Count: count, Elements: elements}, nil

		default:
			return errorResult(fmt.Sprintf("unknown action %q. Use: screenshot, hierarchy, find", input.Action)), ScreenOutput{}, nil
		}
	}
}
