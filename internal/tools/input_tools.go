package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/droidctl/internal/dispatch"
)

// InputInput defines input for the input tool.
type InputInput struct {
	Action string `json:"action" jsonschema:"Action: tap, tap_element, swipe, text, key"`
	Device string `json:"device,omitempty" jsonschema:"Device serial (defaults to the only connected device)"`
	// Tap coordinates
	X int `json:"x,omitempty" jsonschema:"For tap: X coordinate"`
	Y int `json:"y,omitempty" jsonschema:"For tap: Y coordinate"`
	// Swipe coordinates
	StartX     int `json:"start_x,omitempty" jsonschema:"For swipe: start X"`
	StartY     int `json:"start_y,omitempty" jsonschema:"For swipe: start Y"`
	EndX       int `json:"end_x,omitempty" jsonschema:"For swipe: end X"`
	EndY       int `json:"end_y,omitempty" jsonschema:"For swipe: end Y"`
	DurationMS int `json:"duration_ms,omitempty" jsonschema:"For swipe: duration in milliseconds (default 300)"`
	// Element criteria for tap_element
	Text        string `json:"text,omitempty" jsonschema:"For tap_element/text: element text or text to type"`
	ResourceID  string `json:"resource_id,omitempty" jsonschema:"For tap_element: resource id"`
	ClassName   string `json:"class_name,omitempty" jsonschema:"For tap_element: widget class name"`
	ContentDesc string `json:"content_desc,omitempty" jsonschema:"For tap_element: content description"`
	// Key press
	Key string `json:"key,omitempty" jsonschema:"For key: back, home, menu, power, recent, volume_down, volume_up"`
}

// InputOutput defines output for input.
type InputOutput struct {
	Message string `json:"message"`
}

// RegisterInputTools adds touch, typing, and key-press tools.
func RegisterInputTools(server *mcp.Server, core *dispatch.Core) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "input",
		Description: `Inject touch, text, and key events.
Examples:
  input {action: "tap", x: 540, y: 1200}
  input {action: "tap_element", text: "Sign in"}
  input {action: "swipe", start_x: 500, start_y: 1500, end_x: 500, end_y: 300}
  input {action: "text", text: "user@example.com"}
  input {action: "key", key: "back"}`,
	}, makeInputHandler(core))
}

func makeInputHandler(core *dispatch.Core) func(context.Context, *mcp.CallToolRequest, InputInput) (*mcp.CallToolResult, InputOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input InputInput) (*mcp.CallToolResult, InputOutput, error) {
		var (
			op   string
			args map[string]any
		)

		switch input.Action {
		case "tap":
			op = "tap"
			args = map[string]any{"device": input.Device, "x": input.X, "y": input.Y}
		case "tap_element":
			op = "tap_element"
			args = map[string]any{
				"device":       input.Device,
				"text":         input.Text,
				"resource_id":  input.ResourceID,
				"class_name":   input.ClassName,
				"content_desc": input.ContentDesc,
			}
		case "swipe":
			op = "swipe"
			args = map[string]any{
				"device":  input.Device,
				"start_x": input.StartX, "start_y": input.StartY,
				"end_x": input.EndX, "end_y": input.EndY,
			}
			if input.DurationMS > 0 {
				args["duration_ms"] = input.DurationMS
			}
		case "text":
			op = "input_text"
			args = map[string]any{"device": input.Device, "text": input.Text}
		case "key":
			op = "press_key"
			args = map[string]any{"device": input.Device, "key": input.Key}
		default:
			return errorResult(fmt.Sprintf("unknown action %q. Use: tap, tap_element, swipe, text, key", input.Action)), InputOutput{}, nil
		}

		result, errRes := invoke(ctx, core, op, args)
		if errRes != nil {
			return errRes, InputOutput{}, nil
		}
		return nil, InputOutput{Message: result.Text}, nil
	}
}
