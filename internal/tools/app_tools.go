package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/droidctl/internal/dispatch"
)

// AppInput defines input for the app tool.
type AppInput struct {
	Action  string `json:"action" jsonschema:"Action: install, launch, stop, clear, list"`
	Device  string `json:"device,omitempty" jsonschema:"Device serial (defaults to the only connected device)"`
	Package string `json:"package,omitempty" jsonschema:"Package name (required for launch/stop/clear)"`
	APKPath string `json:"apk_path,omitempty" jsonschema:"For install: local path to the APK"`
	Filter  string `json:"filter,omitempty" jsonschema:"For list: substring to match against package names"`
}

// AppOutput defines output for app.
type AppOutput struct {
	Message string `json:"message,omitempty"`
	// For list
	Count    int      `json:"count,omitempty"`
	Packages []string `json:"packages,omitempty"`
}

// RegisterAppTools adds app lifecycle tools.
func RegisterAppTools(server *mcp.Server, core *dispatch.Core) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "app",
		Description: `Install and manage apps on the device.
Examples:
  app {action: "install", apk_path: "/tmp/app.apk"}
  app {action: "launch", package: "com.example.app"}
  app {action: "stop", package: "com.example.app"}
  app {action: "clear", package: "com.example.app"}
  app {action: "list", filter: "example"}`,
	}, makeAppHandler(core))
}

func makeAppHandler(core *dispatch.Core) func(context.Context, *mcp.CallToolRequest, AppInput) (*mcp.CallToolResult, AppOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AppInput) (*mcp.CallToolResult, AppOutput, error) {
		switch input.Action {
		case "install":
			result, errRes := invoke(ctx, core, "install_app", map[string]any{
				"device": input.Device, "apk_path": input.APKPath,
			})
			if errRes != nil {
				return errRes, AppOutput{}, nil
			}
			return nil, AppOutput{Message: result.Text}, nil

		case "launch", "stop", "clear":
			op := map[string]string{
				"launch": "launch_app",
				"stop":   "stop_app",
				"clear":  "clear_app_data",
			}[input.Action]
			result, errRes := invoke(ctx, core, op, map[string]any{
				"device": input.Device, "package": input.Package,
			})
			if errRes != nil {
				return errRes, AppOutput{}, nil
			}
			return nil, AppOutput{Message: result.Text}, nil

		case "list":
			result, errRes := invoke(ctx, core, "list_packages", map[string]any{
				"device": input.Device, "filter": input.Filter,
			})
			if errRes != nil {
				return errRes, AppOutput{}, nil
			}
			payload, _ := result.Value.(map[string]any)
			count, _ := payload["count"].(int)
			packages, _ := payload["packages"].([]string)
			return nil, AppOutput{Count: count, Packages: packages}, nil

		default:
			return errorResult(fmt.Sprintf("unknown action %q. Use: install, launch, stop, clear, list", input.Action)), AppOutput{}, nil
		}
	}
}
