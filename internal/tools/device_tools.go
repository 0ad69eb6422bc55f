package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/droidctl/internal/adb"
	"github.com/standardbeagle/droidctl/internal/dispatch"
)

// DeviceInput defines input for the device tool.
type DeviceInput struct {
	Action string `json:"action" jsonschema:"Action: list, info, logcat"`
	Device string `json:"device,omitempty" jsonschema:"Device serial (defaults to the only connected device)"`
	// Logcat options
	Lines  int    `json:"lines,omitempty" jsonschema:"For logcat: number of trailing lines (default 200)"`
	Filter string `json:"filter,omitempty" jsonschema:"For logcat: filterspec, e.g. ActivityManager:I *:S"`
}

// DeviceOutput defines output for device.
type DeviceOutput struct {
	// For list
	Count   int          `json:"count,omitempty"`
	Devices []adb.Device `json:"devices,omitempty"`
	// For info
	Info map[string]string `json:"info,omitempty"`
	// For logcat
	Log string `json:"log,omitempty"`
}

// RegisterDeviceTools adds device discovery and diagnostics tools.
func RegisterDeviceTools(server *mcp.Server, core *dispatch.Core) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "device",
		Description: `Inspect connected devices and emulators.
Examples:
  device {action: "list"}
  device {action: "info"}
  device {action: "info", device: "emulator-5554"}
  device {action: "logcat", lines: 100, filter: "ActivityManager:I *:S"}`,
	}, makeDeviceHandler(core))
}

func makeDeviceHandler(core *dispatch.Core) func(context.Context, *mcp.CallToolRequest, DeviceInput) (*mcp.CallToolResult, DeviceOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input DeviceInput) (*mcp.CallToolResult, DeviceOutput, error) {
		switch input.Action {
		case "list":
			result, errRes := invoke(ctx, core, "list_devices", nil)
			if errRes != nil {
				return errRes, DeviceOutput{}, nil
			}
			devices, _ := result.Value.([]adb.Device)
			return nil, DeviceOutput{Count: len(devices), Devices: devices}, nil

		case "info":
			result, errRes := invoke(ctx, core, "device_info", map[string]any{"device": input.Device})
			if errRes != nil {
				return errRes, DeviceOutput{}, nil
			}
			info, _ := result.Value.(map[string]string)
			return nil, DeviceOutput{Info: info}, nil

		case "logcat":
			args := map[string]any{"device": input.Device}
			if input.Lines > 0 {
				args["lines"] = input.Lines
			}
			if input.Filter != "" {
				args["filter"] = input.Filter
			}
			result, errRes := invoke(ctx, core, "logcat", args)
			if errRes != nil {
				return errRes, DeviceOutput{}, nil
			}
			return nil, DeviceOutput{Log: result.Text}, nil

		default:
			return errorResult(fmt.Sprintf("unknown action %q. Use: list, info, logcat", input.Action)), DeviceOutput{}, nil
		}
	}
}
