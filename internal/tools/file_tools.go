package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/droidctl/internal/artifact"
	"github.com/standardbeagle/droidctl/internal/dispatch"
	"github.com/standardbeagle/droidctl/internal/registry"
)

// FileInput defines input for the file tool.
type FileInput struct {
	Action string `json:"action" jsonschema:"Action: shell, pull, push"`
	Device string `json:"device,omitempty" jsonschema:"Device serial (defaults to the only connected device)"`
	// Shell
	Command string `json:"command,omitempty" jsonschema:"For shell: command line to run on the device"`
	// Pull/push
	RemotePath string `json:"remote_path,omitempty" jsonschema:"Path on the device"`
	LocalPath  string `json:"local_path,omitempty" jsonschema:"Path on this machine"`
	Data       string `json:"data,omitempty" jsonschema:"For push: base64-encoded file contents, as an alternative to local_path"`
}

// FileOutput defines output for file.
type FileOutput struct {
	Output  string `json:"output,omitempty"`
	Message string `json:"message,omitempty"`
	// For pull without local_path
	Data      string `json:"data,omitempty"`
	SizeBytes int    `json:"size_bytes,omitempty"`
}

// RegisterFileTools adds shell access and file transfer tools.
func RegisterFileTools(server *mcp.Server, core *dispatch.Core) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "file",
		Description: `Run shell commands and transfer files.
Examples:
  file {action: "shell", command: "ls /sdcard"}
  file {action: "pull", remote_path: "/sdcard/log.txt", local_path: "/tmp/log.txt"}
  file {action: "pull", remote_path: "/sdcard/log.txt"}
  file {action: "push", remote_path: "/sdcard/data.json", local_path: "/tmp/data.json"}`,
	}, makeFileHandler(core))
}

func makeFileHandler(core *dispatch.Core) func(context.Context, *mcp.CallToolRequest, FileInput) (*mcp.CallToolResult, FileOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input FileInput) (*mcp.CallToolResult, FileOutput, error) {
		switch input.Action {
		case "shell":
			result, errRes := invoke(ctx, core, "shell", map[string]any{
				"device": input.Device, "command": input.Command,
			})
			if errRes != nil {
				return errRes, FileOutput{}, nil
			}
			return nil, FileOutput{Output: result.Text}, nil

		case "pull":
			args := map[string]any{"device": input.Device, "remote_path": input.RemotePath}
			if input.LocalPath != "" {
				args["local_path"] = input.LocalPath
			}
			result, errRes := invoke(ctx, core, "pull_file", args)
			if errRes != nil {
				return errRes, FileOutput{}, nil
			}
			if result.Kind == registry.OutputBinary {
				return nil, FileOutput{
					Data:      artifact.Encode(result.Binary),
					SizeBytes: len(result.Binary),
				}, nil
			}
			return nil, FileOutput{Message: result.Text}, nil

		case "push":
			args := map[string]any{"device": input.Device, "remote_path": input.RemotePath}
			if input.LocalPath != "" {
				args["local_path"] = input.LocalPath
			}
			if input.Data != "" {
				args["data"] = input.Data
			}
			result, errRes := invoke(ctx, core, "push_file", args)
			if errRes != nil {
				return errRes, FileOutput{}, nil
			}
			return nil, FileOutput{Message: result.Text}, nil

		default:
			return errorResult(fmt.Sprintf("unknown action %q. Use: shell, pull, push", input.Action)), FileOutput{}, nil
		}
	}
}
