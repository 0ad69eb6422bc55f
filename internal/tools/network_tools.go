package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/droidctl/internal/dispatch"
)

// NetworkInput defines input for the network tool.
type NetworkInput struct {
	Action   string `json:"action" jsonschema:"Action: set_proxy, clear_proxy, install_cert"`
	Device   string `json:"device,omitempty" jsonschema:"Device serial (defaults to the only connected device)"`
	Host     string `json:"host,omitempty" jsonschema:"For set_proxy: proxy host reachable from the device"`
	Port     int    `json:"port,omitempty" jsonschema:"For set_proxy: proxy port"`
	CertPath string `json:"cert_path,omitempty" jsonschema:"For install_cert: local path to the certificate file"`
}

// NetworkOutput defines output for network.
type NetworkOutput struct {
	Message string `json:"message"`
}

// RegisterNetworkTools adds proxy and certificate tools for traffic
// interception setups.
func RegisterNetworkTools(server *mcp.Server, core *dispatch.Core) {
	mcp.AddTool(server, &mcp.Tool{
		Name: "network",
		Description: `Configure the device for HTTP traffic interception.
Examples:
  network {action: "set_proxy", host: "10.0.2.2", port: 8080}
  network {action: "clear_proxy"}
  network {action: "install_cert", cert_path: "/tmp/mitm-ca.pem"}`,
	}, makeNetworkHandler(core))
}

func makeNetworkHandler(core *dispatch.Core) func(context.Context, *mcp.CallToolRequest, NetworkInput) (*mcp.CallToolResult, NetworkOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input NetworkInput) (*mcp.CallToolResult, NetworkOutput, error) {
		var (
			op   string
			args map[string]any
		)

		switch input.Action {
		case "set_proxy":
			op = "setup_proxy"
			args = map[string]any{"device": input.Device, "host": input.Host, "port": input.Port}
		case "clear_proxy":
			op = "clear_proxy"
			args = map[string]any{"device": input.Device}
		case "install_cert":
			op = "install_certificate"
			args = map[string]any{"device": input.Device, "cert_path": input.CertPath}
		default:
			return errorResult(fmt.Sprintf("unknown action %q. Use: set_proxy, clear_proxy, install_cert", input.Action)), NetworkOutput{}, nil
		}

		result, errRes := invoke(ctx, core, op, args)
		if errRes != nil {
			return errRes, NetworkOutput{}, nil
		}
		return nil, NetworkOutput{Message: result.Text}, nil
	}
}
