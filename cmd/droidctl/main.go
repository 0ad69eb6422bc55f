package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	appName    = "droidctl"
	appVersion = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Android device-control server",
	Long: `Droidctl exposes a fixed catalog of Android device operations over a
structured request protocol:
  - Screenshots, UI hierarchy dumps, and element lookup
  - Touch, text, and key event injection
  - App install, launch, stop, and data management
  - Proxy and certificate setup for HTTP traffic interception
  - Shell access, file transfer, and device logs

It talks to devices through the adb command-line tool and serves clients
over a unix socket, stdio, WebSocket, or MCP.`,
	Version: appVersion,
	// Default behavior: if stdin is not a terminal, run as MCP server
	Run: func(cmd *cobra.Command, args []string) {
		if !isTerminal(os.Stdin) {
			runMCP(cmd, args)
		} else {
			cmd.Help()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file path (default: ~/.config/droidctl/config.kdl)")
	rootCmd.PersistentFlags().String("adb", "", "Path to the adb binary (default: auto-discover)")
	rootCmd.PersistentFlags().String("device", "", "Default device serial")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(devicesCmd)

	rootCmd.SetVersionTemplate(fmt.Sprintf("%s v%s\n", appName, appVersion))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}
