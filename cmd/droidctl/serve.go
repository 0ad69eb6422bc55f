package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/standardbeagle/droidctl/internal/adb"
	"github.com/standardbeagle/droidctl/internal/artifact"
	"github.com/standardbeagle/droidctl/internal/config"
	"github.com/standardbeagle/droidctl/internal/dispatch"
	"github.com/standardbeagle/droidctl/internal/executor"
	"github.com/standardbeagle/droidctl/internal/ops"
	"github.com/standardbeagle/droidctl/internal/registry"
	"github.com/standardbeagle/droidctl/internal/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the device-control protocol",
	Long: `Serve the device-control protocol to clients.

By default listens on a unix socket. Use --stdio for a single
stdin/stdout session or --ws to add a WebSocket listener.`,
	Run: runServe,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run as MCP server",
	Long: `Run as an MCP (Model Context Protocol) server over stdio.

This is the mode for integration with AI coding assistants: the full
operation catalog is exposed as MCP tools.`,
	Run: runMCP,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Run: func(cmd *cobra.Command, args []string) {
		path, err := config.WriteDefaultConfig()
		if err != nil {
			log.Fatalf("writing config: %v", err)
		}
		cmd.Printf("config at %s\n", path)
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List connected devices",
	Run: func(cmd *cobra.Command, args []string) {
		core, _, cleanup := buildCore(cmd)
		defer cleanup()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		result, err := core.Registry().Invoke(ctx, "list_devices", nil)
		if err != nil {
			log.Fatalf("listing devices: %v", err)
		}
		devices, _ := result.Value.([]adb.Device)
		if len(devices) == 0 {
			cmd.Println("no devices attached")
			return
		}
		for _, d := range devices {
			cmd.Printf("%s\t%s\t%s\n", d.Serial, d.State, d.Description)
		}
	},
}

var (
	serveStdio bool
	serveWS    string
)

func init() {
	serveCmd.Flags().String("socket", "", "Unix socket path to listen on")
	serveCmd.Flags().BoolVar(&serveStdio, "stdio", false, "Serve a single session over stdin/stdout")
	serveCmd.Flags().StringVar(&serveWS, "ws", "", "Also listen for WebSocket clients on this address (e.g. 127.0.0.1:8790)")
}

// loadConfig merges the config file with command-line overrides.
func loadConfig(cmd *cobra.Command) *config.Config {
	var (
		cfg *config.Config
		err error
	)
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.LoadConfigFile(path)
	} else {
		cfg, err = config.LoadGlobalConfig()
	}
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if adbPath, _ := cmd.Flags().GetString("adb"); adbPath != "" {
		cfg.ADBPath = adbPath
	}
	if device, _ := cmd.Flags().GetString("device"); device != "" {
		cfg.DefaultDevice = device
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	return cfg
}

// buildCore wires config through the executor, device session, artifact
// store, and operation catalog into a dispatch core.
func buildCore(cmd *cobra.Command) (*dispatch.Core, *config.Config, func()) {
	cfg := loadConfig(cmd)

	exec := executor.New(executor.Config{
		DefaultTimeout: cfg.CommandTimeout,
		MaxConcurrent:  int64(cfg.MaxProcs),
	})
	session := adb.NewSession(exec, adb.SessionConfig{
		ADBPath:        cfg.ADBPath,
		DefaultSerial:  cfg.DefaultDevice,
		CommandTimeout: cfg.CommandTimeout,
		InstallTimeout: cfg.InstallTimeout,
	})

	stagingDir, err := os.MkdirTemp("", "droidctl-staging-")
	if err != nil {
		log.Fatalf("creating staging dir: %v", err)
	}
	store := artifact.NewStore(stagingDir, cfg.MaxArtifactBytes)

	reg := registry.New()
	ops.Register(reg, ops.Deps{Session: session, Store: store})

	cleanup := func() { os.RemoveAll(stagingDir) }
	return dispatch.NewCore(reg), cfg, cleanup
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer cancel()

	core, cfg, cleanup := buildCore(cmd)
	defer cleanup()

	log.SetOutput(os.Stderr)

	if serveStdio {
		log.Printf("Starting %s v%s (stdio)", appName, appVersion)
		dispatch.ServeStdio(ctx, core, os.Stdin, os.Stdout)
		return
	}

	socketPath, _ := cmd.Flags().GetString("socket")
	if socketPath == "" {
		socketPath = cfg.SocketPath
	}
	if socketPath == "" {
		socketPath = dispatch.DefaultSocketPath()
	}

	server := dispatch.NewServer(dispatch.ServerConfig{SocketPath: socketPath}, core)
	if err := server.Listen(); err != nil {
		log.Fatalf("listening on %s: %v", socketPath, err)
	}
	defer server.Close()

	if serveWS != "" {
		wsHandler := dispatch.NewWSHandler(core)
		httpServer := &http.Server{Addr: serveWS, Handler: wsHandler}
		go func() {
			log.Printf("WebSocket listener on %s", serveWS)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("WebSocket listener error: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer shutdownCancel()
			httpServer.Shutdown(shutdownCtx)
		}()
	}

	log.Printf("Starting %s v%s on %s", appName, appVersion, server.SocketPath())
	if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server shutdown complete")
}

func runMCP(cmd *cobra.Command, args []string) {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer cancel()

	core, _, cleanup := buildCore(cmd)
	defer cleanup()

	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    appName,
			Version: appVersion,
		},
		&mcp.ServerOptions{
			HasTools: true,
			Instructions: `Android device-control server backed by adb.

Available tools:
- operations: List every supported operation
- device: List devices, read device info, fetch logcat
- screen: Screenshot, UI hierarchy dump, element lookup
- input: Tap, swipe, type text, press keys
- app: Install, launch, stop, clear data, list packages
- network: Proxy and CA certificate setup for traffic interception
- file: Device shell, pull and push files`,
		},
	)

	tools.RegisterAll(server, core)

	log.SetOutput(os.Stderr)
	log.Printf("Starting %s v%s (MCP mode)", appName, appVersion)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		if ctx.Err() == nil {
			log.Fatalf("Server error: %v", err)
		}
	}
	log.Println("MCP server shutdown complete")
}
