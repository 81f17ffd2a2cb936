package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/cli"
	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes dialogues and sessions as MCP tools and resources, so AI agents
can hold conversations with them.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")
		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			level = "info"
		}

		// Logs go to stderr so they never corrupt JSON-RPC on stdout.
		logger := logging.New(logging.ParseLevel(level))
		slog.SetDefault(logger)
		log.SetOutput(os.Stderr)

		dir := repoPath(cmd, args)
		engine, err := parley.Open(dir, parley.WithLogger(logger))
		if err != nil {
			log.Fatalf("Error initializing parley: %v", err)
		}

		manager, closeStore, err := cli.SetupPersistence(cli.RunOptions{
			RepoPath: dir,
			RedisURL: os.Getenv("REDIS_URL"),
		}, logger)
		if err != nil {
			log.Fatalf("Error opening session store: %v", err)
		}
		defer closeStore()

		srv := mcp.NewServer(engine.Sessions(manager), engine, mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			logger.Info("starting parley mcp server (stdio)")
			if err := srv.ServeStdio(); err != nil {
				logger.Error("mcp server execution failed", "err", err)
				os.Exit(1)
			}
		case "sse":
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			addr := fmt.Sprintf(":%d", port)
			if err := srv.ServeSSE(ctx, addr, fmt.Sprintf("http://localhost:%d", port)); err != nil {
				logger.Error("mcp server execution failed", "err", err)
				os.Exit(1)
			}
			logger.Info("mcp server stopped gracefully")
		default:
			log.Fatalf("Unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
