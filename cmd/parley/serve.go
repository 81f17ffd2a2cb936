package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/cli"
	"github.com/aretw0/parley/internal/logging"
	httpAdapter "github.com/aretw0/parley/pkg/adapters/http"
	natsAdapter "github.com/aretw0/parley/pkg/adapters/nats"
	"github.com/aretw0/parley/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves dialogues and sessions as a JSON API over HTTP, with SSE and WebSocket
streams and Prometheus metrics on /metrics.

Sessions are stored under <dir>/.parley/sessions, or in Redis when --redis or
$REDIS_URL is set. Lifecycle events are published to NATS when --nats or
$NATS_URL is set.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(cmd); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis URL for session storage (defaults to $REDIS_URL)")
	serveCmd.Flags().String("nats", "", "NATS URL for lifecycle events (defaults to $NATS_URL)")
	serveCmd.Flags().Bool("watch", false, "Reload dialogues when their files change")
}

func flagOrEnv(cmd *cobra.Command, flag, env string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	return os.Getenv(env)
}

func runServe(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("dir")
	port, _ := cmd.Flags().GetString("port")
	level, _ := cmd.Flags().GetString("log-level")
	watch, _ := cmd.Flags().GetBool("watch")
	if level == "" {
		level = "info"
	}
	logger := logging.New(logging.ParseLevel(level))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	hooks := observability.NewMetrics(registry).Hooks()

	if natsURL := flagOrEnv(cmd, "nats", "NATS_URL"); natsURL != "" {
		publisher, err := natsAdapter.Connect(natsURL, natsAdapter.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		defer publisher.Close()
		hooks = hooks.Merge(publisher.Hooks())
		logger.Info("publishing lifecycle events", "nats", natsURL)
	}

	engine, err := parley.Open(dir, parley.WithLogger(logger), parley.WithLifecycleHooks(hooks))
	if err != nil {
		return fmt.Errorf("error initializing parley: %w", err)
	}

	manager, closeStore, err := cli.SetupPersistence(cli.RunOptions{
		RepoPath: dir,
		RedisURL: flagOrEnv(cmd, "redis", "REDIS_URL"),
	}, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watch {
		go watchDialogues(ctx, engine, logger)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", httpAdapter.NewHandler(engine.Sessions(manager), engine, httpAdapter.WithLogger(logger)))

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		fmt.Printf("Starting Parley Server on %s\n", srv.Addr)
		fmt.Printf("Serving dialogues from: %s\n", dir)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		fmt.Println("\nStart shutdown...")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		fmt.Println("Parley Server stopped gracefully")
		return nil
	}
}

func watchDialogues(ctx context.Context, engine *parley.Engine, logger *slog.Logger) {
	changes, err := engine.Watch(ctx)
	if err != nil {
		logger.Warn("hot reload unavailable", "err", err)
		return
	}
	for id := range changes {
		logger.Info("dialogue reloaded", "dialogue", id)
	}
}
