package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	mcpadapter "github.com/kirillkom/contract-intelligence/internal/adapters/mcp"
	"github.com/kirillkom/contract-intelligence/internal/bootstrap"
	"github.com/kirillkom/contract-intelligence/internal/config"
	"github.com/kirillkom/contract-intelligence/internal/observability/logging"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	// stdout carries the protocol; logs go to stderr.
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "mcp")
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server, err := mcpadapter.NewServer("contract-intelligence", version, app.MCPServices())
	if err != nil {
		slog.Error("mcp_init_failed", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := app.RunInvalidationSubscriber(ctx); err != nil {
			slog.Warn("invalidation_subscriber_stopped", "error", err)
		}
	}()

	slog.Info("mcp_serving_stdio")
	if err := server.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil {
		slog.Error("mcp_stopped", "error", err)
		os.Exit(1)
	}
}
