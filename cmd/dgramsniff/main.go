package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lcalzada-xor/dgramsniff/internal/app"
	"github.com/lcalzada-xor/dgramsniff/internal/config"
	"github.com/lcalzada-xor/dgramsniff/internal/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	// load config
	cfg, err := config.Load()
	if err != nil {
		return 2
	}

	// Setup Structured Logging
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		return 1
	}

	// Initialize Tracing
	shutdownTracer, err := telemetry.InitTracer(os.Stderr)
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				slog.Error("Failed to shutdown tracer", "error", err)
			}
		}()
	}

	// Initialize Application
	application, err := app.New(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return 1
	}

	// Root Context with cancellation on Interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("dgramsniff starting...", "source", cfg.Source, "interface", cfg.Interface)

	// Restore network on exit
	defer application.RestoreNetwork()

	// Run Application
	if err := application.Run(ctx); err != nil {
		slog.Error("Application error", "error", err)
		return 1
	}
	return 0
}
