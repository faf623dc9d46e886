package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"dht11lab/internal/app"
	"dht11lab/internal/config"
	"dht11lab/internal/logging"
)

var version = "dev"
var appName = "dht11"

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := logging.New(cfg, version, appName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	slog.Info("starting",
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := 0
	summary, err := app.Run(ctx, cfg, logger, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "err", err)
		code = 1
	}
	if summary.Reads > 0 {
		fmt.Fprintln(os.Stdout, summary)
	}
	stop()

	slog.Info("shutting down")
	if err := closeLog(); err != nil {
		fmt.Fprintf(os.Stderr, "close log: %v\n", err)
	}
	os.Exit(code)
}
