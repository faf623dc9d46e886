package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"dht11lab/internal/config"
)

// New builds the process logger. Dev builds get coloured tint output, others
// JSON. When cfg.LogFile is set every record is also appended to that file as
// JSON; the returned closer closes it.
func New(cfg config.Config, version string, appName string) (*slog.Logger, func() error, error) {
	return newLogger(os.Stdout, cfg, version, appName)
}

func newLogger(stdout io.Writer, cfg config.Config, version string, appName string) (*slog.Logger, func() error, error) {
	closer := func() error { return nil }

	var h slog.Handler
	if version == "dev" {
		h = tint.NewHandler(stdout, &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
	} else {
		h = slog.NewJSONHandler(stdout, &slog.HandlerOptions{
			Level: cfg.LogLevel,
		})
	}

	if cfg.LogFile != "" {
		// Open file in append mode, create if not exists
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		h = fanout{h, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: cfg.LogLevel})}
		closer = f.Close
	}

	logger := slog.New(h)
	if version == "dev" {
		return logger.With("app", appName), closer, nil
	}
	return logger.With(
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
	), closer, nil
}
