package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/gpio"

	"dht11lab/internal/config"
	"dht11lab/internal/dht11"
	"dht11lab/internal/hal"
	"dht11lab/internal/report"
)

// simReading is what the simulated sensor reports.
var simReading = dht11.Reading{Humidity: 45, Temperature: 23}

// Run reads the sensor every cfg.ReadInterval until ctx is done or
// cfg.ReadCount reads were made, sending every result to the configured
// reporters. Failed reads are reported, never retried. The returned summary
// covers every read made.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, out io.Writer) (report.Summary, error) {
	tally := report.NewTally()

	pin, err := openPin(cfg)
	if err != nil {
		return tally.Summary(), err
	}

	sensor, err := dht11.New(pin, dht11.Options{
		Timing: dht11.Timing{
			PreHigh:      cfg.PreHigh,
			BitThreshold: cfg.BitThreshold,
			Adaptive:     cfg.Adaptive,
		},
		MinInterval: cfg.MinInterval,
		DisableGC:   cfg.DisableGC,
		LockThread:  cfg.LockThread,
		Logger:      logger,
	})
	if err != nil {
		return tally.Summary(), err
	}

	reporters := report.FromNames(cfg.Reporters, out, logger, tally)
	if !slices.ContainsFunc(reporters, func(r report.Reporter) bool { return r.Name() == tally.Name() }) {
		reporters = append(reporters, tally)
	}

	logger.Info("dht11 sensor initialized",
		"pin", pin.Name(),
		"simulated", cfg.Simulate,
		"interval", cfg.ReadInterval,
		"count", cfg.ReadCount,
		"stress_workers", cfg.StressWorkers,
		"disable_gc", cfg.DisableGC,
		"lock_thread", cfg.LockThread,
	)

	g, gctx := errgroup.WithContext(ctx)
	pollCtx, stopStress := context.WithCancel(gctx)
	defer stopStress()

	for i := 0; i < cfg.StressWorkers; i++ {
		g.Go(func() error {
			stress(pollCtx)
			return nil
		})
	}
	g.Go(func() error {
		defer stopStress()
		return poll(pollCtx, sensor, cfg, reporters, logger)
	})
	err = g.Wait()

	s := tally.Summary()
	logger.Info("run finished",
		"reads", s.Reads,
		"ok", s.OK,
		"failure_rate", s.FailureRate(),
		"failures", s.Failures,
	)
	return s, err
}

func openPin(cfg config.Config) (gpio.PinIO, error) {
	if cfg.Simulate {
		return dht11.NewSimPin(cfg.Pin, simReading, dht11.SimOptions{
			Preempt:    cfg.SimPreempt,
			PreemptFor: 200 * time.Microsecond,
			Seed:       uint64(time.Now().UnixNano()),
		}), nil
	}
	if err := hal.Init(); err != nil {
		return nil, err
	}
	pin, err := hal.Open(cfg.Pin)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w (set DHT_SIMULATE=true to run without hardware)", cfg.Pin, err)
	}
	return pin, nil
}

// poll reads once per tick. The first read happens immediately.
func poll(ctx context.Context, sensor *dht11.Sensor, cfg config.Config, reporters []report.Reporter, logger *slog.Logger) error {
	ticker := time.NewTicker(cfg.ReadInterval)
	defer ticker.Stop()

	for seq := 1; cfg.ReadCount == 0 || seq <= cfg.ReadCount; seq++ {
		start := time.Now()
		r, err := sensor.Read(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, dht11.ErrNotReady) {
			// the next read slot is past the deadline
			<-ctx.Done()
			return ctx.Err()
		}

		res := report.Result{Seq: seq, At: start, Elapsed: time.Since(start), Reading: r, Err: err}
		for _, rep := range reporters {
			if err := rep.Report(res); err != nil {
				logger.Error("reporter failed", "reporter", rep.Name(), "error", err)
			}
		}
		if seq == cfg.ReadCount {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
