// Package report turns sensor read results into output. Reporters are
// pluggable; the lecture loop sends every result to each configured one.
package report

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"dht11lab/internal/dht11"
)

// Result is the outcome of one read.
type Result struct {
	Seq     int
	At      time.Time
	Elapsed time.Duration
	Reading dht11.Reading
	Err     error
}

// Reporter receives every read result. If Report returns an error the caller
// logs it and keeps going.
type Reporter interface {
	Name() string
	Report(r Result) error
}

// Console prints results in the lecture format.
type Console struct {
	W io.Writer
}

// Name returns the type name of the reporter.
func (Console) Name() string { return "console" }

// Report writes the reading, or the failure kind and time.
func (c Console) Report(r Result) error {
	ts := r.At.Format("2006-01-02 15:04:05.000000")
	if r.Err != nil {
		_, err := fmt.Fprintf(c.W, "%s error: %s\n", dht11.Kind(r.Err), ts)
		return err
	}
	_, err := fmt.Fprintf(c.W, "Last valid input: %s\nTemperature: %-3.1f C\nHumidity: %-3.1f %%\n",
		ts, r.Reading.Celsius(), r.Reading.RelativeHumidity())
	return err
}

// Log writes one structured record per read. Failures are logged at warn.
type Log struct {
	Logger *slog.Logger
}

// Name returns the type name of the reporter.
func (Log) Name() string { return "log" }

// Report logs the result.
func (l Log) Report(r Result) error {
	if r.Err != nil {
		l.Logger.Warn("read failed",
			"seq", r.Seq,
			"kind", dht11.Kind(r.Err),
			"elapsed", r.Elapsed,
			"error", r.Err,
		)
		return nil
	}
	l.Logger.Info("reading",
		"seq", r.Seq,
		"humidity_pct", r.Reading.RelativeHumidity(),
		"temperature_c", r.Reading.Celsius(),
		"elapsed", r.Elapsed,
	)
	return nil
}

// FromNames builds reporters from their names. Unknown names are skipped
// with a warning; if nothing is left a Log reporter is returned so results
// are always recorded. "tally" maps to tally, which may be nil.
func FromNames(names []string, w io.Writer, logger *slog.Logger, tally *Tally) []Reporter {
	var reporters []Reporter
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "console":
			reporters = append(reporters, Console{W: w})
		case "log":
			reporters = append(reporters, Log{Logger: logger})
		case "tally":
			if tally != nil {
				reporters = append(reporters, tally)
			}
		default:
			logger.Warn("unknown reporter", "name", name)
		}
	}
	if len(reporters) == 0 {
		reporters = append(reporters, Log{Logger: logger})
	}
	return reporters
}
