package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	// LogFile, when set, receives a copy of every log line.
	LogFile string

	Pin      string
	Simulate bool

	ReadInterval time.Duration
	// ReadCount stops the run after that many reads; 0 reads until interrupted.
	ReadCount    int
	MinInterval  time.Duration
	PreHigh      time.Duration
	BitThreshold time.Duration
	Adaptive     bool
	DisableGC    bool
	LockThread   bool

	Reporters     []string
	StressWorkers int
	SimPreempt    float64
}

// LoadFromEnv reads the configuration from the environment. Variables from
// the file named by ENV_FILE (default ".env") are loaded first and never
// override variables already set; a missing file is not an error.
func LoadFromEnv() (Config, error) {
	envFile := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	pin := strings.TrimSpace(os.Getenv("DHT_PIN"))
	if pin == "" {
		pin = "GPIO26"
	}

	simulate, err := boolEnv("DHT_SIMULATE", false)
	if err != nil {
		return Config{}, err
	}

	readInterval, err := durationEnv("DHT_READ_INTERVAL", 3*time.Second)
	if err != nil {
		return Config{}, err
	}
	if readInterval <= 0 {
		return Config{}, fmt.Errorf("DHT_READ_INTERVAL must be positive, got %v", readInterval)
	}

	readCount, err := intEnv("DHT_READ_COUNT", 0)
	if err != nil {
		return Config{}, err
	}
	if readCount < 0 {
		return Config{}, fmt.Errorf("DHT_READ_COUNT must not be negative, got %d", readCount)
	}

	minInterval, err := durationEnv("DHT_MIN_INTERVAL", time.Second)
	if err != nil {
		return Config{}, err
	}
	if minInterval <= 0 {
		return Config{}, fmt.Errorf("DHT_MIN_INTERVAL must be positive, got %v", minInterval)
	}

	preHigh, err := durationEnv("DHT_PRE_HIGH", 580*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	if preHigh <= 0 {
		return Config{}, fmt.Errorf("DHT_PRE_HIGH must be positive, got %v", preHigh)
	}

	bitThreshold, err := durationEnv("DHT_BIT_THRESHOLD", 50*time.Microsecond)
	if err != nil {
		return Config{}, err
	}
	if bitThreshold <= 0 {
		return Config{}, fmt.Errorf("DHT_BIT_THRESHOLD must be positive, got %v", bitThreshold)
	}

	adaptive, err := boolEnv("DHT_ADAPTIVE", false)
	if err != nil {
		return Config{}, err
	}
	disableGC, err := boolEnv("DHT_DISABLE_GC", false)
	if err != nil {
		return Config{}, err
	}
	lockThread, err := boolEnv("DHT_LOCK_THREAD", false)
	if err != nil {
		return Config{}, err
	}

	reportersStr := strings.TrimSpace(os.Getenv("DHT_REPORTERS"))
	if reportersStr == "" {
		reportersStr = "console,log"
	}
	var reporters []string
	for _, r := range strings.Split(reportersStr, ",") {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			reporters = append(reporters, r)
		}
	}

	stressWorkers, err := intEnv("STRESS_WORKERS", 0)
	if err != nil {
		return Config{}, err
	}
	if stressWorkers < 0 {
		return Config{}, fmt.Errorf("STRESS_WORKERS must not be negative, got %d", stressWorkers)
	}

	simPreemptStr := strings.TrimSpace(os.Getenv("SIM_PREEMPT"))
	if simPreemptStr == "" {
		simPreemptStr = "0"
	}
	simPreempt, err := strconv.ParseFloat(simPreemptStr, 64)
	if err != nil {
		return Config{}, fmt.Errorf("invalid SIM_PREEMPT %q: %w", simPreemptStr, err)
	}
	if simPreempt < 0 || simPreempt > 1 {
		return Config{}, fmt.Errorf("SIM_PREEMPT must be between 0 and 1, got %v", simPreempt)
	}

	return Config{
		AppEnv:        appEnv,
		LogLevel:      level,
		LogFile:       strings.TrimSpace(os.Getenv("LOG_FILE")),
		Pin:           pin,
		Simulate:      simulate,
		ReadInterval:  readInterval,
		ReadCount:     readCount,
		MinInterval:   minInterval,
		PreHigh:       preHigh,
		BitThreshold:  bitThreshold,
		Adaptive:      adaptive,
		DisableGC:     disableGC,
		LockThread:    lockThread,
		Reporters:     reporters,
		StressWorkers: stressWorkers,
		SimPreempt:    simPreempt,
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func boolEnv(key string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func intEnv(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}
