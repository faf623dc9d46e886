package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dht11lab/internal/config"
)

func TestNewLogger_ProdIsJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "prod", LogLevel: slog.LevelInfo}

	logger, closer, err := newLogger(&buf, cfg, "1.2.0", "dht11")
	require.NoError(t, err)
	defer closer()

	logger.Info("reading", "humidity", 45)
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "reading", rec["msg"])
	assert.Equal(t, "dht11", rec["app"])
	assert.Equal(t, "1.2.0", rec["version"])
	assert.Equal(t, "prod", rec["env"])
	assert.EqualValues(t, 45, rec["humidity"])
}

func TestNewLogger_DevIsTint(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "dev", LogLevel: slog.LevelDebug}

	logger, closer, err := newLogger(&buf, cfg, "dev", "dht11")
	require.NoError(t, err)
	defer closer()

	logger.Debug("decoded", "pulses", 85)

	out := buf.String()
	assert.Contains(t, out, "decoded")
	assert.Contains(t, out, "pulses")
	assert.Contains(t, out, "dht11")
	assert.False(t, json.Valid([]byte(strings.TrimSpace(out))))
}

func TestNewLogger_LogFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "events.log")
	cfg := config.Config{AppEnv: "prod", LogLevel: slog.LevelWarn, LogFile: path}

	logger, closer, err := newLogger(&buf, cfg, "1.0.0", "dht11")
	require.NoError(t, err)

	logger.Warn("read failed", "kind", "timeout")
	logger.Info("not written")
	require.NoError(t, closer())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "read failed", rec["msg"])
	assert.Equal(t, "timeout", rec["kind"])
	assert.Equal(t, "dht11", rec["app"])

	assert.Contains(t, buf.String(), "read failed")
}

func TestNewLogger_LogFileError(t *testing.T) {
	cfg := config.Config{LogFile: filepath.Join(t.TempDir(), "missing", "dir", "events.log")}
	_, _, err := newLogger(&bytes.Buffer{}, cfg, "1.0.0", "dht11")
	require.Error(t, err)
}
