package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, ":8585", cfg.ListenAddr)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 10*time.Second, cfg.WatchInterval)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TUNEBOARD_STORE", StoreSurreal)
	t.Setenv("TUNEBOARD_WATCH_INTERVAL", "500ms")
	t.Setenv("TUNEBOARD_LOG_LEVEL", "debug")

	cfg := Load()
	assert.Equal(t, StoreSurreal, cfg.Store)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchInterval)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestParseDurationRejectsGarbage(t *testing.T) {
	assert.Equal(t, time.Second, parseDuration("not-a-duration", time.Second))
	assert.Equal(t, time.Second, parseDuration("-5s", time.Second))
}

func TestSetupLoggerWithWritersFansOut(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("job launched", "job_id", "abc")

	assert.Contains(t, stderr.String(), "job launched")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &entry))
	assert.Equal(t, "job launched", entry["msg"])
	assert.Equal(t, "abc", entry["job_id"])
}
