package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devraulu/tabseek/pkg/config"
)

func TestBunyanLevel(t *testing.T) {
	assert.Equal(t, 50, bunyanLevel(slog.LevelError))
	assert.Equal(t, 40, bunyanLevel(slog.LevelWarn))
	assert.Equal(t, 30, bunyanLevel(slog.LevelInfo))
	assert.Equal(t, 20, bunyanLevel(slog.LevelDebug))
	assert.Equal(t, 10, bunyanLevel(slog.LevelDebug-4))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestJSONHandlerUsesBunyanLevels(t *testing.T) {
	var buf bytes.Buffer
	h := newHandler(&buf, config.LoggingConfig{Format: "json", Level: "info"})

	slog.New(h).Warn("slow tab", slog.Int("tab", 3))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, float64(40), line["level"])
	assert.Equal(t, "slow tab", line["msg"])
}

func TestHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	h := newHandler(&buf, config.LoggingConfig{Format: "text", Level: "warn"})

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestInitLoggerWritesToFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := config.Default()
	cfg.Logging.File = filepath.Join(t.TempDir(), "tabseek.log")

	closeFn := InitLogger(cfg)
	slog.Info("hello from test")
	closeFn()

	data, err := os.ReadFile(cfg.Logging.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
	assert.Contains(t, string(data), "name=tabseek")
}
