package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("TABSEEK_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, 2000, cfg.Browser.TextLimit)
	assert.Equal(t, time.Second, cfg.Browser.GetExtractTimeout())
	assert.Equal(t, 5*time.Second, cfg.Session.GetWaitTimeout())
	assert.Equal(t, 0.6, cfg.Search.Threshold)
	assert.Equal(t, EmptyQueryNone, cfg.Search.EmptyQuery)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Empty(t, cfg.AI.APIKey)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv("TABSEEK_GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "from-env")

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
dsn = "postgres://localhost/tabseek"

[browser]
extract_timeout = "250ms"
text_limit = 500

[history]
source = "postgres"
max_results = 20

[search]
empty_query = "recent"

[logging]
format = "json"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/tabseek", cfg.DSN)
	assert.Equal(t, 250*time.Millisecond, cfg.Browser.GetExtractTimeout())
	assert.Equal(t, 500, cfg.Browser.TextLimit)
	assert.Equal(t, HistorySourcePostgres, cfg.History.Source)
	assert.Equal(t, 20, cfg.History.MaxResults)
	assert.Equal(t, EmptyQueryRecent, cfg.Search.EmptyQuery)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "from-env", cfg.AI.APIKey)
}

func TestLoadRejectsInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("dsn = "), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestDurationGettersFallBack(t *testing.T) {
	b := BrowserConfig{ExtractTimeout: "soon"}
	assert.Equal(t, time.Second, b.GetExtractTimeout())

	h := HistoryConfig{Timeout: "-1s"}
	assert.Equal(t, 2*time.Second, h.GetTimeout())
}
