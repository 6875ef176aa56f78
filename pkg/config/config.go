package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	HistorySourceChrome   = "chrome"
	HistorySourcePostgres = "postgres"
	HistorySourceNone     = "none"

	StoreMemory   = "memory"
	StorePostgres = "postgres"

	EmptyQueryNone   = "none"
	EmptyQueryRecent = "recent"
)

type Config struct {
	DSN     string        `toml:"dsn"`
	Browser BrowserConfig `toml:"browser"`
	History HistoryConfig `toml:"history"`
	Search  SearchConfig  `toml:"search"`
	Session SessionConfig `toml:"session"`
	Store   StoreConfig   `toml:"store"`
	Logging LoggingConfig `toml:"logging"`
	AI      AIConfig      `toml:"ai"`
}

type BrowserConfig struct {
	DebugURL       string `toml:"debug_url"`
	ExtractTimeout string `toml:"extract_timeout"`
	TextLimit      int    `toml:"text_limit"`
	Workers        int    `toml:"workers"`
}

type HistoryConfig struct {
	Source     string `toml:"source"`
	Path       string `toml:"path"`
	MaxResults int    `toml:"max_results"`
	Timeout    string `toml:"timeout"`
}

type SearchConfig struct {
	Threshold      float64 `toml:"threshold"`
	EmptyQuery     string  `toml:"empty_query"`
	MaxSuggestions int     `toml:"max_suggestions"`
}

type SessionConfig struct {
	WaitTimeout string `toml:"wait_timeout"`
}

type StoreConfig struct {
	Backend string `toml:"backend"`
}

type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

type AIConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Browser.DebugURL = "http://127.0.0.1:9222"
	cfg.Browser.ExtractTimeout = "1s"
	cfg.Browser.TextLimit = 2000
	cfg.History.Source = HistorySourceChrome
	cfg.History.Path = defaultHistoryPath()
	cfg.History.MaxResults = 100
	cfg.History.Timeout = "2s"
	cfg.Search.Threshold = 0.6
	cfg.Search.EmptyQuery = EmptyQueryNone
	cfg.Search.MaxSuggestions = 7
	cfg.Session.WaitTimeout = "5s"
	cfg.Store.Backend = StoreMemory
	cfg.Logging.Format = "text"
	cfg.Logging.Level = "info"
	cfg.Logging.MaxSizeMB = 10
	cfg.Logging.MaxBackups = 3
	cfg.Logging.MaxAgeDays = 14
	cfg.AI.Model = "gemini-2.0-flash"
	return &cfg
}

// Load reads a TOML file over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if key := firstEnv("TABSEEK_GEMINI_API_KEY", "GEMINI_API_KEY"); key != "" {
		cfg.AI.APIKey = key
	}

	return cfg, nil
}

// DefaultPath is $XDG_CONFIG_HOME/tabseek/config.toml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(dir, "tabseek", "config.toml")
}

func (c *BrowserConfig) GetExtractTimeout() time.Duration {
	return parseDuration(c.ExtractTimeout, time.Second)
}

func (c *HistoryConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 2*time.Second)
}

func (c *SessionConfig) GetWaitTimeout() time.Duration {
	return parseDuration(c.WaitTimeout, 5*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func defaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "History"
	}
	return filepath.Join(dir, "google-chrome", "Default", "History")
}
