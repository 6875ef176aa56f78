package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devraulu/tabseek/pkg/config"
	"github.com/devraulu/tabseek/pkg/host"
	"github.com/devraulu/tabseek/pkg/host/hosttest"
	"github.com/devraulu/tabseek/pkg/omnibox"
	"github.com/devraulu/tabseek/pkg/resolve"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.History.Source = config.HistorySourceNone
	cfg.Session.WaitTimeout = "2s"
	return cfg
}

func TestNewWithTabsEndToEnd(t *testing.T) {
	b := hosttest.NewBrowser(
		host.Tab{ID: 1, WindowID: 1, Title: "Inbox", URL: "https://mail.example.com/", Active: true},
		host.Tab{ID: 2, WindowID: 2, Title: "GitHub", URL: "https://github.com/"},
	)
	ctx := context.Background()

	a, err := NewWithTabs(ctx, testConfig(), b)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.History)
	assert.Nil(t, a.Planner)
	assert.Nil(t, a.Archive)

	a.Controller.Start(ctx)
	_, ok := a.Controller.Cache.Wait(ctx, 2*time.Second)
	require.True(t, ok)

	var last omnibox.Update
	a.Controller.Changed(ctx, "github", func(u omnibox.Update) { last = u })
	assert.Contains(t, last.Default, "https://github.com/")

	act := a.Controller.Entered(ctx, "")
	assert.Equal(t, resolve.Focus, act.Kind)
	assert.Equal(t, 2, act.TabID)
	assert.False(t, act.ClosedPlaceholder)
}

func TestNewWithTabsRejectsBadConfig(t *testing.T) {
	b := hosttest.NewBrowser()

	cfg := testConfig()
	cfg.Store.Backend = "redis"
	_, err := NewWithTabs(context.Background(), cfg, b)
	assert.ErrorContains(t, err, "unknown store backend")

	cfg = testConfig()
	cfg.History.Source = "firefox"
	_, err = NewWithTabs(context.Background(), cfg, b)
	assert.ErrorContains(t, err, "unknown history source")

	cfg = testConfig()
	cfg.History.Source = config.HistorySourceChrome
	cfg.History.Path = ""
	_, err = NewWithTabs(context.Background(), cfg, b)
	assert.ErrorContains(t, err, "history.path")
}

func TestChromeHistorySourceIsLazy(t *testing.T) {
	cfg := testConfig()
	cfg.History.Source = config.HistorySourceChrome
	cfg.History.Path = "/does/not/exist/History"

	a, err := NewWithTabs(context.Background(), cfg, hosttest.NewBrowser())
	require.NoError(t, err)
	defer a.Close()
	assert.NotNil(t, a.History)
}

func TestNeedsDatabase(t *testing.T) {
	cfg := testConfig()
	assert.False(t, NeedsDatabase(cfg))

	cfg.Store.Backend = config.StorePostgres
	assert.True(t, NeedsDatabase(cfg))

	cfg = testConfig()
	cfg.History.Source = config.HistorySourcePostgres
	assert.True(t, NeedsDatabase(cfg))
}

func TestOpenDatabaseRequiresDSN(t *testing.T) {
	cfg := testConfig()
	cfg.DSN = ""
	_, err := OpenDatabase(cfg)
	assert.ErrorContains(t, err, "dsn")
}
