// Package app wires configuration into a running tabseek instance.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	session "github.com/devraulu/tabseek/pkg"
	"github.com/devraulu/tabseek/pkg/browser"
	"github.com/devraulu/tabseek/pkg/config"
	"github.com/devraulu/tabseek/pkg/gather"
	"github.com/devraulu/tabseek/pkg/grouping"
	"github.com/devraulu/tabseek/pkg/host"
	"github.com/devraulu/tabseek/pkg/omnibox"
	"github.com/devraulu/tabseek/pkg/resolve"
	"github.com/devraulu/tabseek/pkg/storage"
)

type App struct {
	Config     *config.Config
	Tabs       host.Tabs
	History    host.History
	Store      storage.Bookkeeping
	Archive    *storage.PostgresStorage
	Resolver   *resolve.Resolver
	Controller *omnibox.Controller

	// Planner is nil when no AI key is configured.
	Planner *grouping.Planner

	closers []func() error
}

// New connects to the browser named in cfg and builds the rest around it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	b, err := browser.Connect(ctx, cfg.Browser.DebugURL)
	if err != nil {
		return nil, err
	}

	a, err := NewWithTabs(ctx, cfg, b)
	if err != nil {
		b.Close()
		return nil, err
	}
	a.closers = append([]func() error{b.Close}, a.closers...)
	return a, nil
}

// NewWithTabs builds an App over an existing tab host.
func NewWithTabs(ctx context.Context, cfg *config.Config, tabs host.Tabs) (*App, error) {
	a := &App{Config: cfg, Tabs: tabs}

	if NeedsDatabase(cfg) {
		db, err := OpenDatabase(cfg)
		if err != nil {
			return nil, err
		}
		a.Archive = storage.NewPostgresStorage(db)
		a.closers = append(a.closers, a.Archive.Close)
	}

	history, err := a.historySource(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.History = history

	switch cfg.Store.Backend {
	case config.StorePostgres:
		a.Store = a.Archive
	case config.StoreMemory, "":
		a.Store = storage.NewMemoryStore()
	default:
		a.Close()
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	a.Resolver = resolve.New(tabs, a.Store)
	if a.Archive != nil {
		a.Resolver.Recorder = a.Archive
	}

	tabGatherer := &gather.TabGatherer{
		Tabs:      tabs,
		Timeout:   cfg.Browser.GetExtractTimeout(),
		TextLimit: cfg.Browser.TextLimit,
		Workers:   cfg.Browser.Workers,
	}

	a.Controller = &omnibox.Controller{
		Cache:   session.NewCache(),
		Tabs:    tabGatherer,
		History: &gather.HistoryGatherer{
			History:    a.History,
			MaxResults: cfg.History.MaxResults,
			Timeout:    cfg.History.GetTimeout(),
		},
		Resolver:       a.Resolver,
		Store:          a.Store,
		Threshold:      cfg.Search.Threshold,
		EmptyQuery:     cfg.Search.EmptyQuery,
		MaxSuggestions: cfg.Search.MaxSuggestions,
		WaitTimeout:    cfg.Session.GetWaitTimeout(),
	}
	a.closers = append(a.closers, func() error {
		a.Controller.Close()
		return nil
	})

	if cfg.AI.APIKey != "" {
		model, err := grouping.NewGenAIModel(ctx, cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Planner = &grouping.Planner{Model: model, Tabs: tabGatherer}
	}

	slog.Info("tabseek ready",
		slog.String("history", cfg.History.Source),
		slog.String("store", cfg.Store.Backend),
		slog.Bool("grouping", a.Planner != nil),
	)
	return a, nil
}

func (a *App) historySource(cfg *config.Config) (host.History, error) {
	switch cfg.History.Source {
	case config.HistorySourceChrome:
		if cfg.History.Path == "" {
			return nil, errors.New("history.path is required for the chrome history source")
		}
		return storage.NewChromeHistory(cfg.History.Path), nil
	case config.HistorySourcePostgres:
		return a.Archive, nil
	case config.HistorySourceNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown history source %q", cfg.History.Source)
	}
}

// Close releases everything New acquired, most recent first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NeedsDatabase reports whether cfg uses the Postgres archive.
func NeedsDatabase(cfg *config.Config) bool {
	return cfg.Store.Backend == config.StorePostgres || cfg.History.Source == config.HistorySourcePostgres
}

// OpenDatabase connects to cfg.DSN and migrates the schema.
func OpenDatabase(cfg *config.Config) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("dsn is required for the postgres backend")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := storage.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}
