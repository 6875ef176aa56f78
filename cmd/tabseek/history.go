package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devraulu/tabseek/pkg/app"
	"github.com/devraulu/tabseek/pkg/storage"
)

var (
	importFrom  string
	importLimit int
)

var importHistoryCmd = &cobra.Command{
	Use:   "import-history",
	Short: "Copy Chrome history into the Postgres archive",
	Args:  cobra.NoArgs,
	RunE:  runImportHistory,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the Postgres archive schema up to date",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	importHistoryCmd.Flags().StringVar(&importFrom, "from", "", "Chrome History file (default: history.path from config)")
	importHistoryCmd.Flags().IntVarP(&importLimit, "limit", "n", 10000, "maximum number of entries to import")
}

func runImportHistory(cmd *cobra.Command, args []string) error {
	cfg, flush, err := setup()
	if err != nil {
		return fmt.Errorf("couldn't load config: %w", err)
	}
	defer flush()

	path := importFrom
	if path == "" {
		path = cfg.History.Path
	}
	if path == "" {
		return errors.New("no history file given")
	}

	db, err := app.OpenDatabase(cfg)
	if err != nil {
		return err
	}
	archive := storage.NewPostgresStorage(db)
	defer archive.Close()

	n, err := storage.Import(context.Background(), storage.NewChromeHistory(path), archive, importLimit)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d entries from %s\n", n, path)
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, flush, err := setup()
	if err != nil {
		return fmt.Errorf("couldn't load config: %w", err)
	}
	defer flush()

	if cfg.DSN == "" {
		return errors.New("dsn is not configured")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return fmt.Errorf("couldn't open database: %w", err)
	}
	defer db.Close()

	version, err := storage.RunMigrations(db)
	if err != nil {
		return err
	}
	fmt.Printf("schema at version %d\n", version)
	return nil
}
