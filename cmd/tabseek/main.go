package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devraulu/tabseek/pkg/config"
	"github.com/devraulu/tabseek/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tabseek",
	Short: "fuzzy search over open tabs and browsing history",
	Long: `tabseek - fuzzy search over open tabs and browsing history

Run as a native messaging host behind the browser extension, or use the
subcommands to search, group tabs and manage the history archive.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,

	// Chrome on Windows appends --parent-window=<handle>.
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},

	RunE: func(cmd *cobra.Command, args []string) error {
		if launchedByBrowser(args) {
			return runHost(cmd, nil)
		}
		return cmd.Help()
	},
}

// launchedByBrowser recognises the arguments browsers start native hosts
// with: Chromium passes the caller's origin, Firefox passes the manifest
// path followed by the extension id.
func launchedByBrowser(args []string) bool {
	if len(args) == 0 {
		return false
	}
	if strings.HasPrefix(args[0], "chrome-extension://") {
		return true
	}
	return len(args) == 2 && strings.EqualFold(filepath.Ext(args[0]), ".json")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "path to config.toml")

	rootCmd.AddCommand(hostCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(groupCmd)
	rootCmd.AddCommand(importHistoryCmd)
	rootCmd.AddCommand(migrateCmd)
}

// setup loads the config and installs the logger. The returned func flushes
// the log.
func setup() (*config.Config, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.InitLogger(cfg), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("fatal", slog.Any("err", err))
		os.Exit(1)
	}
}
