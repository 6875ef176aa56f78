package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devraulu/tabseek/pkg/app"
	"github.com/devraulu/tabseek/pkg/nativemsg"
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Serve the browser extension over native messaging on stdin/stdout",
	Args:  cobra.NoArgs,
	RunE:  runHost,
}

func runHost(cmd *cobra.Command, args []string) error {
	cfg, flush, err := setup()
	if err != nil {
		return fmt.Errorf("couldn't load config: %w", err)
	}
	defer flush()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var grouper nativemsg.Grouper
	if a.Planner != nil {
		grouper = a.Planner
	}
	srv := nativemsg.NewServer(os.Stdin, os.Stdout, a.Controller, grouper)

	appSignal := make(chan os.Signal, 1)
	signal.Notify(appSignal, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx)
	}()

	select {
	case s := <-appSignal:
		slog.Info("received system signal", slog.String("signal", s.String()))
		stop()
	case err := <-done:
		if err != nil {
			return err
		}
	}

	slog.Info("shutdown complete")
	return nil
}
