package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devraulu/tabseek/pkg/app"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Ask Gemini to sort the open tabs into groups and print them as JSON",
	Args:  cobra.NoArgs,
	RunE:  runGroup,
}

func runGroup(cmd *cobra.Command, args []string) error {
	cfg, flush, err := setup()
	if err != nil {
		return fmt.Errorf("couldn't load config: %w", err)
	}
	defer flush()

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Planner == nil {
		return errors.New("tab grouping needs ai.api_key or GEMINI_API_KEY")
	}

	groups, err := a.Planner.PlanOpenTabs(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(groups)
}
