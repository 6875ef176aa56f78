package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/devraulu/tabseek/pkg/app"
	"github.com/devraulu/tabseek/pkg/rank"
)

var (
	searchLimit int
	searchOpen  bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Rank open tabs and history against a query",
	Long: `Gather open tabs and recent history once and print the ranked matches.

Examples:
  tabseek search github          # list matches
  tabseek search -n 3 go docs    # top three
  tabseek search --open go docs  # switch to the best match`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", rank.DefaultSurfaced, "maximum number of matches to print")
	searchCmd.Flags().BoolVar(&searchOpen, "open", false, "commit the best match")
}

func runSearch(cmd *cobra.Command, args []string) error {
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

	query := strings.Join(args, " ")

	a.Controller.Start(ctx)
	snap, _ := a.Controller.Cache.Wait(ctx, cfg.Session.GetWaitTimeout())
	results := rank.Rank(query, snap.Candidates(), rank.Options{Threshold: cfg.Search.Threshold})
	if len(results) == 0 {
		fmt.Println("no matches")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCORE\tSOURCE\tTITLE\tURL")
	for _, r := range results[:min(len(results), max(searchLimit, 1))] {
		source := "tab"
		if r.IsHistory {
			source = "history"
		}
		fmt.Fprintf(w, "%s\t%.4f\t%s\t%s\t%s\n", shorten(r.ID, 24), r.Score, source, shorten(r.Label(), 60), r.URL)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if searchOpen {
		act := a.Resolver.Commit(ctx, results[0].ID)
		fmt.Printf("%s %s\n", act.Kind, act.URL)
	}
	return nil
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
