// Package gather collects candidates from open tabs and browsing history.
// Gatherers never fail as a whole: per-source and per-tab problems are logged
// and degrade to empty data.
package gather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/devraulu/tabseek/pkg/candidate"
	"github.com/devraulu/tabseek/pkg/host"
	"github.com/devraulu/tabseek/pkg/process"
)

const DefaultTabTimeout = time.Second

var ErrExtractTimeout = errors.New("content extraction timed out")

type TabGatherer struct {
	Tabs      host.Tabs
	Timeout   time.Duration
	TextLimit int
	// Workers caps concurrent extractions; 0 runs every tab at once.
	Workers int
}

func (g *TabGatherer) Gather(ctx context.Context) TabBatch {
	batch := TabBatch{Stats: Stats{StartTime: time.Now()}}

	tabs, err := g.Tabs.List(ctx)
	if err != nil {
		slog.Error("failed to list tabs", slog.Any("err", err))
		batch.Stats.Elapsed = time.Since(batch.Stats.StartTime)
		return batch
	}

	batch.Results = make([]TabResult, len(tabs))

	eg := errgroup.Group{}
	if g.Workers > 0 {
		eg.SetLimit(g.Workers)
	}
	for i, tab := range tabs {
		eg.Go(func() error {
			batch.Results[i] = g.gatherTab(ctx, tab)
			return nil
		})
	}
	_ = eg.Wait()

	for _, r := range batch.Results {
		batch.Stats.count(r.Status)
	}
	batch.Stats.Elapsed = time.Since(batch.Stats.StartTime)

	slog.Info("tabs gathered",
		slog.Int("tabs", len(tabs)),
		slog.Int("scraped", batch.Stats.Scraped),
		slog.Int("skipped", batch.Stats.Skipped),
		slog.Int("degraded", batch.Stats.Degraded),
		slog.Int("failed", batch.Stats.Failed),
		slog.Duration("elapsed", batch.Stats.Elapsed),
	)
	return batch
}

func (g *TabGatherer) gatherTab(ctx context.Context, tab host.Tab) (res TabResult) {
	res.Tab = tab

	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic while gathering tab", slog.Int("tab", tab.ID), slog.Any("panic", r))
			res = TabResult{Tab: tab, Status: Failed, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	limit := g.textLimit()

	if !process.IsScrapable(tab.URL) {
		res.Candidate = candidate.FromTab(tab, "", limit)
		res.Status = Skipped
		return res
	}

	text, err := g.extract(ctx, tab, limit)
	if err != nil {
		slog.Debug("failed to scrape tab", slog.Int("tab", tab.ID), slog.String("url", tab.URL), slog.Any("err", err))
		res.Candidate = candidate.FromTab(tab, "", limit)
		res.Status = Degraded
		res.Err = err
		return res
	}

	res.Candidate = candidate.FromTab(tab, text, limit)
	res.Status = Scraped
	return res
}

type extraction struct {
	text  string
	err   error
	panic any
}

// extract bounds a single extraction by the per-tab timeout even when the
// host ignores its context.
func (g *TabGatherer) extract(ctx context.Context, tab host.Tab, limit int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout())
	defer cancel()

	done := make(chan extraction, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- extraction{panic: r}
			}
		}()
		text, err := g.Tabs.ExtractText(ctx, tab, limit)
		done <- extraction{text: text, err: err}
	}()

	select {
	case e := <-done:
		if e.panic != nil {
			panic(e.panic)
		}
		if errors.Is(e.err, context.DeadlineExceeded) {
			return "", ErrExtractTimeout
		}
		return e.text, e.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrExtractTimeout
		}
		return "", ctx.Err()
	}
}

func (g *TabGatherer) timeout() time.Duration {
	if g.Timeout <= 0 {
		return DefaultTabTimeout
	}
	return g.Timeout
}

func (g *TabGatherer) textLimit() int {
	if g.TextLimit <= 0 {
		return candidate.DefaultTextLimit
	}
	return g.TextLimit
}
