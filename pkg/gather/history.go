package gather

import (
	"context"
	"log/slog"
	"time"

	"github.com/devraulu/tabseek/pkg/candidate"
	"github.com/devraulu/tabseek/pkg/host"
)

const (
	DefaultHistoryResults = 100
	DefaultHistoryTimeout = 2 * time.Second
)

type HistoryGatherer struct {
	History    host.History
	MaxResults int
	Timeout    time.Duration
}

// Gather searches history for keyword ("" for most recent). Any failure
// yields an empty result.
func (g *HistoryGatherer) Gather(ctx context.Context, keyword string) []candidate.Candidate {
	if g == nil || g.History == nil {
		return []candidate.Candidate{}
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultHistoryTimeout
	}
	max := g.MaxResults
	if max <= 0 {
		max = DefaultHistoryResults
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type reply struct {
		items []host.HistoryItem
		err   error
	}
	done := make(chan reply, 1)
	go func() {
		items, err := g.History.Search(ctx, keyword, max)
		done <- reply{items, err}
	}()

	var items []host.HistoryItem
	select {
	case r := <-done:
		if r.err != nil {
			slog.Error("failed to search history", slog.String("keyword", keyword), slog.Any("err", r.err))
			return []candidate.Candidate{}
		}
		items = r.items
	case <-ctx.Done():
		slog.Warn("history search abandoned", slog.String("keyword", keyword), slog.Any("err", ctx.Err()))
		return []candidate.Candidate{}
	}

	out := make([]candidate.Candidate, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it.URL == "" {
			continue
		}
		c := candidate.FromHistory(it)
		key := c.Key()
		if seen[key] {
			slog.Debug("history duplicate, skipping", slog.String("url", it.URL))
			continue
		}
		seen[key] = true
		out = append(out, c)
		if len(out) == max {
			break
		}
	}

	slog.Debug("history gathered", slog.String("keyword", keyword), slog.Int("results", len(out)))
	return out
}
