package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/devraulu/tabseek/pkg/host"
)

var ErrNotFound = errors.New("not found")

// TopMatch points at the best candidate of the most recent query, so that a
// commit without an explicit pick can still be resolved.
type TopMatch struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	IsHistory bool      `json:"isHistory"`
	Query     string    `json:"query"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Visit struct {
	URL       string
	Title     string
	VisitedAt time.Time
	Count     int
}

// Bookkeeping persists the last query and top match. Writes are
// last-writer-wins. Reads of absent records return ErrNotFound.
type Bookkeeping interface {
	SaveLastQuery(ctx context.Context, query string) error
	LastQuery(ctx context.Context) (string, error)
	SaveTopMatch(ctx context.Context, m TopMatch) error
	TopMatch(ctx context.Context) (TopMatch, error)
}

type VisitRecorder interface {
	SaveVisit(ctx context.Context, v Visit) error
}

type Storage interface {
	Bookkeeping
	VisitRecorder
	host.History
	Close() error
}

// Import copies up to limit history items from src into dst, most recent
// first. Rows that fail to save are logged and skipped.
func Import(ctx context.Context, src host.History, dst VisitRecorder, limit int) (int, error) {
	items, err := src.Search(ctx, "", limit)
	if err != nil {
		return 0, fmt.Errorf("read history: %w", err)
	}

	saved := 0
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return saved, err
		}
		v := Visit{URL: it.URL, Title: it.Title, VisitedAt: it.LastVisit, Count: max(it.VisitCount, 1)}
		if err := dst.SaveVisit(ctx, v); err != nil {
			slog.Error("failed to import visit", slog.String("url", it.URL), slog.Any("err", err))
			continue
		}
		saved++
	}

	slog.Info("history imported", slog.Int("read", len(items)), slog.Int("saved", saved))
	return saved, nil
}
