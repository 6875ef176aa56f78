package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/devraulu/tabseek/pkg/host"
)

// webkitEpochOffset is the number of microseconds between 1601-01-01 and the
// Unix epoch. Chrome stores visit times relative to 1601.
const webkitEpochOffset = 11644473600 * 1_000_000

// ChromeHistory reads the Chrome profile "History" database. The browser
// keeps that file locked, so every search works on a private copy.
type ChromeHistory struct {
	Path string
}

func NewChromeHistory(path string) *ChromeHistory {
	return &ChromeHistory{Path: path}
}

func (h *ChromeHistory) Search(ctx context.Context, keyword string, limit int) ([]host.HistoryItem, error) {
	snapshot, err := h.snapshot()
	if err != nil {
		return nil, err
	}
	defer os.Remove(snapshot)

	db, err := sql.Open("sqlite", snapshot)
	if err != nil {
		return nil, fmt.Errorf("open history snapshot: %w", err)
	}
	defer db.Close()

	var rows *sql.Rows
	if keyword == "" {
		rows, err = db.QueryContext(ctx, `
			SELECT url, title, last_visit_time, visit_count
			FROM urls
			WHERE hidden = 0
			ORDER BY last_visit_time DESC
			LIMIT ?`,
			limit,
		)
	} else {
		pattern := "%" + escapeLike(keyword) + "%"
		rows, err = db.QueryContext(ctx, `
			SELECT url, title, last_visit_time, visit_count
			FROM urls
			WHERE hidden = 0 AND (url LIKE ? ESCAPE '\' OR title LIKE ? ESCAPE '\')
			ORDER BY last_visit_time DESC
			LIMIT ?`,
			pattern, pattern, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	items := []host.HistoryItem{}
	for rows.Next() {
		var (
			it    host.HistoryItem
			title sql.NullString
			micro int64
		)
		if err := rows.Scan(&it.URL, &title, &micro, &it.VisitCount); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		it.Title = title.String
		it.LastVisit = fromWebkit(micro)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	slog.Debug("chrome history searched", slog.String("keyword", keyword), slog.Int("results", len(items)))
	return items, nil
}

func (h *ChromeHistory) snapshot() (string, error) {
	src, err := os.Open(h.Path)
	if err != nil {
		return "", fmt.Errorf("open history: %w", err)
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "tabseek-history-*.sqlite")
	if err != nil {
		return "", fmt.Errorf("create history snapshot: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("copy history: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("close history snapshot: %w", err)
	}
	return dst.Name(), nil
}

func fromWebkit(micro int64) time.Time {
	if micro <= 0 {
		return time.Time{}
	}
	return time.UnixMicro(micro - webkitEpochOffset).UTC()
}
