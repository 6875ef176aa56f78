package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/devraulu/tabseek/pkg/host"
	"github.com/devraulu/tabseek/pkg/process"
)

const (
	keyLastQuery = "last_query"
	keyTopMatch  = "top_match"
)

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

func (s *PostgresStorage) SaveVisit(ctx context.Context, v Visit) error {
	visitedAt := v.VisitedAt
	if visitedAt.IsZero() {
		visitedAt = time.Now()
	}

	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO visits (url, normalized_url, title, last_visit, visit_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (normalized_url) DO UPDATE
		SET url = EXCLUDED.url,
			title = CASE WHEN EXCLUDED.title <> '' THEN EXCLUDED.title ELSE visits.title END,
			last_visit = GREATEST(visits.last_visit, EXCLUDED.last_visit),
			visit_count = visits.visit_count + EXCLUDED.visit_count
		RETURNING id`,
		v.URL, process.NormalizeOrRaw(v.URL), v.Title, visitedAt, max(v.Count, 1),
	).Scan(&id)
	if err != nil {
		return err
	}

	slog.Debug("saved visit", "id", id, "url", v.URL)
	return nil
}

// Search implements host.History over the visits archive.
func (s *PostgresStorage) Search(ctx context.Context, keyword string, limit int) ([]host.HistoryItem, error) {
	slog.Debug("history query", "keyword", keyword, "limit", limit)

	var (
		rows *sql.Rows
		err  error
	)
	if keyword == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT url, title, last_visit, visit_count
			FROM visits
			ORDER BY last_visit DESC
			LIMIT $1`,
			limit,
		)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT url, title, last_visit, visit_count
			FROM visits
			WHERE title ILIKE $1 OR url ILIKE $1
			ORDER BY last_visit DESC
			LIMIT $2`,
			"%"+escapeLike(keyword)+"%", limit,
		)
	}
	if err != nil {
		slog.Error("history query failed", "keyword", keyword, "err", err)
		return nil, err
	}
	defer rows.Close()

	items := []host.HistoryItem{}
	for rows.Next() {
		var it host.HistoryItem
		if err := rows.Scan(&it.URL, &it.Title, &it.LastVisit, &it.VisitCount); err != nil {
			slog.Error("history scan failed", "keyword", keyword, "err", err)
			return nil, err
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		slog.Error("history rows iteration failed", "keyword", keyword, "err", err)
		return nil, err
	}

	return items, nil
}

func (s *PostgresStorage) SaveLastQuery(ctx context.Context, query string) error {
	return s.put(ctx, keyLastQuery, query)
}

func (s *PostgresStorage) LastQuery(ctx context.Context) (string, error) {
	var q string
	err := s.get(ctx, keyLastQuery, &q)
	return q, err
}

func (s *PostgresStorage) SaveTopMatch(ctx context.Context, m TopMatch) error {
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now()
	}
	return s.put(ctx, keyTopMatch, m)
}

func (s *PostgresStorage) TopMatch(ctx context.Context) (TopMatch, error) {
	var m TopMatch
	err := s.get(ctx, keyTopMatch, &m)
	return m, err
}

func (s *PostgresStorage) put(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bookkeeping (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, data, time.Now(),
	)
	return err
}

func (s *PostgresStorage) get(ctx context.Context, key string, dst any) error {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM bookkeeping WHERE key = $1`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
