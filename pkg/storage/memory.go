package storage

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/devraulu/tabseek/pkg/host"
	"github.com/devraulu/tabseek/pkg/process"
)

// MemoryStore keeps bookkeeping and visits for the life of the process.
type MemoryStore struct {
	mu        sync.Mutex
	lastQuery *string
	topMatch  *TopMatch
	visits    map[string]*host.HistoryItem
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{visits: make(map[string]*host.HistoryItem)}
}

func (s *MemoryStore) SaveLastQuery(ctx context.Context, query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuery = &query
	return nil
}

func (s *MemoryStore) LastQuery(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastQuery == nil {
		return "", ErrNotFound
	}
	return *s.lastQuery, nil
}

func (s *MemoryStore) SaveTopMatch(ctx context.Context, m TopMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = time.Now()
	}
	s.topMatch = &m
	return nil
}

func (s *MemoryStore) TopMatch(ctx context.Context) (TopMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.topMatch == nil {
		return TopMatch{}, ErrNotFound
	}
	return *s.topMatch, nil
}

func (s *MemoryStore) SaveVisit(ctx context.Context, v Visit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := process.NormalizeOrRaw(v.URL)
	count := max(v.Count, 1)

	it, ok := s.visits[key]
	if !ok {
		s.visits[key] = &host.HistoryItem{URL: v.URL, Title: v.Title, LastVisit: v.VisitedAt, VisitCount: count}
		return nil
	}

	it.URL = v.URL
	if v.Title != "" {
		it.Title = v.Title
	}
	if v.VisitedAt.After(it.LastVisit) {
		it.LastVisit = v.VisitedAt
	}
	it.VisitCount += count
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, keyword string, limit int) ([]host.HistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kw := strings.ToLower(keyword)
	out := []host.HistoryItem{}
	for _, it := range s.visits {
		if kw != "" && !strings.Contains(strings.ToLower(it.Title), kw) && !strings.Contains(strings.ToLower(it.URL), kw) {
			continue
		}
		out = append(out, *it)
	}

	slices.SortFunc(out, func(a, b host.HistoryItem) int {
		if c := b.LastVisit.Compare(a.LastVisit); c != 0 {
			return c
		}
		return strings.Compare(a.URL, b.URL)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
