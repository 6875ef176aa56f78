package session

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devraulu/tabseek/pkg/candidate"
)

type State int

const (
	Empty State = iota
	Populating
	Populated
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Populating:
		return "populating"
	case Populated:
		return "populated"
	default:
		return "unknown"
	}
}

// Snapshot is the gathered data of one session. It is never mutated after
// Populate.
type Snapshot struct {
	SessionID   string
	Tabs        []candidate.Candidate
	History     []candidate.Candidate
	PopulatedAt time.Time
}

// Candidates returns tabs followed by history, the order ranking relies on
// for tie-breaking.
func (s Snapshot) Candidates() []candidate.Candidate {
	out := make([]candidate.Candidate, 0, len(s.Tabs)+len(s.History))
	out = append(out, s.Tabs...)
	return append(out, s.History...)
}

// Cache holds the gather results of the current interactive session. It is
// written once per session and read by every keystroke.
type Cache struct {
	mu     sync.Mutex
	state  State
	id     string
	snap   Snapshot
	ready  chan struct{}
	cancel context.CancelFunc
}

func NewCache() *Cache {
	return &Cache{ready: make(chan struct{})}
}

// Begin starts a new session. The previous session's context is cancelled
// and its eventual Populate is discarded. The returned context lives until
// the next Begin or End.
func (c *Cache) Begin(parent context.Context) (context.Context, string) {
	ctx, cancel := context.WithCancel(parent)
	id := uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.release()
	c.cancel = cancel
	c.id = id
	c.state = Populating
	c.snap = Snapshot{}
	c.ready = make(chan struct{})

	slog.Debug("session started", slog.String("session", id))
	return ctx, id
}

// Populate stores the snapshot for session id. It reports false when id is
// no longer the current populating session.
func (c *Cache) Populate(id string, tabs, history []candidate.Candidate) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id != c.id || c.state != Populating {
		slog.Debug("discarding stale gather", slog.String("session", id), slog.String("current", c.id))
		return false
	}

	c.snap = Snapshot{
		SessionID:   id,
		Tabs:        slices.Clone(tabs),
		History:     slices.Clone(history),
		PopulatedAt: time.Now(),
	}
	c.state = Populated
	close(c.ready)

	slog.Debug("session populated", slog.String("session", id), slog.Int("tabs", len(tabs)), slog.Int("history", len(history)))
	return true
}

// End discards the current session.
func (c *Cache) End() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.release()
	c.id = ""
	c.state = Empty
	c.snap = Snapshot{}
	c.ready = make(chan struct{})
}

// release wakes waiters of a session that will never be populated.
func (c *Cache) release() {
	if c.state == Populating {
		close(c.ready)
	}
}

func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID is the current session, "" when none is active.
func (c *Cache) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Snapshot never blocks. The bool is true only once populated.
func (c *Cache) Snapshot() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap, c.state == Populated
}

// Wait blocks until the current session is populated, timeout elapses or
// ctx is done, then returns whatever is cached.
func (c *Cache) Wait(ctx context.Context, timeout time.Duration) (Snapshot, bool) {
	c.mu.Lock()
	ready := c.ready
	state := c.state
	c.mu.Unlock()

	if state == Empty {
		return Snapshot{}, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ready:
	case <-timer.C:
		slog.Warn("session not populated in time, ranking with cached data", slog.Duration("timeout", timeout))
	case <-ctx.Done():
	}

	return c.Snapshot()
}
