// Package omnibox reacts to address-bar events: it starts a session when the
// user begins typing, turns each keystroke into ranked suggestions and
// commits the user's pick.
package omnibox

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	session "github.com/devraulu/tabseek/pkg"
	"github.com/devraulu/tabseek/pkg/candidate"
	"github.com/devraulu/tabseek/pkg/config"
	"github.com/devraulu/tabseek/pkg/gather"
	"github.com/devraulu/tabseek/pkg/rank"
	"github.com/devraulu/tabseek/pkg/resolve"
	"github.com/devraulu/tabseek/pkg/storage"
)

const (
	DefaultDescription = "Search your tabs"
	LoadingDescription = "Loading tabs..."
	NoMatchDescription = "No matching tabs"

	DefaultWaitTimeout = 5 * time.Second
)

type Suggestion struct {
	Content     string `json:"content"`
	Description string `json:"description"`
}

// Update is what the address bar should show for Query.
type Update struct {
	Query       string       `json:"query"`
	Default     string       `json:"default"`
	Suggestions []Suggestion `json:"suggestions"`
	Loading     bool         `json:"loading,omitempty"`
}

type Controller struct {
	Cache    *session.Cache
	Tabs     *gather.TabGatherer
	History  *gather.HistoryGatherer
	Resolver *resolve.Resolver
	Store    storage.Bookkeeping

	Threshold      float64
	EmptyQuery     string
	MaxSuggestions int
	WaitTimeout    time.Duration

	seq    atomic.Uint64
	emitMu sync.Mutex
	// surfaced holds the suggestion contents of the last delivered update.
	surfaced map[string]struct{}
	wg       sync.WaitGroup
}

// Start begins a session and gathers its candidates in the background.
// A later Start or End discards this gather.
func (c *Controller) Start(ctx context.Context) string {
	sctx, id := c.Cache.Begin(context.WithoutCancel(ctx))
	c.seq.Add(1)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.populate(sctx, id)
	}()
	return id
}

func (c *Controller) populate(ctx context.Context, id string) {
	var (
		batch   gather.TabBatch
		history []candidate.Candidate
	)

	eg := errgroup.Group{}
	eg.Go(func() error {
		batch = c.Tabs.Gather(ctx)
		return nil
	})
	eg.Go(func() error {
		history = c.History.Gather(ctx, "")
		return nil
	})
	_ = eg.Wait()

	if ctx.Err() != nil {
		slog.Debug("gather cancelled", slog.String("session", id))
		return
	}

	if c.Cache.Populate(id, batch.Candidates(), history) {
		slog.Info("session ready",
			slog.String("session", id),
			slog.Int("tabs", len(batch.Results)),
			slog.Int("scraped", batch.Stats.Scraped),
			slog.Int("skipped", batch.Stats.Skipped),
			slog.Int("degraded", batch.Stats.Degraded),
			slog.Int("failed", batch.Stats.Failed),
			slog.Int("history", len(history)),
			slog.Duration("elapsed", batch.Stats.Elapsed),
		)
	}
}

// Keystroke is a query accepted by Accept, tagged with its arrival order.
type Keystroke struct {
	Query string
	seq   uint64
}

// Changed ranks the session candidates against query and hands the result
// to emit. A call that is overtaken by a newer keystroke, commit or cancel
// emits nothing further.
func (c *Controller) Changed(ctx context.Context, query string, emit func(Update)) {
	c.Suggest(ctx, c.Accept(ctx, query), emit)
}

// Accept records query as the newest keystroke, starting a session when none
// is active. It must be called in arrival order; the returned Keystroke may
// then be passed to Suggest from any goroutine.
func (c *Controller) Accept(ctx context.Context, query string) Keystroke {
	if c.Cache.State() == session.Empty {
		c.Start(ctx)
	}
	k := Keystroke{Query: query, seq: c.seq.Add(1)}

	if err := c.Store.SaveLastQuery(ctx, query); err != nil {
		slog.Warn("failed to save last query", slog.Any("err", err))
	}
	return k
}

// Suggest ranks k and emits the result unless a newer keystroke, commit or
// cancel has been accepted since.
func (c *Controller) Suggest(ctx context.Context, k Keystroke, emit func(Update)) {
	query, seq := k.Query, k.seq

	trimmed := strings.TrimSpace(query)
	if trimmed == "" && c.EmptyQuery != config.EmptyQueryRecent {
		c.deliver(ctx, seq, emit, Update{Query: query, Default: DefaultDescription, Suggestions: []Suggestion{}}, &storage.TopMatch{Query: query})
		return
	}

	snap, ok := c.Cache.Snapshot()
	if !ok {
		c.deliver(ctx, seq, emit, Update{Query: query, Default: LoadingDescription, Suggestions: []Suggestion{}, Loading: true}, nil)
		snap, _ = c.Cache.Wait(ctx, c.waitTimeout())
	}

	var results []rank.Result
	if trimmed == "" {
		results = rank.Recent(snap.Candidates())
	} else {
		results = rank.Rank(trimmed, snap.Candidates(), rank.Options{Threshold: c.Threshold})
	}

	top, rest := rank.Surface(results, c.MaxSuggestions)
	if top == nil {
		c.deliver(ctx, seq, emit, Update{Query: query, Default: NoMatchDescription, Suggestions: []Suggestion{}}, &storage.TopMatch{Query: query})
		return
	}

	u := Update{
		Query:       query,
		Default:     rank.Describe(*top, trimmed),
		Suggestions: make([]Suggestion, 0, len(rest)),
	}
	for _, r := range rest {
		u.Suggestions = append(u.Suggestions, Suggestion{Content: r.ID, Description: rank.Describe(r, trimmed)})
	}

	slog.Debug("ranked",
		slog.String("query", trimmed),
		slog.Int("candidates", len(snap.Tabs)+len(snap.History)),
		slog.Int("matches", len(results)),
		slog.String("top", top.ID),
		slog.Float64("score", top.Score),
	)

	c.deliver(ctx, seq, emit, u, &storage.TopMatch{
		ID:        top.ID,
		URL:       top.URL,
		IsHistory: top.IsHistory,
		Query:     query,
	})
}

// deliver emits u and records match only while seq is the latest call.
func (c *Controller) deliver(ctx context.Context, seq uint64, emit func(Update), u Update, match *storage.TopMatch) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	if seq != c.seq.Load() {
		slog.Debug("dropping superseded suggestions", slog.String("query", u.Query))
		return
	}

	c.surfaced = make(map[string]struct{}, len(u.Suggestions))
	for _, sg := range u.Suggestions {
		c.surfaced[sg.Content] = struct{}{}
	}

	if match != nil {
		if err := c.Store.SaveTopMatch(ctx, *match); err != nil {
			slog.Warn("failed to save top match", slog.Any("err", err))
		}
	}
	emit(u)
}

// Entered commits text, which is either a suggestion's content or whatever
// was typed, and ends the session. Typed text commits the top match, even
// when it looks like a tab id.
func (c *Controller) Entered(ctx context.Context, text string) resolve.Action {
	c.seq.Add(1)

	token := text
	if !c.isSuggestion(text) {
		if err := c.Store.SaveLastQuery(ctx, text); err != nil {
			slog.Warn("failed to save last query", slog.Any("err", err))
		}
		token = ""
	}

	a := c.Resolver.Commit(ctx, token)
	c.end()
	return a
}

// isSuggestion reports whether text names a candidate rather than a query.
// History ids cannot collide with typed text; a bare number only counts as a
// tab id when it was offered as a suggestion.
func (c *Controller) isSuggestion(text string) bool {
	ref, ok := candidate.ParseID(text)
	if !ok {
		return false
	}
	if ref.IsHistory {
		return true
	}

	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	_, ok = c.surfaced[strings.TrimSpace(text)]
	return ok
}

func (c *Controller) Cancelled() {
	c.seq.Add(1)
	c.end()
}

func (c *Controller) end() {
	c.emitMu.Lock()
	c.surfaced = nil
	c.emitMu.Unlock()
	c.Cache.End()
}

// Close ends the session and waits for background gathers to stop.
func (c *Controller) Close() {
	c.Cancelled()
	c.wg.Wait()
}

func (c *Controller) waitTimeout() time.Duration {
	if c.WaitTimeout <= 0 {
		return DefaultWaitTimeout
	}
	return c.WaitTimeout
}
