// Package resolve turns a committed suggestion, or the lack of one, into a
// browser action and carries it out.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/devraulu/tabseek/pkg/candidate"
	"github.com/devraulu/tabseek/pkg/host"
	"github.com/devraulu/tabseek/pkg/storage"
)

// ErrNoSelection means there was neither a usable token nor a top match.
var ErrNoSelection = errors.New("nothing to resolve")

type Kind int

const (
	None Kind = iota
	Focus
	Navigate
)

func (k Kind) String() string {
	switch k {
	case Focus:
		return "focus"
	case Navigate:
		return "navigate"
	default:
		return "none"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "focus":
		*k = Focus
	case "navigate":
		*k = Navigate
	case "none", "":
		*k = None
	default:
		return fmt.Errorf("unknown action kind %q", b)
	}
	return nil
}

// Action is a resolved commit. For Navigate, TabID is the tab that was
// navigated once the action has been carried out.
type Action struct {
	Kind     Kind   `json:"kind"`
	TabID    int    `json:"tabId,omitempty"`
	WindowID int    `json:"windowId,omitempty"`
	URL      string `json:"url,omitempty"`

	ClosedPlaceholder bool `json:"closedPlaceholder,omitempty"`
	ClosedTabID       int  `json:"closedTabId,omitempty"`
}

type Resolver struct {
	Tabs  host.Tabs
	Store storage.Bookkeeping
	// Recorder is optional. Successful commits are archived into it.
	Recorder storage.VisitRecorder
}

func New(tabs host.Tabs, store storage.Bookkeeping) *Resolver {
	return &Resolver{Tabs: tabs, Store: store}
}

// Resolve works out what committing token would do without touching the
// browser state. A token that is not a candidate id falls back to the
// persisted top match.
func (r *Resolver) Resolve(ctx context.Context, token string) (Action, error) {
	ref, ok := candidate.ParseID(token)
	if !ok {
		m, err := r.Store.TopMatch(ctx)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && m.ID == "") {
			return Action{}, ErrNoSelection
		}
		if err != nil {
			return Action{}, fmt.Errorf("read top match: %w", err)
		}

		ref, ok = candidate.ParseID(m.ID)
		if !ok {
			return Action{}, fmt.Errorf("%w: bad top match id %q", ErrNoSelection, m.ID)
		}
	}

	if ref.IsHistory {
		return Action{Kind: Navigate, URL: ref.URL}, nil
	}

	tab, err := r.Tabs.Get(ctx, ref.TabID)
	if err != nil {
		return Action{}, fmt.Errorf("tab %d: %w", ref.TabID, err)
	}
	return Action{Kind: Focus, TabID: tab.ID, WindowID: tab.WindowID, URL: tab.URL}, nil
}

// Commit resolves token and applies it. Failures are logged and reported as
// a None action; they never reach the user.
func (r *Resolver) Commit(ctx context.Context, token string) Action {
	a, err := r.Resolve(ctx, token)
	if err != nil {
		slog.Warn("commit not resolved", slog.String("token", token), slog.Any("err", err))
		return Action{}
	}

	switch a.Kind {
	case Focus:
		a, err = r.focus(ctx, a)
	case Navigate:
		a, err = r.navigate(ctx, a)
	}
	if err != nil {
		slog.Warn("commit failed",
			slog.String("token", token),
			slog.String("kind", a.Kind.String()),
			slog.Int("tab_id", a.TabID),
			slog.Any("err", err),
		)
		return Action{}
	}

	slog.Info("commit applied",
		slog.String("kind", a.Kind.String()),
		slog.Int("tab_id", a.TabID),
		slog.String("url", a.URL),
		slog.Bool("closed_placeholder", a.ClosedPlaceholder),
	)
	r.record(ctx, a)
	return a
}

func (r *Resolver) focus(ctx context.Context, a Action) (Action, error) {
	// The active tab has to be read before the switch.
	prev, prevErr := r.Tabs.Active(ctx)

	if err := r.Tabs.FocusWindow(ctx, a.WindowID); err != nil {
		return a, fmt.Errorf("focus window %d: %w", a.WindowID, err)
	}
	if err := r.Tabs.Activate(ctx, a.TabID); err != nil {
		return a, fmt.Errorf("activate: %w", err)
	}

	if prevErr != nil || prev.ID == a.TabID || !host.IsPlaceholder(prev.URL) {
		return a, nil
	}
	if err := r.Tabs.Close(ctx, prev.ID); err != nil {
		slog.Warn("failed to close placeholder tab", slog.Int("tab_id", prev.ID), slog.Any("err", err))
		return a, nil
	}
	a.ClosedPlaceholder = true
	a.ClosedTabID = prev.ID
	return a, nil
}

func (r *Resolver) navigate(ctx context.Context, a Action) (Action, error) {
	active, err := r.Tabs.Active(ctx)
	if err != nil {
		return a, fmt.Errorf("active tab: %w", err)
	}
	if err := r.Tabs.Navigate(ctx, active.ID, a.URL); err != nil {
		return a, fmt.Errorf("navigate: %w", err)
	}
	a.TabID = active.ID
	a.WindowID = active.WindowID
	return a, nil
}

func (r *Resolver) record(ctx context.Context, a Action) {
	if r.Recorder == nil || a.URL == "" {
		return
	}
	if err := r.Recorder.SaveVisit(ctx, storage.Visit{URL: a.URL, VisitedAt: time.Now(), Count: 1}); err != nil {
		slog.Warn("failed to record visit", slog.String("url", a.URL), slog.Any("err", err))
	}
}
