// Package browser drives a running Chromium over the DevTools protocol and
// exposes it as host.Tabs.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/devraulu/tabseek/pkg/host"
	"github.com/devraulu/tabseek/pkg/process"
)

const probeTimeout = 300 * time.Millisecond

const visibilityJS = `() => document.visibilityState + (document.hasFocus() ? ":focus" : "")`

type Browser struct {
	rod    *rod.Browser
	ids    *registry
	cancel context.CancelFunc
}

// Connect attaches to a browser started with --remote-debugging-port.
// debugURL may be an http endpoint, a bare port or a ws:// url.
func Connect(ctx context.Context, debugURL string) (*Browser, error) {
	u, err := launcher.ResolveURL(debugURL)
	if err != nil {
		return nil, fmt.Errorf("resolve debugger url %q: %w", debugURL, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	b := rod.New().ControlURL(u).Context(ctx)
	if err := b.Connect(); err != nil {
		cancel()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	slog.Info("connected to browser", slog.String("control_url", u))
	return &Browser{rod: b, ids: newRegistry(), cancel: cancel}, nil
}

// Close drops the DevTools connection. The browser itself keeps running.
func (b *Browser) Close() error {
	b.cancel()
	return nil
}

func (b *Browser) List(ctx context.Context) ([]host.Tab, error) {
	pages, err := b.rod.Context(ctx).Pages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	tabs := make([]host.Tab, 0, len(pages))
	states := make([]string, 0, len(pages))
	live := make(map[proto.TargetTargetID]bool, len(pages))
	for _, p := range pages {
		info, err := p.Context(ctx).Info()
		if err != nil {
			slog.Debug("skipping page without info", slog.String("target", string(p.TargetID)), slog.Any("err", err))
			continue
		}
		live[p.TargetID] = true

		tabs = append(tabs, host.Tab{
			ID:       b.ids.id(p.TargetID),
			WindowID: b.windowID(ctx, p.TargetID),
			Title:    info.Title,
			URL:      info.URL,
		})
		states = append(states, visibility(ctx, p))
	}
	b.ids.forget(live)

	if i := activeIndex(states); i >= 0 {
		tabs[i].Active = true
	}
	return tabs, nil
}

func (b *Browser) Get(ctx context.Context, id int) (host.Tab, error) {
	tabs, err := b.List(ctx)
	if err != nil {
		return host.Tab{}, err
	}
	for _, t := range tabs {
		if t.ID == id {
			return t, nil
		}
	}
	return host.Tab{}, host.ErrTabNotFound
}

func (b *Browser) Active(ctx context.Context) (host.Tab, error) {
	tabs, err := b.List(ctx)
	if err != nil {
		return host.Tab{}, err
	}
	for _, t := range tabs {
		if t.Active {
			return t, nil
		}
	}
	return host.Tab{}, host.ErrTabNotFound
}

// ExtractText reads the rendered DOM of the tab and returns its visible text.
func (b *Browser) ExtractText(ctx context.Context, tab host.Tab, limit int) (string, error) {
	p, err := b.page(ctx, tab.ID)
	if err != nil {
		return "", err
	}

	doc, err := p.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}

	text, err := process.ExtractText(strings.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return process.Clip(text, limit), nil
}

// FocusWindow restores a minimized window. Raising it happens when one of its
// tabs is activated.
func (b *Browser) FocusWindow(ctx context.Context, windowID int) error {
	c := b.rod.Context(ctx)
	wid := proto.BrowserWindowID(windowID)

	res, err := proto.BrowserGetWindowBounds{WindowID: wid}.Call(c)
	if err != nil {
		return fmt.Errorf("window %d bounds: %w", windowID, err)
	}
	if res.Bounds == nil || res.Bounds.WindowState != proto.BrowserWindowStateMinimized {
		return nil
	}

	return proto.BrowserSetWindowBounds{
		WindowID: wid,
		Bounds:   &proto.BrowserBounds{WindowState: proto.BrowserWindowStateNormal},
	}.Call(c)
}

func (b *Browser) Activate(ctx context.Context, id int) error {
	p, err := b.page(ctx, id)
	if err != nil {
		return err
	}
	_, err = p.Activate()
	return err
}

func (b *Browser) Close(ctx context.Context, id int) error {
	p, err := b.page(ctx, id)
	if err != nil {
		return err
	}
	return p.Close()
}

func (b *Browser) Navigate(ctx context.Context, id int, url string) error {
	p, err := b.page(ctx, id)
	if err != nil {
		return err
	}
	return p.Navigate(url)
}

func (b *Browser) page(ctx context.Context, id int) (*rod.Page, error) {
	target, ok := b.ids.target(id)
	if !ok {
		return nil, host.ErrTabNotFound
	}
	p, err := b.rod.Context(ctx).PageFromTarget(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", host.ErrTabNotFound, err)
	}
	return p.Context(ctx), nil
}

func (b *Browser) windowID(ctx context.Context, target proto.TargetTargetID) int {
	res, err := proto.BrowserGetWindowForTarget{TargetID: target}.Call(b.rod.Context(ctx))
	if err != nil {
		slog.Debug("window lookup failed", slog.String("target", string(target)), slog.Any("err", err))
		return 0
	}
	return int(res.WindowID)
}

func visibility(ctx context.Context, p *rod.Page) string {
	res, err := p.Context(ctx).Timeout(probeTimeout).Eval(visibilityJS)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// activeIndex picks the visible tab of the focused window, falling back to
// the first visible tab.
func activeIndex(states []string) int {
	first := -1
	for i, s := range states {
		if s == "visible:focus" {
			return i
		}
		if first < 0 && strings.HasPrefix(s, "visible") {
			first = i
		}
	}
	return first
}
