// Package hosttest provides an in-memory browser for tests.
package hosttest

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/devraulu/tabseek/pkg/host"
)

// Page is the scripted content of one tab.
type Page struct {
	Text  string
	Err   error
	Delay time.Duration
	// Hang makes extraction ignore its context and never return until the
	// browser is released.
	Hang  bool
	Panic bool
}

type Browser struct {
	mu       sync.Mutex
	tabs     []host.Tab
	pages    map[int]Page
	activeID int
	listErr  error
	release  chan struct{}

	Extracted []int
	Focused   []int
	Activated []int
	Closed    []int
	Navigated map[int][]string
}

func NewBrowser(tabs ...host.Tab) *Browser {
	b := &Browser{
		pages:     make(map[int]Page),
		release:   make(chan struct{}),
		Navigated: make(map[int][]string),
	}
	for _, t := range tabs {
		b.tabs = append(b.tabs, t)
		if t.Active {
			b.activeID = t.ID
		}
	}
	return b
}

func (b *Browser) SetPage(id int, p Page) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pages[id] = p
}

func (b *Browser) SetListErr(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listErr = err
}

// AddTab opens a tab after construction.
func (b *Browser) AddTab(t host.Tab) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tabs = append(b.tabs, t)
}

// RemoveTab simulates the user closing a tab.
func (b *Browser) RemoveTab(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tabs = slices.DeleteFunc(b.tabs, func(t host.Tab) bool { return t.ID == id })
}

// Release unblocks every hanging extraction.
func (b *Browser) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.release:
	default:
		close(b.release)
	}
}

func (b *Browser) List(ctx context.Context) ([]host.Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return nil, b.listErr
	}
	out := make([]host.Tab, len(b.tabs))
	for i, t := range b.tabs {
		t.Active = t.ID == b.activeID
		out[i] = t
	}
	return out, nil
}

func (b *Browser) Get(ctx context.Context, id int) (host.Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getLocked(id)
}

func (b *Browser) getLocked(id int) (host.Tab, error) {
	for _, t := range b.tabs {
		if t.ID == id {
			t.Active = t.ID == b.activeID
			return t, nil
		}
	}
	return host.Tab{}, host.ErrTabNotFound
}

func (b *Browser) Active(ctx context.Context) (host.Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getLocked(b.activeID)
}

func (b *Browser) ExtractText(ctx context.Context, tab host.Tab, limit int) (string, error) {
	b.mu.Lock()
	p := b.pages[tab.ID]
	b.Extracted = append(b.Extracted, tab.ID)
	release := b.release
	b.mu.Unlock()

	if p.Panic {
		panic("extraction blew up")
	}

	if p.Hang {
		<-release
		return "", errors.New("released")
	}

	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if p.Err != nil {
		return "", p.Err
	}

	text := p.Text
	if r := []rune(text); len(r) > limit {
		text = string(r[:limit])
	}
	return strings.TrimSpace(text), nil
}

func (b *Browser) FocusWindow(ctx context.Context, windowID int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Focused = append(b.Focused, windowID)
	return nil
}

func (b *Browser) Activate(ctx context.Context, id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.getLocked(id); err != nil {
		return err
	}
	b.activeID = id
	b.Activated = append(b.Activated, id)
	return nil
}

func (b *Browser) Close(ctx context.Context, id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.getLocked(id); err != nil {
		return err
	}
	b.tabs = slices.DeleteFunc(b.tabs, func(t host.Tab) bool { return t.ID == id })
	b.Closed = append(b.Closed, id)
	return nil
}

func (b *Browser) Navigate(ctx context.Context, id int, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.getLocked(id); err != nil {
		return err
	}
	for i := range b.tabs {
		if b.tabs[i].ID == id {
			b.tabs[i].URL = url
		}
	}
	b.Navigated[id] = append(b.Navigated[id], url)
	return nil
}

// Calls returns copies of the recorded control calls.
func (b *Browser) Calls() (focused, activated, closed []int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.Focused), slices.Clone(b.Activated), slices.Clone(b.Closed)
}

// History is a canned host.History.
type History struct {
	Items []host.HistoryItem
	Err   error
	Delay time.Duration

	mu       sync.Mutex
	Keywords []string
}

func (h *History) Search(ctx context.Context, keyword string, max int) ([]host.HistoryItem, error) {
	h.mu.Lock()
	h.Keywords = append(h.Keywords, keyword)
	h.mu.Unlock()

	if h.Delay > 0 {
		select {
		case <-time.After(h.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if h.Err != nil {
		return nil, h.Err
	}

	var out []host.HistoryItem
	kw := strings.ToLower(keyword)
	for _, it := range h.Items {
		if kw != "" && !strings.Contains(strings.ToLower(it.Title+" "+it.URL), kw) {
			continue
		}
		out = append(out, it)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out, nil
}
