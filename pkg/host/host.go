// Package host describes the browser facilities tabseek consumes: tab
// enumeration and control, page content extraction and history lookup.
package host

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrTabNotFound = errors.New("tab not found")

type Tab struct {
	ID       int
	WindowID int
	Title    string
	URL      string
	Active   bool
}

type HistoryItem struct {
	URL        string
	Title      string
	LastVisit  time.Time
	VisitCount int
}

// Tabs is the tab side of the browser. Lookups of a tab that no longer
// exists return ErrTabNotFound.
type Tabs interface {
	List(ctx context.Context) ([]Tab, error)
	Get(ctx context.Context, id int) (Tab, error)
	Active(ctx context.Context) (Tab, error)
	ExtractText(ctx context.Context, tab Tab, limit int) (string, error)
	FocusWindow(ctx context.Context, windowID int) error
	Activate(ctx context.Context, id int) error
	Close(ctx context.Context, id int) error
	Navigate(ctx context.Context, id int, url string) error
}

// History searches browsing history. An empty keyword means most recent first.
type History interface {
	Search(ctx context.Context, keyword string, max int) ([]HistoryItem, error)
}

var placeholders = map[string]bool{
	"":                      true,
	"about:blank":           true,
	"about:newtab":          true,
	"about:home":            true,
	"chrome://newtab":       true,
	"chrome://new-tab-page": true,
	"edge://newtab":         true,
	"brave://newtab":        true,
}

// IsPlaceholder reports whether url is a blank or new-tab page.
func IsPlaceholder(url string) bool {
	u := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(url)), "/")
	return placeholders[u]
}
