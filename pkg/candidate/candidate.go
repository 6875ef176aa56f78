// Package candidate turns tabs and history records into uniform search
// candidates.
package candidate

import (
	"strconv"
	"strings"
	"time"

	"github.com/devraulu/tabseek/pkg/host"
	"github.com/devraulu/tabseek/pkg/process"
)

const (
	HistoryPrefix = "history-"

	DefaultTextLimit = 2000
)

type Candidate struct {
	ID        string
	Title     string
	URL       string
	Text      string
	IsHistory bool
	// Recency is the last visit; zero for tabs.
	Recency time.Time
}

// Key is the normalized URL, shared by a tab and its history twin.
func (c Candidate) Key() string {
	return process.NormalizeOrRaw(c.URL)
}

// Label is what the user sees for the candidate.
func (c Candidate) Label() string {
	if c.Title != "" {
		return c.Title
	}
	return c.URL
}

// FromTab never fails. text is dropped for pages that may not be scraped and
// clipped to limit runes otherwise.
func FromTab(tab host.Tab, text string, limit int) Candidate {
	c := Candidate{
		ID:    TabID(tab.ID),
		Title: tab.Title,
		URL:   tab.URL,
	}
	if process.IsScrapable(tab.URL) {
		c.Text = process.Clip(text, limit)
	}
	return c
}

// FromHistory never fails. History candidates carry no page text.
func FromHistory(item host.HistoryItem) Candidate {
	title := item.Title
	if title == "" {
		title = item.URL
	}
	return Candidate{
		ID:        HistoryID(item.URL),
		Title:     title,
		URL:       item.URL,
		IsHistory: true,
		Recency:   item.LastVisit,
	}
}

func TabID(id int) string {
	return strconv.Itoa(id)
}

func HistoryID(url string) string {
	return HistoryPrefix + url
}

// Ref is a parsed candidate identifier.
type Ref struct {
	IsHistory bool
	TabID     int
	URL       string
}

// ParseID decodes an identifier produced by TabID or HistoryID.
func ParseID(token string) (Ref, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Ref{}, false
	}

	if url, ok := strings.CutPrefix(token, HistoryPrefix); ok {
		if url == "" {
			return Ref{}, false
		}
		return Ref{IsHistory: true, URL: url}, true
	}

	id, err := strconv.Atoi(token)
	if err != nil || id < 0 {
		return Ref{}, false
	}
	return Ref{TabID: id}, true
}
