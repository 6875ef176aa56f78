// Package grouping asks a language model to sort open tabs into named,
// coloured groups.
package grouping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/devraulu/tabseek/pkg/gather"
)

const (
	DefaultColor = "grey"

	// ContentLimit is how much page text each tab contributes to the prompt.
	ContentLimit = 100
)

var (
	ErrNoGroups    = errors.New("model reply holds no groups")
	ErrUnparseable = errors.New("could not parse model reply")
)

var colors = map[string]bool{
	"blue": true, "red": true, "yellow": true, "green": true, "pink": true,
	"purple": true, "cyan": true, "orange": true, "grey": true,
}

type Group struct {
	Name   string `json:"name"`
	TabIDs []int  `json:"tabIds"`
	Color  string `json:"color"`
}

// TabInfo is the part of a tab the model gets to see.
type TabInfo struct {
	ID      int
	Title   string
	URL     string
	Content string
}

// Model generates a text reply for prompt.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Planner struct {
	Model Model
	// Tabs supplies the tabs to group when Plan is called without any.
	Tabs *gather.TabGatherer
}

// PlanOpenTabs gathers the open tabs and plans groups for them.
func (p *Planner) PlanOpenTabs(ctx context.Context) ([]Group, error) {
	if p.Tabs == nil {
		return nil, errors.New("no tab source configured")
	}

	batch := p.Tabs.Gather(ctx)
	tabs := make([]TabInfo, 0, len(batch.Results))
	for _, r := range batch.Results {
		if r.Status == gather.Failed {
			continue
		}
		tabs = append(tabs, TabInfo{ID: r.Tab.ID, Title: r.Tab.Title, URL: r.Tab.URL, Content: r.Candidate.Text})
	}
	return p.Plan(ctx, tabs)
}

// Plan asks the model for groups over tabs. Model failures are returned
// as is; nothing is retried.
func (p *Planner) Plan(ctx context.Context, tabs []TabInfo) ([]Group, error) {
	if len(tabs) == 0 {
		return nil, ErrNoGroups
	}

	slog.Info("asking model to group tabs", slog.Int("tabs", len(tabs)))
	reply, err := p.Model.Generate(ctx, Prompt(tabs))
	if err != nil {
		return nil, fmt.Errorf("generate groups: %w", err)
	}

	known := make(map[int]bool, len(tabs))
	for _, t := range tabs {
		known[t.ID] = true
	}
	return ParseGroups(reply, known)
}

// Prompt renders the grouping instructions followed by one line per tab.
func Prompt(tabs []TabInfo) string {
	var sb strings.Builder
	sb.WriteString(`Analyze these browser tabs and group them into logical categories.
Return a JSON array of groups, where each group has a "name" and "tabIds" array.
No tab should be in a group of its own. Tabs that fit nowhere else go into a general misc group.
Group names must be one or two words. Acronyms and abbreviations are fine. Do not use "/", "&" or "\".

Tabs:
`)
	for _, t := range tabs {
		fmt.Fprintf(&sb, "ID: %d, Title: %s, URL: %s, Content: %s\n", t.ID, t.Title, t.URL, clip(t.Content))
	}
	sb.WriteString(`
Return ONLY valid JSON in this format:
[
  {
    "name": "Group Name",
    "tabIds": [1, 2, 3],
    "color": "blue"
  }
]

Available colors: blue, red, yellow, green, pink, purple, cyan, orange, grey`)
	return sb.String()
}

// ParseGroups pulls the JSON array out of a model reply, which may be
// wrapped in prose or a code fence. Tab ids not in known are dropped, as are
// groups left empty. A nil known accepts every id.
func ParseGroups(reply string, known map[int]bool) ([]Group, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end < start {
		return nil, ErrUnparseable
	}

	var raw []Group
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	groups := make([]Group, 0, len(raw))
	for _, g := range raw {
		ids := make([]int, 0, len(g.TabIDs))
		for _, id := range g.TabIDs {
			if known == nil || known[id] {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			continue
		}

		name := strings.TrimSpace(g.Name)
		if name == "" {
			name = "Misc"
		}
		color := strings.ToLower(strings.TrimSpace(g.Color))
		if !colors[color] {
			color = DefaultColor
		}
		groups = append(groups, Group{Name: name, TabIDs: ids, Color: color})
	}

	if len(groups) == 0 {
		return nil, ErrNoGroups
	}
	return groups, nil
}

func clip(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > ContentLimit {
		return string(r[:ContentLimit])
	}
	return s
}
