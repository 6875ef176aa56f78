package grouping

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devraulu/tabseek/pkg/gather"
	"github.com/devraulu/tabseek/pkg/host"
	"github.com/devraulu/tabseek/pkg/host/hosttest"
)

type fakeModel struct {
	reply  string
	err    error
	prompt string
}

func (m *fakeModel) Generate(ctx context.Context, prompt string) (string, error) {
	m.prompt = prompt
	return m.reply, m.err
}

func TestParseGroupsFromFencedReply(t *testing.T) {
	reply := "Here you go:\n```json\n" +
		`[{"name":"Dev","tabIds":[1,2],"color":"blue"},{"name":"News","tabIds":[3],"color":"magenta"}]` +
		"\n```"

	groups, err := ParseGroups(reply, nil)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, Group{Name: "Dev", TabIDs: []int{1, 2}, Color: "blue"}, groups[0])
	assert.Equal(t, DefaultColor, groups[1].Color)
}

func TestParseGroupsDropsUnknownTabs(t *testing.T) {
	reply := `[{"name":"Dev","tabIds":[1,99]},{"name":"Ghosts","tabIds":[42]},{"name":" ","tabIds":[2],"color":"RED"}]`

	groups, err := ParseGroups(reply, map[int]bool{1: true, 2: true})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, []int{1}, groups[0].TabIDs)
	assert.Equal(t, "grey", groups[0].Color)
	assert.Equal(t, "Misc", groups[1].Name)
	assert.Equal(t, "red", groups[1].Color)
}

func TestParseGroupsErrors(t *testing.T) {
	_, err := ParseGroups("I cannot help with that.", nil)
	assert.ErrorIs(t, err, ErrUnparseable)

	_, err = ParseGroups(`[{"name": "Dev", "tabIds": [1,}]`, nil)
	assert.ErrorIs(t, err, ErrUnparseable)

	_, err = ParseGroups(`[]`, nil)
	assert.ErrorIs(t, err, ErrNoGroups)
}

func TestPromptListsTabs(t *testing.T) {
	p := Prompt([]TabInfo{
		{ID: 7, Title: "GitHub", URL: "https://github.com/", Content: strings.Repeat("word ", 50)},
	})

	assert.Contains(t, p, "ID: 7, Title: GitHub, URL: https://github.com/, Content: word word")
	assert.Contains(t, p, "Available colors: blue, red, yellow, green, pink, purple, cyan, orange, grey")

	line := p[strings.Index(p, "ID: 7"):]
	line = line[:strings.Index(line, "\n")]
	content := line[strings.Index(line, "Content: ")+len("Content: "):]
	assert.Len(t, content, ContentLimit)
}

func TestPlanSurfacesModelErrors(t *testing.T) {
	m := &fakeModel{err: errors.New("quota exceeded")}
	p := &Planner{Model: m}

	_, err := p.Plan(context.Background(), []TabInfo{{ID: 1, Title: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestPlanOpenTabs(t *testing.T) {
	b := hosttest.NewBrowser(
		host.Tab{ID: 1, Title: "GitHub", URL: "https://github.com/"},
		host.Tab{ID: 2, Title: "Go", URL: "https://go.dev/"},
	)
	b.SetPage(1, hosttest.Page{Text: "Where the world builds software"})

	m := &fakeModel{reply: `[{"name":"Dev","tabIds":[1,2,3],"color":"green"}]`}
	p := &Planner{Model: m, Tabs: &gather.TabGatherer{Tabs: b, Timeout: time.Second}}

	groups, err := p.PlanOpenTabs(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []int{1, 2}, groups[0].TabIDs)
	assert.Contains(t, m.prompt, "Content: Where the world builds software")
}

func TestPlanWithoutTabs(t *testing.T) {
	p := &Planner{Model: &fakeModel{}}
	_, err := p.Plan(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoGroups)
}
