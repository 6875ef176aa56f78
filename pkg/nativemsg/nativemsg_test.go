package nativemsg

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	session "github.com/devraulu/tabseek/pkg"
	"github.com/devraulu/tabseek/pkg/gather"
	"github.com/devraulu/tabseek/pkg/grouping"
	"github.com/devraulu/tabseek/pkg/host"
	"github.com/devraulu/tabseek/pkg/host/hosttest"
	"github.com/devraulu/tabseek/pkg/omnibox"
	"github.com/devraulu/tabseek/pkg/resolve"
	"github.com/devraulu/tabseek/pkg/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFrameLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, Request{Type: TypeChanged, Query: "go"}))

	raw := buf.Bytes()
	body := `{"type":"changed","query":"go"}`
	assert.Equal(t, uint32(len(body)), binary.NativeEndian.Uint32(raw[:4]))
	assert.Equal(t, body, string(raw[4:]))

	var req Request
	require.NoError(t, ReadMessage(&buf, &req))
	assert.Equal(t, "go", req.Query)

	assert.ErrorIs(t, ReadMessage(&buf, &req), io.EOF)
}

func TestReadMessageRejectsOversizedFrame(t *testing.T) {
	hdr := make([]byte, 4)
	binary.NativeEndian.PutUint32(hdr, MaxInbound+1)

	var req Request
	err := ReadMessage(bytes.NewReader(hdr), &req)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestReadMessageTruncated(t *testing.T) {
	hdr := make([]byte, 4)
	binary.NativeEndian.PutUint32(hdr, 10)

	var req Request
	err := ReadMessage(bytes.NewReader(append(hdr, '{')), &req)
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)

	err = ReadMessage(bytes.NewReader([]byte{1, 0}), &req)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestWriteMessageRejectsOversizedReply(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMessage(&buf, Response{Type: TypeError, Error: strings.Repeat("x", MaxOutbound)})
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Zero(t, buf.Len())
}

type fakeController struct {
	mu        sync.Mutex
	started   int
	cancelled int
	entered   []string
}

func (f *fakeController) Start(ctx context.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	return "session-1"
}

func (f *fakeController) Accept(ctx context.Context, query string) omnibox.Keystroke {
	return omnibox.Keystroke{Query: query}
}

func (f *fakeController) Suggest(ctx context.Context, k omnibox.Keystroke, emit func(omnibox.Update)) {
	emit(omnibox.Update{Query: k.Query, Default: "<match>" + k.Query + "</match>", Suggestions: []omnibox.Suggestion{{Content: "2", Description: "two"}}})
}

func (f *fakeController) Entered(ctx context.Context, text string) resolve.Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entered = append(f.entered, text)
	return resolve.Action{Kind: resolve.Focus, TabID: 2, WindowID: 1}
}

func (f *fakeController) Cancelled() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled++
}

type fakeGrouper struct {
	groups []grouping.Group
	err    error
}

func (g *fakeGrouper) PlanOpenTabs(ctx context.Context) ([]grouping.Group, error) {
	return g.groups, g.err
}

func frames(t *testing.T, reqs ...Request) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for _, r := range reqs {
		require.NoError(t, WriteMessage(&buf, r))
	}
	return &buf
}

func responses(t *testing.T, out *bytes.Buffer) map[string][]Response {
	t.Helper()
	got := map[string][]Response{}
	for out.Len() > 0 {
		var r Response
		require.NoError(t, ReadMessage(out, &r))
		got[r.Type] = append(got[r.Type], r)
	}
	return got
}

func TestServeDispatches(t *testing.T) {
	in := frames(t,
		Request{Type: TypeStart},
		Request{Type: TypeChanged, Query: "git"},
		Request{Type: TypeEntered, Text: "2"},
		Request{Type: TypeStart},
		Request{Type: TypeCancelled},
		Request{Type: TypeGroup},
		Request{Type: "bogus"},
	)
	var out bytes.Buffer
	c := &fakeController{}
	g := &fakeGrouper{groups: []grouping.Group{{Name: "Dev", TabIDs: []int{2}, Color: "blue"}}}

	err := NewServer(in, &out, c, g).Serve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, c.started)
	assert.Equal(t, 1, c.cancelled)
	assert.Equal(t, []string{"2"}, c.entered)

	got := responses(t, &out)
	require.Len(t, got[TypeDefault], 2)
	assert.Equal(t, "session-1", got[TypeDefault][0].Session)

	require.Len(t, got[TypeSuggest], 1)
	assert.Equal(t, "<match>git</match>", got[TypeSuggest][0].Description)
	assert.Equal(t, "2", got[TypeSuggest][0].Suggestions[0].Content)

	require.Len(t, got[TypeAction], 1)
	assert.Equal(t, resolve.Focus, got[TypeAction][0].Action.Kind)

	require.Len(t, got[TypeGroups], 1)
	assert.Equal(t, "Dev", got[TypeGroups][0].Groups[0].Name)

	require.Len(t, got[TypeError], 1)
	assert.Contains(t, got[TypeError][0].Error, "bogus")
}

func TestServeGroupingFailure(t *testing.T) {
	in := frames(t, Request{Type: TypeGroup})
	var out bytes.Buffer

	srv := NewServer(in, &out, &fakeController{}, &fakeGrouper{err: errors.New("gemini api key is required")})
	require.NoError(t, srv.Serve(context.Background()))

	got := responses(t, &out)
	require.Len(t, got[TypeError], 1)
	assert.Equal(t, "gemini api key is required", got[TypeError][0].Error)
}

func TestServeWithoutGrouper(t *testing.T) {
	in := frames(t, Request{Type: TypeGroup})
	var out bytes.Buffer

	require.NoError(t, NewServer(in, &out, &fakeController{}, nil).Serve(context.Background()))

	got := responses(t, &out)
	require.Len(t, got[TypeError], 1)
}

func TestServeStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewServer(frames(t, Request{Type: TypeStart}), io.Discard, &fakeController{}, nil).Serve(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServeKeepsKeystrokeOrder(t *testing.T) {
	b := hosttest.NewBrowser(
		host.Tab{ID: 1, WindowID: 1, Title: "New Tab", URL: "about:blank", Active: true},
		host.Tab{ID: 2, WindowID: 1, Title: "GitHub", URL: "https://github.com/"},
		host.Tab{ID: 3, WindowID: 1, Title: "Gitea", URL: "https://gitea.com/"},
	)
	h := &hosttest.History{}

	for range 50 {
		store := storage.NewMemoryStore()
		c := &omnibox.Controller{
			Cache:       session.NewCache(),
			Tabs:        &gather.TabGatherer{Tabs: b, Timeout: time.Second},
			History:     &gather.HistoryGatherer{History: h, Timeout: time.Second},
			Resolver:    resolve.New(b, store),
			Store:       store,
			WaitTimeout: 2 * time.Second,
		}
		c.Start(context.Background())
		_, ok := c.Cache.Wait(context.Background(), 2*time.Second)
		require.True(t, ok)

		in := frames(t,
			Request{Type: TypeChanged, Query: "g"},
			Request{Type: TypeChanged, Query: "gi"},
			Request{Type: TypeChanged, Query: "git"},
			Request{Type: TypeChanged, Query: "gith"},
			Request{Type: TypeChanged, Query: "githu"},
			Request{Type: TypeChanged, Query: "github"},
		)
		var out bytes.Buffer
		require.NoError(t, NewServer(in, &out, c, nil).Serve(context.Background()))
		c.Close()

		got := responses(t, &out)
		require.NotEmpty(t, got[TypeSuggest])
		assert.Equal(t, "github", got[TypeSuggest][len(got[TypeSuggest])-1].Query)

		m, err := store.TopMatch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "github", m.Query)
		assert.Equal(t, "2", m.ID)
	}
}
