package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/devraulu/tabseek/pkg/candidate"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func tabs(ids ...string) []candidate.Candidate {
	out := make([]candidate.Candidate, len(ids))
	for i, id := range ids {
		out[i] = candidate.Candidate{ID: id, Title: "tab " + id, URL: "https://example.com/" + id}
	}
	return out
}

func TestCacheLifecycle(t *testing.T) {
	c := NewCache()
	assert.Equal(t, Empty, c.State())

	_, id := c.Begin(context.Background())
	assert.Equal(t, Populating, c.State())
	_, ok := c.Snapshot()
	assert.False(t, ok)

	hist := []candidate.Candidate{{ID: "history-https://go.dev", IsHistory: true}}
	require.True(t, c.Populate(id, tabs("1", "2"), hist))
	assert.Equal(t, Populated, c.State())

	snap, ok := c.Snapshot()
	require.True(t, ok)
	assert.Equal(t, id, snap.SessionID)
	ids := []string{}
	for _, cand := range snap.Candidates() {
		ids = append(ids, cand.ID)
	}
	assert.Equal(t, []string{"1", "2", "history-https://go.dev"}, ids)

	c.End()
	assert.Equal(t, Empty, c.State())
	assert.Empty(t, c.SessionID())
}

func TestCacheSnapshotIsStable(t *testing.T) {
	c := NewCache()
	_, id := c.Begin(context.Background())

	src := tabs("1")
	require.True(t, c.Populate(id, src, nil))

	// the underlying tabs change mid-session
	src[0].Title = "changed"

	first, _ := c.Snapshot()
	second, _ := c.Snapshot()
	assert.Equal(t, first, second)
	assert.Equal(t, "tab 1", second.Tabs[0].Title)

	// a second populate for the same session is ignored
	assert.False(t, c.Populate(id, tabs("9"), nil))
	third, _ := c.Snapshot()
	assert.Equal(t, first, third)
}

func TestCacheBeginDiscardsPreviousSession(t *testing.T) {
	c := NewCache()
	oldCtx, oldID := c.Begin(context.Background())
	_, newID := c.Begin(context.Background())

	assert.ErrorIs(t, oldCtx.Err(), context.Canceled)
	assert.NotEqual(t, oldID, newID)
	assert.False(t, c.Populate(oldID, tabs("1"), nil))
	assert.Equal(t, Populating, c.State())

	assert.True(t, c.Populate(newID, tabs("2"), nil))
	snap, _ := c.Snapshot()
	assert.Equal(t, "2", snap.Tabs[0].ID)
}

func TestCacheWaitForLatePopulation(t *testing.T) {
	c := NewCache()
	_, id := c.Begin(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		c.Populate(id, tabs("1"), nil)
	}()

	snap, ok := c.Wait(context.Background(), 2*time.Second)
	require.True(t, ok)
	assert.Len(t, snap.Tabs, 1)
}

func TestCacheWaitIsBounded(t *testing.T) {
	c := NewCache()
	c.Begin(context.Background())

	start := time.Now()
	snap, ok := c.Wait(context.Background(), 30*time.Millisecond)
	assert.False(t, ok)
	assert.Empty(t, snap.Candidates())
	assert.Less(t, time.Since(start), time.Second)
}

func TestCacheWaitWithoutSession(t *testing.T) {
	c := NewCache()
	_, ok := c.Wait(context.Background(), time.Hour)
	assert.False(t, ok)
}

func TestCacheWaitHonoursContext(t *testing.T) {
	c := NewCache()
	c.Begin(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := c.Wait(ctx, time.Hour)
	assert.False(t, ok)
}

func TestCacheEndWakesWaiters(t *testing.T) {
	c := NewCache()
	c.Begin(context.Background())

	done := make(chan bool)
	go func() {
		_, ok := c.Wait(context.Background(), time.Hour)
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	c.End()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("waiter not released by End")
	}
}
