package client

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(clk *fakeClock) *QueryCache {
	return NewQueryCache(CacheOptions{StaleTime: time.Minute, GCTime: time.Hour, Now: clk.Now})
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "applications/list/all", ListKey(""))
	assert.Equal(t, "applications/list/offer", ListKey("offer"))
	assert.Equal(t, "applications/detail/7", DetailKey(7))
	assert.Equal(t, "notes/list/7", NotesKey(7))
	assert.Equal(t, "statusHistory/list/7", HistoryKey(7))
}

func TestQueryCache_Freshness(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk)

	missBefore := testutil.ToFloat64(cacheLookups.WithLabelValues("miss"))
	_, _, ok := c.Get(KeyStats)
	assert.False(t, ok)
	assert.Equal(t, missBefore+1, testutil.ToFloat64(cacheLookups.WithLabelValues("miss")))

	c.Set(KeyStats, 42)
	v, fresh, ok := c.Get(KeyStats)
	require.True(t, ok)
	assert.True(t, fresh)
	assert.Equal(t, 42, v)

	clk.Advance(time.Minute)
	staleBefore := testutil.ToFloat64(cacheLookups.WithLabelValues("stale"))
	v, fresh, ok = c.Get(KeyStats)
	require.True(t, ok)
	assert.False(t, fresh, "entry older than StaleTime must be stale")
	assert.Equal(t, 42, v, "stale data is still served")
	assert.Equal(t, staleBefore+1, testutil.ToFloat64(cacheLookups.WithLabelValues("stale")))
}

func TestQueryCache_UpdateOnlyTouchesPrefix(t *testing.T) {
	c := newTestCache(newFakeClock())
	c.Set(ListKey(""), []int{1})
	c.Set(ListKey("offer"), []int{2})
	c.Set(KeyStats, "untouched")

	c.Update(PrefixApplicationLists, func(_ string, data any) (any, bool) {
		return append([]int{0}, data.([]int)...), true
	})

	v, _, _ := c.Get(ListKey(""))
	assert.Equal(t, []int{0, 1}, v)
	v, _, _ = c.Get(ListKey("offer"))
	assert.Equal(t, []int{0, 2}, v)
	v, _, _ = c.Get(KeyStats)
	assert.Equal(t, "untouched", v)

	c.Update(PrefixApplicationLists, func(string, any) (any, bool) { return nil, false })
	v, _, _ = c.Get(ListKey(""))
	assert.Equal(t, []int{0, 1}, v, "keep=false leaves the entry")
}

func TestQueryCache_SnapshotRestore(t *testing.T) {
	c := newTestCache(newFakeClock())
	c.Set(ListKey(""), []int{1, 2})
	c.Set(DetailKey(1), "one")

	snap := c.Snapshot(PrefixApplicationLists)
	require.Len(t, snap.Entries, 1)

	c.Set(ListKey(""), []int{9})
	c.Set(ListKey("offer"), []int{9})
	c.Set(DetailKey(1), "changed")

	c.Restore(snap)

	v, _, ok := c.Get(ListKey(""))
	require.True(t, ok)
	assert.Equal(t, []int{1, 2}, v)
	_, _, ok = c.Get(ListKey("offer"))
	assert.False(t, ok, "keys added after the snapshot are dropped")
	v, _, _ = c.Get(DetailKey(1))
	assert.Equal(t, "changed", v, "keys outside the prefix are not restored")
}

func TestQueryCache_InvalidateMarksStaleAndSupersedes(t *testing.T) {
	c := newTestCache(newFakeClock())
	c.Set(ListKey(""), []int{1})
	c.Set(KeyStats, 1)

	gen := c.begin(ListKey(""))
	c.Invalidate(PrefixApplicationLists)

	v, fresh, ok := c.Get(ListKey(""))
	require.True(t, ok)
	assert.False(t, fresh)
	assert.Equal(t, []int{1}, v)

	_, fresh, _ = c.Get(KeyStats)
	assert.True(t, fresh, "other prefixes stay fresh")

	assert.False(t, c.commit(ListKey(""), gen, []int{2}), "fetch started before the invalidation is discarded")
	v, _, _ = c.Get(ListKey(""))
	assert.Equal(t, []int{1}, v)

	gen = c.begin(ListKey(""))
	assert.True(t, c.commit(ListKey(""), gen, []int{3}))
	v, fresh, _ = c.Get(ListKey(""))
	assert.True(t, fresh)
	assert.Equal(t, []int{3}, v)
}

func TestQueryCache_NewerFetchWins(t *testing.T) {
	c := newTestCache(newFakeClock())
	older := c.begin(KeyStats)
	newer := c.begin(KeyStats)

	assert.True(t, c.commit(KeyStats, newer, "new"))
	assert.False(t, c.commit(KeyStats, older, "old"))

	v, _, _ := c.Get(KeyStats)
	assert.Equal(t, "new", v)
}

func TestQueryCache_RemoveAndLen(t *testing.T) {
	c := newTestCache(newFakeClock())
	c.Set(DetailKey(1), 1)
	c.Set(DetailKey(2), 2)
	assert.Equal(t, 2, c.Len())

	c.Remove(DetailKey(1))
	assert.Equal(t, 1, c.Len())
	_, _, ok := c.Get(DetailKey(1))
	assert.False(t, ok)
}

func TestQueryCache_SizeBound(t *testing.T) {
	c := NewQueryCache(CacheOptions{StaleTime: time.Minute, Size: 2})
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)
	assert.Equal(t, 2, c.Len())
	_, _, ok := c.Get("a")
	assert.False(t, ok, "least recently used entry is evicted")
}

func TestUnderPrefix(t *testing.T) {
	cases := []struct {
		key, prefix string
		want        bool
	}{
		{DetailKey(1), DetailKey(1), true},
		{DetailKey(10), DetailKey(1), false},
		{DetailKey(100), DetailKey(10), false},
		{HistoryKey(11), HistoryKey(1), false},
		{DetailKey(10), PrefixApplicationItems, true},
		{ListKey("offer"), PrefixApplicationLists, true},
		{KeyStats, KeyStats, true},
		{KeyStats, "applications/stat", false},
		{NotesKey(3), "", true},
	}
	for _, tc := range cases {
		if got := underPrefix(tc.key, tc.prefix); got != tc.want {
			t.Errorf("underPrefix(%q, %q) = %v; want %v", tc.key, tc.prefix, got, tc.want)
		}
	}
}

func TestQueryCache_ExactKeyOperations(t *testing.T) {
	c := newTestCache(newFakeClock())
	c.Set(DetailKey(1), "one")
	c.Set(DetailKey(10), "ten")

	c.Update(DetailKey(1), func(string, any) (any, bool) { return "patched", true })
	snap := c.Snapshot(DetailKey(1))
	c.Invalidate(DetailKey(1))

	if len(snap.Entries) != 1 {
		t.Fatalf("snapshot = %v", snap.Entries)
	}
	if d, fresh, _ := c.Get(DetailKey(10)); d != "ten" || !fresh {
		t.Fatalf("detail 10 = %v fresh=%v", d, fresh)
	}
	if d, fresh, _ := c.Get(DetailKey(1)); d != "patched" || fresh {
		t.Fatalf("detail 1 = %v fresh=%v", d, fresh)
	}
}
