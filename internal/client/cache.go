package client

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
)

// Cache key prefixes. Keys are slash-separated paths; the prefix operations
// match whole segments, so a prefix ending in "/" covers a family and a full
// key covers only itself.
const (
	PrefixApplicationLists = "applications/list/"
	PrefixApplicationItems = "applications/detail/"
	KeyStats               = "applications/stats"
	PrefixNotes            = "notes/list/"
	PrefixStatusHistory    = "statusHistory/list/"
)

// ListKey is the cache key of the application list for status ("" = all).
func ListKey(status string) string {
	if status == "" {
		status = "all"
	}
	return PrefixApplicationLists + status
}

// DetailKey is the cache key of one application.
func DetailKey(id int64) string { return PrefixApplicationItems + strconv.FormatInt(id, 10) }

// NotesKey is the cache key of the notes of one application.
func NotesKey(applicationID int64) string {
	return PrefixNotes + strconv.FormatInt(applicationID, 10)
}

// HistoryKey is the cache key of the status history of one application.
func HistoryKey(applicationID int64) string {
	return PrefixStatusHistory + strconv.FormatInt(applicationID, 10)
}

var cacheLookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tracker_client_cache_lookups_total",
		Help: "Query cache lookups by result (fresh, stale, miss).",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(cacheLookups)
}

// Entry is one cached value. Values are treated as immutable: updaters
// return new slices instead of editing the stored ones.
type Entry struct {
	Data        any
	UpdatedAt   time.Time
	Invalidated bool
}

// Snapshot is a plain copy of the entries under a prefix, taken before an
// optimistic write so the write can be undone.
type Snapshot struct {
	Prefix  string
	Entries map[string]Entry
}

// CacheOptions configures a QueryCache.
type CacheOptions struct {
	// StaleTime is how long a stored value counts as fresh.
	StaleTime time.Duration
	// GCTime is how long an entry is retained after its last write.
	GCTime time.Duration
	// Size bounds the number of entries.
	Size int
	// Now is the clock; time.Now when nil.
	Now func() time.Time
}

// QueryCache is a keyed store of query results with freshness tracking.
// Each key also carries a generation counter: a fetch records the generation
// when it starts and its result is only stored if no newer fetch, optimistic
// write or invalidation touched the key in the meantime.
type QueryCache struct {
	mu        sync.Mutex
	lru       *expirable.LRU[string, Entry]
	gens      map[string]uint64
	staleTime time.Duration
	now       func() time.Time
}

// NewQueryCache returns an empty cache.
func NewQueryCache(opts CacheOptions) *QueryCache {
	if opts.Size <= 0 {
		opts.Size = 512
	}
	if opts.GCTime <= 0 {
		opts.GCTime = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &QueryCache{
		lru:       expirable.NewLRU[string, Entry](opts.Size, nil, opts.GCTime),
		gens:      make(map[string]uint64),
		staleTime: opts.StaleTime,
		now:       opts.Now,
	}
}

// Get returns the value under key and whether it is still fresh.
func (c *QueryCache) Get(key string) (data any, fresh, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lru.Get(key)
	if !ok {
		cacheLookups.WithLabelValues("miss").Inc()
		return nil, false, false
	}
	fresh = c.freshLocked(e)
	if fresh {
		cacheLookups.WithLabelValues("fresh").Inc()
	} else {
		cacheLookups.WithLabelValues("stale").Inc()
	}
	return e.Data, fresh, true
}

// Set stores data under key unconditionally.
func (c *QueryCache) Set(key string, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, Entry{Data: data, UpdatedAt: c.now()})
}

// Update rewrites every entry whose key starts with prefix. fn receives the
// key and current value and returns the replacement; returning keep=false
// leaves the entry as is.
func (c *QueryCache) Update(prefix string, fn func(key string, data any) (next any, keep bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for _, k := range c.lru.Keys() {
		if !underPrefix(k, prefix) {
			continue
		}
		e, ok := c.lru.Peek(k)
		if !ok {
			continue
		}
		next, changed := fn(k, e.Data)
		if !changed {
			continue
		}
		c.lru.Add(k, Entry{Data: next, UpdatedAt: now, Invalidated: e.Invalidated})
	}
}

// Snapshot copies the entries under prefix.
func (c *QueryCache) Snapshot(prefix string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{Prefix: prefix, Entries: make(map[string]Entry)}
	for _, k := range c.lru.Keys() {
		if !underPrefix(k, prefix) {
			continue
		}
		if e, ok := c.lru.Peek(k); ok {
			s.Entries[k] = e
		}
	}
	return s
}

// Restore puts the prefix back into the state captured by s: entries added
// since are removed and captured entries are written back.
func (c *QueryCache) Restore(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range c.lru.Keys() {
		if _, kept := s.Entries[k]; underPrefix(k, s.Prefix) && !kept {
			c.lru.Remove(k)
		}
	}
	for k, e := range s.Entries {
		c.lru.Add(k, e)
	}
}

// Invalidate marks every entry under prefix stale and supersedes in-flight
// fetches of those keys.
func (c *QueryCache) Invalidate(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supersedeLocked(prefix)
	for _, k := range c.lru.Keys() {
		if !underPrefix(k, prefix) {
			continue
		}
		if e, ok := c.lru.Peek(k); ok && !e.Invalidated {
			e.Invalidated = true
			c.lru.Add(k, e)
		}
	}
}

// Supersede makes in-flight fetches under prefix discard their results
// without touching stored entries.
func (c *QueryCache) Supersede(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supersedeLocked(prefix)
}

// Remove deletes key.
func (c *QueryCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// Len returns the number of live entries.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// begin records the start of a fetch of key and returns its generation.
func (c *QueryCache) begin(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	return c.gens[key]
}

// commit stores data fetched under generation gen. It reports false, and
// stores nothing, when the fetch was superseded.
func (c *QueryCache) commit(key string, gen uint64, data any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen {
		return false
	}
	c.lru.Add(key, Entry{Data: data, UpdatedAt: c.now()})
	return true
}

func (c *QueryCache) supersedeLocked(prefix string) {
	for k := range c.gens {
		if underPrefix(k, prefix) {
			c.gens[k]++
		}
	}
}

// underPrefix reports whether key lies under prefix on a segment boundary:
// "applications/detail/1" covers itself but not "applications/detail/10".
func underPrefix(key, prefix string) bool {
	if !strings.HasPrefix(key, prefix) {
		return false
	}
	return prefix == "" || len(key) == len(prefix) || strings.HasSuffix(prefix, "/") || key[len(prefix)] == '/'
}

func (c *QueryCache) freshLocked(e Entry) bool {
	return !e.Invalidated && c.now().Sub(e.UpdatedAt) < c.staleTime
}
