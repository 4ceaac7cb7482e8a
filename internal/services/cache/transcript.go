package cache

import (
	"slices"
	"sync"
	"time"

	"github.com/killallgit/course-api/pkg/transcript"
)

// DefaultTranscriptTTL is used when no TTL is configured
const DefaultTranscriptTTL = 15 * time.Minute

// TranscriptCache is a pure TTL cache of fetched transcripts keyed by
// content identifier. Expired entries are removed lazily by Get; reads never
// extend an entry's lifetime and there is no capacity bound.
type TranscriptCache struct {
	mu    sync.Mutex
	items map[string]*Entry
	ttl   time.Duration
	now   func() time.Time
	stats CacheStats
}

// Option configures a TranscriptCache
type Option func(*TranscriptCache)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *TranscriptCache) {
		c.now = now
	}
}

// NewTranscriptCache creates an empty cache. A non-positive ttl selects DefaultTranscriptTTL.
func NewTranscriptCache(ttl time.Duration, opts ...Option) *TranscriptCache {
	if ttl <= 0 {
		ttl = DefaultTranscriptTTL
	}
	c := &TranscriptCache{
		items: make(map[string]*Entry),
		ttl:   ttl,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the entry for key while it is younger than the TTL.
// Mutating the result never reaches the cache.
func (c *TranscriptCache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.items[key]
	if !exists {
		c.stats.Misses++
		return nil, false
	}

	if c.now().Sub(entry.CachedAt) >= c.ttl {
		delete(c.items, key)
		c.stats.Evictions++
		c.stats.Misses++
		return nil, false
	}

	c.stats.Hits++
	cp := *entry
	cp.Segments = slices.Clone(entry.Segments)
	return &cp, true
}

// Set replaces any entry for key with a freshly timestamped one
func (c *TranscriptCache) Set(key string, segments []transcript.Segment, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cachedAt := c.now()
	// a rewrite must always be observably newer than what it replaces
	if prev, exists := c.items[key]; exists && !cachedAt.After(prev.CachedAt) {
		cachedAt = prev.CachedAt.Add(time.Nanosecond)
	}

	c.items[key] = &Entry{
		Key:      key,
		Segments: slices.Clone(segments),
		Text:     text,
		CachedAt: cachedAt,
	}
	c.stats.Sets++
}

// Invalidate removes the entry for key
func (c *TranscriptCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; exists {
		delete(c.items, key)
		c.stats.Deletes++
	}
}

// TTL returns the configured time-to-live
func (c *TranscriptCache) TTL() time.Duration {
	return c.ttl
}

// Len returns the number of physically stored entries, expired ones included
func (c *TranscriptCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns cache statistics
func (c *TranscriptCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = int64(len(c.items))
	return stats
}
