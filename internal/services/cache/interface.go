package cache

import (
	"time"

	"github.com/killallgit/course-api/pkg/transcript"
)

// TranscriptStore defines the interface for transcript cache implementations
type TranscriptStore interface {
	// Get returns the entry for key, or false when absent or expired
	Get(key string) (*Entry, bool)

	// Set stores segments and text under key, replacing any previous entry
	Set(key string, segments []transcript.Segment, text string)

	// Invalidate removes the entry for key
	Invalidate(key string)
}

// Entry is one cached transcript
type Entry struct {
	Key      string
	Segments []transcript.Segment
	Text     string
	CachedAt time.Time
}

// CacheStats provides statistics about cache usage
type CacheStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Sets      int64 `json:"sets"`
	Deletes   int64 `json:"deletes"`
	Evictions int64 `json:"evictions"`
	Size      int64 `json:"size"`
}

// StatsProvider interface for caches that provide statistics
type StatsProvider interface {
	Stats() CacheStats
}
