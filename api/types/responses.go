package types

import (
	"time"

	"github.com/killallgit/course-api/internal/models"
	"github.com/killallgit/course-api/internal/services/cache"
	"github.com/killallgit/course-api/pkg/transcript"
)

// Status constants for API responses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// BaseResponse contains fields common to all API responses
type BaseResponse struct {
	Status  string `json:"status"`            // One of the Status constants above
	Message string `json:"message,omitempty"` // Human-readable message
}

// ErrorResponse for detailed error information
type ErrorResponse struct {
	Status  string      `json:"status"`
	Error   string      `json:"error"`             // Human-readable message
	Code    string      `json:"code,omitempty"`    // Error code/type
	Details interface{} `json:"details,omitempty"` // Additional error details
}

// SessionResponse for a single generation session
type SessionResponse struct {
	BaseResponse
	Session *models.GenerationSession `json:"session"`
}

// SessionsResponse for session lists
type SessionsResponse struct {
	BaseResponse
	Sessions []models.GenerationSession `json:"sessions"`
	Count    int                        `json:"count"`
	Limit    int                        `json:"limit"`
}

// TranscriptResponse for a cached or freshly fetched transcript
type TranscriptResponse struct {
	BaseResponse
	ContentID string              `json:"contentId"`
	Cached    bool                `json:"cached"`
	CachedAt  time.Time           `json:"cachedAt"`
	Segments  []TranscriptSegment `json:"segments"`
	Text      string              `json:"text"`
}

// TranscriptSegment is a transcript cue with times in seconds
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// NewTranscriptSegments converts parsed segments to their response form
func NewTranscriptSegments(segments []transcript.Segment) []TranscriptSegment {
	out := make([]TranscriptSegment, len(segments))
	for i, s := range segments {
		out[i] = TranscriptSegment{
			Start: s.Start.Seconds(),
			End:   s.End.Seconds(),
			Text:  s.Text,
		}
	}
	return out
}

// ContentKindResponse for identifier classification
type ContentKindResponse struct {
	BaseResponse
	ContentID  string `json:"contentId"`
	Normalized string `json:"normalized"`
	Kind       string `json:"kind"`
}

// HealthResponse for health check endpoint
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Database  map[string]string `json:"database"`
	Cache     *cache.CacheStats `json:"transcript_cache,omitempty"`
}

// VersionResponse for the version endpoint
type VersionResponse struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	GitCommit   string `json:"git_commit,omitempty"`
	BuildTime   string `json:"build_time,omitempty"`
	Description string `json:"description"`
	Status      string `json:"status"`
}
