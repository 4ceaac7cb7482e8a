package types

import (
	"context"

	"github.com/killallgit/course-api/internal/database"
	"github.com/killallgit/course-api/internal/services/cache"
	"github.com/killallgit/course-api/internal/services/contentid"
	"github.com/killallgit/course-api/internal/services/generation"
	"github.com/killallgit/course-api/internal/services/sessions"
	"github.com/killallgit/course-api/pkg/eventstream"
)

// GenerationRunner runs one streamed generation session
type GenerationRunner interface {
	Run(ctx context.Context, req *generation.Request, h *eventstream.Handler) error
}

// TranscriptResolver serves transcripts through the shared cache
type TranscriptResolver interface {
	Transcript(ctx context.Context, contentID string) (*cache.Entry, bool, error)
	InvalidateTranscript(contentID string)
}

// BuildInfo describes the running binary
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildTime string
}

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB           *database.DB
	Generator    GenerationRunner
	Transcripts  TranscriptResolver
	Sessions     sessions.SessionService
	Classifier   contentid.Classifier
	CacheStats   cache.StatsProvider
	StreamBuffer int
	Build        BuildInfo
}
