package generation

import (
	"context"

	"github.com/killallgit/course-api/internal/services/prompts"
	"github.com/killallgit/course-api/pkg/transcript"
)

// TranscriptFetcher retrieves the transcript of a content identifier
type TranscriptFetcher interface {
	Fetch(ctx context.Context, contentID string) (*transcript.Transcript, error)
}

// PromptRenderer turns a named prompt and its data into a generator prompt
type PromptRenderer interface {
	Render(name string, data any) (*prompts.Prompt, error)
}
