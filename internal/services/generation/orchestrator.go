package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/killallgit/course-api/internal/services/cache"
	"github.com/killallgit/course-api/internal/services/contentid"
	"github.com/killallgit/course-api/internal/services/llm"
	apperrors "github.com/killallgit/course-api/pkg/errors"
	"github.com/killallgit/course-api/pkg/eventstream"
	"github.com/killallgit/course-api/pkg/transcript"
)

// Progress milestones reported during a session
const (
	ProgressStarted   = 0
	ProgressSubmitted = 50
	ProgressStreaming = 75
	ProgressDone      = 100
)

const maxErrorMessageLength = 200

// Options wires an Orchestrator to its collaborators
type Options struct {
	Classifier contentid.Classifier
	Cache      cache.TranscriptStore
	Fetcher    TranscriptFetcher
	Prompts    PromptRenderer
	Generator  llm.Generator
	Timeout    time.Duration // zero disables the generation deadline
}

// Orchestrator drives one generation session per Run call
type Orchestrator struct {
	classifier contentid.Classifier
	cache      cache.TranscriptStore
	fetcher    TranscriptFetcher
	prompts    PromptRenderer
	generator  llm.Generator
	timeout    time.Duration
}

// NewOrchestrator creates an orchestrator. A nil classifier defaults to the
// pattern classifier.
func NewOrchestrator(opts Options) *Orchestrator {
	classifier := opts.Classifier
	if classifier == nil {
		classifier = contentid.NewPatternClassifier()
	}
	return &Orchestrator{
		classifier: classifier,
		cache:      opts.Cache,
		fetcher:    opts.Fetcher,
		prompts:    opts.Prompts,
		generator:  opts.Generator,
		timeout:    opts.Timeout,
	}
}

// promptData is what the prompt templates see
type promptData struct {
	Title       string
	Description string
	Duration    float64
	Videos      []VideoSummary
	Start       float64
	End         float64
	Transcript  string
}

// Run executes one session and always closes h before returning. On success
// the events are progress(0), progress(50), an optional progress(75) once
// the model starts streaming, tool-result, progress(100) and finish. A
// generator that never reports partial output produces exactly 0, 50,
// tool-result, 100, finish. The Gemini client always streams, so in
// production the 75 milestone is always present, once per session. Any
// failure instead ends the session with a single error event. The returned
// error is the failure, for the caller's logs; it has already been reported
// on the stream when that was possible.
func (o *Orchestrator) Run(ctx context.Context, req *Request, h *eventstream.Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] Generation panic: %v", r)
			err = fmt.Errorf("generation panic: %v", r)
			o.fail(ctx, h, apperrors.New(apperrors.ErrCodeInternal, "internal error"))
		}
		if closeErr := h.Close(); closeErr != nil {
			log.Printf("[WARN] Failed to close event stream: %v", closeErr)
		}
	}()

	if err := req.Validate(); err != nil {
		o.fail(ctx, h, err)
		return err
	}

	if err := h.Progress(ctx, ProgressStarted); err != nil {
		return err
	}

	// events go out on ctx; only the work is bounded by the timeout so the
	// error event for a timed-out session can still be delivered
	workCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		workCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	log.Printf("[INFO] Generation started: kind=%s title=%q", req.Kind, req.Title())

	payload, resultKind, err := o.generate(workCtx, ctx, req, h)
	if err != nil {
		if workCtx.Err() != nil && ctx.Err() == nil {
			err = workCtx.Err()
		}
		log.Printf("[ERROR] Generation failed: kind=%s: %v", req.Kind, err)
		o.fail(ctx, h, err)
		return err
	}

	if err := h.ToolResult(ctx, resultKind, payload); err != nil {
		return err
	}
	if err := h.Progress(ctx, ProgressDone); err != nil {
		return err
	}
	if err := h.Finish(ctx); err != nil {
		return err
	}

	log.Printf("[INFO] Generation completed: kind=%s result=%s bytes=%d", req.Kind, resultKind, len(payload))
	return nil
}

// generate covers the fallible steps: transcript resolution, prompt
// construction and the model call
func (o *Orchestrator) generate(workCtx, streamCtx context.Context, req *Request, h *eventstream.Handler) (json.RawMessage, string, error) {
	data, err := o.buildPromptData(workCtx, req)
	if err != nil {
		return nil, "", err
	}

	if o.prompts == nil || o.generator == nil {
		return nil, "", apperrors.GenerationError("generation service not configured", nil)
	}

	prompt, err := o.prompts.Render(string(req.Kind), data)
	if err != nil {
		return nil, "", apperrors.GenerationError("failed to build prompt", err)
	}

	if err := h.Progress(streamCtx, ProgressSubmitted); err != nil {
		return nil, "", err
	}

	var once sync.Once
	onPartial := func(string) {
		once.Do(func() {
			if err := h.Progress(streamCtx, ProgressStreaming); err != nil {
				log.Printf("[DEBUG] Dropping streaming milestone: %v", err)
			}
		})
	}

	payload, err := o.generator.Generate(workCtx, prompt, onPartial)
	if err != nil {
		return nil, "", err
	}
	if !json.Valid(payload) {
		return nil, "", apperrors.GenerationError("model returned malformed JSON", nil)
	}

	resultKind := prompt.ResultKind
	if resultKind == "" {
		resultKind = req.ResultKind()
	}
	return payload, resultKind, nil
}

func (o *Orchestrator) buildPromptData(ctx context.Context, req *Request) (*promptData, error) {
	switch req.Kind {
	case KindVideo:
		v := req.Video
		data := &promptData{Title: v.Title, Description: v.Description, Duration: v.Duration}
		if v.ContentID != "" {
			t, err := o.resolveTranscript(ctx, v.ContentID)
			if err != nil {
				return nil, err
			}
			if t != nil {
				data.Transcript = t.Text
			}
		}
		return data, nil

	case KindPlaylist:
		p := req.Playlist
		if p.ContentID != "" {
			// playlist identifiers are classified but their transcripts are never fetched
			if _, err := o.resolveTranscript(ctx, p.ContentID); err != nil {
				return nil, err
			}
		}
		return &promptData{Title: p.Title, Description: p.Description, Videos: p.Videos}, nil

	case KindSegment:
		s := req.Segment
		data := &promptData{Title: s.Title, Description: s.Description, Start: s.Start, End: s.End, Transcript: s.Transcript}
		if strings.TrimSpace(s.Transcript) == "" {
			t, err := o.resolveTranscript(ctx, s.ContentID)
			if err != nil {
				return nil, err
			}
			if t == nil {
				return nil, apperrors.UpstreamFetchError("transcript", "no transcript available for segment", nil)
			}
			text, err := windowText(t, s.Start, s.End)
			if err != nil {
				return nil, err
			}
			data.Transcript = text
		}
		return data, nil
	}
	return nil, apperrors.ValidationError("kind", fmt.Sprintf("unknown kind %q", req.Kind))
}

// resolveTranscript consults the cache before fetching. It returns nil for
// identifiers that do not name a video.
func (o *Orchestrator) resolveTranscript(ctx context.Context, contentID string) (*cache.Entry, error) {
	switch o.classifier.Classify(contentID) {
	case contentid.KindPlaylist:
		return nil, nil
	case contentid.KindVideo:
	default:
		return nil, apperrors.UpstreamFetchError("contentid", "unrecognized content identifier", nil).
			WithDetail("contentId", contentID)
	}

	entry, _, err := o.lookupTranscript(ctx, contentid.Normalize(contentID))
	return entry, err
}

// Transcript returns the transcript of a video identifier through the same
// cache-then-fetch path a session uses. hit reports whether the cache served it.
func (o *Orchestrator) Transcript(ctx context.Context, contentID string) (entry *cache.Entry, hit bool, err error) {
	if o.classifier.Classify(contentID) != contentid.KindVideo {
		return nil, false, apperrors.ValidationError("id", "not a video identifier").
			WithDetail("contentId", contentID)
	}
	return o.lookupTranscript(ctx, contentid.Normalize(contentID))
}

func (o *Orchestrator) lookupTranscript(ctx context.Context, key string) (*cache.Entry, bool, error) {
	if o.cache != nil {
		if entry, ok := o.cache.Get(key); ok {
			log.Printf("[DEBUG] Transcript cache hit: %s", key)
			return entry, true, nil
		}
	}

	if o.fetcher == nil {
		return nil, false, apperrors.UpstreamFetchError("transcript", "transcript source not configured", nil)
	}

	t, err := o.fetcher.Fetch(ctx, key)
	if err != nil {
		if _, ok := apperrors.As(err); ok || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, false, err
		}
		return nil, false, apperrors.UpstreamFetchError("transcript", "transcript fetch failed", err)
	}

	if o.cache != nil {
		o.cache.Set(key, t.Segments, t.FullText)
	}
	return &cache.Entry{Key: key, Segments: t.Segments, Text: t.FullText, CachedAt: time.Now()}, false, nil
}

// InvalidateTranscript drops any cached transcript for contentID
func (o *Orchestrator) InvalidateTranscript(contentID string) {
	if o.cache != nil {
		o.cache.Invalidate(contentid.Normalize(contentID))
	}
}

// windowText narrows a cached transcript to [start, end) seconds. Untimed
// transcripts cannot be windowed and are used whole.
func windowText(entry *cache.Entry, start, end float64) (string, error) {
	if len(entry.Segments) == 0 {
		return entry.Text, nil
	}
	window := transcript.Window(entry.Segments, secondsToDuration(start), secondsToDuration(end))
	text := transcript.JoinText(window)
	if text == "" {
		return "", apperrors.UpstreamFetchError("transcript", "transcript has no content in the requested window", nil)
	}
	return text, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// fail reports err as the session's single error event
func (o *Orchestrator) fail(ctx context.Context, h *eventstream.Handler, err error) {
	if emitErr := h.Error(ctx, SanitizeError(err)); emitErr != nil {
		log.Printf("[WARN] Could not deliver error event: %v", emitErr)
	}
}

// SanitizeError reduces err to a message safe to show a stream consumer:
// fixed text for deadlines and cancellation, the AppError message otherwise,
// first line only and length-capped
func SanitizeError(err error) string {
	switch {
	case err == nil:
		return "generation failed"
	case errors.Is(err, context.DeadlineExceeded):
		return "generation timed out"
	case errors.Is(err, context.Canceled):
		return "generation cancelled"
	}

	msg := "generation failed"
	if appErr, ok := apperrors.As(err); ok && strings.TrimSpace(appErr.Message) != "" {
		msg = appErr.Message
	}

	msg = strings.TrimSpace(msg)
	if i := strings.IndexAny(msg, "\r\n"); i >= 0 {
		msg = strings.TrimSpace(msg[:i])
	}
	if runes := []rune(msg); len(runes) > maxErrorMessageLength {
		msg = string(runes[:maxErrorMessageLength-3]) + "..."
	}
	if msg == "" {
		msg = "generation failed"
	}
	return msg
}
