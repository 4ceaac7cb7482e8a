package generation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/killallgit/course-api/internal/services/cache"
	"github.com/killallgit/course-api/internal/services/contentid"
	"github.com/killallgit/course-api/internal/services/llm"
	"github.com/killallgit/course-api/internal/services/prompts"
	apperrors "github.com/killallgit/course-api/pkg/errors"
	"github.com/killallgit/course-api/pkg/eventstream"
	"github.com/killallgit/course-api/pkg/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// MockFetcher is a mock implementation of TranscriptFetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, contentID string) (*transcript.Transcript, error) {
	args := m.Called(ctx, contentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transcript.Transcript), args.Error(1)
}

// MockGenerator is a mock implementation of llm.Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, p *prompts.Prompt, onPartial llm.PartialFunc) (json.RawMessage, error) {
	args := m.Called(ctx, p, onPartial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

// classifierFunc adapts a function to contentid.Classifier
type classifierFunc func(string) contentid.Kind

func (f classifierFunc) Classify(id string) contentid.Kind { return f(id) }

// recordingSink keeps every event and counts Close calls
type recordingSink struct {
	mu     sync.Mutex
	events []eventstream.Event
	closes int
}

func (s *recordingSink) Send(_ context.Context, ev eventstream.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *recordingSink) types() []eventstream.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]eventstream.EventType, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Type()
	}
	return out
}

func newPrompts(t testing.TB) *prompts.Manager {
	m, err := prompts.NewManager()
	require.NoError(t, err)
	return m
}

func run(t *testing.T, o *Orchestrator, req *Request) (*recordingSink, error) {
	t.Helper()
	sink := &recordingSink{}
	err := o.Run(context.Background(), req, eventstream.NewHandler(sink))
	return sink, err
}

func segmentRequest() *Request {
	return &Request{
		Kind: KindSegment,
		Segment: &SegmentRequest{
			Title:      "Channels",
			Start:      30,
			End:        90,
			Transcript: "Channels connect goroutines.",
		},
	}
}

func videoRequest(contentID string) *Request {
	return &Request{Kind: KindVideo, Video: &VideoRequest{Title: "Concurrency", ContentID: contentID}}
}

func playlistRequest() *Request {
	return &Request{
		Kind: KindPlaylist,
		Playlist: &PlaylistRequest{
			Title:  "Go Basics",
			Videos: []VideoSummary{{Title: "Install"}, {Title: "Hello"}},
		},
	}
}

func TestRunSegmentSuccess(t *testing.T) {
	store := cache.NewTranscriptCache(time.Minute)
	fetcher := new(MockFetcher)
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p *prompts.Prompt) bool {
		return p.Name == "segment" && strings.Contains(p.Text, "Channels connect goroutines.")
	}), mock.Anything).Return(json.RawMessage(`[{"title":"intro","start":30,"end":60}]`), nil)

	o := NewOrchestrator(Options{Cache: store, Fetcher: fetcher, Prompts: newPrompts(t), Generator: gen})
	sink, err := run(t, o, segmentRequest())
	require.NoError(t, err)

	require.Len(t, sink.events, 5)
	assert.Equal(t, eventstream.ProgressEvent{Progress: 0}, sink.events[0])
	assert.Equal(t, eventstream.ProgressEvent{Progress: 50}, sink.events[1])

	result, ok := sink.events[2].(eventstream.ToolResultEvent)
	require.True(t, ok)
	assert.Equal(t, "segments", result.Kind)
	assert.JSONEq(t, `[{"title":"intro","start":30,"end":60}]`, string(result.Result))

	assert.Equal(t, eventstream.ProgressEvent{Progress: 100}, sink.events[3])
	assert.Equal(t, eventstream.FinishEvent{}, sink.events[4])
	assert.Equal(t, 1, sink.closes)

	assert.Equal(t, 0, store.Len(), "no identifier, cache untouched")
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	gen.AssertExpectations(t)
}

func TestRunFetchRateLimited(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "abc123").
		Return(nil, apperrors.UpstreamFetchError("transcript", "rate limited", nil))
	gen := new(MockGenerator)

	o := NewOrchestrator(Options{
		Classifier: classifierFunc(func(string) contentid.Kind { return contentid.KindVideo }),
		Cache:      cache.NewTranscriptCache(time.Minute),
		Fetcher:    fetcher,
		Prompts:    newPrompts(t),
		Generator:  gen,
	})
	sink, err := run(t, o, videoRequest("abc123"))
	require.Error(t, err)

	assert.Equal(t, []eventstream.Event{
		eventstream.ProgressEvent{Progress: 0},
		eventstream.ErrorEvent{Message: "rate limited"},
	}, sink.events)
	assert.Equal(t, 1, sink.closes)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunCacheHitSkipsFetch(t *testing.T) {
	store := cache.NewTranscriptCache(time.Minute)
	store.Set("dQw4w9WgXcQ", nil, "cached lecture text")

	fetcher := new(MockFetcher)
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p *prompts.Prompt) bool {
		return strings.Contains(p.Text, "cached lecture text")
	}), mock.Anything).Return(json.RawMessage(`{"title":"Concurrency"}`), nil)

	o := NewOrchestrator(Options{Cache: store, Fetcher: fetcher, Prompts: newPrompts(t), Generator: gen})
	sink, err := run(t, o, videoRequest("https://youtu.be/dQw4w9WgXcQ"))
	require.NoError(t, err)

	assert.Equal(t, eventstream.TypeFinish, sink.events[len(sink.events)-1].Type())
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	gen.AssertExpectations(t)
}

func TestRunCacheMissPopulatesCache(t *testing.T) {
	store := cache.NewTranscriptCache(time.Minute)
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "dQw4w9WgXcQ").Return(&transcript.Transcript{
		Format:   transcript.FormatText,
		Segments: []transcript.Segment{},
		FullText: "fresh lecture text",
	}, nil).Once()

	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(json.RawMessage(`{}`), nil)

	o := NewOrchestrator(Options{Cache: store, Fetcher: fetcher, Prompts: newPrompts(t), Generator: gen})

	_, err := run(t, o, videoRequest("dQw4w9WgXcQ"))
	require.NoError(t, err)
	_, err = run(t, o, videoRequest("dQw4w9WgXcQ"))
	require.NoError(t, err)

	entry, ok := store.Get("dQw4w9WgXcQ")
	require.True(t, ok)
	assert.Equal(t, "fresh lecture text", entry.Text)
	fetcher.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestRunSegmentWindowsFetchedTranscript(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "dQw4w9WgXcQ").Return(&transcript.Transcript{
		Format: transcript.FormatVTT,
		Segments: []transcript.Segment{
			{Start: 0, End: 30 * time.Second, Text: "opening remarks"},
			{Start: 30 * time.Second, End: 60 * time.Second, Text: "unbuffered channels"},
			{Start: 60 * time.Second, End: 120 * time.Second, Text: "buffered channels"},
			{Start: 120 * time.Second, End: 150 * time.Second, Text: "closing remarks"},
		},
		FullText: "opening remarks unbuffered channels buffered channels closing remarks",
	}, nil)

	var captured string
	gen := llm.GeneratorFunc(func(ctx context.Context, p *prompts.Prompt, onPartial llm.PartialFunc) (json.RawMessage, error) {
		captured = p.Text
		return json.RawMessage(`[]`), nil
	})

	req := &Request{Kind: KindSegment, Segment: &SegmentRequest{Title: "Channels", Start: 30, End: 90, ContentID: "dQw4w9WgXcQ"}}
	o := NewOrchestrator(Options{Cache: cache.NewTranscriptCache(time.Minute), Fetcher: fetcher, Prompts: newPrompts(t), Generator: gen})

	_, err := run(t, o, req)
	require.NoError(t, err)
	assert.Contains(t, captured, "unbuffered channels buffered channels")
	assert.NotContains(t, captured, "opening remarks")
	assert.NotContains(t, captured, "closing remarks")
}

func TestRunPlaylistIdentifierIsNotFetched(t *testing.T) {
	fetcher := new(MockFetcher)
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(json.RawMessage(`{}`), nil)

	req := playlistRequest()
	req.Playlist.ContentID = "PLrAXtmErZgOeiKm4sgNOknGvNjby9efdf"

	o := NewOrchestrator(Options{Fetcher: fetcher, Prompts: newPrompts(t), Generator: gen})
	sink, err := run(t, o, req)
	require.NoError(t, err)

	assert.Equal(t, eventstream.TypeFinish, sink.events[len(sink.events)-1].Type())
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestRunUnknownIdentifier(t *testing.T) {
	o := NewOrchestrator(Options{Fetcher: new(MockFetcher), Prompts: newPrompts(t), Generator: new(MockGenerator)})
	sink, err := run(t, o, videoRequest("not an id"))
	require.Error(t, err)

	assert.Equal(t, eventstream.ErrorEvent{Message: "unrecognized content identifier"}, sink.events[len(sink.events)-1])
}

func TestRunCoalescesPartials(t *testing.T) {
	gen := llm.GeneratorFunc(func(ctx context.Context, p *prompts.Prompt, onPartial llm.PartialFunc) (json.RawMessage, error) {
		for _, chunk := range []string{`{"ti`, `tle":`, `"Go"}`} {
			onPartial(chunk)
		}
		return json.RawMessage(`{"title":"Go"}`), nil
	})

	o := NewOrchestrator(Options{Prompts: newPrompts(t), Generator: gen})
	sink, err := run(t, o, playlistRequest())
	require.NoError(t, err)

	assert.Equal(t, []eventstream.Event{
		eventstream.ProgressEvent{Progress: 0},
		eventstream.ProgressEvent{Progress: 50},
		eventstream.ProgressEvent{Progress: 75},
	}, sink.events[:3])
	assert.Equal(t, []eventstream.EventType{
		eventstream.TypeProgress, eventstream.TypeProgress, eventstream.TypeProgress,
		eventstream.TypeToolResult, eventstream.TypeProgress, eventstream.TypeFinish,
	}, sink.types())
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name    string
		gen     llm.GeneratorFunc
		timeout time.Duration
		message string
	}{
		{
			name: "generation error",
			gen: func(context.Context, *prompts.Prompt, llm.PartialFunc) (json.RawMessage, error) {
				return nil, apperrors.GenerationError("generation failed", errors.New("rpc error: code = Internal\n\tat internal/stack.go:12"))
			},
			message: "generation failed",
		},
		{
			name: "malformed result",
			gen: func(context.Context, *prompts.Prompt, llm.PartialFunc) (json.RawMessage, error) {
				return json.RawMessage(`{"title":`), nil
			},
			message: "model returned malformed JSON",
		},
		{
			name: "timeout",
			gen: func(ctx context.Context, _ *prompts.Prompt, _ llm.PartialFunc) (json.RawMessage, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			timeout: 20 * time.Millisecond,
			message: "generation timed out",
		},
		{
			name: "plain error",
			gen: func(context.Context, *prompts.Prompt, llm.PartialFunc) (json.RawMessage, error) {
				return nil, errors.New("dial tcp 10.0.0.1:443: connection refused")
			},
			message: "generation failed",
		},
		{
			name: "panic",
			gen: func(context.Context, *prompts.Prompt, llm.PartialFunc) (json.RawMessage, error) {
				panic("nil map write")
			},
			message: "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrchestrator(Options{Prompts: newPrompts(t), Generator: tt.gen, Timeout: tt.timeout})
			sink, err := run(t, o, segmentRequest())
			require.Error(t, err)

			last := sink.events[len(sink.events)-1]
			assert.Equal(t, eventstream.ErrorEvent{Message: tt.message}, last)
			assert.NotContains(t, sink.types(), eventstream.TypeFinish)
			assert.NotContains(t, sink.types(), eventstream.TypeToolResult)
			assert.Equal(t, 1, sink.closes)
		})
	}
}

func TestRunCancelledByCaller(t *testing.T) {
	started := make(chan struct{})
	gen := llm.GeneratorFunc(func(ctx context.Context, _ *prompts.Prompt, _ llm.PartialFunc) (json.RawMessage, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	sink := &recordingSink{}
	done := make(chan error, 1)

	o := NewOrchestrator(Options{Prompts: newPrompts(t), Generator: gen})
	go func() { done <- o.Run(ctx, segmentRequest(), eventstream.NewHandler(sink)) }()

	<-started
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("orchestrator did not return after cancellation")
	}
	assert.Equal(t, 1, sink.closes)
}

func TestRunRejectsInvalidRequest(t *testing.T) {
	gen := new(MockGenerator)
	o := NewOrchestrator(Options{Prompts: newPrompts(t), Generator: gen})

	sink, err := run(t, o, &Request{Kind: KindVideo, Video: &VideoRequest{}})
	require.Error(t, err)

	require.Len(t, sink.events, 1)
	assert.Equal(t, eventstream.TypeError, sink.events[0].Type())
	assert.Equal(t, 1, sink.closes)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunOverChannelSink(t *testing.T) {
	gen := llm.GeneratorFunc(func(context.Context, *prompts.Prompt, llm.PartialFunc) (json.RawMessage, error) {
		return json.RawMessage(`{"title":"Go"}`), nil
	})
	o := NewOrchestrator(Options{Prompts: newPrompts(t), Generator: gen})

	sink := eventstream.NewChannelSink(0)
	go func() { _ = o.Run(context.Background(), playlistRequest(), eventstream.NewHandler(sink)) }()

	var got []eventstream.EventType
	for ev := range sink.Events() {
		got = append(got, ev.Type())
	}
	assert.Equal(t, []eventstream.EventType{
		eventstream.TypeProgress, eventstream.TypeProgress,
		eventstream.TypeToolResult, eventstream.TypeProgress, eventstream.TypeFinish,
	}, got)
}

// Every session ends in exactly one terminal event, tool-result only ever
// precedes finish, progress never regresses and the sink is closed once.
func TestRunSessionInvariantsProperty(t *testing.T) {
	pm := newPrompts(t)
	rapid.Check(t, func(t *rapid.T) {
		kind := rapid.SampledFrom([]Kind{KindVideo, KindPlaylist, KindSegment}).Draw(t, "kind")
		partials := rapid.IntRange(0, 5).Draw(t, "partials")
		outcome := rapid.SampledFrom([]string{"ok", "error", "malformed", "panic"}).Draw(t, "outcome")

		gen := llm.GeneratorFunc(func(ctx context.Context, _ *prompts.Prompt, onPartial llm.PartialFunc) (json.RawMessage, error) {
			for i := 0; i < partials; i++ {
				onPartial("chunk")
			}
			switch outcome {
			case "error":
				return nil, apperrors.GenerationError("boom", nil)
			case "malformed":
				return json.RawMessage(`{`), nil
			case "panic":
				panic("boom")
			}
			return json.RawMessage(`{}`), nil
		})

		var req *Request
		switch kind {
		case KindVideo:
			req = videoRequest("")
		case KindPlaylist:
			req = playlistRequest()
		default:
			req = segmentRequest()
		}

		sink := &recordingSink{}
		_ = NewOrchestrator(Options{Prompts: pm, Generator: gen}).Run(context.Background(), req, eventstream.NewHandler(sink))

		terminals, last := 0, -1
		sawResult := false
		for i, ev := range sink.events {
			switch e := ev.(type) {
			case eventstream.ProgressEvent:
				if e.Progress < last {
					t.Fatalf("progress regressed at %d: %v", i, sink.events)
				}
				last = e.Progress
			case eventstream.ToolResultEvent:
				sawResult = true
			case eventstream.FinishEvent:
				terminals++
				if !sawResult {
					t.Fatalf("finish without tool-result: %v", sink.events)
				}
			case eventstream.ErrorEvent:
				terminals++
				if sawResult {
					t.Fatalf("error after tool-result: %v", sink.events)
				}
			}
		}
		if terminals != 1 {
			t.Fatalf("expected exactly one terminal event, got %d: %v", terminals, sink.events)
		}
		if !eventstream.IsTerminal(sink.events[len(sink.events)-1]) {
			t.Fatalf("last event is not terminal: %v", sink.events)
		}
		if sink.closes != 1 {
			t.Fatalf("sink closed %d times", sink.closes)
		}
	})
}

func TestSanitizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "generation failed"},
		{"deadline", context.DeadlineExceeded, "generation timed out"},
		{"wrapped cancel", apperrors.GenerationError("x", context.Canceled), "generation cancelled"},
		{"app error", apperrors.UpstreamFetchError("transcript", "rate limited", nil), "rate limited"},
		{"multi-line", apperrors.GenerationError("first line\nsecond line", nil), "first line"},
		{"internal detail", errors.New("pq: password authentication failed"), "generation failed"},
		{"long", apperrors.GenerationError(strings.Repeat("x", 500), nil), strings.Repeat("x", 197) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeError(tt.err))
		})
	}
}

func TestTranscriptLookup(t *testing.T) {
	store := cache.NewTranscriptCache(time.Minute)
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "dQw4w9WgXcQ").Return(&transcript.Transcript{
		Format:   transcript.FormatText,
		Segments: []transcript.Segment{},
		FullText: "lecture text",
	}, nil).Twice()

	o := NewOrchestrator(Options{Cache: store, Fetcher: fetcher})
	ctx := context.Background()

	entry, hit, err := o.Transcript(ctx, "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "dQw4w9WgXcQ", entry.Key)

	_, hit, err = o.Transcript(ctx, "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.True(t, hit, "second lookup is served by the cache")

	o.InvalidateTranscript("dQw4w9WgXcQ")
	_, hit, err = o.Transcript(ctx, "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.False(t, hit, "invalidation forces a refetch")

	fetcher.AssertNumberOfCalls(t, "Fetch", 2)
}

func TestTranscriptLookupRejectsNonVideo(t *testing.T) {
	fetcher := new(MockFetcher)
	o := NewOrchestrator(Options{Fetcher: fetcher})

	_, _, err := o.Transcript(context.Background(), "PLrAXtmErZgOeiKm4sgNOknGvNjby9efdf")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidation))
	fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}
