package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/killallgit/course-api/pkg/errors"
)

// Kind discriminates the GenerationRequest variants
type Kind string

const (
	KindVideo    Kind = "video"
	KindPlaylist Kind = "playlist"
	KindSegment  Kind = "segment"
)

// Result kinds reported on tool-result events
const (
	ResultKindCourse   = "course"
	ResultKindSegments = "segments"
)

// VideoSummary is one entry of a playlist
type VideoSummary struct {
	Title       string  `json:"title"`
	Duration    float64 `json:"duration,omitempty"`
	Description string  `json:"description,omitempty"`
}

// VideoRequest asks for a course built from a single video
type VideoRequest struct {
	Title       string
	Description string
	Duration    float64 // seconds, 0 when unknown
	ContentID   string
}

// PlaylistRequest asks for a course built from an ordered playlist
type PlaylistRequest struct {
	Title       string
	Description string
	Videos      []VideoSummary
	ContentID   string
}

// SegmentRequest asks for learning segments within [Start, End) of one video.
// Transcript may be omitted when ContentID names a video whose transcript can
// be fetched and windowed.
type SegmentRequest struct {
	Title       string
	Description string
	Start       float64
	End         float64
	Transcript  string
	ContentID   string
}

// Request is a tagged union: exactly one variant is set and it matches Kind
type Request struct {
	Kind     Kind
	Video    *VideoRequest
	Playlist *PlaylistRequest
	Segment  *SegmentRequest
}

// wireRequest is the flat JSON shape accepted on the wire
type wireRequest struct {
	Kind        Kind           `json:"kind"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Duration    *float64       `json:"duration,omitempty"`
	ContentID   string         `json:"contentId,omitempty"`
	Videos      []VideoSummary `json:"videos,omitempty"`
	Start       *float64       `json:"start,omitempty"`
	End         *float64       `json:"end,omitempty"`
	Transcript  string         `json:"transcript,omitempty"`
}

// UnmarshalJSON decodes the flat wire object into exactly one variant,
// rejecting fields that belong to a different kind
func (r *Request) UnmarshalJSON(data []byte) error {
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return apperrors.ValidationError("body", "request is not a valid JSON object").WithCause(err)
	}

	*r = Request{Kind: w.Kind}
	switch w.Kind {
	case KindVideo:
		if err := rejectFields(w.Kind, map[string]bool{
			"videos": w.Videos != nil, "start": w.Start != nil, "end": w.End != nil, "transcript": w.Transcript != "",
		}); err != nil {
			return err
		}
		r.Video = &VideoRequest{
			Title:       w.Title,
			Description: w.Description,
			ContentID:   w.ContentID,
		}
		if w.Duration != nil {
			r.Video.Duration = *w.Duration
		}
	case KindPlaylist:
		if err := rejectFields(w.Kind, map[string]bool{
			"duration": w.Duration != nil, "start": w.Start != nil, "end": w.End != nil, "transcript": w.Transcript != "",
		}); err != nil {
			return err
		}
		r.Playlist = &PlaylistRequest{
			Title:       w.Title,
			Description: w.Description,
			Videos:      w.Videos,
			ContentID:   w.ContentID,
		}
	case KindSegment:
		if err := rejectFields(w.Kind, map[string]bool{
			"duration": w.Duration != nil, "videos": w.Videos != nil,
		}); err != nil {
			return err
		}
		if w.Start == nil {
			return apperrors.MissingFieldError("start")
		}
		if w.End == nil {
			return apperrors.MissingFieldError("end")
		}
		r.Segment = &SegmentRequest{
			Title:       w.Title,
			Description: w.Description,
			Start:       *w.Start,
			End:         *w.End,
			Transcript:  w.Transcript,
			ContentID:   w.ContentID,
		}
	case "":
		return apperrors.MissingFieldError("kind")
	default:
		return apperrors.ValidationError("kind", fmt.Sprintf("unknown kind %q", w.Kind))
	}
	return nil
}

func rejectFields(kind Kind, present map[string]bool) error {
	for _, field := range []string{"duration", "videos", "start", "end", "transcript"} {
		if present[field] {
			return apperrors.ValidationError(field, fmt.Sprintf("not allowed for kind %q", kind))
		}
	}
	return nil
}

// MarshalJSON writes the flat wire object
func (r Request) MarshalJSON() ([]byte, error) {
	w := wireRequest{Kind: r.Kind}
	switch r.Kind {
	case KindVideo:
		if r.Video == nil {
			return nil, fmt.Errorf("video request without video variant")
		}
		w.Title, w.Description, w.ContentID = r.Video.Title, r.Video.Description, r.Video.ContentID
		if r.Video.Duration > 0 {
			d := r.Video.Duration
			w.Duration = &d
		}
	case KindPlaylist:
		if r.Playlist == nil {
			return nil, fmt.Errorf("playlist request without playlist variant")
		}
		w.Title, w.Description, w.ContentID = r.Playlist.Title, r.Playlist.Description, r.Playlist.ContentID
		w.Videos = r.Playlist.Videos
	case KindSegment:
		if r.Segment == nil {
			return nil, fmt.Errorf("segment request without segment variant")
		}
		s := r.Segment
		w.Title, w.Description, w.ContentID, w.Transcript = s.Title, s.Description, s.ContentID, s.Transcript
		start, end := s.Start, s.End
		w.Start, w.End = &start, &end
	default:
		return nil, fmt.Errorf("unknown request kind %q", r.Kind)
	}
	return json.Marshal(w)
}

// Validate enforces the union invariant and per-variant rules
func (r *Request) Validate() error {
	if r == nil {
		return apperrors.MissingFieldError("kind")
	}

	set := 0
	for _, v := range []bool{r.Video != nil, r.Playlist != nil, r.Segment != nil} {
		if v {
			set++
		}
	}
	if set != 1 {
		return apperrors.ValidationError("kind", "exactly one request variant must be set")
	}

	switch r.Kind {
	case KindVideo:
		if r.Video == nil {
			return apperrors.ValidationError("kind", "kind does not match the request shape")
		}
		if strings.TrimSpace(r.Video.Title) == "" {
			return apperrors.MissingFieldError("title")
		}
		if r.Video.Duration < 0 {
			return apperrors.ValidationError("duration", "must not be negative")
		}
	case KindPlaylist:
		if r.Playlist == nil {
			return apperrors.ValidationError("kind", "kind does not match the request shape")
		}
		if strings.TrimSpace(r.Playlist.Title) == "" {
			return apperrors.MissingFieldError("title")
		}
		if len(r.Playlist.Videos) == 0 {
			return apperrors.ValidationError("videos", "at least one video is required")
		}
		for i, v := range r.Playlist.Videos {
			if strings.TrimSpace(v.Title) == "" {
				return apperrors.MissingFieldError(fmt.Sprintf("videos[%d].title", i))
			}
			if v.Duration < 0 {
				return apperrors.ValidationError(fmt.Sprintf("videos[%d].duration", i), "must not be negative")
			}
		}
	case KindSegment:
		s := r.Segment
		if s == nil {
			return apperrors.ValidationError("kind", "kind does not match the request shape")
		}
		if strings.TrimSpace(s.Title) == "" {
			return apperrors.MissingFieldError("title")
		}
		if s.Start < 0 {
			return apperrors.ValidationError("start", "must not be negative")
		}
		if s.Start >= s.End {
			return apperrors.ValidationError("end", "must be greater than start")
		}
		if strings.TrimSpace(s.Transcript) == "" && s.ContentID == "" {
			return apperrors.ValidationError("transcript", "transcript or contentId is required")
		}
	default:
		return apperrors.ValidationError("kind", fmt.Sprintf("unknown kind %q", r.Kind))
	}
	return nil
}

// ContentID returns the external identifier the request references, if any
func (r *Request) ContentID() string {
	switch {
	case r.Video != nil:
		return r.Video.ContentID
	case r.Playlist != nil:
		return r.Playlist.ContentID
	case r.Segment != nil:
		return r.Segment.ContentID
	}
	return ""
}

// Title returns the title of whichever variant is set
func (r *Request) Title() string {
	switch {
	case r.Video != nil:
		return r.Video.Title
	case r.Playlist != nil:
		return r.Playlist.Title
	case r.Segment != nil:
		return r.Segment.Title
	}
	return ""
}

// ResultKind is the tool-result label a successful session reports
func (r *Request) ResultKind() string {
	if r.Kind == KindSegment {
		return ResultKindSegments
	}
	return ResultKindCourse
}
