package transcript

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/killallgit/course-api/pkg/errors"
)

// IDPlaceholder is substituted with the escaped content identifier in FetchOptions.URLTemplate
const IDPlaceholder = "{id}"

// FetchOptions configures transcript fetching behavior
type FetchOptions struct {
	URLTemplate string // e.g. https://transcripts.example.com/v1/{id}.vtt
	Timeout     time.Duration
	UserAgent   string
	MaxSize     int64 // Maximum transcript size in bytes
}

// DefaultFetchOptions returns default fetch options
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		Timeout:   30 * time.Second,
		UserAgent: "CourseAPI/1.0",
		MaxSize:   10 * 1024 * 1024, // 10MB max for transcripts
	}
}

// Fetcher downloads and parses the transcript of a content identifier
type Fetcher struct {
	client  *http.Client
	parser  *Parser
	options FetchOptions
}

// NewFetcher creates a new transcript fetcher
func NewFetcher(options FetchOptions) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: options.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        5,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		parser:  NewParser(),
		options: options,
	}
}

// Fetch downloads the transcript for contentID and parses it into segments.
// Every failure is reported as an upstream fetch error whose message is safe
// to show to a stream consumer.
func (f *Fetcher) Fetch(ctx context.Context, contentID string) (*Transcript, error) {
	if contentID == "" {
		return nil, apperrors.MissingFieldError("contentId")
	}
	if f.options.URLTemplate == "" {
		return nil, apperrors.UpstreamFetchError("transcript", "transcript source not configured", nil)
	}

	target := strings.ReplaceAll(f.options.URLTemplate, IDPlaceholder, url.PathEscape(contentID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, apperrors.UpstreamFetchError("transcript", "invalid transcript source", err)
	}
	req.Header.Set("User-Agent", f.options.UserAgent)
	req.Header.Set("Accept", "text/vtt,text/plain,application/x-subrip,application/json,*/*")

	log.Printf("[DEBUG] Fetching transcript for %s", contentID)
	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperrors.UpstreamFetchError("transcript", "transcript service unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.UpstreamFetchError("transcript", "rate limited", nil).
			WithDetail("status", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperrors.UpstreamFetchError("transcript", "transcript not available", nil).
			WithDetail("status", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.UpstreamFetchError("transcript", fmt.Sprintf("transcript service returned status %d", resp.StatusCode), nil).
			WithDetail("status", resp.StatusCode)
	}

	if resp.ContentLength > f.options.MaxSize {
		return nil, apperrors.UpstreamFetchError("transcript", "transcript too large", nil).
			WithDetail("size", resp.ContentLength)
	}

	// read one byte past the limit so oversize bodies without Content-Length are caught
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.options.MaxSize+1))
	if err != nil {
		return nil, apperrors.UpstreamFetchError("transcript", "failed to read transcript", err)
	}
	if int64(len(body)) > f.options.MaxSize {
		return nil, apperrors.UpstreamFetchError("transcript", "transcript too large", nil)
	}

	content := string(body)
	format := detectFormat(target, resp.Header.Get("Content-Type"), content)

	parsed, err := f.parser.Parse(content, format)
	if err != nil {
		return nil, apperrors.UpstreamFetchError("transcript", "transcript could not be parsed", err)
	}
	if parsed.FullText == "" {
		return nil, apperrors.UpstreamFetchError("transcript", "transcript is empty", nil)
	}

	log.Printf("[DEBUG] Fetched %s transcript for %s (%d segments)", format, contentID, len(parsed.Segments))
	return parsed, nil
}

// detectFormat determines the transcript format from URL, content type, and content
func detectFormat(rawURL, contentType, content string) TranscriptFormat {
	path := strings.ToLower(rawURL)
	if u, err := url.Parse(rawURL); err == nil {
		path = strings.ToLower(u.Path)
	}
	switch {
	case strings.HasSuffix(path, ".vtt"):
		return FormatVTT
	case strings.HasSuffix(path, ".srt"):
		return FormatSRT
	case strings.HasSuffix(path, ".json"):
		return FormatJSON
	case strings.HasSuffix(path, ".txt"):
		return FormatText
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "vtt"):
		return FormatVTT
	case strings.Contains(ct, "subrip"), strings.Contains(ct, "srt"):
		return FormatSRT
	case strings.Contains(ct, "json"):
		return FormatJSON
	}

	head := strings.TrimSpace(content[:min(100, len(content))])
	switch {
	case strings.HasPrefix(head, "WEBVTT"):
		return FormatVTT
	case strings.Contains(head, "-->"):
		if strings.Contains(content[:min(1000, len(content))], "WEBVTT") {
			return FormatVTT
		}
		return FormatSRT
	case strings.HasPrefix(head, "{"), strings.HasPrefix(head, "["):
		return FormatJSON
	}
	return FormatText
}
