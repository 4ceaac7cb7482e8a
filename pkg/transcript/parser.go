package transcript

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TranscriptFormat represents the format of a transcript
type TranscriptFormat string

const (
	FormatVTT  TranscriptFormat = "vtt"
	FormatSRT  TranscriptFormat = "srt"
	FormatJSON TranscriptFormat = "json"
	FormatText TranscriptFormat = "text"
)

var (
	vttTimestampRegex = regexp.MustCompile(`(\d{1,2}:)?(\d{2}:\d{2}\.\d{3})\s*-->\s*(\d{1,2}:)?(\d{2}:\d{2}\.\d{3})`)
	srtTimestampRegex = regexp.MustCompile(`(\d{2}:\d{2}:\d{2},\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2},\d{3})`)
	vttTagRegex       = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
)

// Segment represents a transcript segment with timing information.
// Timing is optional; plain-text transcripts have none.
type Segment struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// Transcript represents a parsed transcript
type Transcript struct {
	Format   TranscriptFormat
	Segments []Segment
	FullText string
	Duration time.Duration
}

// Parser handles parsing different transcript formats
type Parser struct{}

// NewParser creates a new transcript parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse parses transcript content based on its format
func (p *Parser) Parse(content string, format TranscriptFormat) (*Transcript, error) {
	switch format {
	case FormatVTT:
		return p.parseCues(content, FormatVTT)
	case FormatSRT:
		return p.parseCues(content, FormatSRT)
	case FormatJSON:
		return p.parseJSON(content)
	case FormatText:
		return p.parseText(content)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// parseCues handles the cue-based formats (WebVTT and SRT), which differ only
// in header lines and timestamp syntax
func (p *Parser) parseCues(content string, format TranscriptFormat) (*Transcript, error) {
	var (
		segments []Segment
		current  *Segment
		text     strings.Builder
	)

	flush := func() {
		if current != nil && text.Len() > 0 {
			current.Text = strings.TrimSpace(text.String())
			segments = append(segments, *current)
		}
		current = nil
		text.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		if line == "" {
			flush()
			continue
		}
		if format == FormatVTT && (strings.HasPrefix(line, "WEBVTT") || strings.HasPrefix(line, "NOTE")) {
			continue
		}

		if start, end, ok := parseCueTiming(line, format); ok {
			flush()
			current = &Segment{Start: start, End: end}
			continue
		}

		if current == nil {
			// cue identifiers and SRT sequence numbers precede the timing line
			continue
		}

		if text.Len() > 0 {
			text.WriteString(" ")
		}
		if format == FormatVTT {
			line = removeVTTTags(line)
		}
		text.WriteString(line)
	}
	flush()

	return newTranscript(format, segments), nil
}

func parseCueTiming(line string, format TranscriptFormat) (time.Duration, time.Duration, bool) {
	if format == FormatSRT {
		m := srtTimestampRegex.FindStringSubmatch(line)
		if m == nil {
			return 0, 0, false
		}
		start, err := parseSRTTimestamp(m[1])
		if err != nil {
			return 0, 0, false
		}
		end, err := parseSRTTimestamp(m[2])
		if err != nil {
			return 0, 0, false
		}
		return start, end, true
	}

	m := vttTimestampRegex.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}
	start, err := parseVTTTimestamp(m[1] + m[2])
	if err != nil {
		return 0, 0, false
	}
	end, err := parseVTTTimestamp(m[3] + m[4])
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

// jsonSegment accepts the field spellings used by common transcript APIs
type jsonSegment struct {
	Start     float64  `json:"startTime"`
	StartTime float64  `json:"start_time"`
	Offset    *float64 `json:"start"`
	End       float64  `json:"endTime"`
	EndTime   float64  `json:"end_time"`
	Dur       float64  `json:"dur"`
	Duration  float64  `json:"duration"`
	Text      string   `json:"text"`
	Body      string   `json:"body"`
}

func (s jsonSegment) toSegment() Segment {
	start := s.Start
	if start == 0 && s.StartTime > 0 {
		start = s.StartTime
	}
	if start == 0 && s.Offset != nil {
		start = *s.Offset
	}

	end := s.End
	if end == 0 && s.EndTime > 0 {
		end = s.EndTime
	}
	if end == 0 {
		dur := s.Dur
		if dur == 0 {
			dur = s.Duration
		}
		if dur > 0 {
			end = start + dur
		}
	}

	text := s.Text
	if text == "" {
		text = s.Body
	}

	return Segment{
		Start: seconds(start),
		End:   seconds(end),
		Text:  strings.TrimSpace(text),
	}
}

// parseJSON parses JSON transcripts, either a bare array of segments or an
// object with a "segments" array
func (p *Parser) parseJSON(content string) (*Transcript, error) {
	var raw []jsonSegment
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		var obj struct {
			Segments []jsonSegment `json:"segments"`
		}
		if err := json.Unmarshal([]byte(content), &obj); err != nil {
			return nil, fmt.Errorf("failed to parse JSON transcript: %w", err)
		}
		raw = obj.Segments
	}

	segments := make([]Segment, 0, len(raw))
	for _, s := range raw {
		seg := s.toSegment()
		if seg.Text == "" {
			continue
		}
		segments = append(segments, seg)
	}

	return newTranscript(FormatJSON, segments), nil
}

// parseText parses plain text transcripts (no timing information)
func (p *Parser) parseText(content string) (*Transcript, error) {
	return &Transcript{
		Format:   FormatText,
		Segments: []Segment{},
		FullText: strings.TrimSpace(content),
	}, nil
}

func newTranscript(format TranscriptFormat, segments []Segment) *Transcript {
	if segments == nil {
		segments = []Segment{}
	}
	t := &Transcript{
		Format:   format,
		Segments: segments,
		FullText: JoinText(segments),
	}
	if len(segments) > 0 {
		t.Duration = segments[len(segments)-1].End
	}
	return t
}

// JoinText concatenates segment text into a single plain-text transcript
func JoinText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, " ")
}

// Window returns the segments overlapping [start, end)
func Window(segments []Segment, start, end time.Duration) []Segment {
	var out []Segment
	for _, s := range segments {
		segEnd := s.End
		if segEnd <= s.Start {
			segEnd = s.Start
		}
		if s.Start >= end {
			continue
		}
		if segEnd > start || s.Start >= start {
			out = append(out, s)
		}
	}
	return out
}

// parseVTTTimestamp parses a VTT timestamp (HH:MM:SS.mmm or MM:SS.mmm)
func parseVTTTimestamp(timestamp string) (time.Duration, error) {
	parts := strings.Split(timestamp, ":")
	if len(parts) == 2 {
		parts = append([]string{"0"}, parts...)
	}
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid VTT timestamp: %s", timestamp)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %s: %w", timestamp, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in %s: %w", timestamp, err)
	}

	secParts := strings.SplitN(parts[2], ".", 2)
	secs, err := strconv.Atoi(secParts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid seconds in %s: %w", timestamp, err)
	}
	millis := 0
	if len(secParts) > 1 {
		if millis, err = strconv.Atoi(secParts[1]); err != nil {
			return 0, fmt.Errorf("invalid milliseconds in %s: %w", timestamp, err)
		}
	}

	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(secs)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}

// parseSRTTimestamp parses an SRT timestamp (HH:MM:SS,mmm)
func parseSRTTimestamp(timestamp string) (time.Duration, error) {
	return parseVTTTimestamp(strings.Replace(timestamp, ",", ".", 1))
}

// removeVTTTags strips voice, styling and timestamp tags from cue text
func removeVTTTags(text string) string {
	return strings.TrimSpace(vttTagRegex.ReplaceAllString(text, ""))
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// ToPlainText converts a transcript to plain text format
func (t *Transcript) ToPlainText() string {
	if t.FullText != "" {
		return t.FullText
	}
	return JoinText(t.Segments)
}
