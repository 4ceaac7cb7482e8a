package contentid

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	videoIDRegex    = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	playlistIDRegex = regexp.MustCompile(`^(PL|UU|LL|OL|FL|RD)[A-Za-z0-9_-]{10,}$`)
)

// PatternClassifier recognises video and playlist identifiers by shape, either
// bare or embedded in a watch/playlist URL
type PatternClassifier struct{}

// NewPatternClassifier creates a new classifier
func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{}
}

// Classify returns the kind of id after normalization
func (c *PatternClassifier) Classify(id string) Kind {
	return classifyBare(Normalize(id))
}

func classifyBare(id string) Kind {
	switch {
	case playlistIDRegex.MatchString(id):
		return KindPlaylist
	case videoIDRegex.MatchString(id):
		return KindVideo
	default:
		return KindUnknown
	}
}

// Normalize reduces id to the bare identifier used as a cache key. URLs are
// reduced to their v= or list= parameter, or the last path element for short
// links and embeds. A watch URL carrying both prefers the video.
func Normalize(id string) string {
	id = strings.TrimSpace(id)
	if !strings.Contains(id, "/") && !strings.Contains(id, "?") {
		return id
	}

	raw := id
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return id
	}

	query := u.Query()
	if v := query.Get("v"); v != "" {
		return v
	}
	if list := query.Get("list"); list != "" {
		return list
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if last := segments[len(segments)-1]; last != "" {
		return last
	}
	return id
}
