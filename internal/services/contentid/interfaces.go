package contentid

// Kind is the classification of an opaque content identifier
type Kind string

const (
	KindVideo    Kind = "video"
	KindPlaylist Kind = "playlist"
	KindUnknown  Kind = "unknown"
)

// Classifier resolves what an identifier refers to. Callers trust the result;
// an unknown identifier is never fetched.
type Classifier interface {
	Classify(id string) Kind
}
