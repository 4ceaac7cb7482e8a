package eventstream

import (
	"bytes"
	"encoding/json"
	"fmt"

	apperrors "github.com/killallgit/course-api/pkg/errors"
)

const (
	// FramePrefix starts every frame
	FramePrefix = "data: "
	// FrameDelimiter terminates every frame
	FrameDelimiter = "\n\n"
)

// wireEvent is the flat JSON shape shared by all event types
type wireEvent struct {
	Type      EventType       `json:"type"`
	MessageID string          `json:"messageId,omitempty"`
	Progress  *int            `json:"progress,omitempty"`
	Kind      string          `json:"kind,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Message   string          `json:"message,omitempty"`
}

func toWire(ev Event) (wireEvent, error) {
	switch e := ev.(type) {
	case StartEvent:
		return wireEvent{Type: TypeStart, MessageID: e.MessageID}, nil
	case ProgressEvent:
		p := e.Progress
		return wireEvent{Type: TypeProgress, Progress: &p}, nil
	case ToolResultEvent:
		return wireEvent{Type: TypeToolResult, Kind: e.Kind, Result: e.Result}, nil
	case ErrorEvent:
		return wireEvent{Type: TypeError, Message: e.Message}, nil
	case FinishEvent:
		return wireEvent{Type: TypeFinish}, nil
	default:
		return wireEvent{}, fmt.Errorf("cannot encode event %T", ev)
	}
}

func fromWire(w wireEvent) (Event, error) {
	switch w.Type {
	case "":
		return nil, apperrors.ProtocolDecodeError("missing type discriminator", nil)
	case TypeStart:
		return StartEvent{MessageID: w.MessageID}, nil
	case TypeProgress:
		if w.Progress == nil {
			return nil, apperrors.ProtocolDecodeError("progress event without progress", nil)
		}
		return ProgressEvent{Progress: *w.Progress}, nil
	case TypeToolResult:
		return ToolResultEvent{Kind: w.Kind, Result: w.Result}, nil
	case TypeError:
		return ErrorEvent{Message: w.Message}, nil
	case TypeFinish:
		return FinishEvent{}, nil
	default:
		return nil, apperrors.ProtocolDecodeError(fmt.Sprintf("unknown type %q", w.Type), nil)
	}
}

// Encode validates ev and renders it as a single wire frame
func Encode(ev Event) ([]byte, error) {
	if err := Validate(ev); err != nil {
		return nil, err
	}
	w, err := toWire(ev)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", ev.Type(), err)
	}

	frame := make([]byte, 0, len(FramePrefix)+len(body)+len(FrameDelimiter))
	frame = append(frame, FramePrefix...)
	frame = append(frame, body...)
	frame = append(frame, FrameDelimiter...)
	return frame, nil
}

// Parse decodes every frame in chunk. Malformed frames are replaced by a
// synthetic ErrorEvent so the number of events matches the number of frames.
func Parse(chunk []byte) []Event {
	var events []Event
	for _, piece := range bytes.Split(chunk, []byte(FrameDelimiter)) {
		piece = bytes.TrimSpace(piece)
		if len(piece) == 0 {
			continue
		}
		// SSE comment lines (": keep-alive") carry no event
		if piece[0] == ':' {
			continue
		}
		ev, err := DecodeFrame(piece)
		if err != nil {
			events = append(events, syntheticError(err))
			continue
		}
		events = append(events, ev)
	}
	return events
}

// DecodeFrame decodes one frame, with or without its trailing delimiter
func DecodeFrame(frame []byte) (Event, error) {
	frame = bytes.TrimSpace(frame)
	body, ok := bytes.CutPrefix(frame, []byte("data:"))
	if !ok {
		return nil, apperrors.ProtocolDecodeError("missing data prefix", nil)
	}
	body = bytes.TrimSpace(body)

	var w wireEvent
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, apperrors.ProtocolDecodeError("invalid JSON", err)
	}
	ev, err := fromWire(w)
	if err != nil {
		return nil, err
	}
	if err := Validate(ev); err != nil {
		reason := err.Error()
		if appErr, ok := apperrors.As(err); ok {
			reason = appErr.Message
		}
		return nil, apperrors.ProtocolDecodeError(reason, err)
	}
	return ev, nil
}

func syntheticError(err error) ErrorEvent {
	if appErr, ok := apperrors.As(err); ok {
		return ErrorEvent{Message: appErr.Message}
	}
	return ErrorEvent{Message: "malformed frame"}
}
