// Package eventstream implements the tagged-event protocol used to push
// generation progress and results over a single long-lived response.
//
// Every event is encoded as one frame: the "data: " prefix, a JSON object
// carrying a "type" discriminator, and a blank-line delimiter.
package eventstream

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/killallgit/course-api/pkg/errors"
)

// EventType is the wire discriminator of a StreamEvent
type EventType string

const (
	TypeStart      EventType = "start"
	TypeProgress   EventType = "progress"
	TypeToolResult EventType = "tool-result"
	TypeError      EventType = "error"
	TypeFinish     EventType = "finish"
)

// Event is a closed sum type; only the variants in this package implement it.
type Event interface {
	Type() EventType
	isEvent()
}

// StartEvent opens a session and names it
type StartEvent struct {
	MessageID string
}

// ProgressEvent reports a coarse completion percentage (0-100)
type ProgressEvent struct {
	Progress int
}

// ToolResultEvent carries the generated payload and a label describing it
type ToolResultEvent struct {
	Kind   string
	Result json.RawMessage
}

// ErrorEvent is the failure terminal event
type ErrorEvent struct {
	Message string
}

// FinishEvent is the success terminal event
type FinishEvent struct{}

func (StartEvent) Type() EventType      { return TypeStart }
func (ProgressEvent) Type() EventType   { return TypeProgress }
func (ToolResultEvent) Type() EventType { return TypeToolResult }
func (ErrorEvent) Type() EventType      { return TypeError }
func (FinishEvent) Type() EventType     { return TypeFinish }

func (StartEvent) isEvent()      {}
func (ProgressEvent) isEvent()   {}
func (ToolResultEvent) isEvent() {}
func (ErrorEvent) isEvent()      {}
func (FinishEvent) isEvent()     {}

// NewToolResult marshals payload into a ToolResultEvent
func NewToolResult(kind string, payload any) (ToolResultEvent, error) {
	if raw, ok := payload.(json.RawMessage); ok {
		return ToolResultEvent{Kind: kind, Result: raw}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return ToolResultEvent{}, fmt.Errorf("failed to marshal %s result: %w", kind, err)
	}
	return ToolResultEvent{Kind: kind, Result: raw}, nil
}

// IsTerminal reports whether ev ends a session
func IsTerminal(ev Event) bool {
	switch ev.(type) {
	case ErrorEvent, FinishEvent:
		return true
	default:
		return false
	}
}

// Validate checks that ev carries the minimum fields for its declared type
func Validate(ev Event) error {
	switch e := ev.(type) {
	case StartEvent, FinishEvent:
		return nil
	case ProgressEvent:
		if e.Progress < 0 || e.Progress > 100 {
			return apperrors.ValidationError("progress", fmt.Sprintf("must be within 0-100, got %d", e.Progress))
		}
		return nil
	case ToolResultEvent:
		if e.Kind == "" {
			return apperrors.MissingFieldError("kind")
		}
		if len(e.Result) > 0 && !json.Valid(e.Result) {
			return apperrors.ValidationError("result", "not valid JSON")
		}
		return nil
	case ErrorEvent:
		if e.Message == "" {
			return apperrors.MissingFieldError("message")
		}
		return nil
	case nil:
		return apperrors.MissingFieldError("type")
	default:
		return apperrors.ValidationError("type", fmt.Sprintf("unknown event %T", ev))
	}
}
