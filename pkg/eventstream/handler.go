package eventstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrTerminalEmitted is returned when an event follows error or finish
	ErrTerminalEmitted = errors.New("eventstream: terminal event already emitted")

	// ErrProgressRegression is returned when progress would go backwards
	ErrProgressRegression = errors.New("eventstream: progress regression")
)

// Handler is the protocol-level writer for one session. Each operation
// produces exactly one event on the underlying sink, in call order.
type Handler struct {
	mu           sync.Mutex
	sink         Sink
	closed       bool
	terminal     EventType
	lastProgress int
}

// NewHandler wraps sink for a single session
func NewHandler(sink Sink) *Handler {
	return &Handler{sink: sink, lastProgress: -1}
}

// Start announces the session identifier
func (h *Handler) Start(ctx context.Context, messageID string) error {
	return h.emit(ctx, StartEvent{MessageID: messageID})
}

// Progress reports a completion percentage. Repeating a value is allowed;
// going backwards is not.
func (h *Handler) Progress(ctx context.Context, percent int) error {
	return h.emit(ctx, ProgressEvent{Progress: percent})
}

// ToolResult emits the generated payload under the given kind label
func (h *Handler) ToolResult(ctx context.Context, kind string, payload any) error {
	ev, err := NewToolResult(kind, payload)
	if err != nil {
		return err
	}
	return h.emit(ctx, ev)
}

// Error emits the failure terminal event
func (h *Handler) Error(ctx context.Context, message string) error {
	return h.emit(ctx, ErrorEvent{Message: message})
}

// Finish emits the success terminal event
func (h *Handler) Finish(ctx context.Context) error {
	return h.emit(ctx, FinishEvent{})
}

// Close releases the sink. Only the first call reaches the sink.
func (h *Handler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	return h.sink.Close()
}

// Closed reports whether Close has been called
func (h *Handler) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Terminal returns the terminal event type emitted so far, or "" if none
func (h *Handler) Terminal() EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.terminal
}

func (h *Handler) emit(ctx context.Context, ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return fmt.Errorf("%s after close: %w", ev.Type(), ErrChannelClosed)
	}
	if err := Validate(ev); err != nil {
		return err
	}
	if h.terminal != "" {
		return fmt.Errorf("%s after %s: %w", ev.Type(), h.terminal, ErrTerminalEmitted)
	}
	if p, ok := ev.(ProgressEvent); ok && p.Progress < h.lastProgress {
		return fmt.Errorf("%d after %d: %w", p.Progress, h.lastProgress, ErrProgressRegression)
	}

	if err := h.sink.Send(ctx, ev); err != nil {
		return err
	}

	switch e := ev.(type) {
	case ProgressEvent:
		h.lastProgress = e.Progress
	case ErrorEvent, FinishEvent:
		h.terminal = e.Type()
	}
	return nil
}
