package eventstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// ErrChannelClosed is returned when an event is written after Close.
// It signals a programming error and must never be swallowed.
var ErrChannelClosed = errors.New("eventstream: write after close")

// Sink is the output side of one session
type Sink interface {
	// Send delivers one event, preserving call order
	Send(ctx context.Context, ev Event) error

	// Close releases the sink; further sends fail with ErrChannelClosed
	Close() error
}

type errorFlusher interface {
	Flush() error
}

// FrameSink writes one encoded frame per event to an io.Writer and flushes
// after every frame.
type FrameSink struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

// NewFrameSink creates a sink writing frames to w
func NewFrameSink(w io.Writer) *FrameSink {
	return &FrameSink{w: w}
}

// Send encodes ev and writes it as a single frame
func (s *FrameSink) Send(ctx context.Context, ev Event) error {
	frame, err := Encode(ev)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrChannelClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.w.Write(frame); err != nil {
		return fmt.Errorf("failed to write %s frame: %w", ev.Type(), err)
	}
	return s.flush()
}

// Close marks the sink closed. The underlying writer is not closed.
func (s *FrameSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.flush()
}

func (s *FrameSink) flush() error {
	switch f := s.w.(type) {
	case http.Flusher:
		f.Flush()
	case errorFlusher:
		if err := f.Flush(); err != nil {
			return fmt.Errorf("failed to flush frame: %w", err)
		}
	}
	return nil
}

// ChannelSink hands events to a reader goroutine over a Go channel. The
// producer blocks until the reader takes each event or ctx is done.
type ChannelSink struct {
	mu     sync.Mutex
	events chan Event
	closed bool
}

// NewChannelSink creates a channel sink with the given buffer size
func NewChannelSink(buffer int) *ChannelSink {
	if buffer < 0 {
		buffer = 0
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

// Events is the read side; it is closed when the sink is closed
func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// Send validates ev and hands it to the reader
func (s *ChannelSink) Send(ctx context.Context, ev Event) error {
	if err := Validate(ev); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrChannelClosed
	}
	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the read side. Calling it more than once is a no-op.
func (s *ChannelSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)
	return nil
}
