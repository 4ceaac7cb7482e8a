package generate

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/killallgit/course-api/api/types"
	"github.com/killallgit/course-api/internal/services/generation"
	"github.com/killallgit/course-api/pkg/eventstream"
)

const defaultStreamBuffer = 8

// Post streams a generation session as server-sent events
// @Summary Generate a course or learning segments
// @Description Validates the request and, when valid, answers with a text/event-stream of tagged events:
// @Description start, progress (0, 50, 75, 100), tool-result and finally finish, or a single error event on failure.
// @Description Invalid requests are rejected with a JSON error before any stream is opened.
// @Tags generate
// @Accept json
// @Produce text/event-stream
// @Param request body object true "Generation request (kind: video | playlist | segment)"
// @Success 200 {string} string "Event stream"
// @Failure 400 {object} types.ErrorResponse "Request failed validation"
// @Failure 413 {object} types.ErrorResponse "Request body too large"
// @Failure 503 {object} types.ErrorResponse "Generation service not configured"
// @Router /api/v1/generate [post]
func Post(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if deps == nil || deps.Generator == nil {
			types.SendServiceUnavailable(c, "Generation service not available")
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				c.JSON(http.StatusRequestEntityTooLarge, types.ErrorResponse{
					Status: types.StatusError,
					Error:  "Request body too large",
				})
				return
			}
			types.SendBadRequest(c, "Failed to read request body")
			return
		}

		req, err := generation.ParseRequest(body)
		if err != nil {
			types.SendError(c, err)
			return
		}

		// a client disconnect cancels the request context and with it the session
		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		buffer := deps.StreamBuffer
		if buffer <= 0 {
			buffer = defaultStreamBuffer
		}
		channel := eventstream.NewChannelSink(buffer)

		var sink eventstream.Sink = channel
		messageID := uuid.NewString()
		if deps.Sessions != nil {
			session, err := deps.Sessions.Begin(ctx, req)
			if err != nil {
				log.Printf("[WARN] Session log unavailable, streaming without it: %v", err)
			} else {
				messageID = session.ID
				sink = deps.Sessions.RecordingSink(session, channel)
			}
		}

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)

		go runSession(ctx, deps.Generator, req, eventstream.NewHandler(sink), messageID)

		events := channel.Events()
		clientGone := c.Stream(func(w io.Writer) bool {
			select {
			case ev, ok := <-events:
				if !ok {
					return false
				}
				frame, err := eventstream.Encode(ev)
				if err != nil {
					log.Printf("[ERROR] Failed to encode %s event: %v", ev.Type(), err)
					return false
				}
				if _, err := w.Write(frame); err != nil {
					log.Printf("[DEBUG] Stream write failed for %s: %v", messageID, err)
					return false
				}
				return true
			case <-ctx.Done():
				return false
			}
		})

		if clientGone {
			log.Printf("[INFO] Client disconnected from generation %s", messageID)
		}

		// unblock the producer if the stream ended early
		cancel()
		go func() {
			for range events {
			}
		}()
	}
}

// runSession announces the session and runs it. The handler is always
// closed when this returns.
func runSession(ctx context.Context, runner types.GenerationRunner, req *generation.Request, h *eventstream.Handler, messageID string) {
	if err := h.Start(ctx, messageID); err != nil {
		log.Printf("[WARN] Could not start generation %s: %v", messageID, err)
		if closeErr := h.Close(); closeErr != nil {
			log.Printf("[WARN] Failed to close event stream: %v", closeErr)
		}
		return
	}

	if err := runner.Run(ctx, req, h); err != nil {
		log.Printf("[DEBUG] Generation %s ended with error: %v", messageID, err)
	}

	// runners are expected to close h; make sure a misbehaving one cannot leak the stream
	if !h.Closed() {
		h.Close()
	}
}
