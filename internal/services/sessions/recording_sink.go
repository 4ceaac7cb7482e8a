package sessions

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/killallgit/course-api/internal/models"
	"github.com/killallgit/course-api/pkg/eventstream"
)

// persistTimeout bounds each best-effort session write
const persistTimeout = 5 * time.Second

// recordingSink forwards every event to the inner sink, then mirrors it into
// the session row. Persistence failures are logged and never reach the stream.
type recordingSink struct {
	mu      sync.Mutex
	repo    SessionRepository
	session *models.GenerationSession
	inner   eventstream.Sink
	now     func() time.Time
}

func newRecordingSink(repo SessionRepository, session *models.GenerationSession, inner eventstream.Sink, now func() time.Time) *recordingSink {
	return &recordingSink{
		repo:    repo,
		session: session,
		inner:   inner,
		now:     now,
	}
}

func (s *recordingSink) Send(ctx context.Context, ev eventstream.Event) error {
	if err := s.inner.Send(ctx, ev); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.IsTerminal() {
		return nil
	}

	switch e := ev.(type) {
	case eventstream.StartEvent:
		s.session.MarkRunning()
	case eventstream.ProgressEvent:
		s.session.MarkRunning()
		s.session.Progress = e.Progress
	case eventstream.ToolResultEvent:
		s.session.ResultKind = e.Kind
		s.session.Result = models.RawJSON(e.Result)
	case eventstream.ErrorEvent:
		s.session.MarkFailed(e.Message, s.now())
	case eventstream.FinishEvent:
		s.session.MarkCompleted(s.now())
	}

	s.persist(context.WithoutCancel(ctx))
	return nil
}

// Close closes the inner sink. A session closed without a terminal event is
// recorded as failed.
func (s *recordingSink) Close() error {
	err := s.inner.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.session.IsTerminal() {
		s.session.MarkFailed("stream closed before completion", s.now())
		s.persist(context.Background())
	}
	return err
}

func (s *recordingSink) persist(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	if err := s.repo.Update(ctx, s.session); err != nil {
		log.Printf("[WARN] Failed to record session %s (%s): %v", s.session.ID, s.session.Status, err)
	}
}
