package sessions

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/killallgit/course-api/internal/models"
	"github.com/killallgit/course-api/internal/services/generation"
	apperrors "github.com/killallgit/course-api/pkg/errors"
	"github.com/killallgit/course-api/pkg/eventstream"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// service implements SessionService
type service struct {
	repo SessionRepository
	now  func() time.Time
}

// NewService creates a new session service
func NewService(repo SessionRepository) SessionService {
	return &service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Begin records a new pending session for req
func (s *service) Begin(ctx context.Context, req *generation.Request) (*models.GenerationSession, error) {
	if req == nil {
		return nil, apperrors.MissingFieldError("request")
	}

	raw, err := json.Marshal(req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to encode request")
	}

	session := &models.GenerationSession{
		ID:        uuid.NewString(),
		Kind:      string(req.Kind),
		Title:     req.Title(),
		ContentID: req.ContentID(),
		Status:    models.SessionStatusPending,
		Request:   models.RawJSON(raw),
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, apperrors.DatabaseError("create session", err)
	}

	log.Printf("[DEBUG] Started %s generation session %s", session.Kind, session.ID)
	return session, nil
}

// Get retrieves a session by ID
func (s *service) Get(ctx context.Context, id string) (*models.GenerationSession, error) {
	if id == "" {
		return nil, apperrors.MissingFieldError("id")
	}

	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if err == ErrSessionNotFound {
			return nil, apperrors.NotFound("generation session", id)
		}
		return nil, apperrors.DatabaseError("get session", err)
	}
	return session, nil
}

// List returns the most recent sessions. limit is clamped to [1, MaxListLimit].
func (s *service) List(ctx context.Context, limit int) ([]models.GenerationSession, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	sessions, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, apperrors.DatabaseError("list sessions", err)
	}
	return sessions, nil
}

// RecordingSink wraps inner so that events flowing through it update session
func (s *service) RecordingSink(session *models.GenerationSession, inner eventstream.Sink) eventstream.Sink {
	return newRecordingSink(s.repo, session, inner, s.now)
}
