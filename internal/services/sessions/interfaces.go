package sessions

import (
	"context"
	"errors"

	"github.com/killallgit/course-api/internal/models"
	"github.com/killallgit/course-api/internal/services/generation"
	"github.com/killallgit/course-api/pkg/eventstream"
)

// ErrSessionNotFound is returned when no session has the requested ID
var ErrSessionNotFound = errors.New("generation session not found")

// SessionService defines the interface for the generation session log
type SessionService interface {
	// Begin records a new pending session for req
	Begin(ctx context.Context, req *generation.Request) (*models.GenerationSession, error)

	// Get retrieves a session by ID
	Get(ctx context.Context, id string) (*models.GenerationSession, error)

	// List returns the most recent sessions, newest first
	List(ctx context.Context, limit int) ([]models.GenerationSession, error)

	// RecordingSink wraps inner so that events flowing through it update session
	RecordingSink(session *models.GenerationSession, inner eventstream.Sink) eventstream.Sink
}

// SessionRepository defines the interface for session data access
type SessionRepository interface {
	Create(ctx context.Context, session *models.GenerationSession) error
	GetByID(ctx context.Context, id string) (*models.GenerationSession, error)
	Update(ctx context.Context, session *models.GenerationSession) error
	List(ctx context.Context, limit int) ([]models.GenerationSession, error)
}
