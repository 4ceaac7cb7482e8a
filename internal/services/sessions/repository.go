package sessions

import (
	"context"
	"errors"

	"github.com/killallgit/course-api/internal/models"
	"gorm.io/gorm"
)

// repository implements SessionRepository
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new session repository
func NewRepository(db *gorm.DB) SessionRepository {
	return &repository{db: db}
}

// Create saves a new session
func (r *repository) Create(ctx context.Context, session *models.GenerationSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// GetByID retrieves a session by its ID
func (r *repository) GetByID(ctx context.Context, id string) (*models.GenerationSession, error) {
	var session models.GenerationSession
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return &session, nil
}

// Update modifies an existing session
func (r *repository) Update(ctx context.Context, session *models.GenerationSession) error {
	result := r.db.WithContext(ctx).Save(session)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// List returns sessions ordered by creation time, newest first
func (r *repository) List(ctx context.Context, limit int) ([]models.GenerationSession, error) {
	var sessions []models.GenerationSession
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}
