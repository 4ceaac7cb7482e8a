package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// SessionStatus represents the lifecycle state of a generation session
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
)

// GenerationSession records one streamed generation run. The ID doubles as
// the messageId of the stream's start event.
type GenerationSession struct {
	ID         string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Kind       string        `json:"kind" gorm:"not null;index"`
	Title      string        `json:"title"`
	ContentID  string        `json:"content_id,omitempty" gorm:"index"`
	Status     SessionStatus `json:"status" gorm:"default:'pending';index"`
	Progress   int           `json:"progress" gorm:"default:0"` // 0-100
	ResultKind string        `json:"result_kind,omitempty"`
	Result     RawJSON       `json:"result,omitempty" gorm:"type:json"`
	Request    RawJSON       `json:"request,omitempty" gorm:"type:json"`
	Error      string        `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// RawJSON stores an opaque JSON document in a text column
type RawJSON json.RawMessage

// Value implements driver.Valuer interface for RawJSON
func (r RawJSON) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return string(r), nil
}

// Scan implements sql.Scanner interface for RawJSON
func (r *RawJSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*r = nil
	case []byte:
		*r = append(RawJSON(nil), v...)
	case string:
		*r = RawJSON(v)
	default:
		return errors.New("type assertion to []byte failed")
	}
	return nil
}

// MarshalJSON emits the stored document verbatim
func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// UnmarshalJSON keeps a copy of the raw document
func (r *RawJSON) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = nil
		return nil
	}
	*r = append(RawJSON(nil), data...)
	return nil
}

// Helper methods

// IsTerminal returns true once the session has completed or failed
func (s *GenerationSession) IsTerminal() bool {
	return s.Status == SessionStatusCompleted || s.Status == SessionStatusFailed
}

// MarkRunning moves a pending session into the running state
func (s *GenerationSession) MarkRunning() {
	if s.Status == SessionStatusPending {
		s.Status = SessionStatusRunning
	}
}

// MarkCompleted records a successful finish
func (s *GenerationSession) MarkCompleted(at time.Time) {
	s.Status = SessionStatusCompleted
	s.Progress = 100
	s.FinishedAt = &at
}

// MarkFailed records a failure and its consumer-facing message
func (s *GenerationSession) MarkFailed(message string, at time.Time) {
	s.Status = SessionStatusFailed
	s.Error = message
	s.FinishedAt = &at
}

// Duration returns how long the session ran, or zero while it is still open
func (s *GenerationSession) Duration() time.Duration {
	if s.FinishedAt == nil {
		return 0
	}
	return s.FinishedAt.Sub(s.CreatedAt)
}

// AllModels lists every persisted model for migrations
func AllModels() []interface{} {
	return []interface{}{
		&GenerationSession{},
	}
}
