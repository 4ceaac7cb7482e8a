package sessions

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/killallgit/course-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Create in-memory SQLite database for testing
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to connect to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...), "failed to migrate test database")
	return db
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	session := &models.GenerationSession{
		ID:        "2f1c0d3e-0000-4000-8000-000000000001",
		Kind:      "video",
		Title:     "Go Concurrency",
		ContentID: "dQw4w9WgXcQ",
		Status:    models.SessionStatusPending,
		Request:   models.RawJSON(`{"kind":"video","title":"Go Concurrency"}`),
	}
	require.NoError(t, repo.Create(ctx, session))

	loaded, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go Concurrency", loaded.Title)
	assert.Equal(t, models.SessionStatusPending, loaded.Status)
	assert.JSONEq(t, `{"kind":"video","title":"Go Concurrency"}`, string(loaded.Request))
	assert.Nil(t, loaded.FinishedAt)
}

func TestRepository_GetByIDNotFound(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRepository_Update(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	session := &models.GenerationSession{ID: "s-update", Kind: "segment", Status: models.SessionStatusPending}
	require.NoError(t, repo.Create(ctx, session))

	session.Progress = 100
	session.ResultKind = "segments"
	session.Result = models.RawJSON(`[{"title":"Intro"}]`)
	session.MarkCompleted(time.Now().UTC())
	require.NoError(t, repo.Update(ctx, session))

	loaded, err := repo.GetByID(ctx, "s-update")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCompleted, loaded.Status)
	assert.Equal(t, 100, loaded.Progress)
	assert.Equal(t, "segments", loaded.ResultKind)
	assert.JSONEq(t, `[{"title":"Intro"}]`, string(loaded.Result))
	require.NotNil(t, loaded.FinishedAt)
}

func TestRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		session := &models.GenerationSession{
			ID:        fmt.Sprintf("s-%d", i),
			Kind:      "video",
			Status:    models.SessionStatusPending,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, session))
	}

	tests := []struct {
		name    string
		limit   int
		wantIDs []string
	}{
		{"limited", 2, []string{"s-4", "s-3"}},
		{"unlimited", 0, []string{"s-4", "s-3", "s-2", "s-1", "s-0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions, err := repo.List(ctx, tt.limit)
			require.NoError(t, err)

			ids := make([]string, len(sessions))
			for i, s := range sessions {
				ids[i] = s.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}
