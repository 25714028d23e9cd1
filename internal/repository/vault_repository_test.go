package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"routine-coach/internal/model"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestVaultRepository_FetchUnknownUser(t *testing.T) {
	repo := NewVaultRepository(setupTestDB(t), 10)

	snap, err := repo.Fetch(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, snap.Templates)
	assert.Empty(t, snap.Logs)
	assert.Empty(t, snap.ChatHistory)
}

func TestVaultRepository_SaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewVaultRepository(setupTestDB(t), 10)

	snap := model.Snapshot{
		Templates: []model.Template{
			{ID: "b", Position: 2, Title: "Gym", Active: true, Recurrence: model.RecurrenceWeekly, DaysOfWeek: model.Weekdays{1, 3, 5}},
			{ID: "a", Position: 1, Title: "Read", Active: false, Recurrence: model.RecurrenceDaily},
		},
		Logs: []model.Log{
			{ID: "a@2024-01-10", TaskID: "a", Date: "2024-01-10", Status: model.StatusDone},
			{ID: "b@2024-01-08", TaskID: "b", Date: "2024-01-08", Status: model.StatusMissed, Justification: "rain"},
		},
	}
	require.NoError(t, repo.Save(ctx, 1, snap))

	got, err := repo.Fetch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got.Templates, 2)
	assert.Equal(t, "a", got.Templates[0].ID)
	assert.False(t, got.Templates[0].Active)
	assert.Equal(t, model.Weekdays{1, 3, 5}, got.Templates[1].DaysOfWeek)
	assert.Equal(t, uint(1), got.Templates[1].UserID)

	require.Len(t, got.Logs, 2)
	assert.Equal(t, "2024-01-10", got.Logs[0].Date)
	assert.Equal(t, "rain", got.Logs[1].Justification)
}

func TestVaultRepository_SaveReplacesRows(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewVaultRepository(db, 10)

	require.NoError(t, repo.Save(ctx, 1, model.Snapshot{
		Templates: []model.Template{{ID: "a", Title: "Read"}, {ID: "b", Title: "Gym"}},
		Logs:      []model.Log{{ID: "a@2024-01-10", TaskID: "a", Date: "2024-01-10", Status: model.StatusDone}},
	}))
	require.NoError(t, repo.Save(ctx, 2, model.Snapshot{
		Templates: []model.Template{{ID: "z", Title: "Other user"}},
	}))

	// Template b is deleted, a is renamed, the log is replaced in place.
	require.NoError(t, repo.Save(ctx, 1, model.Snapshot{
		Templates: []model.Template{{ID: "a", Title: "Read more"}},
		Logs:      []model.Log{{ID: "a@2024-01-10", TaskID: "a", Date: "2024-01-10", Status: model.StatusPartial}},
	}))

	got, err := repo.Fetch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got.Templates, 1)
	assert.Equal(t, "Read more", got.Templates[0].Title)
	require.Len(t, got.Logs, 1)
	assert.Equal(t, model.StatusPartial, got.Logs[0].Status)

	other, err := repo.Fetch(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, other.Templates, 1)

	require.NoError(t, repo.Save(ctx, 1, model.Snapshot{}))
	got, err = repo.Fetch(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, got.Templates)
	assert.Empty(t, got.Logs)
}

func yearOfLogs(habits int) model.Snapshot {
	var snap model.Snapshot
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for h := 0; h < habits; h++ {
		id := fmt.Sprintf("habit-%02d", h)
		snap.Templates = append(snap.Templates, model.Template{ID: id, Position: h, Title: id, Active: true, Recurrence: model.RecurrenceDaily})
		for d := 0; d < 365; d++ {
			date := start.AddDate(0, 0, d).Format("2006-01-02")
			snap.Logs = append(snap.Logs, model.Log{ID: id + "@" + date, TaskID: id, Date: date, Status: model.StatusDone})
		}
	}
	return snap
}

func TestVaultRepository_SaveLargeHistory(t *testing.T) {
	ctx := context.Background()
	repo := NewVaultRepository(setupTestDB(t), 10)

	snap := yearOfLogs(14)
	require.Len(t, snap.Logs, 5110)
	require.NoError(t, repo.Save(ctx, 1, snap))

	got, err := repo.Fetch(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got.Templates, 14)
	assert.Len(t, got.Logs, 5110)

	// Saving again drops half of the history in several delete chunks.
	half := yearOfLogs(7)
	require.NoError(t, repo.Save(ctx, 1, half))

	got, err = repo.Fetch(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got.Templates, 7)
	assert.Len(t, got.Logs, 2555)
}

func TestVaultRepository_FetchIncludesRecentChat(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	chats := NewChatRepository(db)
	base := time.Date(2024, 1, 11, 8, 0, 0, 0, time.UTC)
	for i, text := range []string{"one", "two", "three"} {
		require.NoError(t, chats.Append(ctx, &model.ChatMessage{UserID: 1, Role: model.RoleUser, Text: text, CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	snap, err := NewVaultRepository(db, 2).Fetch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, snap.ChatHistory, 2)
	assert.Equal(t, "two", snap.ChatHistory[0].Text)
	assert.Equal(t, "three", snap.ChatHistory[1].Text)

	require.NoError(t, chats.Clear(ctx, 1))
	msgs, err := chats.Recent(ctx, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestUserRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupTestDB(t))

	created, err := repo.UpsertFromTelegram(ctx, 100, "Ana", "", "ana")
	require.NoError(t, err)

	updated, err := repo.UpsertFromTelegram(ctx, 100, "Ana Maria", "Silva", "ana")
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	found, err := repo.FindByTelegramID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", found.FirstName)

	_, err = repo.FindByID(ctx, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)

	users, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
