package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"routine-coach/internal/habit"
	"routine-coach/internal/repository"
	"routine-coach/internal/session"
)

const testUser uint = 7

type testClock struct {
	now time.Time
}

func (c *testClock) Clock() Clock {
	return Clock{Now: func() time.Time { return c.now }, Location: time.UTC}
}

func (c *testClock) set(date string) {
	t, err := habit.ParseDate(date)
	if err != nil {
		panic(err)
	}
	c.now = t.Add(9 * time.Hour)
}

type testEnv struct {
	clock    *testClock
	vault    *repository.VaultRepository
	chats    *repository.ChatRepository
	sessions *session.Manager
}

// newTestEnv wires services over an in-memory database with inline writes.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := repository.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	vault := repository.NewVaultRepository(db, 20)
	clock := &testClock{}
	clock.set("2024-01-11")
	return &testEnv{
		clock:    clock,
		vault:    vault,
		chats:    repository.NewChatRepository(db),
		sessions: session.NewManager(vault, session.Options{IDs: habit.NewSequence("t")}),
	}
}

func (e *testEnv) templates() *TemplateService {
	return NewTemplateService(e.sessions, e.clock.Clock())
}

func (e *testEnv) statuses() *StatusService {
	return NewStatusService(e.sessions, e.clock.Clock(), habit.StreakOptions{})
}
