package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routine-coach/internal/config"
	"routine-coach/internal/model"
	"routine-coach/internal/service"
)

func TestTodayCommand(t *testing.T) {
	ctx := context.Background()
	t.Setenv("DATABASE_URL", filepath.Join(t.TempDir(), "coach.db"))
	t.Setenv("PERSIST_DEBOUNCE_MS", "0")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := config.Load()
	require.NoError(t, err)
	app, err := newApplication(ctx, cfg)
	require.NoError(t, err)

	user, err := app.users.UpsertFromTelegram(ctx, 4242, "Ana", "", "")
	require.NoError(t, err)
	tpl, err := app.templates.CreateTemplate(ctx, user.ID, service.TemplateInput{Title: "Read", Category: model.CategoryStudy})
	require.NoError(t, err)
	_, err = app.statuses.UpdateStatus(ctx, user.ID, tpl.ID, model.StatusDone, "")
	require.NoError(t, err)
	require.NoError(t, app.close(ctx))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"today", "--user", "4242"})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "Ana, ")
	assert.Contains(t, out.String(), "[x] Read")
	assert.Contains(t, out.String(), "streak 1")
}

func TestMarker(t *testing.T) {
	assert.Equal(t, "[x]", marker(model.StatusDone))
	assert.Equal(t, "[~]", marker(model.StatusPartial))
	assert.Equal(t, "[-]", marker(model.StatusMissed))
	assert.Equal(t, "[ ]", marker(model.StatusTodo))
}
