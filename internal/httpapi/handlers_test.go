package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routine-coach/internal/coach"
	"routine-coach/internal/habit"
	"routine-coach/internal/model"
	"routine-coach/internal/repository"
	"routine-coach/internal/service"
	"routine-coach/internal/session"
)

const testToken = "test-token"

type replyCompleter struct{ reply string }

func (r replyCompleter) Complete(context.Context, coach.Request) (string, error) {
	return r.reply, nil
}

type testAPI struct {
	server *Server
	vault  *repository.VaultRepository
	userID uint
}

func newTestAPI(t *testing.T, completer coach.Completer) *testAPI {
	t.Helper()

	db, err := repository.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	users := repository.NewUserRepository(db)
	user, err := users.UpsertFromTelegram(context.Background(), 100, "Ana", "", "")
	require.NoError(t, err)

	now := time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC)
	clock := service.Clock{Now: func() time.Time { return now }, Location: time.UTC}
	vault := repository.NewVaultRepository(db, 20)
	sessions := session.NewManager(vault, session.Options{IDs: habit.NewSequence("t")})

	server := New(":0", testToken, Services{
		Users:     users,
		Templates: service.NewTemplateService(sessions, clock),
		Statuses:  service.NewStatusService(sessions, clock, habit.StreakOptions{}),
		Coach:     service.NewCoachService(sessions, repository.NewChatRepository(db), coach.New(completer, time.Second), clock, 20),
		Clock:     clock,
	})
	return &testAPI{server: server, vault: vault, userID: user.ID}
}

func (a *testAPI) do(t *testing.T, method, path, body string) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := a.server.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func (a *testAPI) path(suffix string) string {
	return "/api/v1/users/1" + suffix
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, nil)
	status, body := api.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestAPIRequiresToken(t *testing.T) {
	api := newTestAPI(t, nil)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header"},
		{name: "wrong token", header: "Bearer nope"},
		{name: "wrong scheme", header: "Basic " + testToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, api.path("/templates"), nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := api.server.App().Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.JSONEq(t, `{"error":"missing or invalid api token"}`, string(body))
		})
	}
}

func TestAPIWithoutConfiguredToken(t *testing.T) {
	server := New(":0", "", Services{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/1/today", nil)
	req.Header.Set("Authorization", "Bearer ")
	resp, err := server.App().Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = server.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTemplatesAndToday(t *testing.T) {
	api := newTestAPI(t, nil)

	status, body := api.do(t, http.MethodPost, api.path("/templates"), `{"title":"Read","category":"study"}`)
	require.Equal(t, http.StatusCreated, status, body)
	var created model.Template
	require.NoError(t, json.Unmarshal([]byte(body), &created))
	assert.Equal(t, "t1", created.ID)
	assert.Equal(t, model.RecurrenceDaily, created.Recurrence)

	status, body = api.do(t, http.MethodPost, api.path("/templates"), `{"title":"Gym","recurrence":"weekly","daysOfWeek":[0]}`)
	require.Equal(t, http.StatusCreated, status, body)

	status, body = api.do(t, http.MethodGet, api.path("/templates"), "")
	require.Equal(t, http.StatusOK, status)
	var templates []model.Template
	require.NoError(t, json.Unmarshal([]byte(body), &templates))
	assert.Len(t, templates, 2)

	status, body = api.do(t, http.MethodGet, api.path("/today"), "")
	require.Equal(t, http.StatusOK, status)
	var today struct {
		Date  string       `json:"date"`
		Tasks []habit.Task `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &today))
	assert.Equal(t, "2024-01-11", today.Date)
	require.Len(t, today.Tasks, 1)
	assert.Equal(t, "Read", today.Tasks[0].Title)
	assert.Equal(t, model.StatusTodo, today.Tasks[0].Status)
}

func TestUpdateStatus(t *testing.T) {
	api := newTestAPI(t, nil)
	status, _ := api.do(t, http.MethodPost, api.path("/templates"), `{"title":"Read"}`)
	require.Equal(t, http.StatusCreated, status)

	status, body := api.do(t, http.MethodPut, api.path("/tasks/t1/status"), `{"status":"missed","justification":"sick"}`)
	require.Equal(t, http.StatusOK, status, body)
	var saved model.Log
	require.NoError(t, json.Unmarshal([]byte(body), &saved))
	assert.Equal(t, model.StatusMissed, saved.Status)
	assert.Equal(t, "sick", saved.Justification)

	status, _ = api.do(t, http.MethodPut, api.path("/tasks/t1/status"), `{"status":"todo"}`)
	assert.Equal(t, http.StatusNoContent, status)

	snap, err := api.vault.Fetch(context.Background(), api.userID)
	require.NoError(t, err)
	assert.Empty(t, snap.Logs)

	status, _ = api.do(t, http.MethodPut, api.path("/tasks/t1/status"), `{"status":"skipped"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = api.do(t, http.MethodPut, api.path("/tasks/nope/status"), `{"status":"done"}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUpdateAndDeleteTemplate(t *testing.T) {
	api := newTestAPI(t, nil)
	status, _ := api.do(t, http.MethodPost, api.path("/templates"), `{"title":"Read"}`)
	require.Equal(t, http.StatusCreated, status)
	status, _ = api.do(t, http.MethodPut, api.path("/tasks/t1/status"), `{"status":"done"}`)
	require.Equal(t, http.StatusOK, status)

	status, body := api.do(t, http.MethodPatch, api.path("/templates/t1"), `{"title":"Read more","isPaused":true}`)
	require.Equal(t, http.StatusOK, status, body)
	var updated model.Template
	require.NoError(t, json.Unmarshal([]byte(body), &updated))
	assert.Equal(t, "Read more", updated.Title)
	assert.True(t, updated.IsPaused)

	status, _ = api.do(t, http.MethodPatch, api.path("/templates/t1"), `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, status)

	// A rejected field keeps the whole patch out, archive flag included.
	status, _ = api.do(t, http.MethodPatch, api.path("/templates/t1"), `{"isArchived":true,"time":"banana"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	status, body = api.do(t, http.MethodPatch, api.path("/templates/t1"), `{"isArchived":true,"priority":"high"}`)
	require.Equal(t, http.StatusOK, status, body)
	require.NoError(t, json.Unmarshal([]byte(body), &updated))
	assert.True(t, updated.IsArchived)
	assert.Equal(t, model.PriorityHigh, updated.Priority)

	status, body = api.do(t, http.MethodPatch, api.path("/templates/t1"), `{"isArchived":false,"isPaused":false}`)
	require.Equal(t, http.StatusOK, status, body)
	require.NoError(t, json.Unmarshal([]byte(body), &updated))
	assert.False(t, updated.IsArchived)
	assert.False(t, updated.IsPaused)

	status, _ = api.do(t, http.MethodDelete, api.path("/templates/t1"), "")
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = api.do(t, http.MethodDelete, api.path("/templates/t1"), "")
	assert.Equal(t, http.StatusNotFound, status)

	snap, err := api.vault.Fetch(context.Background(), api.userID)
	require.NoError(t, err)
	assert.Empty(t, snap.Templates)
	assert.Len(t, snap.Logs, 1)
}

func TestValidationAndUnknownUser(t *testing.T) {
	api := newTestAPI(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"empty title", http.MethodPost, api.path("/templates"), `{"title":" "}`, http.StatusBadRequest},
		{"bad category", http.MethodPost, api.path("/templates"), `{"title":"x","category":"chores"}`, http.StatusBadRequest},
		{"bad priority and time", http.MethodPost, api.path("/templates"), `{"title":"x","priority":"xyz","time":"banana"}`, http.StatusBadRequest},
		{"bad period", http.MethodPost, api.path("/templates"), `{"title":"x","period":"evening"}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, api.path("/templates"), `{`, http.StatusBadRequest},
		{"bad user id", http.MethodGet, "/api/v1/users/abc/today", "", http.StatusBadRequest},
		{"unknown user", http.MethodGet, "/api/v1/users/99/today", "", http.StatusNotFound},
		{"empty coach message", http.MethodPost, api.path("/coach"), `{"message":""}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := api.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, status, body)
			assert.Contains(t, body, `"error"`)
		})
	}
}

func TestStats(t *testing.T) {
	api := newTestAPI(t, nil)
	api.do(t, http.MethodPost, api.path("/templates"), `{"title":"Read"}`)
	api.do(t, http.MethodPut, api.path("/tasks/t1/status"), `{"status":"done"}`)

	status, body := api.do(t, http.MethodGet, api.path("/stats"), "")
	require.Equal(t, http.StatusOK, status)
	var stats service.Stats
	require.NoError(t, json.Unmarshal([]byte(body), &stats))
	require.Len(t, stats.Week, 7)
	assert.InDelta(t, 100.0, stats.Week[6].Percent, 0.001)
	assert.Equal(t, 1, stats.Totals.Logs)
}

func TestCoach(t *testing.T) {
	api := newTestAPI(t, replyCompleter{reply: "Small steps win."})

	status, body := api.do(t, http.MethodPost, api.path("/coach"), `{"message":"Help me"}`)
	require.Equal(t, http.StatusOK, status, body)
	assert.JSONEq(t, `{"reply":"Small steps win.","fallback":false}`, body)

	status, body = api.do(t, http.MethodGet, api.path("/coach/history"), "")
	require.Equal(t, http.StatusOK, status)
	var history []model.ChatMessage
	require.NoError(t, json.Unmarshal([]byte(body), &history))
	require.Len(t, history, 2)
	assert.Equal(t, "Help me", history[0].Text)
}

func TestCoachFallback(t *testing.T) {
	api := newTestAPI(t, nil)

	status, body := api.do(t, http.MethodPost, api.path("/coach"), `{"message":"Help me"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"fallback":true`)

	status, body = api.do(t, http.MethodGet, api.path("/coach/tips"), "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, coach.FallbackQuote)
}
