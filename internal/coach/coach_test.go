package coach

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routine-coach/internal/model"
)

type fakeCompleter struct {
	reply string
	err   error
	block bool
	got   []Request
}

func (f *fakeCompleter) Complete(ctx context.Context, req Request) (string, error) {
	f.got = append(f.got, req)
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

var (
	templates = []model.Template{
		{ID: "a", Title: "Read", Active: true},
		{ID: "b", Title: "Gym", Active: true, IsArchived: true},
		{ID: "c", Title: "Stretch", Active: false},
	}
	logs = []model.Log{
		{TaskID: "a", Date: "2024-01-10", Status: model.StatusDone},
		{TaskID: "gone", Date: "2024-01-09", Status: model.StatusMissed},
	}
)

func TestBuildContext(t *testing.T) {
	got := BuildContext(templates, logs)
	assert.Contains(t, got, "- Active routines: Read\n")
	assert.Contains(t, got, "2024-01-10: Read -> done; 2024-01-09: Unknown -> missed")
}

func TestBuildContext_LimitsRecentLogs(t *testing.T) {
	many := make([]model.Log, 0, 20)
	for i := 0; i < 20; i++ {
		many = append(many, model.Log{TaskID: "a", Date: "2024-01-10", Status: model.StatusDone})
	}
	got := BuildContext(templates, many)
	assert.Equal(t, recentLogsInContext, strings.Count(got, "-> done"))
}

func TestReply_PassesHistoryAndContext(t *testing.T) {
	fake := &fakeCompleter{reply: "  Try five minutes.  "}
	c := New(fake, time.Second)
	history := []model.ChatMessage{{Role: model.RoleUser, Text: "hi"}, {Role: model.RoleModel, Text: "hello"}}

	reply := c.Reply(context.Background(), Input{Message: "I skipped reading", History: history, Templates: templates, Logs: logs})
	assert.Equal(t, Reply{Text: "Try five minutes."}, reply)

	require.Len(t, fake.got, 1)
	assert.Equal(t, "I skipped reading", fake.got[0].Message)
	assert.Len(t, fake.got[0].History, 2)
	assert.Contains(t, fake.got[0].System, "Active routines: Read")
}

func TestReply_Fallbacks(t *testing.T) {
	tests := []struct {
		name  string
		coach *Coach
	}{
		{"error", New(&fakeCompleter{err: errors.New("quota")}, time.Second)},
		{"empty", New(&fakeCompleter{reply: "   "}, time.Second)},
		{"timeout", New(&fakeCompleter{block: true}, 10*time.Millisecond)},
		{"disabled", New(nil, time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := tt.coach.Reply(context.Background(), Input{Message: "hey"})
			assert.True(t, reply.Fallback)
			assert.Equal(t, FallbackReply, reply.Text)
		})
	}
}

func TestAdjustments(t *testing.T) {
	fake := &fakeCompleter{reply: "```json\n{\"suggestions\":[{\"title\":\"Shrink\",\"description\":\"Read 5 pages\"}],\"empathyQuote\":\"Small wins.\"}\n```"}
	adj := New(fake, time.Second).Adjustments(context.Background(), templates, logs)

	assert.False(t, adj.Fallback)
	require.Len(t, adj.Suggestions, 1)
	assert.Equal(t, "Shrink", adj.Suggestions[0].Title)
	assert.Equal(t, "Small wins.", adj.EmpathyQuote)

	require.Len(t, fake.got, 1)
	assert.True(t, fake.got[0].JSON)
	assert.Contains(t, fake.got[0].Message, `"task":"Unknown"`)
}

func TestAdjustments_BadJSON(t *testing.T) {
	adj := New(&fakeCompleter{reply: "not json"}, time.Second).Adjustments(context.Background(), templates, logs)
	assert.True(t, adj.Fallback)
	assert.Empty(t, adj.Suggestions)
	assert.Equal(t, FallbackQuote, adj.EmpathyQuote)
}

func TestParseAdjustments_DefaultsQuote(t *testing.T) {
	adj, err := ParseAdjustments(`{"suggestions":[]}`)
	require.NoError(t, err)
	assert.Equal(t, FallbackQuote, adj.EmpathyQuote)
}
