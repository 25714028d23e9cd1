package habit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routine-coach/internal/model"
)

var fixedNow = time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC)

func newTestBook(templates ...model.Template) *Book {
	b := NewBook(7, nil, nil, NewSequence("t"))
	for _, t := range templates {
		b.AddTemplate(t)
	}
	return b
}

func countLogs(b *Book, taskID, date string) int {
	n := 0
	for _, l := range b.Logs() {
		if l.TaskID == taskID && l.Date == date {
			n++
		}
	}
	return n
}

func TestBook_AddTemplateMintsIDsInOrder(t *testing.T) {
	b := newTestBook(
		model.Template{Title: "Read", Active: true, Recurrence: model.RecurrenceDaily},
		model.Template{Title: "Run", Active: true, Recurrence: model.RecurrenceDaily},
	)

	templates := b.Templates()
	require.Len(t, templates, 2)
	assert.Equal(t, "t1", templates[0].ID)
	assert.Equal(t, "t2", templates[1].ID)
	assert.Less(t, templates[0].Position, templates[1].Position)
	assert.Equal(t, uint(7), templates[0].UserID)
}

func TestBook_SetStatusKeepsAtMostOneLog(t *testing.T) {
	b := newTestBook(model.Template{Active: true, Recurrence: model.RecurrenceDaily})
	sequence := []model.Status{
		model.StatusDone, model.StatusDone, model.StatusMissed, model.StatusTodo,
		model.StatusPartial, model.StatusTodo, model.StatusTodo, model.StatusMissed,
	}
	for _, s := range sequence {
		_, err := b.SetStatus("t1", "2024-01-11", s, "tired", fixedNow)
		require.NoError(t, err)
		assert.LessOrEqual(t, countLogs(b, "t1", "2024-01-11"), 1)
	}
	assert.Equal(t, 1, countLogs(b, "t1", "2024-01-11"))
}

func TestBook_TodoClearsLog(t *testing.T) {
	b := newTestBook(model.Template{Active: true, Recurrence: model.RecurrenceDaily})
	_, err := b.SetStatus("t1", "2024-01-11", model.StatusDone, "", fixedNow)
	require.NoError(t, err)

	stored, err := b.SetStatus("t1", "2024-01-11", model.StatusTodo, "", fixedNow)
	require.NoError(t, err)
	assert.Nil(t, stored)

	_, ok := b.Log("t1", "2024-01-11")
	assert.False(t, ok)

	tasks := TodayTasks(b, "2024-01-11", StreakOptions{})
	require.Len(t, tasks, 1)
	assert.Equal(t, model.StatusTodo, tasks[0].Status)
}

func TestBook_JustificationOnlyForMissed(t *testing.T) {
	b := newTestBook(model.Template{Active: true, Recurrence: model.RecurrenceDaily})

	l, err := b.SetStatus("t1", "2024-01-11", model.StatusDone, "ignored", fixedNow)
	require.NoError(t, err)
	assert.Empty(t, l.Justification)

	l, err = b.SetStatus("t1", "2024-01-11", model.StatusMissed, "  sick  ", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "sick", l.Justification)

	// Reapplying the same status fully replaces the log.
	l, err = b.SetStatus("t1", "2024-01-11", model.StatusMissed, "", fixedNow)
	require.NoError(t, err)
	assert.Empty(t, l.Justification)
	assert.Equal(t, "t1@2024-01-11", l.ID)
}

func TestBook_SetStatusRejectsBadInput(t *testing.T) {
	b := newTestBook()
	_, err := b.SetStatus("t1", "2024-01-11", "skipped", "", fixedNow)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = b.SetStatus("t1", "11/01/2024", model.StatusDone, "", fixedNow)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestBook_RemoveTemplateKeepsLogs(t *testing.T) {
	b := newTestBook(model.Template{Active: true, Recurrence: model.RecurrenceDaily})
	_, err := b.SetStatus("t1", "2024-01-10", model.StatusDone, "", fixedNow)
	require.NoError(t, err)

	_, err = b.RemoveTemplate("t1")
	require.NoError(t, err)

	_, ok := b.Template("t1")
	assert.False(t, ok)
	_, ok = b.Log("t1", "2024-01-10")
	assert.True(t, ok)

	_, err = b.RemoveTemplate("t1")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestBook_UpdateTemplateKeepsIdentity(t *testing.T) {
	b := newTestBook(
		model.Template{Title: "Read", Active: true, Recurrence: model.RecurrenceDaily},
		model.Template{Title: "Run", Active: true, Recurrence: model.RecurrenceDaily},
	)

	updated, err := b.UpdateTemplate("t1", func(t *model.Template) {
		t.ID = "hijack"
		t.Title = "Read 20 pages"
		t.Recurrence = model.RecurrenceWeekly
		t.DaysOfWeek = model.Weekdays{5, 1, 1, 9}
	})
	require.NoError(t, err)
	assert.Equal(t, "t1", updated.ID)
	assert.Equal(t, model.Weekdays{1, 5}, updated.DaysOfWeek)
	assert.Equal(t, "t1", b.Templates()[0].ID)

	_, err = b.UpdateTemplate("missing", func(*model.Template) {})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestNewBook_OrdersByPosition(t *testing.T) {
	b := NewBook(1, []model.Template{
		{ID: "b", Position: 2},
		{ID: "a", Position: 1},
	}, nil, nil)
	templates := b.Templates()
	assert.Equal(t, "a", templates[0].ID)
	assert.Equal(t, "b", templates[1].ID)

	added := b.AddTemplate(model.Template{})
	assert.Equal(t, 3, added.Position)
	assert.NotEmpty(t, added.ID)
}
