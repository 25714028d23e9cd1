package habit

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"routine-coach/internal/model"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidDate      = errors.New("invalid date")
)

type logKey struct {
	taskID string
	date   string
}

// Book holds one user's templates and logs in memory.
// Templates keep insertion order. A Book is not safe for concurrent use;
// callers serialize access (see session.Session).
type Book struct {
	userID    uint
	ids       IDGenerator
	templates []model.Template
	logs      map[logKey]model.Log
}

// NewBook builds a book from stored rows. Templates are ordered by Position.
func NewBook(userID uint, templates []model.Template, logs []model.Log, ids IDGenerator) *Book {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	b := &Book{
		userID:    userID,
		ids:       ids,
		templates: append([]model.Template(nil), templates...),
		logs:      make(map[logKey]model.Log, len(logs)),
	}
	sort.SliceStable(b.templates, func(i, j int) bool {
		return b.templates[i].Position < b.templates[j].Position
	})
	for _, l := range logs {
		b.logs[logKey{l.TaskID, l.Date}] = l
	}
	return b
}

func (b *Book) UserID() uint {
	return b.userID
}

// Templates returns a copy of all templates in insertion order.
func (b *Book) Templates() []model.Template {
	return append([]model.Template(nil), b.templates...)
}

func (b *Book) Template(id string) (model.Template, bool) {
	if i := b.indexOf(id); i >= 0 {
		return b.templates[i], true
	}
	return model.Template{}, false
}

// Logs returns all logs, newest date first.
func (b *Book) Logs() []model.Log {
	out := make([]model.Log, 0, len(b.logs))
	for _, l := range b.logs {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].TaskID < out[j].TaskID
	})
	return out
}

// Log returns the log stored for (taskID, date).
func (b *Book) Log(taskID, date string) (model.Log, bool) {
	l, ok := b.logs[logKey{taskID, date}]
	return l, ok
}

// AddTemplate appends a template, minting an ID when missing.
func (b *Book) AddTemplate(t model.Template) model.Template {
	if strings.TrimSpace(t.ID) == "" {
		t.ID = b.ids.NewID()
	}
	t.UserID = b.userID
	t.Position = 1
	if n := len(b.templates); n > 0 {
		t.Position = b.templates[n-1].Position + 1
	}
	t.DaysOfWeek = t.DaysOfWeek.Normalize()
	b.templates = append(b.templates, t)
	return t
}

// UpdateTemplate edits a template in place.
func (b *Book) UpdateTemplate(id string, edit func(*model.Template)) (model.Template, error) {
	i := b.indexOf(id)
	if i < 0 {
		return model.Template{}, fmt.Errorf("update %s: %w", id, ErrTemplateNotFound)
	}
	t := b.templates[i]
	edit(&t)
	t.ID = id
	t.UserID = b.userID
	t.Position = b.templates[i].Position
	t.DaysOfWeek = t.DaysOfWeek.Normalize()
	b.templates[i] = t
	return t, nil
}

// RemoveTemplate deletes a template. Its logs are kept for history.
func (b *Book) RemoveTemplate(id string) (model.Template, error) {
	i := b.indexOf(id)
	if i < 0 {
		return model.Template{}, fmt.Errorf("remove %s: %w", id, ErrTemplateNotFound)
	}
	removed := b.templates[i]
	b.templates = append(b.templates[:i], b.templates[i+1:]...)
	return removed, nil
}

// SetStatus replaces the log for (taskID, date). StatusTodo clears it.
// The justification is kept only for StatusMissed. It returns the stored
// log, or nil when the pair was cleared.
func (b *Book) SetStatus(taskID, date string, status model.Status, justification string, now time.Time) (*model.Log, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("set status %q: %w", status, ErrInvalidStatus)
	}
	if _, err := ParseDate(date); err != nil {
		return nil, fmt.Errorf("set status: %w", ErrInvalidDate)
	}
	key := logKey{taskID, date}
	delete(b.logs, key)
	if status == model.StatusTodo {
		return nil, nil
	}
	l := model.Log{
		ID:        LogID(taskID, date),
		UserID:    b.userID,
		TaskID:    taskID,
		Date:      date,
		Status:    status,
		CreatedAt: now,
	}
	if status == model.StatusMissed {
		l.Justification = strings.TrimSpace(justification)
	}
	b.logs[key] = l
	return &l, nil
}

// Snapshot copies the book into a storable snapshot.
func (b *Book) Snapshot() model.Snapshot {
	return model.Snapshot{
		Templates: b.Templates(),
		Logs:      b.Logs(),
	}
}

func (b *Book) indexOf(id string) int {
	for i := range b.templates {
		if b.templates[i].ID == id {
			return i
		}
	}
	return -1
}
