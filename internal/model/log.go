package model

import "time"

// Status is the outcome recorded for a template on a date.
type Status string

const (
	StatusTodo    Status = "todo"
	StatusDone    Status = "done"
	StatusPartial Status = "partial"
	StatusMissed  Status = "missed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusDone, StatusPartial, StatusMissed:
		return true
	}
	return false
}

// Successful reports whether s keeps a streak alive.
func (s Status) Successful() bool {
	return s == StatusDone || s == StatusPartial
}

// Log is the recorded outcome for one template on one date.
// TaskID is a weak reference: logs outlive their template.
type Log struct {
	ID            string    `gorm:"primaryKey;size:96" json:"id"`
	UserID        uint      `gorm:"index;uniqueIndex:idx_log_task_date" json:"-"`
	TaskID        string    `gorm:"size:64;uniqueIndex:idx_log_task_date" json:"taskId"`
	Date          string    `gorm:"size:10;uniqueIndex:idx_log_task_date" json:"date"`
	Status        Status    `gorm:"size:16" json:"status"`
	Justification string    `json:"justification,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
