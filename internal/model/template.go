package model

import "time"

// Recurrence controls on which dates a template is due.
type Recurrence string

const (
	RecurrenceDaily    Recurrence = "daily"
	RecurrenceWeekly   Recurrence = "weekly"
	RecurrenceSpecific Recurrence = "specific"
)

// Valid reports whether r is one of the known recurrences.
func (r Recurrence) Valid() bool {
	switch r {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceSpecific:
		return true
	}
	return false
}

// Category groups templates by life area.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryStudy    Category = "study"
	CategoryHealth   Category = "health"
	CategoryLeisure  Category = "leisure"
	CategoryHome     Category = "home"
	CategoryPersonal Category = "personal"
)

// Categories lists the supported categories in display order.
var Categories = []Category{
	CategoryWork,
	CategoryStudy,
	CategoryHealth,
	CategoryLeisure,
	CategoryHome,
	CategoryPersonal,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Period is the part of the day a template is meant for.
type Period string

const (
	PeriodMorning    Period = "morning"
	PeriodDay        Period = "day"
	PeriodNight      Period = "night"
	PeriodContinuous Period = "continuous"
)

func (p Period) Valid() bool {
	switch p {
	case PeriodMorning, PeriodDay, PeriodNight, PeriodContinuous:
		return true
	}
	return false
}

// Template is a recurring or one-off commitment owned by a user.
type Template struct {
	ID         string     `gorm:"primaryKey;size:64" json:"id"`
	UserID     uint       `gorm:"index" json:"-"`
	Position   int        `json:"-"`
	Title      string     `json:"title"`
	Category   Category   `gorm:"size:32" json:"category"`
	Priority   Priority   `gorm:"size:16" json:"priority"`
	Recurrence Recurrence `gorm:"size:16" json:"recurrence"`
	DaysOfWeek Weekdays   `gorm:"type:text" json:"daysOfWeek,omitempty"`
	StartDate  string     `gorm:"size:10" json:"startDate"`
	Active     bool       `json:"active"`
	IsPaused   bool       `json:"isPaused"`
	IsArchived bool       `json:"isArchived"`
	Time       string     `gorm:"size:5" json:"time,omitempty"`
	Period     Period     `gorm:"size:16" json:"period,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}
