package habit

import "routine-coach/internal/model"

// IsScheduledForDate reports whether the template is due on date (YYYY-MM-DD).
func IsScheduledForDate(t model.Template, date string) bool {
	if !t.Active || t.IsArchived || t.IsPaused {
		return false
	}
	switch t.Recurrence {
	case model.RecurrenceDaily:
		return true
	case model.RecurrenceSpecific:
		return t.StartDate == date
	case model.RecurrenceWeekly:
		wd, err := Weekday(date)
		if err != nil {
			return false
		}
		return t.DaysOfWeek.Contains(int(wd))
	default:
		return false
	}
}

// DueTemplates filters templates due on date, keeping their order.
func DueTemplates(templates []model.Template, date string) []model.Template {
	var due []model.Template
	for _, t := range templates {
		if IsScheduledForDate(t, date) {
			due = append(due, t)
		}
	}
	return due
}
