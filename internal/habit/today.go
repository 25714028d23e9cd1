package habit

import "routine-coach/internal/model"

// Task is a template due on a date with its outcome attached.
type Task struct {
	model.Template
	Status        model.Status `json:"status"`
	Justification string       `json:"justification,omitempty"`
	Streak        int          `json:"streak"`
}

// TodayTasks returns the templates due on today in insertion order, each
// with today's status (todo when unlogged) and its current streak.
func TodayTasks(b *Book, today string, opts StreakOptions) []Task {
	var tasks []Task
	for _, t := range b.Templates() {
		if !IsScheduledForDate(t, today) {
			continue
		}
		task := Task{Template: t, Status: model.StatusTodo}
		if l, ok := b.Log(t.ID, today); ok {
			task.Status = l.Status
			task.Justification = l.Justification
		}
		task.Streak = Streak(b, t.ID, today, opts)
		tasks = append(tasks, task)
	}
	return tasks
}
