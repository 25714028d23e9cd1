package habit

import (
	"strings"

	"routine-coach/internal/model"
)

// SanitizeReport counts rows dropped while loading a snapshot.
type SanitizeReport struct {
	DroppedTemplates int
	DroppedLogs      int
}

func (r SanitizeReport) Empty() bool {
	return r.DroppedTemplates == 0 && r.DroppedLogs == 0
}

// Sanitize drops stored rows that would break the engine: templates without
// or with duplicate ids, logs with an unknown or todo status, without a task
// id, with a malformed date, or duplicating an earlier (task, date) pair.
// Templates with an unknown recurrence are kept; they are never due.
func Sanitize(snap model.Snapshot) (model.Snapshot, SanitizeReport) {
	var report SanitizeReport
	out := model.Snapshot{ChatHistory: snap.ChatHistory}

	seen := make(map[string]bool, len(snap.Templates))
	for _, t := range snap.Templates {
		id := strings.TrimSpace(t.ID)
		if id == "" || seen[id] {
			report.DroppedTemplates++
			continue
		}
		seen[id] = true
		t.DaysOfWeek = t.DaysOfWeek.Normalize()
		out.Templates = append(out.Templates, t)
	}

	pairs := make(map[logKey]bool, len(snap.Logs))
	for _, l := range snap.Logs {
		key := logKey{l.TaskID, l.Date}
		_, dateErr := ParseDate(l.Date)
		switch {
		case strings.TrimSpace(l.TaskID) == "",
			dateErr != nil,
			!l.Status.Valid(),
			l.Status == model.StatusTodo,
			pairs[key]:
			report.DroppedLogs++
			continue
		}
		pairs[key] = true
		if l.Status != model.StatusMissed {
			l.Justification = ""
		}
		out.Logs = append(out.Logs, l)
	}
	return out, report
}
