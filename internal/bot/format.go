package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode"

	"routine-coach/internal/coach"
	"routine-coach/internal/model"
	"routine-coach/internal/service"
)

var weekdayNames = []string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

func escape(s string) string {
	return html.EscapeString(s)
}

func categoryIcon(c model.Category) string {
	switch c {
	case model.CategoryWork:
		return "💼"
	case model.CategoryStudy:
		return "🎓"
	case model.CategoryHealth:
		return "🩺"
	case model.CategoryLeisure:
		return "🎮"
	case model.CategoryHome:
		return "🏠"
	case model.CategoryPersonal:
		return "🧩"
	default:
		return "🏷️"
	}
}

func categoryLabel(c model.Category) string {
	return fmt.Sprintf("%s %s", categoryIcon(c), escape(normalizeTitle(string(c))))
}

func parseCategory(text string) (model.Category, bool) {
	value := strings.TrimSpace(strings.ToLower(text))
	for _, c := range model.Categories {
		if value == string(c) || value == strings.ToLower(categoryLabel(c)) {
			return c, true
		}
	}
	return "", false
}

func parseRecurrence(text string) (model.Recurrence, bool) {
	switch strings.TrimSpace(strings.ToLower(text)) {
	case "daily", "every day":
		return model.RecurrenceDaily, true
	case "weekly":
		return model.RecurrenceWeekly, true
	case "one-off", "once", "specific":
		return model.RecurrenceSpecific, true
	}
	return "", false
}

// parseWeekdays reads day names or 0..6 indices separated by spaces or
// commas. "weekdays" and "weekend" are accepted as shortcuts.
func parseWeekdays(text string) (model.Weekdays, error) {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	var days model.Weekdays
	for _, f := range fields {
		switch f {
		case "weekdays":
			days = append(days, 1, 2, 3, 4, 5)
			continue
		case "weekend", "weekends":
			days = append(days, 0, 6)
			continue
		}
		if n, err := strconv.Atoi(f); err == nil && n >= 0 && n <= 6 {
			days = append(days, n)
			continue
		}
		day := -1
		for i, name := range weekdayNames {
			if len(f) >= 3 && strings.HasPrefix(f, name) {
				day = i
				break
			}
		}
		if day < 0 {
			return nil, fmt.Errorf("unknown weekday %q", f)
		}
		days = append(days, day)
	}
	days = days.Normalize()
	if len(days) == 0 {
		return nil, fmt.Errorf("no weekdays in %q", text)
	}
	return days, nil
}

func describeSchedule(t model.Template) string {
	switch t.Recurrence {
	case model.RecurrenceDaily:
		return "every day"
	case model.RecurrenceWeekly:
		names := make([]string, 0, len(t.DaysOfWeek))
		for _, d := range t.DaysOfWeek {
			if d >= 0 && d < len(weekdayNames) {
				names = append(names, normalizeTitle(weekdayNames[d]))
			}
		}
		if len(names) == 0 {
			return "weekly, no days picked"
		}
		return "every " + strings.Join(names, ", ")
	case model.RecurrenceSpecific:
		return "once on " + escape(t.StartDate)
	default:
		return "never"
	}
}

func statusLabel(st model.Status) string {
	switch st {
	case model.StatusDone:
		return "Done ✅"
	case model.StatusPartial:
		return "Partly done 🌓"
	case model.StatusMissed:
		return "Missed ❌"
	default:
		return "Reset ↩️"
	}
}

func formatStats(stats service.Stats) string {
	var sb strings.Builder
	sb.WriteString("📈 <b>Last 7 days</b>\n")
	for _, day := range stats.Week {
		sb.WriteString(fmt.Sprintf("<code>%s %s %3.0f%%</code>\n", day.Weekday.String()[:3], progressBar(day.Percent), day.Percent))
	}
	sb.WriteString(fmt.Sprintf("\n🗂 Habits: %d (%d active)\n", stats.Totals.Templates, stats.Totals.Active))
	sb.WriteString(fmt.Sprintf("📝 Days logged: %d", stats.Totals.Logs))
	return sb.String()
}

func progressBar(percent float64) string {
	const width = 10
	filled := int(percent/100*width + 0.5)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func formatAdjustments(adj coach.Adjustments) string {
	var sb strings.Builder
	sb.WriteString("💡 <b>Routine adjustments</b>\n")
	if len(adj.Suggestions) == 0 {
		sb.WriteString("No suggestions right now.\n")
	}
	for i, s := range adj.Suggestions {
		sb.WriteString(fmt.Sprintf("%d. <b>%s</b>\n   %s\n", i+1, escape(s.Title), escape(s.Description)))
	}
	sb.WriteString(fmt.Sprintf("\n<i>%s</i>", escape(adj.EmpathyQuote)))
	return sb.String()
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	clean = normalizeTitle(clean)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
