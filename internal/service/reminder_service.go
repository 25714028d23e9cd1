package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"routine-coach/internal/habit"
	"routine-coach/internal/model"
	"routine-coach/internal/session"
)

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	sessions *session.Manager
	streak   habit.StreakOptions
}

func NewReminderService(sessions *session.Manager, streak habit.StreakOptions) *ReminderService {
	return &ReminderService{sessions: sessions, streak: streak}
}

// DailySummary renders the user's plan for the day of now as Telegram HTML.
func (s *ReminderService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	today := habit.DateOf(now)

	var tasks []habit.Task
	var week []habit.DayStat
	err := s.sessions.View(ctx, user.ID, func(b *habit.Book) error {
		tasks = habit.TodayTasks(b, today, s.streak)
		week = habit.WeeklySuccess(b, habit.DateOf(now.AddDate(0, 0, -1)))
		return nil
	})
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>Daily report for %s</b>\n", html.EscapeString(user.DisplayName())))
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("Monday, 02 Jan 2006")))

	builder.WriteString("🔥 <b>Today</b>\n")
	if len(tasks) == 0 {
		builder.WriteString("— nothing scheduled, enjoy the day\n")
	} else {
		pending := 0
		for _, task := range tasks {
			builder.WriteString(FormatTask(task))
			if task.Status == model.StatusTodo {
				pending++
			}
		}
		builder.WriteString(fmt.Sprintf("\n%d of %d still open\n", pending, len(tasks)))
	}

	if line := formatWeek(week); line != "" {
		builder.WriteString("\n📈 <b>Last 7 days</b>\n")
		builder.WriteString(line)
	}

	return strings.TrimSpace(builder.String()), nil
}

// StatusIcon is the marker shown next to a task with status st.
func StatusIcon(st model.Status) string {
	switch st {
	case model.StatusDone:
		return "✅"
	case model.StatusPartial:
		return "🌓"
	case model.StatusMissed:
		return "❌"
	default:
		return "⬜"
	}
}

// FormatTask renders one line of today's list as Telegram HTML.
func FormatTask(task habit.Task) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s %s", StatusIcon(task.Status), html.EscapeString(strings.TrimSpace(task.Title))))
	sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(string(task.Category))))
	if task.Time != "" {
		sb.WriteString(fmt.Sprintf(" ⏰ %s", html.EscapeString(task.Time)))
	}
	if task.Streak > 0 {
		sb.WriteString(fmt.Sprintf(" 🔥%d", task.Streak))
	}
	if task.Justification != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(task.Justification)))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func formatWeek(week []habit.DayStat) string {
	var sb strings.Builder
	logged := false
	for _, day := range week {
		if day.Logged > 0 {
			logged = true
		}
		sb.WriteString(fmt.Sprintf("%s %3.0f%%\n", day.Weekday.String()[:3], day.Percent))
	}
	if !logged {
		return ""
	}
	return sb.String()
}
