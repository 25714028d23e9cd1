package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"routine-coach/internal/habit"
	"routine-coach/internal/model"
	"routine-coach/internal/service"
)

const (
	cbStatusPrefix = "st:"
	cbPausePrefix  = "pause:"
	cbResumePrefix = "resume:"
	cbDeletePrefix = "del:"
)

func (b *Bot) handleToday(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	tasks, err := b.svc.Statuses.TodayTasks(ctx, user.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not load today: %s", escape(err.Error())))
	}
	if len(tasks) == 0 {
		return b.sendText(msg.Chat.ID, "Nothing scheduled for today. Add a habit with /new.")
	}
	text, markup := renderToday(tasks)
	return b.sendWithReplyMarkup(msg.Chat.ID, text, markup)
}

func (b *Bot) handleRoutine(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendRoutine(ctx, msg.Chat.ID, user.ID)
}

func (b *Bot) sendRoutine(ctx context.Context, chatID int64, userID uint) error {
	templates, err := b.svc.Templates.ListTemplates(ctx, userID)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load habits: %s", escape(err.Error())))
	}
	var visible []model.Template
	for _, t := range templates {
		if !t.IsArchived {
			visible = append(visible, t)
		}
	}
	if len(visible) == 0 {
		return b.sendText(chatID, "You have no habits yet. Add one with /new.")
	}
	text, markup := renderRoutine(visible)
	return b.sendWithReplyMarkup(chatID, text, markup)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	chatID := cb.Message.Chat.ID
	data := cb.Data

	switch {
	case strings.HasPrefix(data, cbStatusPrefix):
		status, taskID, ok := parseStatusCallback(data)
		if !ok {
			b.ack(cb, "")
			return nil
		}
		log.Printf("[info] callback status user=%d task=%s status=%s", cb.From.ID, taskID, status)
		return b.applyStatus(ctx, cb, status, taskID)
	case strings.HasPrefix(data, cbPausePrefix), strings.HasPrefix(data, cbResumePrefix):
		paused := strings.HasPrefix(data, cbPausePrefix)
		taskID := strings.TrimPrefix(strings.TrimPrefix(data, cbPausePrefix), cbResumePrefix)
		b.ack(cb, "")
		user, err := b.ensureUser(ctx, cb.From)
		if err != nil {
			return err
		}
		if _, err := b.svc.Templates.SetPaused(ctx, user.ID, taskID, paused); err != nil {
			if errors.Is(err, service.ErrTemplateNotFound) {
				return b.sendText(chatID, "Habit not found.")
			}
			return err
		}
		return b.sendRoutine(ctx, chatID, user.ID)
	case strings.HasPrefix(data, cbDeletePrefix):
		b.ack(cb, "")
		return b.askDeleteConfirmation(ctx, chatID, cb.From, strings.TrimPrefix(data, cbDeletePrefix))
	default:
		b.ack(cb, "")
		return nil
	}
}

func (b *Bot) applyStatus(ctx context.Context, cb *tgbotapi.CallbackQuery, status model.Status, taskID string) error {
	user, err := b.ensureUser(ctx, cb.From)
	if err != nil {
		b.ack(cb, "")
		return err
	}

	if _, err := b.svc.Statuses.UpdateStatus(ctx, user.ID, taskID, status, ""); err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			b.ack(cb, "Habit not found")
			return nil
		}
		b.ack(cb, "Could not save")
		return err
	}
	b.ack(cb, statusLabel(status))

	tasks, err := b.svc.Statuses.TodayTasks(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(tasks) > 0 {
		text, markup := renderToday(tasks)
		edit := tgbotapi.NewEditMessageTextAndMarkup(cb.Message.Chat.ID, cb.Message.MessageID, text, markup)
		edit.ParseMode = tgbotapi.ModeHTML
		if _, err := b.api.Send(edit); err != nil {
			log.Printf("[warn] refresh today message: %v", err)
		}
	}

	if status == model.StatusMissed {
		title := taskID
		for _, t := range tasks {
			if t.ID == taskID {
				title = t.Title
			}
		}
		return b.askJustification(cb.Message.Chat.ID, cb.From, taskID, title)
	}
	return nil
}

func renderToday(tasks []habit.Task) (string, tgbotapi.InlineKeyboardMarkup) {
	var builder strings.Builder
	builder.WriteString("📅 <b>Today</b>\n")
	builder.WriteString("Tap a button to record how it went.\n\n")

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tasks))
	for _, task := range tasks {
		builder.WriteString(service.FormatTask(task))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ "+shortTitle(task.Title, 16), statusCallback(model.StatusDone, task.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🌓", statusCallback(model.StatusPartial, task.ID)),
			tgbotapi.NewInlineKeyboardButtonData("❌", statusCallback(model.StatusMissed, task.ID)),
			tgbotapi.NewInlineKeyboardButtonData("↩️", statusCallback(model.StatusTodo, task.ID)),
		))
	}
	return strings.TrimSpace(builder.String()), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func renderRoutine(templates []model.Template) (string, tgbotapi.InlineKeyboardMarkup) {
	var builder strings.Builder
	builder.WriteString("🗂 <b>Your routine</b>\n\n")

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(templates))
	for _, t := range templates {
		icon := "▶️"
		toggle := tgbotapi.NewInlineKeyboardButtonData("⏸ "+shortTitle(t.Title, 16), cbPausePrefix+t.ID)
		if t.IsPaused || !t.Active {
			icon = "⏸"
			toggle = tgbotapi.NewInlineKeyboardButtonData("▶️ "+shortTitle(t.Title, 16), cbResumePrefix+t.ID)
		}
		builder.WriteString(fmt.Sprintf("%s <b>%s</b> %s\n", icon, escape(normalizeTitle(t.Title)), categoryLabel(t.Category)))
		builder.WriteString(fmt.Sprintf("   🔁 %s", describeSchedule(t)))
		if t.Time != "" {
			builder.WriteString(fmt.Sprintf(" · ⏰ %s", escape(t.Time)))
		}
		builder.WriteString(fmt.Sprintf("\n   🆔 <code>%s</code>\n", escape(t.ID)))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			toggle,
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeletePrefix+t.ID),
		))
	}
	return strings.TrimSpace(builder.String()), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func statusCallback(status model.Status, taskID string) string {
	return cbStatusPrefix + string(status) + ":" + taskID
}

func parseStatusCallback(data string) (model.Status, string, bool) {
	raw, ok := strings.CutPrefix(data, cbStatusPrefix)
	if !ok {
		return "", "", false
	}
	status, taskID, ok := strings.Cut(raw, ":")
	if !ok || taskID == "" || !model.Status(status).Valid() {
		return "", "", false
	}
	return model.Status(status), taskID, true
}
