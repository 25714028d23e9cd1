package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"routine-coach/internal/habit"
	"routine-coach/internal/model"
	"routine-coach/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageCategory
	stageRecurrence
	stageWeekdays
	stageDate
	stageTime
)

type conversationState struct {
	stage conversationStage
	input service.TemplateInput
}

type confirmationRequest struct {
	taskID string
	title  string
}

// pendingJustification waits for the note of a missed habit.
type pendingJustification struct {
	taskID string
	title  string
}

func (b *Bot) startNewTemplateConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	log.Printf("[info] start new template conversation user=%d", msg.From.ID)
	b.resetDialogs(msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New habit.\n<b>Step 1:</b> what should it be called?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The name can't be empty.", cancelKeyboard())
		}
		state.input.Title = text
		state.stage = stageCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "🏷 <b>Step 2:</b> pick a category.", categoryKeyboard())
	case stageCategory:
		category, ok := parseCategory(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Pick one of the categories below.", categoryKeyboard())
		}
		state.input.Category = category
		state.stage = stageRecurrence
		return b.sendWithReplyMarkup(msg.Chat.ID, "🔁 <b>Step 3:</b> how often?", recurrenceKeyboard())
	case stageRecurrence:
		recurrence, ok := parseRecurrence(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Choose daily, weekly or one-off.", recurrenceKeyboard())
		}
		state.input.Recurrence = recurrence
		switch recurrence {
		case model.RecurrenceWeekly:
			state.stage = stageWeekdays
			return b.sendWithReplyMarkup(msg.Chat.ID, "📆 Which days? For example <code>mon wed fri</code>.", cancelKeyboard())
		case model.RecurrenceSpecific:
			state.stage = stageDate
			return b.sendWithReplyMarkup(msg.Chat.ID, "📆 Which date? Use <code>2025-11-30</code>.", cancelKeyboard())
		}
		state.stage = stageTime
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏰ At what time? Use <code>07:30</code> or skip.", skipKeyboard())
	case stageWeekdays:
		days, err := parseWeekdays(text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "I couldn't read the days. Try <code>mon wed fri</code>.", cancelKeyboard())
		}
		state.input.DaysOfWeek = days
		state.stage = stageTime
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏰ At what time? Use <code>07:30</code> or skip.", skipKeyboard())
	case stageDate:
		if _, err := habit.ParseDate(text); err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Use the <code>2025-11-30</code> format.", cancelKeyboard())
		}
		state.input.StartDate = text
		state.stage = stageTime
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏰ At what time? Use <code>07:30</code> or skip.", skipKeyboard())
	case stageTime:
		if !isSkipInput(text) {
			if _, err := time.Parse("15:04", text); err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Use the <code>07:30</code> format or skip.", skipKeyboard())
			}
			state.input.Time = text
		}
		err := b.finishTemplateCreation(ctx, msg.From, state.input, msg.Chat.ID)
		b.clearConversation(msg.From.ID)
		return err
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "The dialog was reset. Start again with /new.")
	}
}

func (b *Bot) finishTemplateCreation(ctx context.Context, from *tgbotapi.User, input service.TemplateInput, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	tpl, err := b.svc.Templates.CreateTemplate(ctx, user.ID, input)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not save the habit: %s", escape(err.Error())))
	}

	log.Printf("[info] template created id=%s user=%d recurrence=%s", tpl.ID, user.ID, tpl.Recurrence)

	var summary strings.Builder
	summary.WriteString("✅ <b>Habit saved</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>Name:</b> %s\n", escape(normalizeTitle(tpl.Title))))
	summary.WriteString(fmt.Sprintf("• <b>Category:</b> %s\n", categoryLabel(tpl.Category)))
	summary.WriteString(fmt.Sprintf("• <b>Schedule:</b> %s\n", describeSchedule(tpl)))
	if tpl.Time != "" {
		summary.WriteString(fmt.Sprintf("• <b>Time:</b> %s\n", escape(tpl.Time)))
	}
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> <code>%s</code>", escape(tpl.ID)))
	return b.sendText(chatID, summary.String())
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	id := strings.TrimSpace(msg.CommandArguments())
	if id == "" {
		return b.sendText(msg.Chat.ID, "Give the habit ID: /delete &lt;id&gt;. IDs are shown in /routine.")
	}
	return b.askDeleteConfirmation(ctx, msg.Chat.ID, msg.From, id)
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, taskID string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	tpl, err := b.svc.Templates.GetTemplate(ctx, user.ID, taskID)
	if err != nil {
		if errors.Is(err, service.ErrTemplateNotFound) {
			return b.sendText(chatID, "Habit not found.")
		}
		return err
	}

	b.setConfirmation(from.ID, confirmationRequest{taskID: tpl.ID, title: tpl.Title})
	text := fmt.Sprintf("Delete «%s»? Its history stays in your stats.", escape(normalizeTitle(tpl.Title)))
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		user, err := b.ensureUser(ctx, msg.From)
		if err != nil {
			return err
		}
		if _, err := b.svc.Templates.DeleteTemplate(ctx, user.ID, req.taskID); err != nil {
			if errors.Is(err, service.ErrTemplateNotFound) {
				return b.sendText(msg.Chat.ID, "Habit not found or already deleted.")
			}
			return b.sendText(msg.Chat.ID, fmt.Sprintf("Error: %s", escape(err.Error())))
		}
		log.Printf("[info] template deleted id=%s user=%d", req.taskID, user.ID)
		return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 «%s» deleted.", escape(normalizeTitle(req.title))))
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Kept it.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Confirm or cancel the deletion.", confirmKeyboard())
	}
}

func (b *Bot) askJustification(chatID int64, from *tgbotapi.User, taskID, title string) error {
	b.setJustification(from.ID, pendingJustification{taskID: taskID, title: title})
	text := fmt.Sprintf("❌ «%s» marked as missed. What got in the way? Send a short note or skip.", escape(normalizeTitle(title)))
	return b.sendWithReplyMarkup(chatID, text, skipKeyboard())
}

func (b *Bot) handleJustification(ctx context.Context, msg *tgbotapi.Message, pending pendingJustification) error {
	b.clearJustification(msg.From.ID)
	text := strings.TrimSpace(msg.Text)
	if isSkipInput(text) {
		return b.sendText(msg.Chat.ID, "No worries, tomorrow is a new day.")
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if _, err := b.svc.Statuses.UpdateStatus(ctx, user.ID, pending.taskID, model.StatusMissed, text); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not save the note: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, "📝 Noted. Thanks for being honest with yourself.")
}

func (b *Bot) resetDialogs(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
	delete(b.confirmations, userID)
	delete(b.justifications, userID)
}

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) getJustification(userID int64) (pendingJustification, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.justifications[userID]
	return p, ok
}

func (b *Bot) setJustification(userID int64, p pendingJustification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.justifications[userID] = p
}

func (b *Bot) clearJustification(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.justifications, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}
