package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"routine-coach/internal/model"
	"routine-coach/internal/repository"
	"routine-coach/internal/service"
)

// reportWorkers caps concurrent sends of the daily report.
const reportWorkers = 8

// telegramAPI is the part of the Bot API client the bot uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Services are the dependencies the bot calls into.
type Services struct {
	Users     *repository.UserRepository
	Templates *service.TemplateService
	Statuses  *service.StatusService
	Coach     *service.CoachService
	Reminders *service.ReminderService
	Clock     service.Clock
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api telegramAPI
	svc Services

	mu             sync.Mutex
	conversations  map[int64]*conversationState
	confirmations  map[int64]confirmationRequest
	justifications map[int64]pendingJustification
}

func New(token string, svc Services) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)
	return newBot(api, svc), nil
}

func newBot(api telegramAPI, svc Services) *Bot {
	return &Bot{
		api:            api,
		svc:            svc,
		conversations:  make(map[int64]*conversationState),
		confirmations:  make(map[int64]confirmationRequest),
		justifications: make(map[int64]pendingJustification),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.HandleUpdate(ctx, update)
	}

	return nil
}

// HandleUpdate routes one update to its handler.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
			log.Printf("[warn] handle callback: %v", err)
		}
	case update.Message != nil:
		if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			return
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			log.Printf("[warn] handle message: %v", err)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.resetDialogs(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getJustification(msg.From.ID); ok {
		return b.handleJustification(ctx, msg, pending)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	return b.sendText(msg.Chat.ID, "I didn't get that. Try /today, /new or /help.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "today":
		return b.handleToday(ctx, msg)
	case "new":
		return b.startNewTemplateConversation(ctx, msg)
	case "routine":
		return b.handleRoutine(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "stats":
		return b.handleStats(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "coach":
		return b.handleCoach(ctx, msg)
	case "tips":
		return b.handleTips(ctx, msg)
	case "forget":
		return b.handleForget(ctx, msg)
	case "cancel":
		b.resetDialogs(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

const helpText = "• /today — today's habits with status buttons\n" +
	"• /new — add a habit step by step\n" +
	"• /routine — all habits, pause or delete them\n" +
	"• /delete &lt;id&gt; — delete a habit (its history is kept)\n" +
	"• /stats — success of the last 7 days\n" +
	"• /report — the daily report right now\n" +
	"• /coach &lt;message&gt; — talk to your coach\n" +
	"• /tips — routine adjustments from the coach\n" +
	"• /forget — clear the coach conversation\n" +
	"• /cancel — cancel the current input"

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I track your daily habits and keep your streaks alive.</b>\n\nCommands:\n%s",
		escape(user.DisplayName()), helpText,
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Help</b>\n"+helpText)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.svc.Reminders.DailySummary(ctx, *user, b.svc.Clock.Current())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not build the report: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	stats, err := b.svc.Statuses.Stats(ctx, user.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not load stats: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, formatStats(stats))
}

func (b *Bot) handleCoach(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		return b.sendText(msg.Chat.ID, "Tell me what's on your mind: /coach I keep skipping the gym")
	}

	b.typing(msg.Chat.ID)
	reply, err := b.svc.Coach.Ask(ctx, user.ID, text)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Coach error: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, "💬 "+escape(reply.Text))
}

func (b *Bot) handleTips(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	b.typing(msg.Chat.ID)
	adj, err := b.svc.Coach.Tips(ctx, user.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Coach error: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, formatAdjustments(adj))
}

func (b *Bot) handleForget(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if err := b.svc.Coach.ResetHistory(ctx, user.ID); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not clear the conversation: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, "🧹 Coach conversation cleared.")
}

// SendDailyReports sends a summary to every known user.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.svc.Users.ListAll(ctx)
	if err != nil {
		return err
	}
	now := b.svc.Clock.Current()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reportWorkers)
	for _, user := range users {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			text, err := b.svc.Reminders.DailySummary(gctx, user, now)
			if err != nil {
				log.Printf("[warn] build summary for user %d: %v", user.TelegramID, err)
				return nil
			}
			if err := b.sendText(user.TelegramID, text); err != nil {
				log.Printf("[warn] send summary to %d: %v", user.TelegramID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Printf("[info] daily report sent to %d users", len(users))
	return nil
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.svc.Users.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) typing(chatID int64) {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		log.Printf("[warn] chat action: %v", err)
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) ack(cb *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		log.Printf("[warn] callback ack: %v", err)
	}
}
