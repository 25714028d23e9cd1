package main

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"

	"routine-coach/internal/coach"
	"routine-coach/internal/config"
	"routine-coach/internal/habit"
	"routine-coach/internal/repository"
	"routine-coach/internal/service"
	"routine-coach/internal/session"
)

// application holds the wired storage and services shared by commands.
type application struct {
	cfg       config.Config
	db        *gorm.DB
	users     *repository.UserRepository
	sessions  *session.Manager
	clock     service.Clock
	templates *service.TemplateService
	statuses  *service.StatusService
	coach     *service.CoachService
	reminders *service.ReminderService
}

func newApplication(ctx context.Context, cfg config.Config) (*application, error) {
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	users := repository.NewUserRepository(db)
	vault := repository.NewVaultRepository(db, cfg.ChatHistory)
	chats := repository.NewChatRepository(db)

	sessions := session.NewManager(vault, session.Options{
		Debounce: cfg.PersistDelay,
		IDs:      habit.UUIDGenerator{},
	})

	var completer coach.Completer
	if cfg.CoachEnabled() {
		gemini, err := coach.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.CoachModel)
		if err != nil {
			return nil, fmt.Errorf("coach: %w", err)
		}
		completer = gemini
		log.Printf("[info] coach enabled with model %s", cfg.CoachModel)
	} else {
		log.Println("[info] GEMINI_API_KEY not set, coach answers with fallbacks")
	}

	streak := habit.StreakOptions{Lookback: cfg.StreakLookback, SkipOffDays: cfg.SkipOffDays}
	clock := service.SystemClock(cfg.Location)

	return &application{
		cfg:       cfg,
		db:        db,
		users:     users,
		sessions:  sessions,
		clock:     clock,
		templates: service.NewTemplateService(sessions, clock),
		statuses:  service.NewStatusService(sessions, clock, streak),
		coach:     service.NewCoachService(sessions, chats, coach.New(completer, cfg.CoachTimeout), clock, cfg.ChatHistory),
		reminders: service.NewReminderService(sessions, streak),
	}, nil
}

// close flushes pending writes and closes the database.
func (a *application) close(ctx context.Context) error {
	flushErr := a.sessions.Close(ctx)
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return flushErr
}
