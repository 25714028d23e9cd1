package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/cobra"

	"routine-coach/internal/bot"
	"routine-coach/internal/config"
	"routine-coach/internal/httpapi"
	"routine-coach/internal/service"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot, the HTTP API and scheduled jobs",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	app, err := newApplication(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	telegramBot, err := bot.New(cfg.TelegramToken, bot.Services{
		Users:     app.users,
		Templates: app.templates,
		Statuses:  app.statuses,
		Coach:     app.coach,
		Reminders: app.reminders,
		Clock:     app.clock,
	})
	if err != nil {
		return err
	}

	if cfg.APIToken == "" {
		log.Println("[warn] API_TOKEN not set, /api/v1 rejects every request")
	}
	api := httpapi.New(cfg.HTTPAddr, cfg.APIToken, httpapi.Services{
		Users:     app.users,
		Templates: app.templates,
		Statuses:  app.statuses,
		Coach:     app.coach,
		Clock:     app.clock,
	})
	if err := api.Start(); err != nil {
		return err
	}

	scheduler := service.NewSchedulerService(cfg.Location, 5*time.Minute)
	if cfg.ReportTime != "" {
		if _, err := scheduler.ScheduleDaily("daily-report", cfg.ReportTime, telegramBot.SendDailyReports); err != nil {
			return err
		}
	}
	if cfg.FlushInterval > 0 {
		if _, err := scheduler.ScheduleInterval("flush-sessions", cfg.FlushInterval, app.sessions.FlushAll); err != nil {
			return err
		}
	}
	scheduler.Start()

	botCtx, stopBot := context.WithCancel(context.Background())
	botDone := make(chan struct{})
	go func() {
		defer close(botDone)
		if err := telegramBot.Start(botCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[warn] bot stopped with error: %v", err)
		}
	}()

	log.Println("[info] routine coach started")

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"routine-coach": func(ctx context.Context) error {
				log.Println("[info] graceful shutdown initiated")
				stopBot()
				var errs []error
				if err := api.Shutdown(ctx); err != nil {
					errs = append(errs, err)
				}
				if err := scheduler.Stop(ctx); err != nil {
					errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
				}
				select {
				case <-botDone:
				case <-ctx.Done():
					errs = append(errs, fmt.Errorf("wait for bot: %w", ctx.Err()))
				}
				if err := app.close(ctx); err != nil {
					errs = append(errs, err)
				}
				return errors.Join(errs...)
			},
		},
	)

	exitCode := <-wait
	log.Printf("[info] shutdown complete with code %d", exitCode)
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}
