package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"routine-coach/internal/config"
	"routine-coach/internal/model"
	"routine-coach/internal/repository"
)

var todayTelegramID int64

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Print today's habits of a user",
	RunE:  runToday,
}

func init() {
	todayCmd.Flags().Int64Var(&todayTelegramID, "user", 0, "Telegram ID of the user")
	_ = todayCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(todayCmd)
}

func runToday(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg.GeminiAPIKey = ""

	ctx := cmd.Context()
	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	user, err := app.users.FindByTelegramID(ctx, todayTelegramID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("no user with telegram id %d", todayTelegramID)
	}
	if err != nil {
		return err
	}

	tasks, err := app.statuses.TodayTasks(ctx, user.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s, %s\n", user.DisplayName(), app.clock.Today())
	if len(tasks) == 0 {
		fmt.Fprintln(out, "Nothing scheduled.")
		return nil
	}
	for _, t := range tasks {
		fmt.Fprintf(out, "%s %-30s %-9s streak %d\n", marker(t.Status), t.Title, t.Category, t.Streak)
	}
	return nil
}

func marker(st model.Status) string {
	switch st {
	case model.StatusDone:
		return "[x]"
	case model.StatusPartial:
		return "[~]"
	case model.StatusMissed:
		return "[-]"
	default:
		return "[ ]"
	}
}
