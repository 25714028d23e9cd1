package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "routinecoach",
	Short: "Habit tracker bot with streaks and a coach",
	Long: `routinecoach tracks recurring habits over Telegram and a JSON API.
It records daily outcomes, keeps streaks and weekly stats, and asks a
language model for coaching when GEMINI_API_KEY is set.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
