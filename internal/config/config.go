package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrTokenRequired = errors.New("TELEGRAM_TOKEN is required")

// Config keeps runtime settings for the bot and the HTTP API.
type Config struct {
	TelegramToken  string
	DatabaseURL    string
	HTTPAddr       string
	APIToken       string
	ReportTime     string
	FlushInterval  time.Duration
	PersistDelay   time.Duration
	StreakLookback int
	SkipOffDays    bool
	Location       *time.Location
	GeminiAPIKey   string
	CoachModel     string
	CoachTimeout   time.Duration
	ChatHistory    int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DATABASE_URL", "routine_coach.db")
	v.SetDefault("HTTP_ADDR", "127.0.0.1:8080")
	v.SetDefault("REPORT_TIME", "08:00")
	v.SetDefault("FLUSH_INTERVAL_SECONDS", 60)
	v.SetDefault("PERSIST_DEBOUNCE_MS", 500)
	v.SetDefault("STREAK_LOOKBACK_DAYS", 365)
	v.SetDefault("STREAK_SKIP_OFF_DAYS", false)
	v.SetDefault("TIMEZONE", "")
	v.SetDefault("COACH_MODEL", "gemini-2.5-flash")
	v.SetDefault("COACH_TIMEOUT_SECONDS", 30)
	v.SetDefault("CHAT_HISTORY_LIMIT", 20)
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	// Unset keys are only seen by AutomaticEnv after an explicit bind.
	for _, key := range []string{"TELEGRAM_TOKEN", "API_TOKEN", "GEMINI_API_KEY"} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := Config{
		TelegramToken:  strings.TrimSpace(v.GetString("TELEGRAM_TOKEN")),
		DatabaseURL:    strings.TrimSpace(v.GetString("DATABASE_URL")),
		HTTPAddr:       strings.TrimSpace(v.GetString("HTTP_ADDR")),
		APIToken:       strings.TrimSpace(v.GetString("API_TOKEN")),
		ReportTime:     strings.TrimSpace(v.GetString("REPORT_TIME")),
		FlushInterval:  time.Duration(v.GetInt("FLUSH_INTERVAL_SECONDS")) * time.Second,
		PersistDelay:   time.Duration(v.GetInt("PERSIST_DEBOUNCE_MS")) * time.Millisecond,
		StreakLookback: v.GetInt("STREAK_LOOKBACK_DAYS"),
		SkipOffDays:    v.GetBool("STREAK_SKIP_OFF_DAYS"),
		GeminiAPIKey:   strings.TrimSpace(v.GetString("GEMINI_API_KEY")),
		CoachModel:     strings.TrimSpace(v.GetString("COACH_MODEL")),
		CoachTimeout:   time.Duration(v.GetInt("COACH_TIMEOUT_SECONDS")) * time.Second,
		ChatHistory:    v.GetInt("CHAT_HISTORY_LIMIT"),
		Location:       time.Local,
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "routine_coach.db"
	}
	if cfg.StreakLookback <= 0 {
		return cfg, fmt.Errorf("STREAK_LOOKBACK_DAYS must be positive, got %d", cfg.StreakLookback)
	}
	if cfg.PersistDelay < 0 {
		return cfg, fmt.Errorf("PERSIST_DEBOUNCE_MS must not be negative")
	}
	if tz := strings.TrimSpace(v.GetString("TIMEZONE")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, fmt.Errorf("load timezone %q: %w", tz, err)
		}
		cfg.Location = loc
	}

	return cfg, nil
}

// Validate checks settings needed to serve the bot.
func (c Config) Validate() error {
	if c.TelegramToken == "" {
		return ErrTokenRequired
	}
	return nil
}

// CoachEnabled reports whether a model key is configured.
func (c Config) CoachEnabled() bool {
	return c.GeminiAPIKey != ""
}
