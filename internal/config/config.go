package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config keeps runtime settings for the scheduler.
type Config struct {
	TelegramToken        string
	DatabaseURL          string
	MaxOpenConns         int
	ReminderCheckSpec    string
	ReminderCheckTimeout time.Duration
	ReminderBatchSize    int
	LogLevel             string
	LogEncoding          string
}

// Same field set the scheduler accepts: an optional seconds field and
// descriptors such as "@every 5m".
var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Load reads configuration from environment variables, optionally seeded
// from a .env file. Unset values take defaults; malformed ones are errors.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	var env envReader
	cfg := Config{
		TelegramToken:        strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:          env.getString("DATABASE_URL", "todo_scheduler.db"),
		MaxOpenConns:         env.getInt("DB_MAX_OPEN_CONNS", 1),
		ReminderCheckSpec:    env.getString("REMINDER_CHECK_SPEC", "@every 5m"),
		ReminderCheckTimeout: env.getDuration("REMINDER_CHECK_TIMEOUT", 30*time.Second),
		ReminderBatchSize:    env.getInt("REMINDER_BATCH_SIZE", 500),
		LogLevel:             strings.ToLower(env.getString("LOG_LEVEL", "info")),
		LogEncoding:          strings.ToLower(env.getString("LOG_ENCODING", "json")),
	}

	if cfg.MaxOpenConns <= 0 {
		env.fail("DB_MAX_OPEN_CONNS must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.ReminderCheckTimeout <= 0 {
		env.fail("REMINDER_CHECK_TIMEOUT must be positive, got %s", cfg.ReminderCheckTimeout)
	}
	if cfg.ReminderBatchSize < 0 {
		env.fail("REMINDER_BATCH_SIZE must not be negative, got %d", cfg.ReminderBatchSize)
	}
	if _, err := scheduleParser.Parse(cfg.ReminderCheckSpec); err != nil {
		env.fail("REMINDER_CHECK_SPEC %q: %v", cfg.ReminderCheckSpec, err)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		env.fail("LOG_LEVEL must be debug, info, warn or error, got %q", cfg.LogLevel)
	}
	switch cfg.LogEncoding {
	case "json", "console":
	default:
		env.fail("LOG_ENCODING must be json or console, got %q", cfg.LogEncoding)
	}

	if err := errors.Join(env.errs...); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// BotEnabled reports whether reminders go to Telegram rather than the log.
func (c Config) BotEnabled() bool {
	return c.TelegramToken != ""
}

// envReader collects every parse failure so Load can report them together.
type envReader struct {
	errs []error
}

func (r *envReader) fail(format string, args ...interface{}) {
	r.errs = append(r.errs, fmt.Errorf(format, args...))
}

func (r *envReader) getString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func (r *envReader) getInt(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		r.fail("%s: %q is not an integer", key, val)
		return fallback
	}
	return parsed
}

// getDuration accepts Go durations ("45s") or a bare number of seconds.
func (r *envReader) getDuration(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(val); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(val); err == nil {
		return time.Duration(seconds) * time.Second
	}
	r.fail("%s: %q is not a duration", key, val)
	return fallback
}
