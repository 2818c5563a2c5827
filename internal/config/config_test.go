package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"TELEGRAM_TOKEN", "DATABASE_URL", "DB_MAX_OPEN_CONNS",
		"REMINDER_CHECK_SPEC", "REMINDER_CHECK_TIMEOUT", "REMINDER_BATCH_SIZE",
		"LOG_LEVEL", "LOG_ENCODING",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "todo_scheduler.db", cfg.DatabaseURL)
	assert.Equal(t, 1, cfg.MaxOpenConns)
	assert.Equal(t, "@every 5m", cfg.ReminderCheckSpec)
	assert.Equal(t, 30*time.Second, cfg.ReminderCheckTimeout)
	assert.Equal(t, 500, cfg.ReminderBatchSize)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogEncoding)
	assert.False(t, cfg.BotEnabled())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_TOKEN", " token ")
	t.Setenv("DATABASE_URL", "data/app.db")
	t.Setenv("DB_MAX_OPEN_CONNS", "4")
	t.Setenv("REMINDER_CHECK_SPEC", "*/5 * * * * *")
	t.Setenv("REMINDER_CHECK_TIMEOUT", "45")
	t.Setenv("REMINDER_BATCH_SIZE", "50")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_ENCODING", "console")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.TelegramToken)
	assert.True(t, cfg.BotEnabled())
	assert.Equal(t, "data/app.db", cfg.DatabaseURL)
	assert.Equal(t, 4, cfg.MaxOpenConns)
	assert.Equal(t, "*/5 * * * * *", cfg.ReminderCheckSpec)
	assert.Equal(t, 45*time.Second, cfg.ReminderCheckTimeout)
	assert.Equal(t, 50, cfg.ReminderBatchSize)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogEncoding)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"DB_MAX_OPEN_CONNS":      "0",
		"REMINDER_CHECK_TIMEOUT": "-5s",
		"REMINDER_BATCH_SIZE":    "-1",
		"REMINDER_CHECK_SPEC":    "every five minutes",
		"LOG_LEVEL":              "loud",
		"LOG_ENCODING":           "xml",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Chdir(t.TempDir())
			t.Setenv(key, value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("DB_MAX_OPEN_CONNS", "four")
	t.Setenv("REMINDER_CHECK_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_MAX_OPEN_CONNS")
	assert.Contains(t, err.Error(), "REMINDER_CHECK_TIMEOUT")
}
