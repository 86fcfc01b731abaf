package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_ENV", "TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_USERNAME", "TELEGRAM_ENABLED",
		"HTTP_HOST", "HTTP_PORT", "DATABASE_URL", "POSTGRES_HOST",
		"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB", "INVITATION_TTL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, 7*24*time.Hour, cfg.Invitation.TTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("INVITATION_TTL", "48h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 48*time.Hour, cfg.Invitation.TTL)
}

func TestValidateRejectsBadPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "70000")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateBot(t *testing.T) {
	t.Run("enabled bot requires token and username", func(t *testing.T) {
		cfg := &Config{Telegram: TelegramConfig{Enabled: true}}
		assert.Error(t, cfg.ValidateBot())

		cfg.Telegram.Token = "123:abc"
		assert.Error(t, cfg.ValidateBot())

		cfg.Telegram.BotUsername = "mektep_hub_bot"
		assert.NoError(t, cfg.ValidateBot())
	})

	t.Run("disabled bot needs nothing", func(t *testing.T) {
		cfg := &Config{Telegram: TelegramConfig{Enabled: false}}
		assert.NoError(t, cfg.ValidateBot())
	})
}
