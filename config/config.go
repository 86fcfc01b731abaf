// Package config loads application configuration from environment
// variables. A local .env file is honored when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Telegram holds bot configuration.
	Telegram TelegramConfig

	// HTTP holds API server configuration.
	HTTP HTTPConfig

	// Postgres holds database configuration.
	Postgres PostgresConfig

	// Redis holds cache configuration.
	Redis RedisConfig

	// Invitation holds invitation workflow settings.
	Invitation InvitationConfig
}

// TelegramConfig holds Telegram bot configuration.
type TelegramConfig struct {
	// Token is the bot API token.
	Token string

	// BotUsername is the public bot username used in deep links.
	BotUsername string

	// Enabled turns the bot front-end on.
	Enabled bool
}

// HTTPConfig holds the API server configuration.
type HTTPConfig struct {
	// Host is the listen address.
	Host string

	// Port is the listen port.
	Port int

	// ReadTimeout bounds request reads.
	ReadTimeout time.Duration

	// WriteTimeout bounds response writes.
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// Addr returns the listen address in "host:port" format.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PostgresConfig holds database configuration.
type PostgresConfig struct {
	// URL is a full connection string; when set it wins over the
	// individual fields.
	URL string

	// Host is the database host.
	Host string

	// Port is the database port.
	Port int

	// Database is the database name.
	Database string

	// User is the database user.
	User string

	// Password is the database password.
	Password string

	// SSLMode is the SSL mode.
	SSLMode string

	// MaxConns is the connection pool ceiling.
	MaxConns int
}

// RedisConfig holds cache configuration.
type RedisConfig struct {
	// Host is the Redis host.
	Host string

	// Port is the Redis port.
	Port int

	// Password is the Redis password.
	Password string

	// DB is the Redis database number.
	DB int
}

// InvitationConfig holds invitation workflow settings.
type InvitationConfig struct {
	// TTL is the default invitation validity window.
	TTL time.Duration
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("APP_ENV", "development"),
		Telegram: TelegramConfig{
			Token:       getEnv("TELEGRAM_BOT_TOKEN", ""),
			BotUsername: getEnv("TELEGRAM_BOT_USERNAME", ""),
			Enabled:     getEnvBool("TELEGRAM_ENABLED", true),
		},
		HTTP: HTTPConfig{
			Host:            getEnv("HTTP_HOST", "0.0.0.0"),
			Port:            getEnvInt("HTTP_PORT", 8080),
			ReadTimeout:     getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			Database: getEnv("POSTGRES_DB", "mektep"),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
			MaxConns: getEnvInt("POSTGRES_MAX_CONNS", 10),
		},
		// Redis backs both the bot auth cache and API sessions, so it is
		// a hard dependency with no enable flag.
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Invitation: InvitationConfig{
			TTL: getEnvDuration("INVITATION_TTL", 7*24*time.Hour),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if c.Postgres.URL == "" && c.Postgres.Host == "" {
		return errors.New("config: DATABASE_URL or POSTGRES_HOST is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("config: invalid HTTP port %d", c.HTTP.Port)
	}
	return nil
}

// ValidateBot checks the settings the Telegram front-end needs. The
// operator CLI deliberately skips this check.
func (c *Config) ValidateBot() error {
	if !c.Telegram.Enabled {
		return nil
	}
	if c.Telegram.Token == "" {
		return errors.New("config: TELEGRAM_BOT_TOKEN is required when the bot is enabled")
	}
	if c.Telegram.BotUsername == "" {
		return errors.New("config: TELEGRAM_BOT_USERNAME is required when the bot is enabled")
	}
	return nil
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
