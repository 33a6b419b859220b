package config

import "time"

// Config holds runtime configuration for the pricewatch bot.
type Config struct {
	AppEnv string

	Log    LogConfig    `mapstructure:"log"`
	Bot    BotConfig    `mapstructure:"bot" validate:"required"`
	Feed   FeedConfig   `mapstructure:"feed"`
	Server ServerConfig `mapstructure:"server"`
	Sentry SentryConfig `mapstructure:"sentry"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// BotConfig controls the Telegram transport and the authorization
// allow-list.
type BotConfig struct {
	Token        string        `mapstructure:"token" validate:"required"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
	AllowedUsers []int64       `mapstructure:"allowed_users" validate:"required,min=1"`
}

// FeedConfig controls the price feed binding and the matching loop.
type FeedConfig struct {
	ProbeSymbol  string        `mapstructure:"probe_symbol" validate:"required"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
}

// ServerConfig controls the ops HTTP server (/healthz, /metrics).
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SentryConfig controls error reporting.
type SentryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}
