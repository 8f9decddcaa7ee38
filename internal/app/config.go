// Package app holds process-level configuration.
package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the bot process.
type Config struct {
	Addr         string        `envconfig:"APP_ADDR" default:":8080"`
	ReadTimeout  time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`

	DBPath string `envconfig:"DB_PATH" default:"./data/tallybot.db"`

	TelegramToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`

	// WebhookSecret is the secret_token registered with setWebhook.
	// When set, webhook requests without the matching header are
	// rejected. Empty disables the check.
	WebhookSecret string `envconfig:"TELEGRAM_WEBHOOK_SECRET"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	// ReminderCron is a standard 5-field cron expression; the default
	// nudges debtors every morning.
	ReminderCron string `envconfig:"REMINDER_CRON" default:"0 9 * * *"`

	MaxMembersFree  int `envconfig:"MAX_MEMBERS_FREE" default:"4"`
	MaxExpensesFree int `envconfig:"MAX_EXPENSES_FREE" default:"20"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.TelegramToken == "" {
		return nil, errors.New("telegram bot token must be provided")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret must be provided")
	}
	return &cfg, nil
}
