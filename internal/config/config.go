package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the gateway.
type AppConfig struct {
	HTTPAddr    string
	DatabaseURL string
	// APIToken is the shared secret required on every endpoint except
	// /health and /metrics. May be empty; endpoints then answer 500 until
	// the operator configures it.
	APIToken    string
	SessionDir  string
	SendTimeout time.Duration
	CronSpec    string
	LogLevel    string
	Environment string

	// Optional operator alert channel. Alerts are disabled when either
	// value is empty.
	TelegramToken  string
	TelegramChatID string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.APIToken = os.Getenv("API_TOKEN")

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = "0.0.0.0:8080"
	}

	cfg.SessionDir = os.Getenv("SESSION_DIR")
	if cfg.SessionDir == "" {
		cfg.SessionDir = "sessions"
	}

	cfg.SendTimeout = 120 * time.Second
	if raw := os.Getenv("SEND_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SEND_TIMEOUT: %w", err)
		}
		cfg.SendTimeout = d
	}

	cfg.CronSpec = os.Getenv("CRON_SPEC")
	if cfg.CronSpec == "" {
		cfg.CronSpec = "0 * * * *" // hourly
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_ALERT_CHAT_ID")

	return cfg, nil
}
