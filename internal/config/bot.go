package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// BotConfig is the Telegram-side configuration, read entirely from the
// environment.
type BotConfig struct {
	Token          string
	APIBaseURL     string
	DefaultModel   string
	RequestTimeout time.Duration
}

const (
	defaultAPIBaseURL     = "http://localhost:5000/api"
	defaultModel          = "mistral"
	defaultRequestTimeout = 300 * time.Second
)

// ErrMissingToken is returned when TELEGRAM_TOKEN is not set. The bot
// cannot run without it, so callers treat this as fatal.
var ErrMissingToken = errors.New("TELEGRAM_TOKEN environment variable is not set")

// LoadBot builds the bot configuration from the environment, loading a
// .env file first when one is present.
func LoadBot() (*BotConfig, error) {
	_ = godotenv.Load()

	token := os.Getenv("TELEGRAM_TOKEN")
	if token == "" {
		return nil, ErrMissingToken
	}

	cfg := &BotConfig{
		Token:          token,
		APIBaseURL:     envOrDefault("RELAY_API_BASE_URL", defaultAPIBaseURL),
		DefaultModel:   envOrDefault("DEFAULT_MODEL", defaultModel),
		RequestTimeout: defaultRequestTimeout,
	}

	if raw := os.Getenv("REQUEST_TIMEOUT"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("invalid REQUEST_TIMEOUT %q: expected positive seconds", raw)
		}
		cfg.RequestTimeout = time.Duration(secs) * time.Second
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
