package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	TelegramBotToken string
	DatabaseURL      string
	RedisURL         string

	CORSAllowOrigins []string

	ForecastEnableRNN   bool
	ForecastLookback    int
	ForecastHorizonDays int
	ForecastTimeoutSecs int

	Watchlist         []string
	WatchlistPollSecs int
}

func Load() *Config {
	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
	}

	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	cfg.CORSAllowOrigins = parseList(os.Getenv("CORS_ALLOW_ORIGINS"), func(s string) string { return s })
	if len(cfg.CORSAllowOrigins) == 0 {
		cfg.CORSAllowOrigins = []string{"*"}
	}

	cfg.ForecastEnableRNN = strings.EqualFold(strings.TrimSpace(os.Getenv("FORECAST_ENABLE_RNN")), "true")

	cfg.ForecastLookback = 60
	if v := strings.TrimSpace(os.Getenv("FORECAST_LOOKBACK_DAYS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ForecastLookback = n
		}
	}

	cfg.ForecastHorizonDays = 30
	if v := strings.TrimSpace(os.Getenv("FORECAST_HORIZON_DAYS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 365 {
			cfg.ForecastHorizonDays = n
		}
	}

	cfg.ForecastTimeoutSecs = 120
	if v := strings.TrimSpace(os.Getenv("FORECAST_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ForecastTimeoutSecs = n
		}
	}

	cfg.Watchlist = parseList(os.Getenv("WATCHLIST"), strings.ToUpper)

	cfg.WatchlistPollSecs = 3600
	if v := strings.TrimSpace(os.Getenv("WATCHLIST_POLL_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WatchlistPollSecs = n
		}
	}

	return cfg
}

func parseList(raw string, normalize func(string) string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		item := normalize(strings.TrimSpace(part))
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
