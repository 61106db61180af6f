package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port int
	Env  string

	// CORS
	AllowedOrigins []string

	// Storage
	RedisURL string

	// Upstream affiliate API
	UpstreamURL     string
	UpstreamAPIKey  string
	UpstreamTimeout time.Duration

	// Competition window
	WindowFrom int64 // Unix seconds, 0 = unset
	WindowTo   int64 // Unix seconds, 0 = unset
	WindowDays int

	// Prizes and display
	PrizeSchedule map[int]float64
	DisplayRows   int
	SnapshotRows  int
	RaceTitle     string
	MaskPolicy    string

	// Refresh behavior
	CacheTTL        time.Duration
	RefreshCooldown time.Duration
	PollInterval    time.Duration

	// Admin
	AdminUsername string
	AdminPassword string
	SessionTTL    time.Duration

	// Chat webhook sink, empty disables the push action
	WebhookURL string
}

// defaultPrizeSchedule matches the published prize pool for the race.
var defaultPrizeSchedule = map[int]float64{
	1: 2000, 2: 1000, 3: 500, 4: 175, 5: 100,
	6: 75, 7: 50, 8: 50, 9: 25, 10: 25,
}

// Load loads configuration from environment variables.
// It returns an error if critical configuration is missing.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Env:  getEnv("ENV", "development"),

		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second),

		WindowFrom: getEnvInt64("WINDOW_FROM", 0),
		WindowTo:   getEnvInt64("WINDOW_TO", 0),
		WindowDays: getEnvInt("WINDOW_DAYS", 28),

		DisplayRows:  getEnvInt("DISPLAY_ROWS", 10),
		SnapshotRows: getEnvInt("SNAPSHOT_ROWS", 20),
		RaceTitle:    getEnv("RACE_TITLE", "4k Race"),
		MaskPolicy:   getEnv("MASK_POLICY", "length"),

		CacheTTL:        getEnvDuration("CACHE_TTL", 15*time.Minute),
		RefreshCooldown: getEnvDuration("REFRESH_COOLDOWN", 10*time.Minute),
		PollInterval:    getEnvDuration("POLL_INTERVAL", 15*time.Minute),

		SessionTTL: getEnvDuration("SESSION_TTL", 7*24*time.Hour),

		WebhookURL: getEnv("WEBHOOK_URL", ""),
	}

	// CORS
	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	rawOrigins := strings.Split(origins, ",")
	for _, o := range rawOrigins {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	// Prize schedule, "rank:amount" pairs
	cfg.PrizeSchedule = parsePrizeSchedule(getEnv("PRIZE_SCHEDULE", ""))

	// Critical configuration - fail if missing
	var err error
	if cfg.RedisURL, err = getEnvRequired("REDIS_URL"); err != nil {
		return nil, err
	}
	if cfg.UpstreamURL, err = getEnvRequired("UPSTREAM_API_URL"); err != nil {
		return nil, err
	}
	if cfg.UpstreamAPIKey, err = getEnvRequired("UPSTREAM_API_KEY"); err != nil {
		return nil, err
	}
	if cfg.AdminUsername, err = getEnvRequired("ADMIN_USERNAME"); err != nil {
		return nil, err
	}
	if cfg.AdminPassword, err = getEnvRequired("ADMIN_PASSWORD"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parsePrizeSchedule parses "1:2000,2:1000,..." into a rank->amount map.
// Malformed pairs are skipped; an empty or fully invalid value falls back
// to the default schedule.
func parsePrizeSchedule(raw string) map[int]float64 {
	schedule := make(map[int]float64)
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			continue
		}
		rank, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || rank < 1 {
			continue
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || amount < 0 {
			continue
		}
		schedule[rank] = amount
	}
	if len(schedule) == 0 {
		for rank, amount := range defaultPrizeSchedule {
			schedule[rank] = amount
		}
	}
	return schedule
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
