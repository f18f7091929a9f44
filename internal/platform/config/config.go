package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries everything the relay server needs, sourced from environment
// variables so main stays lean.
type Config struct {
	Addr     string
	LogLevel string

	// DatabaseURL selects the Postgres attempt store when set.
	DatabaseURL string
	// RedisURL selects the Redis attempt store when set. Takes precedence
	// over Postgres so a cache-backed deployment doesn't need a database.
	RedisURL string

	// AuthVerifyURL is the identity provider endpoint used to verify bearer
	// tokens. Empty means every caller is treated as anonymous.
	AuthVerifyURL string

	Mail      Mail
	RateLimit RateLimit
}

// Mail configures the outbound mail provider.
type Mail struct {
	APIURL string
	APIKey string
	From   string
	// To is the staff mailbox that receives relayed submissions.
	To string
}

// RateLimit configures the sliding-window limiter tiers.
type RateLimit struct {
	Window               time.Duration
	AnonymousLimit       int
	AuthenticatedLimit   int
	HousekeepingInterval time.Duration
}

// FromEnv builds a Config from environment variables with production defaults.
func FromEnv() Config {
	return Config{
		Addr:          envOr("RELAY_ADDR", ":8080"),
		LogLevel:      envOr("RELAY_LOG_LEVEL", "info"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		AuthVerifyURL: os.Getenv("AUTH_VERIFY_URL"),
		Mail: Mail{
			APIURL: envOr("MAIL_API_URL", "https://api.mailprovider.example/emails"),
			APIKey: os.Getenv("MAIL_API_KEY"),
			From:   envOr("MAIL_FROM", "notifications@example.org"),
			To:     envOr("MAIL_TO", "staff@example.org"),
		},
		RateLimit: RateLimit{
			Window:               envDurationOr("RATE_LIMIT_WINDOW", time.Minute),
			AnonymousLimit:       envIntOr("RATE_LIMIT_ANONYMOUS", 3),
			AuthenticatedLimit:   envIntOr("RATE_LIMIT_AUTHENTICATED", 10),
			HousekeepingInterval: envDurationOr("RATE_LIMIT_HOUSEKEEPING_INTERVAL", 5*time.Minute),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
