package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Persistence modes selected from DATABASE_URL.
const (
	PersistenceMemory   = "memory"
	PersistenceSqlite   = "sqlite"
	PersistencePostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	Port        string
	DatabaseURL string
	LogLevel    string

	// Worker behaviour.
	FailProbability float64
	SimulateWork    time.Duration

	// Create policy: when true, requests without an Idempotency-Key are rejected.
	IdempotencyKeyRequired bool

	// Summarization. Empty API key selects the deterministic stub client.
	OpenAIAPIKey string
	OpenAIModel  string

	// Optional email notifications; disabled unless SMTPHost is set.
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string
	EmailTo      string

	// Cron spec for the periodic stats reporter.
	StatsSchedule string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	failProb, err := strconv.ParseFloat(getEnv("FAIL_PROBABILITY", "0.1"), 64)
	if err != nil || failProb < 0 || failProb > 1 {
		return nil, fmt.Errorf("FAIL_PROBABILITY must be a number in [0,1]")
	}

	workMs, err := strconv.Atoi(getEnv("SIMULATE_WORK_MS", "500"))
	if err != nil || workMs < 0 {
		return nil, fmt.Errorf("SIMULATE_WORK_MS must be a non-negative integer")
	}

	cfg := &Config{
		Port:                   getEnv("PORT", "8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		LogLevel:               getEnv("LOG_LEVEL", "INFO"),
		FailProbability:        failProb,
		SimulateWork:           time.Duration(workMs) * time.Millisecond,
		IdempotencyKeyRequired: getEnv("IDEMPOTENCY_KEY_REQUIRED", "false") == "true",
		OpenAIAPIKey:           getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:            getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		SMTPHost:               getEnv("SMTP_HOST", ""),
		SMTPPort:               getEnv("SMTP_PORT", "587"),
		SMTPUsername:           getEnv("SMTP_USERNAME", ""),
		SMTPPassword:           getEnv("SMTP_PASSWORD", ""),
		EmailFrom:              getEnv("EMAIL_FROM", ""),
		EmailTo:                getEnv("EMAIL_TO", ""),
		StatsSchedule:          getEnv("STATS_SCHEDULE", "@every 1m"),
	}

	return cfg, nil
}

// PersistenceMode infers the storage backend from DATABASE_URL.
func (c *Config) PersistenceMode() string {
	switch {
	case strings.HasPrefix(c.DatabaseURL, "postgres://"), strings.HasPrefix(c.DatabaseURL, "postgresql://"):
		return PersistencePostgres
	case strings.HasPrefix(c.DatabaseURL, "sqlite://"):
		return PersistenceSqlite
	default:
		return PersistenceMemory
	}
}

// SqlitePath extracts the file path from a sqlite:// URL. An empty path means
// an in-memory SQLite database.
func (c *Config) SqlitePath() string {
	path := strings.TrimPrefix(c.DatabaseURL, "sqlite://")
	if path == "" {
		return ":memory:"
	}
	return path
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
