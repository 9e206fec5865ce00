package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port           string
	AgendaFile     string // Path to the agenda definition file for the default session
	Environment    string // "development" or "production"
	AllowedOrigins string // Comma-separated CORS origins

	// Analysis oracle configuration (OpenAI-compatible endpoint)
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OracleModel    string
	OracleTimeout  time.Duration
	OracleRate     float64 // Oracle calls per second across all sessions
	OracleCacheTTL time.Duration

	// Session lifecycle
	SessionTTL time.Duration // Idle sessions past this are swept
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8765"),
		AgendaFile:     getEnv("AGENDA_FILE", "example_agenda.json"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OracleModel:    getEnv("ORACLE_MODEL", "gpt-4o-mini"),
		OracleTimeout:  getDurationEnv("ORACLE_TIMEOUT", 30*time.Second),
		OracleRate:     getFloatEnv("ORACLE_RATE_LIMIT", 2.0),
		OracleCacheTTL: getDurationEnv("ORACLE_CACHE_TTL", 30*time.Second),

		SessionTTL: getDurationEnv("SESSION_TTL", 2*time.Hour),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
