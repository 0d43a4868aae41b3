package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration
type Config struct {
	HTTPAddr       string `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	DataPath       string `env:"DATA_PATH" envDefault:""`       // local CSV snapshot
	DataURL        string `env:"DATA_URL" envDefault:""`        // remote CSV snapshot
	RequestTimeout int    `env:"REQUEST_TIMEOUT" envDefault:"30"` // seconds
	DetectionLimit int    `env:"DETECTION_LIMIT" envDefault:"100"`
	ForecastDays   int    `env:"FORECAST_DAYS" envDefault:"30"`

	DBHost     string `env:"DB_HOST" envDefault:""`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"paysight"`
	DBPassword string `env:"DB_PASSWORD" envDefault:""`
	DBName     string `env:"DB_NAME" envDefault:"paysight"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	NarrativeAPIKey  string `env:"NARRATIVE_API_KEY" envDefault:""`
	NarrativeBaseURL string `env:"NARRATIVE_BASE_URL" envDefault:"https://api.deepseek.com/v1"`
	NarrativeModel   string `env:"NARRATIVE_MODEL" envDefault:"deepseek-chat"`
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.HTTPAddr = getEnvWithDefault("HTTP_ADDR", ":8080")
	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.DataPath = os.Getenv("DATA_PATH")
	cfg.DataURL = os.Getenv("DATA_URL")
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)
	cfg.DetectionLimit = getEnvIntWithDefault("DETECTION_LIMIT", 100)
	cfg.ForecastDays = getEnvIntWithDefault("FORECAST_DAYS", 30)

	cfg.DBHost = os.Getenv("DB_HOST")
	cfg.DBPort = getEnvWithDefault("DB_PORT", "5432")
	cfg.DBUser = getEnvWithDefault("DB_USER", "paysight")
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.DBName = getEnvWithDefault("DB_NAME", "paysight")
	cfg.DBSSLMode = getEnvWithDefault("DB_SSLMODE", "disable")

	cfg.NarrativeAPIKey = os.Getenv("NARRATIVE_API_KEY")
	cfg.NarrativeBaseURL = getEnvWithDefault("NARRATIVE_BASE_URL", "https://api.deepseek.com/v1")
	cfg.NarrativeModel = getEnvWithDefault("NARRATIVE_MODEL", "deepseek-chat")

	return &cfg, nil
}

// DatabaseEnabled reports whether a Postgres connection is configured.
func (c *Config) DatabaseEnabled() bool {
	return c.DBHost != ""
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
