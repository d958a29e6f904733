package config

import "os"

// Config holds the service configuration
// Pipeline settings live in Pipeline, loaded separately by LoadPipeline
type Config struct {
	// Environment
	Environment string
	Port        string

	// Storage (optional, only needed for the postgres song store)
	DatabaseURL string

	// Observability
	SentryDSN string // Sentry DSN for error tracking
}

func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SentryDSN:   getEnv("SENTRY_DSN", ""),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

// IsProduction returns true when running in the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
