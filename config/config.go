// Package config provides configuration for the fortuna service.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	HTTPPort     int
	InternalPort int

	// Database
	DatabaseURL string

	// Collaborators
	OracleURL       string
	OracleAPIKey    string
	OrderServiceURL string
	RoundServiceURL string

	// Timeouts
	OracleTimeout time.Duration
	LookupTimeout time.Duration

	// Sweeper
	SweepInterval time.Duration

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		HTTPPort:        getEnvInt("HTTP_PORT", 8080),
		InternalPort:    getEnvInt("INTERNAL_PORT", 8081),
		DatabaseURL:     getEnv("DATABASE_URL", "file:fortuna.db?cache=shared&mode=rwc"),
		OracleURL:       getEnv("ORACLE_URL", ""),
		OracleAPIKey:    getEnv("ORACLE_API_KEY", ""),
		OrderServiceURL: getEnv("ORDER_SERVICE_URL", ""),
		RoundServiceURL: getEnv("ROUND_SERVICE_URL", ""),
		OracleTimeout:   time.Duration(getEnvInt("ORACLE_TIMEOUT_MS", 60000)) * time.Millisecond,
		LookupTimeout:   time.Duration(getEnvInt("LOOKUP_TIMEOUT_MS", 10000)) * time.Millisecond,
		SweepInterval:   time.Duration(getEnvInt("SWEEP_INTERVAL_MS", 60000)) * time.Millisecond,
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
