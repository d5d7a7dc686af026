// Package config builds the process configuration from the environment.
// Loaded once at startup and passed down explicitly, so tests can run
// multiple instances with different secrets/expiries side by side.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabasePath string
	ClientOrigin string
	Port         string
	JWTSecret    string
	JWTExpiry    time.Duration
	LogLevel     string
}

// Load reads configuration from the environment, applying dev defaults.
// Call godotenv.Load before this if a .env file should be honored.
func Load() Config {
	return Config{
		DatabasePath: getEnv("DATABASE_PATH", "./data/workout-log.db"),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "http://localhost:3000"),
		Port:         getEnv("PORT", "8080"),
		JWTSecret:    getEnv("JWT_SECRET", "dev_secret_change_me"),
		JWTExpiry:    time.Duration(envInt("JWT_EXPIRES_DAYS", 7)) * 24 * time.Hour,
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// envInt parses k as an integer, falling back to def.
func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
