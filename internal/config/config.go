package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	BackendURL   string
	JWTSecret    string
	RedisAddr    string // empty means in-memory local cache
	PollInterval time.Duration
	HTTPTimeout  time.Duration
}

func Load() *Config {
	// Best effort: a missing .env just means plain environment variables.
	_ = godotenv.Load()

	return &Config{
		Port:         getEnv("PORT", "8082"),
		BackendURL:   getEnv("BACKEND_URL", "http://localhost:8082"),
		JWTSecret:    getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		RedisAddr:    getEnv("REDIS_ADDR", ""),
		PollInterval: getDuration("POLL_INTERVAL", 30*time.Second),
		HTTPTimeout:  getDuration("HTTP_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
