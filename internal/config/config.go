package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Port              string
	DatabaseURL       string
	RedisURL          string
	NumWorkers        int
	IterableBaseURL   string
	OutboundRateLimit int
	HTTPTimeout       time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	port := getEnv("PORT", "8080")
	dbURL := getEnv("DATABASE_URL", "")
	redisURL := getEnv("REDIS_URL", "")
	numWorkers := getEnvInt("NUM_WORKERS", 10)
	baseURL := getEnv("ITERABLE_BASE_URL", "https://api.iterable.com")
	rateLimit := getEnvInt("OUTBOUND_RATE_LIMIT", 50)
	httpTimeout := getEnvInt("HTTP_TIMEOUT_SECONDS", 10)

	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	return &Config{
		Port:              port,
		DatabaseURL:       dbURL,
		RedisURL:          redisURL,
		NumWorkers:        numWorkers,
		IterableBaseURL:   baseURL,
		OutboundRateLimit: rateLimit,
		HTTPTimeout:       time.Duration(httpTimeout) * time.Second,
	}, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
