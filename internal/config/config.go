package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the dispatcher.
type Config struct {
	Port                    string
	DatabaseURL             string
	RedisURL                string
	DeliveryTimeout         time.Duration
	MaxConcurrentDeliveries int
	FailureThreshold        int
	MaxRetries              int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	port := getEnv("PORT", "8080")
	dbURL := getEnv("DATABASE_URL", "")
	redisURL := getEnv("REDIS_URL", "")
	timeoutSec := getEnvInt("WEBHOOK_TIMEOUT_SECONDS", 10)
	maxConcurrent := getEnvInt("MAX_CONCURRENT_DELIVERIES", 32)
	failureThreshold := getEnvInt("FAILURE_THRESHOLD", 5)
	maxRetries := getEnvInt("MAX_RETRIES", 3)

	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if timeoutSec <= 0 {
		return nil, fmt.Errorf("WEBHOOK_TIMEOUT_SECONDS must be positive")
	}

	return &Config{
		Port:                    port,
		DatabaseURL:             dbURL,
		RedisURL:                redisURL,
		DeliveryTimeout:         time.Duration(timeoutSec) * time.Second,
		MaxConcurrentDeliveries: maxConcurrent,
		FailureThreshold:        failureThreshold,
		MaxRetries:              maxRetries,
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
