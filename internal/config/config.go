// Package config loads worker configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config captures all runtime configuration for the messaging worker.
type Config struct {
	AWS      AWSConfig
	Consumer ConsumerConfig
	Retry    RetryConfig
	LogLevel slog.Level

	ShutdownTimeout time.Duration
}

// AWSConfig defines queue-service connection settings. Credentials are
// normally supplied by the default AWS chain; static keys and the endpoint
// override exist for local runs against LocalStack.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

// ConsumerConfig tunes the polling loops.
type ConsumerConfig struct {
	MaxMessages int
	IdleDelay   time.Duration
	ErrorDelay  time.Duration
}

// RetryConfig tunes the resilience pipeline.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in when present but never overrides real env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "eu-west-1"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Endpoint:        os.Getenv("AWS_ENDPOINT_URL"),
		},
	}

	var err error
	if cfg.Consumer.MaxMessages, err = getEnvInt("CONSUMER_MAX_MESSAGES", 10); err != nil {
		return nil, err
	}
	if cfg.Consumer.IdleDelay, err = getEnvDuration("CONSUMER_IDLE_DELAY", time.Second); err != nil {
		return nil, err
	}
	if cfg.Consumer.ErrorDelay, err = getEnvDuration("CONSUMER_ERROR_DELAY", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Retry.MaxAttempts, err = getEnvInt("RETRY_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.Retry.InitialInterval, err = getEnvDuration("RETRY_INITIAL_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.Retry.MaxInterval, err = getEnvDuration("RETRY_MAX_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if cfg.Consumer.MaxMessages < 1 || cfg.Consumer.MaxMessages > 10 {
		return nil, fmt.Errorf("CONSUMER_MAX_MESSAGES must be between 1 and 10, got %d", cfg.Consumer.MaxMessages)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
