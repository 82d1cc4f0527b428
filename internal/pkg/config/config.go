// Package config reads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port             string
	DBPath           string
	PlacementLogPath string
	CatalogPath      string
	// KafkaBrokers is a comma separated list. Empty selects the in-memory queue.
	KafkaBrokers  string
	ShippingTopic string
	KafkaGroupID  string
	// RedisAddr empty disables the idempotency cache.
	RedisAddr    string
	ServiceName  string
	OTLPEndpoint string
	LogLevel     string
	PollInterval time.Duration
}

// Load reads the environment. serviceName is the OTEL_SERVICE_NAME default.
func Load(serviceName string) (Config, error) {
	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		DBPath:           getEnv("DB_PATH", "./data/eshop.db"),
		PlacementLogPath: getEnv("PLACEMENT_LOG_PATH", "./data/placement.db"),
		CatalogPath:      getEnv("CATALOG_PATH", "./catalog.yaml"),
		KafkaBrokers:     os.Getenv("KAFKA_BROKERS"),
		ShippingTopic:    getEnv("SHIPPING_TOPIC", "shipping.created"),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", "shipping-processor"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		ServiceName:      getEnv("OTEL_SERVICE_NAME", serviceName),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	var errs []error
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT %q is not a number", cfg.Port))
	}

	interval, err := time.ParseDuration(getEnv("POLL_INTERVAL", "1s"))
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("POLL_INTERVAL: %w", err))
	case interval <= 0:
		errs = append(errs, fmt.Errorf("POLL_INTERVAL must be positive, got %s", interval))
	}
	cfg.PollInterval = interval

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c Config) Addr() string { return ":" + c.Port }

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
