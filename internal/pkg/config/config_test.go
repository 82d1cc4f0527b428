package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/eshop/internal/pkg/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "DB_PATH", "PLACEMENT_LOG_PATH", "CATALOG_PATH", "KAFKA_BROKERS", "SHIPPING_TOPIC",
		"KAFKA_GROUP_ID", "REDIS_ADDR", "OTEL_SERVICE_NAME", "OTEL_EXPORTER_OTLP_ENDPOINT",
		"LOG_LEVEL", "POLL_INTERVAL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("order-service")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "./data/eshop.db", cfg.DBPath)
	assert.Equal(t, "shipping.created", cfg.ShippingTopic)
	assert.Equal(t, "order-service", cfg.ServiceName)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.OTLPEndpoint)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("KAFKA_BROKERS", "kafka:9092")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("OTEL_SERVICE_NAME", "custom")
	t.Setenv("POLL_INTERVAL", "250ms")

	cfg, err := config.Load("order-service")
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, "kafka:9092", cfg.KafkaBrokers)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, "custom", cfg.ServiceName)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "http")
	t.Setenv("POLL_INTERVAL", "-1s")

	_, err := config.Load("order-service")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "POLL_INTERVAL")
}
