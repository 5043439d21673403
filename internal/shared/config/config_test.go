package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// unsetEnv remove a variável durante o teste; t.Setenv restaura no cleanup
func unsetEnv(t *testing.T, keys ...string) {
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	unsetEnv(t, "ENV", "STORE_DRIVER", "KAFKA_TOPIC_SETTLEMENT_REQUESTS", "KAFKA_TOPIC_BET_SETTLED",
		"REDIS_BALANCE_CHANNEL", "HTTP_PORT_SETTLEMENT", "METRICS_PORT_SETTLEMENT")
	t.Setenv("SERVICE_NAME", "settlement-service")

	cfg := Load()
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, "settlement_requests", cfg.TopicSettlementRequests)
	assert.Equal(t, "bet_settled", cfg.TopicBetSettled)
	assert.Equal(t, "balance_updates", cfg.RedisBalanceChannel)
	assert.Equal(t, "8084", cfg.HTTPPort)
	assert.Equal(t, "9100", cfg.MetricsPort)
	assert.Equal(t, 15*time.Minute, cfg.WSTokenTTL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "settlement-worker")
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SETTLEMENT_SECRET", "s3cret")
	t.Setenv("SETTLEMENT_RATE_LIMIT", "2.5")
	t.Setenv("SETTLEMENT_RATE_BURST", "not-a-number")
	t.Setenv("METRICS_PORT_WORKER", "9999")
	unsetEnv(t, "HTTP_PORT_WORKER")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers())
	assert.Equal(t, "s3cret", cfg.SettlementSecret)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.Equal(t, 100, cfg.RateBurst)
	assert.Equal(t, "", cfg.HTTPPort)
	assert.Equal(t, "9999", cfg.MetricsPort)
}

func TestLoadService_DefaultsWorkerPorts(t *testing.T) {
	unsetEnv(t, "SERVICE_NAME", "HTTP_PORT_WORKER", "METRICS_PORT_WORKER")

	cfg := LoadService("settlement-worker")
	assert.Equal(t, "settlement-worker", cfg.ServiceName)
	assert.Equal(t, "", cfg.HTTPPort)
	assert.Equal(t, "9101", cfg.MetricsPort)
}

func TestLoadService_Simulator(t *testing.T) {
	unsetEnv(t, "SERVICE_NAME", "METRICS_PORT_SIMULATOR", "SIM_USERS")
	t.Setenv("SIM_INTERVAL", "500ms")

	cfg := LoadService("results-simulator")
	assert.Equal(t, "9102", cfg.MetricsPort)
	assert.Equal(t, 500*time.Millisecond, cfg.SimInterval)
	assert.Equal(t, 20, cfg.SimUsers)

	t.Setenv("SIM_INTERVAL", "-1s")
	assert.Equal(t, 2*time.Second, LoadService("results-simulator").SimInterval)
}
