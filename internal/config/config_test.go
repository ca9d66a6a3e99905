package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig("backtest-execution")

	assert.Equal(t, "backtest-execution", cfg.ServiceName)
	assert.Equal(t, ":50053", cfg.GRPCAddr())
	assert.Equal(t, ":8080", cfg.HTTPAddr())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "backtest-execution-v1", cfg.KafkaConsumerGroup)
	assert.Equal(t, "execution.requests", cfg.RequestsTopic)
	assert.Equal(t, "execution.results", cfg.ResultsTopic)
	assert.Equal(t, "execution.rejections", cfg.RejectionsTopic)
	assert.Equal(t, 10*time.Minute, cfg.DedupTTL)
	assert.Equal(t, 3, cfg.HandlerMaxRetries)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("PORT_HTTP", "9100")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TOPIC_RESULTS", "sim.results")
	t.Setenv("DEDUP_TTL", "90s")
	t.Setenv("HANDLER_MAX_RETRIES", "0")
	t.Setenv("PORT_GRPC", "not-a-port")

	cfg := LoadConfig("backtest-execution")

	assert.Equal(t, ":9100", cfg.HTTPAddr())
	assert.Equal(t, ":50053", cfg.GRPCAddr(), "invalid ints fall back to the default")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "sim.results", cfg.ResultsTopic)
	assert.Equal(t, 90*time.Second, cfg.DedupTTL)
	assert.Equal(t, 1, cfg.HandlerMaxRetries)
}
