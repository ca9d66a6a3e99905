package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds configuration for all services
type Config struct {
	// Service name
	ServiceName string

	// gRPC health server port
	GRPCPort int

	// HTTP health and metrics port
	HTTPPort int

	// Log level: debug, info, warn, error
	LogLevel string

	// Kafka brokers (comma-separated)
	KafkaBrokers string

	// Kafka client id and consumer group
	KafkaClientID      string
	KafkaConsumerGroup string

	// Topics
	RequestsTopic   string
	ResultsTopic    string
	RejectionsTopic string

	// How long a request key is remembered for redelivery dedup
	DedupTTL time.Duration

	// Attempts per record before the consumer gives up on it
	HandlerMaxRetries int
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig(serviceName string) *Config {
	cfg := &Config{
		ServiceName:        serviceName,
		GRPCPort:           getEnvAsInt("PORT_GRPC", 50053),
		HTTPPort:           getEnvAsInt("PORT_HTTP", 8080),
		LogLevel:           getEnvAsString("LOG_LEVEL", "info"),
		KafkaBrokers:       getEnvAsString("KAFKA_BROKERS", "127.0.0.1:9092"),
		KafkaClientID:      getEnvAsString("KAFKA_CLIENT_ID", serviceName),
		KafkaConsumerGroup: getEnvAsString("KAFKA_CONSUMER_GROUP", serviceName+"-v1"),
		RequestsTopic:      getEnvAsString("TOPIC_REQUESTS", "execution.requests"),
		ResultsTopic:       getEnvAsString("TOPIC_RESULTS", "execution.results"),
		RejectionsTopic:    getEnvAsString("TOPIC_REJECTIONS", "execution.rejections"),
		DedupTTL:           getEnvAsDuration("DEDUP_TTL", 10*time.Minute),
		HandlerMaxRetries:  getEnvAsInt("HANDLER_MAX_RETRIES", 3),
	}

	if cfg.HandlerMaxRetries < 1 {
		cfg.HandlerMaxRetries = 1
	}

	return cfg
}

// GRPCAddr returns the gRPC server address
func (c *Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

// HTTPAddr returns the HTTP server address
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func getEnvAsString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
