package msg

import (
	"strings"
)

// Config holds Kafka configuration
type Config struct {
	Brokers  []string
	ClientID string
}

// NewConfig builds a Kafka configuration from a comma-separated broker list
func NewConfig(brokers, clientID string) *Config {
	return &Config{
		Brokers:  ParseBrokers(brokers),
		ClientID: clientID,
	}
}

// ParseBrokers splits a comma-separated broker list, dropping empty entries
func ParseBrokers(brokers string) []string {
	list := make([]string, 0)
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			list = append(list, b)
		}
	}
	return list
}
