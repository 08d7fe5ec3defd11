package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers    []string
	KafkaEventTopic string
	KafkaGroupID    string
	KafkaPushTopic  string
	DatabaseURL     string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Matching and dispatch configuration.
	DefaultEventRadiusMiles float64
	ChannelTimeout          time.Duration

	// Notification gateway configuration. A channel is enabled when its
	// gateway URL is set (push only needs the topic).
	EmailGatewayURL   string
	EmailGatewayToken string
	SMSGatewayURL     string
	SMSGatewayToken   string
	PushEnabled       bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	channelTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("CHANNEL_TIMEOUT", "10s"))
	if err != nil || channelTimeout <= 0 {
		return nil, errors.New("invalid CHANNEL_TIMEOUT")
	}

	defaultRadius, err := parseDefaultEventRadius()
	if err != nil {
		return nil, err
	}

	pushEnabled := true
	if v := os.Getenv("PUSH_ENABLED"); v != "" {
		pushEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaEventTopic:    sharedcfg.EnvOrDefault("KAFKA_EVENT_TOPIC", "transformed-weather-data"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "storm-alert-service"),
		KafkaPushTopic:     sharedcfg.EnvOrDefault("KAFKA_PUSH_TOPIC", "territory-alert-push"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		DefaultEventRadiusMiles: defaultRadius,
		ChannelTimeout:          channelTimeout,

		EmailGatewayURL:   os.Getenv("EMAIL_GATEWAY_URL"),
		EmailGatewayToken: os.Getenv("EMAIL_GATEWAY_TOKEN"),
		SMSGatewayURL:     os.Getenv("SMS_GATEWAY_URL"),
		SMSGatewayToken:   os.Getenv("SMS_GATEWAY_TOKEN"),
		PushEnabled:       pushEnabled,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaEventTopic == "" {
		return nil, errors.New("KAFKA_EVENT_TOPIC is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.PushEnabled && cfg.KafkaPushTopic == "" {
		return nil, errors.New("PUSH_ENABLED is true but KAFKA_PUSH_TOPIC is not set")
	}

	return cfg, nil
}

func parseDefaultEventRadius() (float64, error) {
	s := sharedcfg.EnvOrDefault("DEFAULT_EVENT_RADIUS_MILES", "5")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, errors.New("invalid DEFAULT_EVENT_RADIUS_MILES")
	}
	return v, nil
}
