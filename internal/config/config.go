package config

import (
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Broker  BrokerConfig
	Logging LoggingConfig
	Datadog DatadogConfig
	Slack   SlackConfig
	Tracing TracingConfig
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers    []string `mapstructure:"brokers"`
	GroupID    string   `mapstructure:"group_id"`
	InputTopic string   `mapstructure:"input_topic"`
}

// Enabled reports whether any broker address is configured. Without one the
// service only serves the HTTP API.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatadogConfig enables metric reporting when APIKey is set.
type DatadogConfig struct {
	APIKey string `mapstructure:"api_key"`
	Site   string `mapstructure:"site"`
}

func (c DatadogConfig) Enabled() bool {
	return c.APIKey != ""
}

// SlackConfig enables chat notifications when WebhookURL is set.
// NotifyOnClean is parsed once from the string setting slack.notify_on_clean.
type SlackConfig struct {
	WebhookURL    string        `mapstructure:"webhook_url"`
	NotifyOnClean bool          `mapstructure:"-"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

func (c SlackConfig) Enabled() bool {
	return c.WebhookURL != ""
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

// ParseFlag is the permissive truthiness used for string-typed switches.
// Unrecognised values, including the empty string, are false.
func ParseFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "t", "1", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
