package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseFlag(t *testing.T) {
	for _, v := range []string{"true", "True", "1", "yes", "Y", "on", " t "} {
		assert.True(t, ParseFlag(v), v)
	}
	for _, v := range []string{"", "false", "0", "no", "off", "maybe"} {
		assert.False(t, ParseFlag(v), v)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "scan_results", cfg.Broker.Kafka.InputTopic)
	assert.Equal(t, "avnotify", cfg.Broker.Kafka.GroupID)
	assert.False(t, cfg.Broker.Kafka.Enabled())
	assert.False(t, cfg.Datadog.Enabled())
	assert.False(t, cfg.Slack.Enabled())
	assert.False(t, cfg.Slack.NotifyOnClean)
	assert.Equal(t, 10*time.Second, cfg.Slack.Timeout)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  read_timeout: 5s
  write_timeout: 5s
broker:
  type: kafka
  kafka:
    brokers: ["kafka-1:9092"]
    group_id: notifier
    input_topic: av_results
logging:
  level: debug
slack:
  webhook_url: https://hooks.slack.com/services/T000/B000/XXX
  notify_on_clean: "yes"
datadog:
  api_key: dd-key
  site: datadoghq.eu
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"kafka-1:9092"}, cfg.Broker.Kafka.Brokers)
	assert.Equal(t, "notifier", cfg.Broker.Kafka.GroupID)
	assert.Equal(t, "av_results", cfg.Broker.Kafka.InputTopic)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Slack.Enabled())
	assert.True(t, cfg.Slack.NotifyOnClean)
	assert.Equal(t, "dd-key", cfg.Datadog.APIKey)
	assert.Equal(t, "datadoghq.eu", cfg.Datadog.Site)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SLACK_NOTIFICATION_WEBHOOK_URL", "https://hooks.example.com/abc")
	t.Setenv("SLACK_NOTIFICATION_ON_CLEAN", "1")
	t.Setenv("DATADOG_API_KEY", "env-key")
	t.Setenv("BROKER_KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://hooks.example.com/abc", cfg.Slack.WebhookURL)
	assert.True(t, cfg.Slack.NotifyOnClean)
	assert.Equal(t, "env-key", cfg.Datadog.APIKey)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Broker.Kafka.Brokers)
}

func TestNotifyOnCleanUnparseableIsFalse(t *testing.T) {
	t.Setenv("SLACK_NOTIFICATION_ON_CLEAN", "definitely")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.Slack.NotifyOnClean)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidateStatic(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080, ReadTimeout: time.Second, WriteTimeout: time.Second},
			Broker: BrokerConfig{Type: "kafka", Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"}, GroupID: "g", InputTopic: "t",
			}},
			Slack: SlackConfig{WebhookURL: "https://hooks.slack.com/x", Timeout: time.Second},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, field: "server.port"},
		{name: "unknown broker", mutate: func(c *Config) { c.Broker.Type = "rabbitmq" }, field: "broker.type"},
		{name: "empty broker address", mutate: func(c *Config) { c.Broker.Kafka.Brokers = []string{" "} }, field: "broker.kafka.brokers[0]"},
		{name: "missing group", mutate: func(c *Config) { c.Broker.Kafka.GroupID = "" }, field: "broker.kafka.group_id"},
		{name: "relative webhook", mutate: func(c *Config) { c.Slack.WebhookURL = "hooks/abc" }, field: "slack.webhook_url"},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, field: "logging.format"},
		{name: "no brokers skips broker checks", mutate: func(c *Config) {
			c.Broker = BrokerConfig{}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := ValidateStatic(cfg)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
