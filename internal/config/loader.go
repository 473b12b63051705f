package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"avnotify/internal/constants"
)

var envFiles = []string{".env"}

// LoadConfig reads configFile when given, then layers the process environment
// (and a local .env file) on top. An empty configFile is valid: every setting
// has a default or an environment variable.
func LoadConfig(configFile string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindEnvVariables()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func loadEnvFiles() error {
	for _, file := range envFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		// Load keeps variables already present in the process environment.
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", file, err)
		}
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("server.port", constants.DefaultServerPort)
	viper.SetDefault("server.read_timeout", constants.DefaultServerTimeout)
	viper.SetDefault("server.write_timeout", constants.DefaultServerTimeout)

	viper.SetDefault("broker.type", "kafka")
	viper.SetDefault("broker.kafka.group_id", constants.DefaultGroupID)
	viper.SetDefault("broker.kafka.input_topic", constants.DefaultInputTopic)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("slack.timeout", constants.DefaultHTTPTimeout)
	viper.SetDefault("slack.notify_on_clean", "false")

	viper.SetDefault("tracing.service_name", constants.ServiceName)
}

func bindEnvVariables() {
	viper.BindEnv("slack.webhook_url", "SLACK_NOTIFICATION_WEBHOOK_URL")
	viper.BindEnv("slack.notify_on_clean", "SLACK_NOTIFICATION_ON_CLEAN")
	viper.BindEnv("slack.timeout", "SLACK_TIMEOUT")

	viper.BindEnv("datadog.api_key", "DATADOG_API_KEY")
	viper.BindEnv("datadog.site", "DATADOG_SITE", "DD_SITE")

	viper.BindEnv("broker.type", "BROKER_TYPE")
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.group_id", "BROKER_KAFKA_GROUP_ID")
	viper.BindEnv("broker.kafka.input_topic", "BROKER_KAFKA_INPUT_TOPIC")

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
}

func applyEnvOverrides(cfg *Config) {
	if brokersEnv := os.Getenv("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		var brokers []string
		for _, b := range strings.Split(brokersEnv, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		if len(brokers) > 0 {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	cfg.Slack.WebhookURL = strings.TrimSpace(cfg.Slack.WebhookURL)
	cfg.Datadog.APIKey = strings.TrimSpace(cfg.Datadog.APIKey)
	cfg.Slack.NotifyOnClean = ParseFlag(viper.GetString("slack.notify_on_clean"))
}
