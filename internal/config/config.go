package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Set defaults
	config := GetDefaults()

	// Configure viper
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/etc/remediator/")

	// Environment variable overrides
	viper.SetEnvPrefix("REMEDIATOR")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Use specific config file if provided
	if configPath != "" {
		viper.SetConfigFile(configPath)
	}

	// Read configuration
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks that every required setting is present and well formed.
// A missing entry is fatal: the pipeline never attempts work without it.
func Validate(config *Config) error {
	required := map[string]string{
		"storage.quarantine_container":  config.Storage.QuarantineContainer,
		"storage.destination_container": config.Storage.DestinationContainer,
		"audit.database_url":            config.Audit.DatabaseURL,
		"audit.table_name":              config.Audit.TableName,
		"queue.url":                     config.Queue.URL,
		"queue.success_queue":           config.Queue.SuccessQueue,
		"queue.failure_queue":           config.Queue.FailureQueue,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is not set", name)
		}
	}

	switch config.Storage.Driver {
	case "s3":
		if config.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is not set")
		}
	case "filesystem":
		if config.Storage.Filesystem.Root == "" {
			return fmt.Errorf("storage.filesystem.root is not set")
		}
	case "memory":
	default:
		return fmt.Errorf("invalid storage driver: %s (must be s3, filesystem, or memory)", config.Storage.Driver)
	}

	switch config.Trigger.Source {
	case "queue":
		if config.Trigger.ArrivalQueue == "" {
			return fmt.Errorf("trigger.arrival_queue is not set")
		}
	case "watcher":
		if config.Storage.Driver != "filesystem" {
			return fmt.Errorf("trigger source watcher requires the filesystem storage driver")
		}
	default:
		return fmt.Errorf("invalid trigger source: %s (must be queue or watcher)", config.Trigger.Source)
	}

	if err := ValidateQueueURL(config.Queue.URL); err != nil {
		return err
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	if config.Ops.Port <= 0 || config.Ops.Port > 65535 {
		return fmt.Errorf("invalid ops port: %d", config.Ops.Port)
	}

	return nil
}

// ValidateQueueURL checks the queue connection URL structurally before
// first use: it must carry an endpoint host, a key name, and a key.
func ValidateQueueURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("queue.url is not a valid URL: %w", err)
	}

	if parsed.Scheme != "redis" && parsed.Scheme != "rediss" {
		return fmt.Errorf("queue.url has unsupported scheme: %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("queue.url is missing the endpoint host")
	}
	if parsed.User == nil || parsed.User.Username() == "" {
		return fmt.Errorf("queue.url is missing the key name")
	}
	if _, ok := parsed.User.Password(); !ok {
		return fmt.Errorf("queue.url is missing the key")
	}

	return nil
}
