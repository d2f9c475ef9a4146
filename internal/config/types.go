package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Audit     AuditConfig     `yaml:"audit" mapstructure:"audit"`
	Queue     QueueConfig     `yaml:"queue" mapstructure:"queue"`
	Trigger   TriggerConfig   `yaml:"trigger" mapstructure:"trigger"`
	Redaction RedactionConfig `yaml:"redaction" mapstructure:"redaction"`
	Ops       OpsConfig       `yaml:"ops" mapstructure:"ops"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// StorageConfig contains object store configuration
type StorageConfig struct {
	Driver               string           `yaml:"driver" mapstructure:"driver"` // s3, filesystem, or memory
	QuarantineContainer  string           `yaml:"quarantine_container" mapstructure:"quarantine_container"`
	DestinationContainer string           `yaml:"destination_container" mapstructure:"destination_container"`
	S3                   S3Config         `yaml:"s3" mapstructure:"s3"`
	Filesystem           FilesystemConfig `yaml:"filesystem" mapstructure:"filesystem"`
}

// S3Config contains S3 client configuration
type S3Config struct {
	Region          string `yaml:"region" mapstructure:"region"`
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" mapstructure:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style" mapstructure:"use_path_style"`
}

// FilesystemConfig contains local filesystem store configuration
type FilesystemConfig struct {
	Root string `yaml:"root" mapstructure:"root"`
}

// AuditConfig contains the remediation ledger database configuration
type AuditConfig struct {
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	TableName       string        `yaml:"table_name" mapstructure:"table_name"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// QueueConfig contains notification queue configuration
type QueueConfig struct {
	URL          string `yaml:"url" mapstructure:"url"`
	SuccessQueue string `yaml:"success_queue" mapstructure:"success_queue"`
	FailureQueue string `yaml:"failure_queue" mapstructure:"failure_queue"`
}

// TriggerConfig contains object-arrival trigger configuration
type TriggerConfig struct {
	Source        string        `yaml:"source" mapstructure:"source"` // queue or watcher
	ArrivalQueue  string        `yaml:"arrival_queue" mapstructure:"arrival_queue"`
	RatePerSecond float64       `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	Burst         int           `yaml:"burst" mapstructure:"burst"`
	SettleDelay   time.Duration `yaml:"settle_delay" mapstructure:"settle_delay"`   // watcher: quiet period before a file counts as fully written
	DrainTimeout  time.Duration `yaml:"drain_timeout" mapstructure:"drain_timeout"` // bound on in-flight invocations during shutdown
}

// RedactionConfig contains redaction engine configuration
type RedactionConfig struct {
	Delimiter       string   `yaml:"delimiter" mapstructure:"delimiter"`
	SensitiveFields []string `yaml:"sensitive_fields" mapstructure:"sensitive_fields"`
}

// OpsConfig contains the operational HTTP server configuration
type OpsConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver:               "filesystem",
			QuarantineContainer:  "quarantine",
			DestinationContainer: "sanitized",
			Filesystem: FilesystemConfig{
				Root: "./data",
			},
		},
		Audit: AuditConfig{
			TableName:       "remediation_records",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Queue: QueueConfig{
			SuccessQueue: "redaction-success",
			FailureQueue: "redaction-failure",
		},
		Trigger: TriggerConfig{
			Source:        "queue",
			ArrivalQueue:  "quarantine-arrivals",
			RatePerSecond: 50,
			Burst:         10,
			SettleDelay:   500 * time.Millisecond,
			DrainTimeout:  30 * time.Second,
		},
		Redaction: RedactionConfig{
			Delimiter: ",",
			SensitiveFields: []string{
				"CreditCardNumber",
				"CardNumber",
				"CCNumber",
				"ExpirationDate",
				"ExpiryDate",
				"Expiry",
				"Expiration",
			},
		},
		Ops: OpsConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
