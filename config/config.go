package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the client.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Idle    IdleConfig    `yaml:"idle"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig holds backend REST API configuration.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// SessionConfig holds session lifecycle configuration.
type SessionConfig struct {
	// TTL is the session lifetime applied at (re)establishment.
	// A JWT exp claim on the issued token takes precedence.
	TTL time.Duration `yaml:"ttl"`

	// SnapshotPath is where the encrypted credential snapshot lives.
	SnapshotPath string `yaml:"snapshot_path"`

	// SnapshotSecret is the passphrase the snapshot key is derived from.
	SnapshotSecret string `yaml:"snapshot_secret"`
}

// IdleConfig holds inactivity timeout configuration.
type IdleConfig struct {
	// TotalTimeout is the inactivity period after which the session ends.
	TotalTimeout time.Duration `yaml:"total_timeout"`

	// WarningLead is how long before the forced logout the warning fires.
	WarningLead time.Duration `yaml:"warning_lead"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Environment string `yaml:"environment"`
	FileEnabled bool   `yaml:"file_enabled"`
	FilePath    string `yaml:"file_path"`
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        getEnv("NEXTSTEP_API_URL", "http://localhost:5000"),
			RequestTimeout: getEnvDuration("NEXTSTEP_API_TIMEOUT", 15*time.Second),
		},
		Session: SessionConfig{
			TTL:            getEnvDuration("NEXTSTEP_SESSION_TTL", 12*time.Hour),
			SnapshotPath:   getEnv("NEXTSTEP_SNAPSHOT_PATH", defaultSnapshotPath()),
			SnapshotSecret: getEnv("NEXTSTEP_SNAPSHOT_SECRET", ""),
		},
		Idle: IdleConfig{
			TotalTimeout: getEnvDuration("NEXTSTEP_IDLE_TIMEOUT", 30*time.Minute),
			WarningLead:  getEnvDuration("NEXTSTEP_IDLE_WARNING_LEAD", 5*time.Minute),
		},
		Logging: LoggingConfig{
			Level:       getEnv("NEXTSTEP_LOG_LEVEL", "info"),
			Environment: getEnv("NEXTSTEP_ENV", "development"),
			FileEnabled: getEnvBool("NEXTSTEP_LOG_FILE_ENABLED", false),
			FilePath:    getEnv("NEXTSTEP_LOG_FILE", "./data/client.log"),
		},
	}
}

// LoadFile loads configuration from environment variables, then overlays
// values from a YAML file. File values win over environment defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if c.Idle.TotalTimeout <= 0 {
		return fmt.Errorf("idle.total_timeout must be positive")
	}
	if c.Idle.WarningLead <= 0 || c.Idle.WarningLead >= c.Idle.TotalTimeout {
		return fmt.Errorf("idle.warning_lead must be positive and shorter than idle.total_timeout")
	}
	return nil
}

func defaultSnapshotPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data/session.snap"
	}
	return home + "/.nextstep/session.snap"
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
