package config

import (
	"os"
	"strconv"
	"time"

	"spendlens/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `validate:"required"`
	Ops      OpsConfig      `validate:"required"`
	Database DatabaseConfig
	Data     DataConfig `validate:"required"`
	Crypto   CryptoConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string `validate:"required"`
	GinMode string
}

// OpsConfig holds the operational endpoints server settings
type OpsConfig struct {
	Port    string
	Enabled bool
}

// DatabaseConfig holds database connection settings. The service runs in
// file-only mode when no URL is configured.
type DatabaseConfig struct {
	URL     string
	Enabled bool
}

// DataConfig holds registry and pipeline filesystem paths
type DataConfig struct {
	Root               string `validate:"required"`
	PipelineConfigPath string
}

// CryptoConfig holds the encryption key material sources
type CryptoConfig struct {
	Key        string // base64 32-byte key, preferred
	Passphrase string // fallback, key derived per handler salt
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "debug"),
		},
		Ops: OpsConfig{
			Port:    getEnvOrDefault("OPS_PORT", "9090"),
			Enabled: getEnvBoolOrDefault("OPS_ENABLED", true),
		},
		Data: DataConfig{
			Root:               getEnvOrDefault("DATA_ROOT", "data"),
			PipelineConfigPath: getEnvOrDefault("PIPELINE_CONFIG", "pipeline_config.json"),
		},
		Crypto: CryptoConfig{
			Key:        os.Getenv("SPENDLENS_ENCRYPTION_KEY"),
			Passphrase: os.Getenv("SPENDLENS_PASSPHRASE"),
		},
	}

	dbURL := os.Getenv("DATABASE_URL")
	config.Database = DatabaseConfig{
		URL:     dbURL,
		Enabled: dbURL != "",
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if config.Data.Root == "" {
		return errors.ConfigInvalid("data root is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
