package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"spendlens/internal/errors"
)

// PipelineConfig is the JSON-file configuration driving pipeline runs.
// A missing file is materialized with defaults; a present file is merged
// over the defaults so partial configs stay valid.
type PipelineConfig struct {
	DataSources      DataSourcesConfig      `json:"data_sources"`
	PipelineSettings PipelineSettingsConfig `json:"pipeline_settings"`
	OutputSettings   OutputSettingsConfig   `json:"output_settings"`
	Notifications    NotificationsConfig    `json:"notifications"`
}

// DataSourcesConfig holds per-source connection settings
type DataSourcesConfig struct {
	SAP        SAPSourceConfig    `json:"sap"`
	Paycom     PaycomSourceConfig `json:"paycom"`
	REST       []RESTSourceConfig `json:"rest,omitempty"`
	FileUpload FileUploadConfig   `json:"file_upload"`
}

// SAPSourceConfig configures the SAP OData connector
type SAPSourceConfig struct {
	Enabled      bool   `json:"enabled"`
	BaseURL      string `json:"base_url"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Username     string `json:"username"`
	Password     string `json:"password"`
}

// PaycomSourceConfig configures the Paycom vendor connector
type PaycomSourceConfig struct {
	Enabled   bool   `json:"enabled"`
	BaseURL   string `json:"base_url"`
	APIKey    string `json:"api_key"`
	CompanyID string `json:"company_id"`
}

// RESTSourceConfig configures a generic JSON-over-HTTP contract source
type RESTSourceConfig struct {
	Enabled  bool              `json:"enabled"`
	Name     string            `json:"name"`
	BaseURL  string            `json:"base_url"`
	Endpoint string            `json:"endpoint"`
	AuthType string            `json:"auth_type"` // bearer, basic, api_key
	APIKey   string            `json:"api_key,omitempty"`
	Username string            `json:"username,omitempty"`
	Password string            `json:"password,omitempty"`
	Fields   map[string]string `json:"field_mapping,omitempty"`
}

// FileUploadConfig configures directory-based ingestion
type FileUploadConfig struct {
	Enabled            bool   `json:"enabled"`
	WatchDirectory     string `json:"watch_directory"`
	ProcessedDirectory string `json:"processed_directory"`
}

// PipelineSettingsConfig holds run cadence and behavior switches
type PipelineSettingsConfig struct {
	ScheduleFrequency string `json:"schedule_frequency"` // daily, hourly, weekly
	ScheduleTime      string `json:"schedule_time"`      // HH:MM, daily and weekly
	DataRetentionDays int    `json:"data_retention_days"`
	EnableEncryption  bool   `json:"enable_encryption"`
	BackupEnabled     bool   `json:"backup_enabled"`
	QualityChecks     bool   `json:"quality_checks"`
}

// OutputSettingsConfig holds pipeline output locations
type OutputSettingsConfig struct {
	MetricsRoot       string `json:"metrics_root"`
	BackupDirectory   string `json:"backup_directory"`
	ReportsDirectory  string `json:"reports_directory"`
	ContractsFilename string `json:"contracts_filename"`
}

// NotificationsConfig holds run outcome notification settings
type NotificationsConfig struct {
	WebhookURL      string `json:"webhook_url"`
	NotifyOnSuccess bool   `json:"notify_on_success"`
	NotifyOnFailure bool   `json:"notify_on_failure"`
}

// DefaultPipelineConfig returns the configuration written on first run
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		DataSources: DataSourcesConfig{
			SAP:    SAPSourceConfig{Enabled: false},
			Paycom: PaycomSourceConfig{Enabled: false},
			FileUpload: FileUploadConfig{
				Enabled:            true,
				WatchDirectory:     "data_uploads",
				ProcessedDirectory: "data_processed",
			},
		},
		PipelineSettings: PipelineSettingsConfig{
			ScheduleFrequency: "daily",
			ScheduleTime:      "06:00",
			DataRetentionDays: 30,
			EnableEncryption:  true,
			BackupEnabled:     true,
			QualityChecks:     true,
		},
		OutputSettings: OutputSettingsConfig{
			MetricsRoot:       "data",
			BackupDirectory:   "data_backups",
			ReportsDirectory:  "data_reports",
			ContractsFilename: "vendor_contracts.csv",
		},
		Notifications: NotificationsConfig{
			NotifyOnSuccess: false,
			NotifyOnFailure: true,
		},
	}
}

// LoadPipelineConfig reads the pipeline config file, merging it over the
// defaults. When the file does not exist it is created with defaults.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cfg := DefaultPipelineConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if saveErr := SavePipelineConfig(path, &cfg); saveErr != nil {
			return nil, errors.Wrap(saveErr, "failed to write default pipeline config")
		}
		return &cfg, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read pipeline config %s", path)
	}

	// Unmarshal over the defaults: absent keys keep their default values
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid,
			errors.Wrapf(err, "invalid pipeline config %s", path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SavePipelineConfig writes the config as indented JSON
func SavePipelineConfig(path string, cfg *PipelineConfig) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create config directory %s", dir)
		}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal pipeline config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write pipeline config %s", path)
	}
	return nil
}

// Validate checks cadence and path settings
func (c *PipelineConfig) Validate() error {
	switch c.PipelineSettings.ScheduleFrequency {
	case "daily", "hourly", "weekly":
	default:
		return errors.ConfigInvalid("schedule_frequency must be daily, hourly or weekly")
	}
	if c.PipelineSettings.ScheduleFrequency != "hourly" {
		if _, err := time.Parse("15:04", c.PipelineSettings.ScheduleTime); err != nil {
			return errors.ConfigInvalid("schedule_time must be HH:MM")
		}
	}
	if c.PipelineSettings.DataRetentionDays < 0 {
		return errors.ConfigInvalid("data_retention_days cannot be negative")
	}
	if c.DataSources.FileUpload.Enabled && c.DataSources.FileUpload.WatchDirectory == "" {
		return errors.ConfigInvalid("file_upload.watch_directory is required when file upload is enabled")
	}
	if c.DataSources.SAP.Enabled && c.DataSources.SAP.BaseURL == "" {
		return errors.ConfigInvalid("sap.base_url is required when the SAP source is enabled")
	}
	if c.DataSources.Paycom.Enabled && c.DataSources.Paycom.BaseURL == "" {
		return errors.ConfigInvalid("paycom.base_url is required when the Paycom source is enabled")
	}
	for _, r := range c.DataSources.REST {
		if r.Enabled && (r.Name == "" || r.BaseURL == "") {
			return errors.ConfigInvalid("rest sources require name and base_url when enabled")
		}
	}
	return nil
}
