package ports

import (
	"spendlens/domain/table"
)

// TableCipher encrypts and masks sensitive columns of a table
type TableCipher interface {
	// EncryptColumns replaces the named columns' cells with ciphertext
	EncryptColumns(t *table.Table, columns []string) (*table.Table, error)
	// DecryptColumns reverses EncryptColumns for the named columns
	DecryptColumns(t *table.Table, columns []string) (*table.Table, error)
	// SensitiveColumns identifies columns that should be protected
	SensitiveColumns(t *table.Table) []string
}

// AuditExporter is implemented by ciphers that keep an operation log
type AuditExporter interface {
	// ExportAudit serializes the audit log for persistence
	ExportAudit() ([]byte, error)
}

// Notifier delivers pipeline run outcomes to an external channel
type Notifier interface {
	// NotifyRun sends a run outcome; implementations decide on no-op
	NotifyRun(summary RunNotification) error
}

// RunNotification is the payload handed to notifiers after a run
type RunNotification struct {
	RunID        string   `json:"run_id"`
	Success      bool     `json:"success"`
	DryRun       bool     `json:"dry_run"`
	Records      int      `json:"records_processed"`
	QualityScore float64  `json:"quality_score"`
	Error        string   `json:"error,omitempty"`
	TopInsights  []string `json:"top_insights,omitempty"`
	BodyHTML     string   `json:"body_html,omitempty"`
}
