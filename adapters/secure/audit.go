package secure

import (
	"encoding/json"
	"sync"
	"time"

	"spendlens/domain/core"
	"spendlens/domain/table"
)

// AuditEntry records one crypto operation for compliance review
type AuditEntry struct {
	ID        core.AuditID `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Operation string       `json:"operation"`
	Columns   []string     `json:"columns"`
	Rows      int          `json:"rows"`
}

// Audit accumulates crypto operations in memory. The pipeline exports
// it alongside the run report.
type Audit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// NewAudit creates an empty audit log
func NewAudit() *Audit {
	return &Audit{}
}

// Record appends one operation
func (a *Audit) Record(operation string, columns []string, rows int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cols := make([]string, len(columns))
	copy(cols, columns)
	a.entries = append(a.entries, AuditEntry{
		ID:        core.AuditID(core.NewID()),
		Timestamp: time.Now().UTC(),
		Operation: operation,
		Columns:   cols,
		Rows:      rows,
	})
}

// Entries returns a copy of the log
func (a *Audit) Entries() []AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]AuditEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// AuditExport is the on-disk shape of an exported audit log
type AuditExport struct {
	GeneratedAt     time.Time    `json:"generated_at"`
	TotalOperations int          `json:"total_operations"`
	Operations      []AuditEntry `json:"operations"`
}

// Export marshals the log for inclusion in run reports
func (a *Audit) Export() ([]byte, error) {
	entries := a.Entries()
	return json.MarshalIndent(AuditExport{
		GeneratedAt:     time.Now().UTC(),
		TotalOperations: len(entries),
		Operations:      entries,
	}, "", "  ")
}

// VerifyIntegrity confirms that encryption touched only the named
// columns: every other column must fingerprint identically before and
// after. Returns the columns that unexpectedly changed.
func VerifyIntegrity(before, after *table.Table, encrypted []string) []string {
	touched := map[string]bool{}
	for _, col := range encrypted {
		touched[col] = true
	}

	var changed []string
	for _, col := range before.Columns {
		if touched[col] {
			continue
		}
		if !after.HasColumn(col) {
			changed = append(changed, col)
			continue
		}
		if before.Fingerprint(col) != after.Fingerprint(col) {
			changed = append(changed, col)
		}
	}
	return changed
}
