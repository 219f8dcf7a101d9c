package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RunID      ID
	SnapshotID ID
	UploadID   ID
	AuditID    ID
	MetricKey  ID
)

// String conversions for domain IDs
func (id RunID) String() string      { return ID(id).String() }
func (id SnapshotID) String() string { return ID(id).String() }
func (id UploadID) String() string   { return ID(id).String() }
func (id AuditID) String() string    { return ID(id).String() }
func (id MetricKey) String() string  { return ID(id).String() }

// MetricKeyFor builds the persona/name registry key. Metric keys are
// path-derived rather than generated.
func MetricKeyFor(persona, name string) MetricKey {
	return MetricKey(persona + "/" + name)
}

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}

// ParseSnapshotID parses a string into SnapshotID
func ParseSnapshotID(s string) (SnapshotID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("snapshot ID cannot be empty")
	}
	return SnapshotID(s), nil
}

// ParseUploadID parses a string into UploadID
func ParseUploadID(s string) (UploadID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("upload ID cannot be empty")
	}
	return UploadID(s), nil
}
