package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrMetricNotFound   = fmt.Errorf("%w: metric", ErrNotFound)
	ErrPersonaNotFound  = fmt.Errorf("%w: persona", ErrNotFound)
	ErrRunNotFound      = fmt.Errorf("%w: run", ErrNotFound)
	ErrSnapshotNotFound = fmt.Errorf("%w: snapshot", ErrNotFound)
	ErrColumnNotFound   = fmt.Errorf("%w: column", ErrNotFound)

	// Validation errors
	ErrEmptyTable       = errors.New("table has no rows")
	ErrRaggedRow        = errors.New("row width does not match header")
	ErrMissingVendor    = errors.New("vendor is required")
	ErrSpendOutOfRange  = errors.New("annual spend outside plausible range")
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// Source errors
	ErrSourceUnavailable = errors.New("data source unavailable")
	ErrSourceDisabled    = errors.New("data source disabled")
	ErrAuthFailed        = errors.New("source authentication failed")

	// Pipeline errors
	ErrRunInProgress = errors.New("pipeline run already in progress")
	ErrStepFailed    = errors.New("pipeline step failed")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

func NewSourceError(source string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, source, err)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyTable) ||
		errors.Is(err, ErrRaggedRow) ||
		errors.Is(err, ErrMissingVendor) ||
		errors.Is(err, ErrSpendOutOfRange)
}

func IsSourceError(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) ||
		errors.Is(err, ErrSourceDisabled) ||
		errors.Is(err, ErrAuthFailed)
}
