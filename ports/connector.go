package ports

import (
	"context"
	"time"

	"spendlens/domain/contract"
)

// Connector pulls vendor contracts from one enterprise system
type Connector interface {
	// Name is the source system label recorded on fetched contracts
	Name() string
	// FetchContracts pulls and normalizes every available contract
	FetchContracts(ctx context.Context) ([]contract.Contract, error)
	// TestConnection verifies credentials without pulling data
	TestConnection(ctx context.Context) error
}

// SourceStatus reports one connector's health for the sources endpoint
type SourceStatus struct {
	Name      string     `json:"name"`
	Connected bool       `json:"connected"`
	Error     string     `json:"error,omitempty"`
	LastFetch *time.Time `json:"last_fetch,omitempty"`
	LastCount int        `json:"last_count"`
}

// ConsolidatedResult is the combined output of all connectors
type ConsolidatedResult struct {
	Contracts []contract.Contract
	// PerSource counts records fetched by connector name
	PerSource map[string]int
	// Warnings lists sources that were skipped with their reasons
	Warnings []string
	// FetchedAt is when consolidation completed
	FetchedAt time.Time
}
