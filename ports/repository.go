package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"spendlens/domain/contract"
	"spendlens/domain/core"
	"spendlens/domain/insight"
)

// ContractRepository persists the consolidated contract set
type ContractRepository interface {
	// ReplaceAll swaps the stored contract set for a fresh pipeline result
	ReplaceAll(ctx context.Context, contracts []contract.Contract) error
	ListAll(ctx context.Context) ([]contract.Contract, error)
	// ListExpiring returns contracts ending within the window, soonest first
	ListExpiring(ctx context.Context, within time.Duration) ([]contract.Contract, error)
	TotalAnnualSpend(ctx context.Context) (decimal.Decimal, error)
}

// RunRecord is one pipeline run's persisted outcome
type RunRecord struct {
	ID               core.RunID     `json:"id"`
	StartedAt        time.Time      `json:"started_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
	Success          bool           `json:"success"`
	DryRun           bool           `json:"dry_run"`
	RecordsProcessed int            `json:"records_processed"`
	QualityScore     float64        `json:"quality_score"`
	Error            string         `json:"error,omitempty"`
	StepDurations    map[string]int `json:"step_durations,omitempty"` // milliseconds
}

// RunRepository persists pipeline run history
type RunRepository interface {
	Create(ctx context.Context, run *RunRecord) error
	Finish(ctx context.Context, run *RunRecord) error
	GetByID(ctx context.Context, id core.RunID) (*RunRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*RunRecord, error)
	// Stats aggregates totals over all recorded runs
	Stats(ctx context.Context) (*RunStats, error)
}

// RunStats mirrors the pipeline_stats block of the status output
type RunStats struct {
	TotalRuns        int        `json:"total_runs"`
	SuccessfulRuns   int        `json:"successful_runs"`
	FailedRuns       int        `json:"failed_runs"`
	LastRunTime      *time.Time `json:"last_run_time,omitempty"`
	LastError        string     `json:"last_error,omitempty"`
	RecordsProcessed int        `json:"records_processed"`
}

// SnapshotRepository persists computed scorecards for trend queries
type SnapshotRepository interface {
	Save(ctx context.Context, id core.SnapshotID, card *insight.Scorecard) error
	Latest(ctx context.Context) (*insight.Scorecard, error)
	ListSince(ctx context.Context, since time.Time) ([]*insight.Scorecard, error)
}
