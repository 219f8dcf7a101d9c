package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"spendlens/domain/core"
	"spendlens/ports"
)

// runRepository implements the RunRepository interface
type runRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new pipeline run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &runRepository{db: db}
}

// Create inserts a new run record at pipeline start
func (r *runRepository) Create(ctx context.Context, run *ports.RunRecord) error {
	durationsJSON, err := json.Marshal(run.StepDurations)
	if err != nil {
		return fmt.Errorf("failed to marshal step durations: %w", err)
	}

	query := `INSERT INTO pipeline_runs (
		id, started_at, completed_at, success, dry_run,
		records_processed, quality_score, error_message, step_durations
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.ExecContext(ctx, query,
		run.ID.String(), run.StartedAt, run.CompletedAt, run.Success, run.DryRun,
		run.RecordsProcessed, run.QualityScore, run.Error, durationsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to create run record: %w", err)
	}

	return nil
}

// Finish updates a run record with its outcome
func (r *runRepository) Finish(ctx context.Context, run *ports.RunRecord) error {
	durationsJSON, err := json.Marshal(run.StepDurations)
	if err != nil {
		return fmt.Errorf("failed to marshal step durations: %w", err)
	}

	query := `UPDATE pipeline_runs SET
		completed_at = $2, success = $3, records_processed = $4,
		quality_score = $5, error_message = $6, step_durations = $7
	WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		run.ID.String(), run.CompletedAt, run.Success, run.RecordsProcessed,
		run.QualityScore, run.Error, durationsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("run not found: %s", run.ID)
	}

	return nil
}

const runColumns = `
	id, started_at, completed_at, success, dry_run,
	COALESCE(records_processed, 0) as records_processed,
	COALESCE(quality_score, 0) as quality_score,
	COALESCE(error_message, '') as error_message,
	step_durations`

// GetByID retrieves one run by its ID
func (r *runRepository) GetByID(ctx context.Context, id core.RunID) (*ports.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM pipeline_runs WHERE id = $1`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRecent retrieves the most recent runs, newest first
func (r *runRepository) ListRecent(ctx context.Context, limit int) ([]*ports.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + runColumns + ` FROM pipeline_runs ORDER BY started_at DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*ports.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Stats aggregates totals over all recorded runs
func (r *runRepository) Stats(ctx context.Context) (*ports.RunStats, error) {
	query := `SELECT
		COUNT(*) as total,
		COUNT(*) FILTER (WHERE success) as successful,
		COUNT(*) FILTER (WHERE completed_at IS NOT NULL AND NOT success) as failed,
		COALESCE(SUM(records_processed), 0) as records
	FROM pipeline_runs`

	var stats ports.RunStats
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalRuns, &stats.SuccessfulRuns, &stats.FailedRuns, &stats.RecordsProcessed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate run stats: %w", err)
	}

	// Last completed run carries the most recent outcome
	var lastTime sql.NullTime
	var lastError sql.NullString
	err = r.db.QueryRowContext(ctx, `
		SELECT completed_at, error_message FROM pipeline_runs
		WHERE completed_at IS NOT NULL
		ORDER BY completed_at DESC LIMIT 1`).Scan(&lastTime, &lastError)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get last run: %w", err)
	}
	if lastTime.Valid {
		t := lastTime.Time
		stats.LastRunTime = &t
	}
	if lastError.Valid {
		stats.LastError = lastError.String
	}

	return &stats, nil
}

// rowScanner covers both sql.Row and sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanRun is a helper function to scan one run row
func scanRun(row rowScanner) (*ports.RunRecord, error) {
	var run ports.RunRecord
	var id string
	var completed sql.NullTime
	var durationsJSON []byte

	err := row.Scan(
		&id, &run.StartedAt, &completed, &run.Success, &run.DryRun,
		&run.RecordsProcessed, &run.QualityScore, &run.Error, &durationsJSON,
	)
	if err != nil {
		return nil, err
	}

	run.ID = core.RunID(id)
	if completed.Valid {
		t := completed.Time
		run.CompletedAt = &t
	}
	if len(durationsJSON) > 0 {
		if err := json.Unmarshal(durationsJSON, &run.StepDurations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal step durations: %w", err)
		}
	}

	return &run, nil
}
