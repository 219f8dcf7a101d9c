package postgres

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
)

// migration is one versioned schema change. SQL is embedded so the
// binary migrates itself without a migrations directory on disk.
type migration struct {
	Version string
	Name    string
	SQL     string
}

var migrations = []migration{
	{
		Version: "001",
		Name:    "contracts",
		SQL: `CREATE TABLE IF NOT EXISTS contracts (
			id BIGSERIAL PRIMARY KEY,
			vendor TEXT NOT NULL,
			system_product TEXT NOT NULL,
			start_date DATE,
			end_date DATE,
			annual_spend NUMERIC(14,2) NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT 'USD',
			contract_number TEXT NOT NULL DEFAULT '',
			contract_type TEXT NOT NULL DEFAULT '',
			department TEXT NOT NULL DEFAULT '',
			renewal_option TEXT NOT NULL DEFAULT '',
			source_system TEXT NOT NULL DEFAULT '',
			fetched_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_contracts_end_date ON contracts (end_date);
		CREATE INDEX IF NOT EXISTS idx_contracts_vendor ON contracts (vendor);`,
	},
	{
		Version: "002",
		Name:    "pipeline_runs",
		SQL: `CREATE TABLE IF NOT EXISTS pipeline_runs (
			id UUID PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ,
			success BOOLEAN NOT NULL DEFAULT FALSE,
			dry_run BOOLEAN NOT NULL DEFAULT FALSE,
			records_processed INTEGER NOT NULL DEFAULT 0,
			quality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			step_durations JSONB
		);
		CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started ON pipeline_runs (started_at DESC);`,
	},
	{
		Version: "003",
		Name:    "scorecard_snapshots",
		SQL: `CREATE TABLE IF NOT EXISTS scorecard_snapshots (
			id UUID PRIMARY KEY,
			generated_at TIMESTAMPTZ NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_generated ON scorecard_snapshots (generated_at DESC);`,
	},
}

// Migrator applies embedded schema migrations
type Migrator struct {
	db *sqlx.DB
}

// NewMigrator creates a new migrator
func NewMigrator(db *sqlx.DB) *Migrator {
	return &Migrator{db: db}
}

// Up executes all pending migrations in version order
func (m *Migrator) Up(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.appliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, mig := range migrations {
		if applied[mig.Version] {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return fmt.Errorf("failed to apply migration %s_%s: %w", mig.Version, mig.Name, err)
		}
		log.Printf("[Migrator] applied %s_%s", mig.Version, mig.Name)
	}

	return nil
}

// Status returns version -> applied for every known migration
func (m *Migrator) Status(ctx context.Context) (map[string]bool, error) {
	applied, err := m.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	status := make(map[string]bool, len(migrations))
	for _, mig := range migrations {
		status[mig.Version+"_"+mig.Name] = applied[mig.Version]
	}
	return status, nil
}

func (m *Migrator) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) apply(ctx context.Context, mig migration) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	checksum := fmt.Sprintf("%x", sha256.Sum256([]byte(mig.SQL)))
	_, err = tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, checksum) VALUES ($1, $2)`,
		mig.Version, checksum)
	if err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	return tx.Commit()
}
