package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"spendlens/domain/contract"
	"spendlens/ports"
)

// contractRepository implements the ContractRepository interface
type contractRepository struct {
	db *sqlx.DB
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *sqlx.DB) ports.ContractRepository {
	return &contractRepository{db: db}
}

const contractColumns = `
	vendor, system_product, start_date, end_date, annual_spend,
	COALESCE(currency, 'USD') as currency,
	COALESCE(contract_number, '') as contract_number,
	COALESCE(contract_type, '') as contract_type,
	COALESCE(department, '') as department,
	COALESCE(renewal_option, '') as renewal_option,
	COALESCE(source_system, '') as source_system,
	fetched_at`

// ReplaceAll swaps the stored contract set inside one transaction so
// readers never observe a partially refreshed table.
func (r *contractRepository) ReplaceAll(ctx context.Context, contracts []contract.Contract) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM contracts`); err != nil {
		return fmt.Errorf("failed to clear contracts: %w", err)
	}

	query := `INSERT INTO contracts (
		vendor, system_product, start_date, end_date, annual_spend,
		currency, contract_number, contract_type, department,
		renewal_option, source_system, fetched_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	for _, c := range contracts {
		_, err := tx.ExecContext(ctx, query,
			c.Vendor, c.SystemProduct, nullTime(c.StartDate), nullTime(c.EndDate), c.AnnualSpend,
			c.Currency, c.ContractNumber, c.ContractType, c.Department,
			c.RenewalOption, c.SourceSystem, c.FetchedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert contract %q: %w", c.Vendor, err)
		}
	}

	return tx.Commit()
}

// ListAll retrieves every stored contract ordered by vendor
func (r *contractRepository) ListAll(ctx context.Context) ([]contract.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts ORDER BY vendor, system_product`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}
	defer rows.Close()

	return scanContracts(rows)
}

// ListExpiring returns contracts ending within the window, soonest first
func (r *contractRepository) ListExpiring(ctx context.Context, within time.Duration) ([]contract.Contract, error) {
	cutoff := time.Now().UTC().Add(within)
	query := `SELECT ` + contractColumns + ` FROM contracts
		WHERE end_date IS NOT NULL AND end_date <= $1
		ORDER BY end_date ASC`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query expiring contracts: %w", err)
	}
	defer rows.Close()

	return scanContracts(rows)
}

// TotalAnnualSpend sums annual spend over the stored contract set
func (r *contractRepository) TotalAnnualSpend(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(annual_spend), 0) FROM contracts`).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum annual spend: %w", err)
	}
	return total, nil
}

// scanContracts is a helper function to scan multiple contract rows
func scanContracts(rows *sql.Rows) ([]contract.Contract, error) {
	var contracts []contract.Contract
	for rows.Next() {
		var c contract.Contract
		var start, end sql.NullTime

		err := rows.Scan(
			&c.Vendor, &c.SystemProduct, &start, &end, &c.AnnualSpend,
			&c.Currency, &c.ContractNumber, &c.ContractType, &c.Department,
			&c.RenewalOption, &c.SourceSystem, &c.FetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		if start.Valid {
			c.StartDate = start.Time
		}
		if end.Valid {
			c.EndDate = end.Time
		}

		contracts = append(contracts, c)
	}

	return contracts, rows.Err()
}

// nullTime maps zero times to NULL so unknown dates stay unknown
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
