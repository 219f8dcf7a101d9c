package fileproc

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"spendlens/domain/table"
)

// Validation bounds for contract rows
var (
	// maxAnnualSpend rejects amounts above $50M as data entry errors
	maxAnnualSpend = decimal.NewFromInt(50_000_000)
	// maxFutureYears flags end dates implausibly far out
	maxFutureYears = 10
	// minCompleteness is the warning threshold on mapped-cell fill rate
	minCompleteness = 0.8
)

// Validator enforces row-level contract rules
type Validator struct {
	now time.Time
}

// NewValidator creates a validator that checks dates against now
func NewValidator(now time.Time) *Validator {
	return &Validator{now: now}
}

// Validate drops invalid rows and reports what happened. Rules:
// missing vendor drops the row, spend outside [0, $50M] drops the row,
// end dates more than ten years out and low completeness only warn.
func (v *Validator) Validate(t *table.Table) (*table.Table, []string, []string) {
	var errs []string
	var warnings []string

	horizon := v.now.AddDate(maxFutureYears, 0, 0)

	out := table.New(t.Columns...)
	for i := 0; i < t.NumRows(); i++ {
		if t.Value(i, "Vendor") == "" {
			errs = append(errs, fmt.Sprintf("row %d: missing vendor, dropped", i+1))
			continue
		}

		if raw := t.Value(i, "Annual Spend"); raw != "" {
			if amt, ok := table.ParseAmount(raw); ok {
				if amt.IsNegative() {
					errs = append(errs, fmt.Sprintf("row %d: negative annual spend %s, dropped", i+1, raw))
					continue
				}
				if amt.GreaterThan(maxAnnualSpend) {
					errs = append(errs, fmt.Sprintf("row %d: annual spend %s exceeds $50M cap, dropped", i+1, raw))
					continue
				}
			}
		}

		if raw := t.Value(i, "Contract End Date"); raw != "" {
			if end, ok := table.ParseDate(raw); ok && end.After(horizon) {
				warnings = append(warnings, fmt.Sprintf("row %d: end date %s more than %d years out", i+1, raw, maxFutureYears))
			}
		}

		out.AppendRow(t.Rows[i]...)
	}

	if c := completeness(out); out.NumRows() > 0 && c < minCompleteness {
		warnings = append(warnings, fmt.Sprintf("data completeness %.0f%% below %.0f%% target", c*100, minCompleteness*100))
	}

	return out, errs, warnings
}

// completeness is the fill rate across the canonical columns present
func completeness(t *table.Table) float64 {
	if t.NumRows() == 0 {
		return 0
	}
	cols := []string{}
	for _, c := range mappingOrder {
		if t.HasColumn(c) {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return 1
	}
	total := t.NumRows() * len(cols)
	filled := 0
	for i := 0; i < t.NumRows(); i++ {
		for _, c := range cols {
			if t.Value(i, c) != "" {
				filled++
			}
		}
	}
	return float64(filled) / float64(total)
}
