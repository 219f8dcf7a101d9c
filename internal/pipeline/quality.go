package pipeline

import (
	"math"
	"strings"
	"time"

	"spendlens/domain/table"
)

// Names of the five quality checks, reported in warnings and run reports
const (
	CheckVendorCompleteness = "vendor_completeness"
	CheckDateValidity       = "date_validity"
	CheckAmountValidity     = "amount_validity"
	CheckFutureDates        = "future_dates"
	CheckDuplicates         = "duplicate_check"
)

// Pass thresholds. Each check passes or fails as a whole; the score is
// the passing share scaled to 0-100.
const (
	completenessFloor   = 0.8
	validAmountFloor    = 0.9
	reasonableDateFloor = 0.95
	duplicateCeiling    = 0.05
	maxAnnualSpend      = 50_000_000.0
	maxFutureDays       = 3650
)

// QualityCheck is one named pass/fail verdict
type QualityCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
}

// QualityReport scores a consolidated contract table
type QualityReport struct {
	Score       float64        `json:"score"`
	Checks      []QualityCheck `json:"checks,omitempty"`
	RemovedRows int            `json:"removed_rows"`
}

// FailedChecks lists the names of checks that did not pass
func (r *QualityReport) FailedChecks() []string {
	var failed []string
	for _, c := range r.Checks {
		if !c.Passed {
			failed = append(failed, c.Name)
		}
	}
	return failed
}

// QualityValidator runs the five checks against the canonical contract
// columns and strips rows that would poison downstream metrics.
type QualityValidator struct {
	now time.Time
}

// NewQualityValidator creates a validator judging dates against now
func NewQualityValidator(now time.Time) *QualityValidator {
	return &QualityValidator{now: now}
}

// Validate scores the table and returns a cleaned copy. An empty table
// scores zero with no checks run.
func (v *QualityValidator) Validate(t *table.Table) (*table.Table, *QualityReport) {
	report := &QualityReport{}
	if t == nil || t.IsEmpty() {
		return t, report
	}

	report.Checks = []QualityCheck{
		{CheckVendorCompleteness, v.vendorCompleteness(t)},
		{CheckDateValidity, v.dateValidity(t)},
		{CheckAmountValidity, v.amountValidity(t)},
		{CheckFutureDates, v.futureDates(t)},
		{CheckDuplicates, v.remainingDuplicates(t)},
	}
	passed := 0
	for _, c := range report.Checks {
		if c.Passed {
			passed++
		}
	}
	report.Score = math.Round(float64(passed)/float64(len(report.Checks))*100*100) / 100

	cleaned, removed := v.clean(t)
	report.RemovedRows = removed
	return cleaned, report
}

// vendorCompleteness requires at least 80% of rows to name a vendor
func (v *QualityValidator) vendorCompleteness(t *table.Table) bool {
	idx := t.ColumnIndex("Vendor")
	if idx < 0 {
		return false
	}
	filled := 0
	for _, row := range t.Rows {
		if strings.TrimSpace(row[idx]) != "" {
			filled++
		}
	}
	return float64(filled)/float64(t.NumRows()) >= completenessFloor
}

// dateValidity requires every non-blank contract date to parse
func (v *QualityValidator) dateValidity(t *table.Table) bool {
	for _, col := range []string{"Contract Start Date", "Contract End Date"} {
		idx := t.ColumnIndex(col)
		if idx < 0 {
			continue
		}
		for _, row := range t.Rows {
			cell := strings.TrimSpace(row[idx])
			if cell == "" {
				continue
			}
			if _, ok := table.ParseDate(cell); !ok {
				return false
			}
		}
	}
	return true
}

// amountValidity requires 90% of spend values to sit in 0..$50M.
// Blank or unparseable amounts count as invalid.
func (v *QualityValidator) amountValidity(t *table.Table) bool {
	idx := t.ColumnIndex("Annual Spend")
	if idx < 0 {
		return true
	}
	valid := 0
	for _, row := range t.Rows {
		if amt, ok := table.ParseAmountFloat(row[idx]); ok && amt >= 0 && amt <= maxAnnualSpend {
			valid++
		}
	}
	return float64(valid)/float64(t.NumRows()) >= validAmountFloor
}

// futureDates requires 95% of end dates to land within ten years.
// Missing or unparseable end dates count against the share.
func (v *QualityValidator) futureDates(t *table.Table) bool {
	idx := t.ColumnIndex("Contract End Date")
	if idx < 0 {
		return true
	}
	limit := v.now.AddDate(0, 0, maxFutureDays)
	reasonable := 0
	for _, row := range t.Rows {
		if d, ok := table.ParseDate(row[idx]); ok && !d.After(limit) {
			reasonable++
		}
	}
	return float64(reasonable)/float64(t.NumRows()) >= reasonableDateFloor
}

// remainingDuplicates tolerates under 5% repeated vendor/product pairs
func (v *QualityValidator) remainingDuplicates(t *table.Table) bool {
	vIdx := t.ColumnIndex("Vendor")
	pIdx := t.ColumnIndex("System/Product")
	if vIdx < 0 || pIdx < 0 {
		return true
	}
	seen := map[string]bool{}
	duplicates := 0
	for _, row := range t.Rows {
		key := strings.ToUpper(strings.TrimSpace(row[vIdx])) + "|" +
			strings.ToUpper(strings.TrimSpace(row[pIdx]))
		if seen[key] {
			duplicates++
			continue
		}
		seen[key] = true
	}
	return float64(duplicates)/float64(t.NumRows()) < duplicateCeiling
}

// clean drops rows with no vendor and rows whose spend falls outside the
// accepted range when the column exists
func (v *QualityValidator) clean(t *table.Table) (*table.Table, int) {
	vIdx := t.ColumnIndex("Vendor")
	aIdx := t.ColumnIndex("Annual Spend")

	out := table.New(t.Columns...)
	for _, row := range t.Rows {
		if vIdx >= 0 && strings.TrimSpace(row[vIdx]) == "" {
			continue
		}
		if aIdx >= 0 {
			amt, ok := table.ParseAmountFloat(row[aIdx])
			if !ok || amt < 0 || amt > maxAnnualSpend {
				continue
			}
		}
		out.AppendRow(row...)
	}
	return out, t.NumRows() - out.NumRows()
}
