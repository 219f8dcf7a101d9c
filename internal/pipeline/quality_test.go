package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/domain/table"
)

var qualityNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func contractTable(rows ...[]string) *table.Table {
	t := table.New("Vendor", "System/Product", "Contract Start Date", "Contract End Date", "Annual Spend")
	for _, r := range rows {
		t.AppendRow(r...)
	}
	return t
}

func checkByName(t *testing.T, report *QualityReport, name string) QualityCheck {
	t.Helper()
	for _, c := range report.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %s not in report", name)
	return QualityCheck{}
}

func TestQualityAllChecksPass(t *testing.T) {
	tbl := contractTable(
		[]string{"Oracle", "PeopleSoft ERP", "2024-07-01", "2025-09-15", "125000.00"},
		[]string{"Zoom", "Video Conferencing", "2024-01-01", "2025-07-01", "30000.00"},
		[]string{"CDW", "Hardware Supply", "2024-03-01", "2026-03-01", "60000.00"},
	)

	cleaned, report := NewQualityValidator(qualityNow).Validate(tbl)

	assert.Equal(t, 100.0, report.Score)
	assert.Empty(t, report.FailedChecks())
	assert.Equal(t, 0, report.RemovedRows)
	assert.Equal(t, 3, cleaned.NumRows())
}

func TestQualityVendorCompleteness(t *testing.T) {
	tbl := contractTable(
		[]string{"Oracle", "ERP", "2024-07-01", "2025-09-15", "125000.00"},
		[]string{"", "Orphan System", "2024-01-01", "2025-07-01", "30000.00"},
	)

	cleaned, report := NewQualityValidator(qualityNow).Validate(tbl)

	assert.False(t, checkByName(t, report, CheckVendorCompleteness).Passed)
	assert.Equal(t, 80.0, report.Score)
	assert.Equal(t, 1, report.RemovedRows)
	assert.Equal(t, 1, cleaned.NumRows())
	assert.Equal(t, "Oracle", cleaned.Value(0, "Vendor"))
}

func TestQualityAmountValidity(t *testing.T) {
	tbl := contractTable(
		[]string{"Oracle", "ERP", "2024-07-01", "2025-09-15", "125000.00"},
		[]string{"Banner", "SIS", "2024-01-01", "2025-07-01", "60000000"},
	)

	cleaned, report := NewQualityValidator(qualityNow).Validate(tbl)

	assert.False(t, checkByName(t, report, CheckAmountValidity).Passed)
	assert.Equal(t, 80.0, report.Score)
	// The out-of-range spend is also stripped
	assert.Equal(t, 1, cleaned.NumRows())
	assert.Equal(t, 1, report.RemovedRows)
}

func TestQualityUnparseableAmount(t *testing.T) {
	tbl := contractTable(
		[]string{"Oracle", "ERP", "2024-07-01", "2025-09-15", "125000.00"},
		[]string{"Banner", "SIS", "2024-01-01", "2025-07-01", "n/a"},
	)

	cleaned, report := NewQualityValidator(qualityNow).Validate(tbl)

	assert.False(t, checkByName(t, report, CheckAmountValidity).Passed)
	assert.Equal(t, 1, cleaned.NumRows())
	assert.Equal(t, 1, report.RemovedRows)
}

func TestQualityFutureDates(t *testing.T) {
	tbl := contractTable(
		[]string{"Oracle", "ERP", "2024-07-01", "2025-09-15", "125000.00"},
		[]string{"Banner", "SIS", "2024-01-01", "2040-01-01", "45000.00"},
	)

	cleaned, report := NewQualityValidator(qualityNow).Validate(tbl)

	assert.False(t, checkByName(t, report, CheckFutureDates).Passed)
	assert.True(t, checkByName(t, report, CheckDateValidity).Passed)
	assert.Equal(t, 80.0, report.Score)
	// Far-future dates fail the check but are not stripped
	assert.Equal(t, 2, cleaned.NumRows())
}

func TestQualityDateValidity(t *testing.T) {
	tbl := contractTable(
		[]string{"Oracle", "ERP", "2024-07-01", "2025-09-15", "125000.00"},
		[]string{"Banner", "SIS", "not-a-date", "2025-07-01", "45000.00"},
	)

	_, report := NewQualityValidator(qualityNow).Validate(tbl)

	assert.False(t, checkByName(t, report, CheckDateValidity).Passed)
	assert.Equal(t, 80.0, report.Score)
}

func TestQualityDuplicateCheck(t *testing.T) {
	tbl := contractTable(
		[]string{"Oracle", "ERP", "2024-07-01", "2025-09-15", "125000.00"},
		[]string{"oracle", "erp", "2024-07-01", "2025-09-15", "125000.00"},
		[]string{"Zoom", "Video", "2024-01-01", "2025-07-01", "30000.00"},
	)

	_, report := NewQualityValidator(qualityNow).Validate(tbl)

	assert.False(t, checkByName(t, report, CheckDuplicates).Passed)
	assert.Equal(t, 80.0, report.Score)
}

func TestQualityEmptyTable(t *testing.T) {
	cleaned, report := NewQualityValidator(qualityNow).Validate(table.New("Vendor"))

	assert.Equal(t, 0.0, report.Score)
	assert.Empty(t, report.Checks)
	assert.Equal(t, 0, report.RemovedRows)
	require.NotNil(t, cleaned)
	assert.True(t, cleaned.IsEmpty())
}

func TestQualityMissingVendorColumnFailsCompleteness(t *testing.T) {
	tbl := table.New("Supplier", "Annual Spend")
	tbl.AppendRow("Oracle", "125000.00")

	_, report := NewQualityValidator(qualityNow).Validate(tbl)

	assert.False(t, checkByName(t, report, CheckVendorCompleteness).Passed)
}
