package fileproc

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/domain/contract"
)

var procNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestProcessFileStandardizesAndDerives(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "contracts.csv",
		"Supplier,Application,Effective Date,Expiration Date,Yearly Cost,Renewal\n"+
			"Acme Software,ERP Suite,07/01/2024,06/20/2025,\"$120,000.00\",auto\n"+
			"Globex Cloud,IaaS,2024-01-15,2026-01-15,45000,yes\n")

	tbl, summary, err := NewProcessor(procNow).ProcessFile(path)
	require.NoError(t, err)
	require.NotNil(t, tbl)

	assert.Equal(t, 2, summary.RowsIn)
	assert.Equal(t, 2, summary.RowsOut)
	assert.Equal(t, "Supplier", summary.Mapped["Vendor"])

	// Dates standardized to ISO
	assert.Equal(t, "2024-07-01", tbl.Value(0, "Contract Start Date"))
	// Money standardized to plain decimals
	assert.Equal(t, "120000.00", tbl.Value(0, "Annual Spend"))
	// Renewal labels normalized
	assert.Equal(t, "Auto-Renew", tbl.Value(0, "Renewal Option"))
	// 19 days out on 2025-06-01: Critical
	assert.Equal(t, "19", tbl.Value(0, "Days Until Expiry"))
	assert.Equal(t, string(contract.AlertCritical), tbl.Value(0, "Alert Status"))
	assert.Equal(t, string(contract.AlertOK), tbl.Value(1, "Alert Status"))
	// Provenance columns appended
	assert.Equal(t, contract.SourceFile, tbl.Value(0, "Source_System"))
	assert.NotEmpty(t, tbl.Value(0, "Last_Updated"))
	// Duration derived from both dates
	assert.Equal(t, "354", tbl.Value(0, "Contract Duration (Days)"))
}

func TestProcessFileDropsInvalidRows(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.csv",
		"Vendor,Annual Spend\n"+
			",1000\n"+
			"Acme,99999999\n"+
			"Globex,5000\n")

	tbl, summary, err := NewProcessor(procNow).ProcessFile(path)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.RowsIn)
	assert.Equal(t, 1, summary.RowsOut)
	assert.Equal(t, "Globex", tbl.Value(0, "Vendor"))
	assert.Len(t, summary.Errors, 2)
}

func TestProcessFileFailsWithoutVendorColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "novendor.csv", "Amount,Notes\n100,hello\n")

	_, summary, err := NewProcessor(procNow).ProcessFile(path)
	require.Error(t, err)
	assert.True(t, summary.Failed())
	assert.NotEmpty(t, summary.Errors)
}

func TestProcessFileReadsTSVAndJSON(t *testing.T) {
	dir := t.TempDir()

	tsv := writeFile(t, dir, "contracts.tsv", "Vendor\tAnnual Spend\nAcme\t100\n")
	tbl, _, err := NewProcessor(procNow).ProcessFile(tsv)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.NumRows())

	jsonFile := writeFile(t, dir, "contracts.json",
		`[{"Vendor": "Globex", "Annual Spend": 4500.5, "Department": "IT"}]`)
	tbl, _, err = NewProcessor(procNow).ProcessFile(jsonFile)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.NumRows())
	assert.Equal(t, "Globex", tbl.Value(0, "Vendor"))
	assert.Equal(t, "4500.50", tbl.Value(0, "Annual Spend"))
}

func TestBatchProcessDirectoryCombinesAndReportsFailures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "Vendor,Annual Spend\nAcme,100\n")
	writeFile(t, dir, "b.csv", "Vendor,Annual Spend\nGlobex,200\nInitech,300\n")
	writeFile(t, dir, "broken.csv", "Amount\n100\n")
	writeFile(t, dir, "ignored.txt", "not a data file")

	combined, summaries, err := NewBatchProcessor(procNow, 2).ProcessDirectory(context.Background(), dir)
	require.NoError(t, err)
	require.NotNil(t, combined)

	assert.Equal(t, 3, combined.NumRows())
	assert.Len(t, summaries, 3) // broken.csv reports, ignored.txt skipped

	failed := 0
	for _, s := range summaries {
		if s.Failed() {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestBatchProcessDirectoryEmpty(t *testing.T) {
	combined, summaries, err := NewBatchProcessor(procNow, 2).ProcessDirectory(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, combined)
	assert.Empty(t, summaries)
}

func TestWriteReportPersistsSummaries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "Vendor,Annual Spend\nAcme,100\n")

	_, summaries, err := NewBatchProcessor(procNow, 2).ProcessDirectory(context.Background(), dir)
	require.NoError(t, err)

	path := filepath.Join(dir, "reports", "processing_report.json")
	require.NoError(t, WriteReport(path, procNow, summaries))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var report ProcessingReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 1, report.TotalFilesProcessed)
	require.Len(t, report.Summaries, 1)
	assert.Equal(t, "a.csv", report.Summaries[0].File)
}

func TestWriteCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "in.csv", "Vendor,Annual Spend\nAcme,100\n")

	tbl, _, err := NewProcessor(procNow).ProcessFile(path)
	require.NoError(t, err)

	outPath := filepath.Join(dir, "out", "contracts.csv")
	require.NoError(t, WriteCSV(outPath, tbl))

	reread, err := NewFileReader(outPath).ReadTable()
	require.NoError(t, err)
	assert.Equal(t, tbl.NumRows(), reread.NumRows())
	assert.Equal(t, tbl.Columns, reread.Columns)
}
