// Package export renders computed analytics into shareable artifacts:
// executive summary and vendor rollup tables, an at-risk project
// report, a board-ready markdown summary, and a dashboard metrics JSON.
// Every figure in a bundle is derived from loaded data at build time.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"spendlens/adapters/fileproc"
	"spendlens/domain/table"
	"spendlens/internal"
	"spendlens/internal/analytics"
	apperrors "spendlens/internal/errors"
)

// Formats accepted by Write
const (
	FormatCSV      = "csv"
	FormatXLSX     = "xlsx"
	FormatMarkdown = "markdown"
)

// Artifact filenames, kept stable so decks and dashboards can link to them
const (
	ExecutiveSummaryFile = "executive_summary.csv"
	VendorAnalysisFile   = "vendor_analysis.csv"
	ProjectsAtRiskFile   = "projects_at_risk.csv"
	BoardSummaryFile     = "board_summary.md"
	BoardSummaryHTMLFile = "board_summary.html"
	DashboardMetricsFile = "dashboard_metrics.json"
	WorkbookFile         = "spend_analytics.xlsx"
)

// Bundle holds one export run's computed artifacts
type Bundle struct {
	GeneratedAt   time.Time
	Executive     *table.Table
	Vendors       *table.Table
	Projects      *table.Table
	BoardMarkdown string
	Metrics       DashboardMetrics
}

// Exporter computes bundles from the analyzers and writes them in the
// requested format.
type Exporter struct {
	engine     *analytics.Engine
	scorecards *analytics.ScorecardBuilder
	logger     *internal.Logger
	now        func() time.Time
}

// NewExporter wires the analyzers a bundle is computed from
func NewExporter(engine *analytics.Engine, scorecards *analytics.ScorecardBuilder) *Exporter {
	return &Exporter{
		engine:     engine,
		scorecards: scorecards,
		logger:     internal.NewDefaultLogger().Component("Export"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Build computes every artifact from the loaded inputs. Sections whose
// source tables are missing come back empty rather than failing.
func (e *Exporter) Build(ctx context.Context, in *analytics.Inputs) *Bundle {
	recs := e.engine.Recommendations(ctx, in)
	sc := e.scorecards.Build(in)

	b := &Bundle{
		GeneratedAt: e.now(),
		Executive:   executiveSummary(in, sc, recs),
		Vendors:     vendorAnalysis(in.Vendors),
		Projects:    projectsAtRisk(in.Projects),
		Metrics:     dashboardMetrics(e.now(), in, recs),
	}
	b.BoardMarkdown = boardSummary(b.GeneratedAt, sc, recs, b.Metrics)
	return b
}

// Write saves the bundle under dir in the requested format and returns
// the created file paths.
func (e *Exporter) Write(b *Bundle, format, dir string) ([]string, error) {
	switch format {
	case FormatCSV:
		return e.writeCSV(b, dir)
	case FormatXLSX:
		return e.writeXLSX(b, dir)
	case FormatMarkdown:
		return e.writeMarkdown(b, dir)
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown export format %q", format))
	}
}

func (e *Exporter) writeCSV(b *Bundle, dir string) ([]string, error) {
	files := []string{}
	for _, item := range []struct {
		name string
		t    *table.Table
	}{
		{ExecutiveSummaryFile, b.Executive},
		{VendorAnalysisFile, b.Vendors},
		{ProjectsAtRiskFile, b.Projects},
	} {
		path := filepath.Join(dir, item.name)
		if err := fileproc.WriteCSV(path, item.t); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	path, err := e.writeMetricsJSON(b, dir)
	if err != nil {
		return files, err
	}
	files = append(files, path)
	e.logger.Info("exported %d csv artifacts to %s", len(files), dir)
	return files, nil
}

func (e *Exporter) writeXLSX(b *Bundle, dir string) ([]string, error) {
	sheets := map[string]*table.Table{
		"Executive Summary": b.Executive,
		"Vendor Analysis":   b.Vendors,
		"Projects At Risk":  b.Projects,
	}
	order := []string{"Executive Summary", "Vendor Analysis", "Projects At Risk"}
	path := filepath.Join(dir, WorkbookFile)
	if err := fileproc.WriteXLSX(path, sheets, order); err != nil {
		return nil, err
	}
	jsonPath, err := e.writeMetricsJSON(b, dir)
	if err != nil {
		return []string{path}, err
	}
	e.logger.Info("exported workbook to %s", path)
	return []string{path, jsonPath}, nil
}

func (e *Exporter) writeMarkdown(b *Bundle, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Wrapf(err, "failed to create export directory %s", dir)
	}
	mdPath := filepath.Join(dir, BoardSummaryFile)
	if err := os.WriteFile(mdPath, []byte(b.BoardMarkdown), 0o644); err != nil {
		return nil, apperrors.Wrapf(err, "failed to write %s", BoardSummaryFile)
	}
	htmlPath := filepath.Join(dir, BoardSummaryHTMLFile)
	if err := os.WriteFile(htmlPath, []byte(BoardHTML(b.BoardMarkdown)), 0o644); err != nil {
		return []string{mdPath}, apperrors.Wrapf(err, "failed to write %s", BoardSummaryHTMLFile)
	}
	e.logger.Info("exported board summary to %s", dir)
	return []string{mdPath, htmlPath}, nil
}

func (e *Exporter) writeMetricsJSON(b *Bundle, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperrors.Wrapf(err, "failed to create export directory %s", dir)
	}
	raw, err := json.MarshalIndent(b.Metrics, "", "  ")
	if err != nil {
		return "", apperrors.Wrap(err, "failed to encode dashboard metrics")
	}
	path := filepath.Join(dir, DashboardMetricsFile)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", apperrors.Wrapf(err, "failed to write %s", DashboardMetricsFile)
	}
	return path, nil
}
