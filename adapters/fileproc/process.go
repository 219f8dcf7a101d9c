package fileproc

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"spendlens/domain/table"
)

// ProcessingSummary reports what happened to one ingested file
type ProcessingSummary struct {
	File        string            `json:"file"`
	RowsIn      int               `json:"rows_in"`
	RowsOut     int               `json:"rows_out"`
	Mapped      map[string]string `json:"mapped_columns"`
	Unmapped    []string          `json:"unmapped_columns,omitempty"`
	Suggestions []Suggestion      `json:"suggestions,omitempty"`
	Errors      []string          `json:"errors,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
	ProcessedAt time.Time         `json:"processed_at"`
}

// Failed reports whether the file produced no usable rows
func (s *ProcessingSummary) Failed() bool {
	return s.RowsOut == 0
}

// Processor runs the full ingestion sequence for one file:
// read, map columns, standardize, validate.
type Processor struct {
	now time.Time
}

// NewProcessor creates a processor stamping derived fields against now
func NewProcessor(now time.Time) *Processor {
	return &Processor{now: now}
}

// ProcessFile ingests a single contract file. The returned summary is
// populated even on error so callers can surface mapping suggestions.
func (p *Processor) ProcessFile(path string) (*table.Table, *ProcessingSummary, error) {
	summary := &ProcessingSummary{
		File:        filepath.Base(path),
		Mapped:      map[string]string{},
		ProcessedAt: p.now,
	}

	raw, err := NewFileReader(path).ReadTable()
	if err != nil {
		summary.Errors = append(summary.Errors, err.Error())
		return nil, summary, err
	}
	summary.RowsIn = raw.NumRows()

	mapping := MapColumns(raw.Columns)
	summary.Mapped = mapping.Resolved
	summary.Unmapped = mapping.Unmapped
	summary.Suggestions = Suggestions(raw.Columns, mapping)

	if _, ok := mapping.Resolved["Vendor"]; !ok {
		err := fmt.Errorf("no vendor column found in %s", summary.File)
		summary.Errors = append(summary.Errors, err.Error())
		return nil, summary, err
	}

	mapped := mapping.Apply(raw)
	standardized := NewStandardizer(p.now).Standardize(mapped)
	validated, errs, warnings := NewValidator(p.now).Validate(standardized)
	summary.Errors = append(summary.Errors, errs...)
	summary.Warnings = append(summary.Warnings, warnings...)
	summary.RowsOut = validated.NumRows()

	log.Printf("[FileProcessor] %s: %d rows in, %d rows out, %d errors, %d warnings",
		summary.File, summary.RowsIn, summary.RowsOut, len(summary.Errors), len(summary.Warnings))

	return validated, summary, nil
}

// BatchProcessor ingests every supported file in a directory concurrently
type BatchProcessor struct {
	processor   *Processor
	concurrency int
}

// NewBatchProcessor creates a batch processor with bounded concurrency
func NewBatchProcessor(now time.Time, concurrency int) *BatchProcessor {
	if concurrency < 1 {
		concurrency = 4
	}
	return &BatchProcessor{processor: NewProcessor(now), concurrency: concurrency}
}

// ProcessDirectory ingests all supported files under dir. Files that fail
// contribute a summary but do not abort the batch. The combined table
// concatenates outputs in filename order.
func (b *BatchProcessor) ProcessDirectory(ctx context.Context, dir string) (*table.Table, []ProcessingSummary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read upload directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if IsSupported(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, nil, nil
	}

	tables := make([]*table.Table, len(files))
	summaries := make([]*ProcessingSummary, len(files))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, summary, err := b.processor.ProcessFile(path)
			mu.Lock()
			defer mu.Unlock()
			summaries[i] = summary
			if err != nil {
				// Failed files are reported through their summary
				log.Printf("[FileProcessor] skipping %s: %v", filepath.Base(path), err)
				return nil
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var combined *table.Table
	for _, t := range tables {
		if t == nil || t.IsEmpty() {
			continue
		}
		if combined == nil {
			combined = t
		} else {
			combined = combined.Concat(t)
		}
	}

	out := make([]ProcessingSummary, 0, len(summaries))
	for _, s := range summaries {
		if s != nil {
			out = append(out, *s)
		}
	}
	return combined, out, nil
}

// ProcessingReport wraps a batch of file summaries for export
type ProcessingReport struct {
	GeneratedAt         time.Time           `json:"generated_at"`
	TotalFilesProcessed int                 `json:"total_files_processed"`
	Summaries           []ProcessingSummary `json:"summaries"`
}

// WriteReport saves the batch summaries as an indented JSON report
func WriteReport(path string, now time.Time, summaries []ProcessingSummary) error {
	report := ProcessingReport{
		GeneratedAt:         now,
		TotalFilesProcessed: len(summaries),
		Summaries:           summaries,
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode processing report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
