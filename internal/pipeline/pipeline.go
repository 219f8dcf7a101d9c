// Package pipeline orchestrates the contract data refresh: backup, upload
// ingestion, connector fetches, consolidation, quality scoring, encryption
// and the metric/report fan-out. Steps run in a fixed order; a step logs
// and records recoverable failures and the run carries on, so one bad
// source never starves the dashboards.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"spendlens/adapters/fileproc"
	"spendlens/domain/contract"
	"spendlens/domain/core"
	"spendlens/domain/metric"
	"spendlens/domain/table"
	"spendlens/internal"
	"spendlens/internal/config"
	apperrors "spendlens/internal/errors"
	"spendlens/ports"
)

const (
	contractMetricName = "contract_expiration_alerts"
	statsFilename      = "pipeline_stats.json"
	uploadConcurrency  = 4
)

// ErrRunInProgress is returned when a run is requested while another is
// active and Force is not set.
var ErrRunInProgress = apperrors.New(apperrors.CodePipelineFailed, "a pipeline run is already in progress")

// SourceManager is the slice of the connector manager the runner needs
type SourceManager interface {
	Names() []string
	Consolidated(ctx context.Context) (*ports.ConsolidatedResult, error)
	Status(ctx context.Context) []ports.SourceStatus
}

// MetricInvalidator drops cached registry tables after the pipeline
// rewrites metric files on disk.
type MetricInvalidator interface {
	Invalidate(persona metric.Persona, name string)
}

// Options mirror the pipeline CLI flags
type Options struct {
	DryRun     bool
	Force      bool
	SkipBackup bool
	Manual     bool
}

// Progress is one step transition, broadcast to SSE subscribers
type Progress struct {
	RunID   core.RunID `json:"run_id"`
	Step    string     `json:"step"`
	Index   int        `json:"step_index"`
	Total   int        `json:"total_steps"`
	Message string     `json:"message"`
}

// Result is one run's outcome, embedded in the run report
type Result struct {
	RunID            core.RunID     `json:"run_id"`
	Success          bool           `json:"success"`
	DryRun           bool           `json:"dry_run"`
	ManualTrigger    bool           `json:"manual_trigger"`
	StartTime        time.Time      `json:"start_time"`
	EndTime          time.Time      `json:"end_time"`
	DurationSeconds  float64        `json:"duration_seconds"`
	RecordsProcessed int            `json:"records_processed"`
	SourcesProcessed int            `json:"sources_processed"`
	Errors           []string       `json:"errors"`
	Warnings         []string       `json:"warnings"`
	QualityScore     float64        `json:"data_quality_score"`
	Quality          *QualityReport `json:"quality,omitempty"`
	StepDurations    map[string]int `json:"step_durations_ms,omitempty"`
	OutputFiles      []string       `json:"output_files,omitempty"`
}

// RunReport is the JSON document written to the reports directory
type RunReport struct {
	Execution *Result        `json:"pipeline_execution"`
	Data      DataSummary    `json:"data_summary"`
	Stats     ports.RunStats `json:"pipeline_stats"`
}

// DataSummary aggregates the consolidated contract set
type DataSummary struct {
	TotalContracts       int             `json:"total_contracts"`
	UniqueVendors        int             `json:"unique_vendors"`
	ExpiringWithin30Days int             `json:"contracts_expiring_30_days"`
	ExpiringWithin90Days int             `json:"contracts_expiring_90_days"`
	TotalAnnualSpend     decimal.Decimal `json:"total_annual_spend"`
}

// Status is the live view served by the status endpoint and CLI
type Status struct {
	Stats             ports.RunStats       `json:"pipeline_stats"`
	LastUpdate        *time.Time           `json:"last_update,omitempty"`
	ConfiguredSources int                  `json:"configured_sources"`
	Sources           []ports.SourceStatus `json:"data_source_status,omitempty"`
	Running           bool                 `json:"running"`
	NextScheduledRun  *time.Time           `json:"next_scheduled_run,omitempty"`
}

// Deps are the collaborators a runner may use. Everything except the
// config is optional; nil dependencies disable the matching step.
type Deps struct {
	Sources   SourceManager
	Cipher    ports.TableCipher
	Contracts ports.ContractRepository
	Runs      ports.RunRepository
	Notifier  ports.Notifier
	Metrics   MetricInvalidator
}

// Runner executes pipeline runs one at a time
type Runner struct {
	cfg        *config.PipelineConfig
	sources    SourceManager
	cipher     ports.TableCipher
	contracts  ports.ContractRepository
	runs       ports.RunRepository
	notifier   ports.Notifier
	metrics    MetricInvalidator
	backups    *BackupManager
	logger     *internal.Logger
	now        func() time.Time
	onProgress func(Progress)

	mu      sync.Mutex
	running bool
	stats   ports.RunStats
}

// NewRunner creates a runner over the given config and collaborators.
// Previously saved stats are loaded from the stats file when present.
func NewRunner(cfg *config.PipelineConfig, deps Deps) *Runner {
	r := &Runner{
		cfg:       cfg,
		sources:   deps.Sources,
		cipher:    deps.Cipher,
		contracts: deps.Contracts,
		runs:      deps.Runs,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		backups:   NewBackupManager(cfg.OutputSettings.BackupDirectory),
		logger:    internal.NewDefaultLogger().Component("Pipeline"),
		now:       time.Now,
	}
	r.loadStats()
	return r
}

// OnProgress registers a callback fired before each step and once after
// the run finishes. Used by the SSE hub to stream run progress.
func (r *Runner) OnProgress(fn func(Progress)) {
	r.onProgress = fn
}

// Backups exposes the backup manager for the CLI backup commands
func (r *Runner) Backups() *BackupManager { return r.backups }

// Running reports whether a run is currently executing
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// runState carries intermediate data between steps of one run
type runState struct {
	opts      Options
	res       *Result
	now       time.Time
	collected []contract.Contract
	tbl       *table.Table // consolidated, post-quality, plaintext
	secured   *table.Table // encrypted variant written to processed files
}

type step struct {
	name string
	fn   func(context.Context, *runState) error
}

func (r *Runner) steps() []step {
	return []step{
		{"backup", r.stepBackup},
		{"process_uploads", r.stepProcessUploads},
		{"fetch_sources", r.stepFetchSources},
		{"consolidate", r.stepConsolidate},
		{"quality_validation", r.stepQuality},
		{"encrypt", r.stepEncrypt},
		{"save_processed", r.stepSaveProcessed},
		{"update_metrics", r.stepUpdateMetrics},
		{"write_report", r.stepWriteReport},
		{"cleanup", r.stepCleanup},
	}
}

// Run executes the full pipeline. Recoverable step failures are recorded
// on the result and the run continues; only cancellation aborts early.
// A second concurrent run is rejected with ErrRunInProgress unless forced.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	if !r.tryAcquire(opts.Force) {
		return nil, ErrRunInProgress
	}
	defer r.release()

	start := r.now()
	res := &Result{
		RunID:         core.RunID(core.NewID()),
		DryRun:        opts.DryRun,
		ManualTrigger: opts.Manual,
		StartTime:     start,
		StepDurations: map[string]int{},
	}
	st := &runState{opts: opts, res: res, now: start}

	record := &ports.RunRecord{ID: res.RunID, StartedAt: start, DryRun: opts.DryRun}
	if r.runs != nil && !opts.DryRun {
		if err := r.runs.Create(ctx, record); err != nil {
			r.logger.Warn("could not record run start: %v", err)
		}
	}

	r.logger.Info("starting pipeline run %s (dry_run=%v manual=%v)", res.RunID, opts.DryRun, opts.Manual)

	failedStep, fatal := r.execute(ctx, st)

	end := r.now()
	res.EndTime = end
	res.DurationSeconds = end.Sub(start).Seconds()
	if fatal != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", failedStep, fatal))
	}
	res.Success = len(res.Errors) == 0

	r.recordStats(res, end)
	r.finishRecord(ctx, record, res, end)
	r.notify(res)
	r.emitDone(res)

	if res.Success {
		r.logger.Info("pipeline run %s completed in %.2fs, %d record(s), quality %.1f",
			res.RunID, res.DurationSeconds, res.RecordsProcessed, res.QualityScore)
	} else {
		r.logger.Error("pipeline run %s finished with %d error(s): %s",
			res.RunID, len(res.Errors), res.Errors[0])
	}

	if fatal != nil {
		return res, apperrors.PipelineFailed(failedStep, fatal)
	}
	return res, nil
}

func (r *Runner) execute(ctx context.Context, st *runState) (string, error) {
	steps := r.steps()
	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			return s.name, err
		}
		r.emit(st.res.RunID, s.name, i+1, len(steps))
		started := time.Now()
		err := s.fn(ctx, st)
		st.res.StepDurations[s.name] = int(time.Since(started).Milliseconds())
		if err != nil {
			return s.name, err
		}
	}
	return "", nil
}

func (r *Runner) emit(id core.RunID, name string, index, total int) {
	if r.onProgress == nil {
		return
	}
	r.onProgress(Progress{
		RunID:   id,
		Step:    name,
		Index:   index,
		Total:   total,
		Message: fmt.Sprintf("step %d/%d: %s", index, total, name),
	})
}

func (r *Runner) emitDone(res *Result) {
	if r.onProgress == nil {
		return
	}
	total := len(r.steps())
	msg := "pipeline completed"
	if !res.Success {
		msg = "pipeline finished with errors"
	}
	r.onProgress(Progress{RunID: res.RunID, Step: "complete", Index: total, Total: total, Message: msg})
}

// recordStepError appends a recoverable failure to the run result. When
// the context is already canceled the error is fatal instead.
func (r *Runner) recordStepError(ctx context.Context, st *runState, msg string, err error) error {
	if ctx.Err() != nil {
		return err
	}
	full := fmt.Sprintf("%s: %v", msg, err)
	st.res.Errors = append(st.res.Errors, full)
	r.logger.Error("%s", full)
	return nil
}

// Step 1: copy current outputs aside before anything mutates them
func (r *Runner) stepBackup(_ context.Context, st *runState) error {
	if st.opts.SkipBackup || !r.cfg.PipelineSettings.BackupEnabled {
		r.logger.Debug("backup disabled, skipping")
		return nil
	}
	if st.opts.DryRun {
		r.logger.Info("dry run: skipping backup")
		return nil
	}
	created, warnings := r.backups.Backup([]string{
		r.latestContractsPath(),
		r.metricFilePath(metric.PersonaCFO, contractMetricName),
	})
	st.res.Warnings = append(st.res.Warnings, warnings...)
	st.res.OutputFiles = append(st.res.OutputFiles, created...)
	return nil
}

// Step 2: ingest files dropped into the watch directory
func (r *Runner) stepProcessUploads(ctx context.Context, st *runState) error {
	fu := r.cfg.DataSources.FileUpload
	if !fu.Enabled {
		r.logger.Debug("file uploads disabled, skipping")
		return nil
	}
	if _, err := os.Stat(fu.WatchDirectory); os.IsNotExist(err) {
		r.logger.Debug("upload directory %s missing, skipping", fu.WatchDirectory)
		return nil
	}

	batch := fileproc.NewBatchProcessor(st.now, uploadConcurrency)
	tbl, summaries, err := batch.ProcessDirectory(ctx, fu.WatchDirectory)
	if err != nil {
		return r.recordStepError(ctx, st, "file processing failed", err)
	}
	if len(summaries) == 0 {
		r.logger.Info("no files found for processing")
		return nil
	}

	processed := 0
	for _, s := range summaries {
		if s.Failed() {
			reason := "no usable rows"
			if len(s.Errors) > 0 {
				reason = s.Errors[0]
			}
			st.res.Warnings = append(st.res.Warnings, fmt.Sprintf("skipped %s: %s", s.File, reason))
			continue
		}
		processed++
	}
	st.res.SourcesProcessed += processed

	rows := 0
	if tbl != nil && !tbl.IsEmpty() {
		rows = tbl.NumRows()
		st.collected = append(st.collected, contract.FromTable(tbl)...)
		st.res.RecordsProcessed += rows
	}
	r.moveProcessedFiles(st, fu.WatchDirectory, summaries)
	if !st.opts.DryRun {
		path := filepath.Join(r.cfg.OutputSettings.ReportsDirectory,
			"processing_report_"+core.NewTimestamp(st.now).FileStamp()+".json")
		if err := fileproc.WriteReport(path, st.now, summaries); err != nil {
			st.res.Warnings = append(st.res.Warnings, fmt.Sprintf("processing report: %v", err))
		} else {
			st.res.OutputFiles = append(st.res.OutputFiles, path)
		}
	}
	r.logger.Info("processed %d upload(s), %d record(s)", processed, rows)
	return nil
}

// moveProcessedFiles relocates ingested uploads so the next run does not
// re-read them. Move failures are warnings; the data is already in.
func (r *Runner) moveProcessedFiles(st *runState, dir string, summaries []fileproc.ProcessingSummary) {
	if st.opts.DryRun {
		r.logger.Info("dry run: leaving %d upload(s) in place", len(summaries))
		return
	}
	dest := r.processedDir()
	if err := os.MkdirAll(dest, 0o755); err != nil {
		st.res.Warnings = append(st.res.Warnings, fmt.Sprintf("processed directory %s: %v", dest, err))
		return
	}
	stamp := core.NewTimestamp(st.now).FileStamp()
	for _, s := range summaries {
		src := filepath.Join(dir, s.File)
		moved := filepath.Join(dest, stamp+"_"+s.File)
		if err := os.Rename(src, moved); err != nil {
			st.res.Warnings = append(st.res.Warnings, fmt.Sprintf("could not move %s: %v", s.File, err))
		}
	}
}

// Step 3: pull contracts from every enabled API source
func (r *Runner) stepFetchSources(ctx context.Context, st *runState) error {
	if r.sources == nil || len(r.sources.Names()) == 0 {
		r.logger.Info("no API connectors configured")
		return nil
	}
	result, err := r.sources.Consolidated(ctx)
	if err != nil {
		return r.recordStepError(ctx, st, "API data fetch failed", err)
	}
	st.res.Warnings = append(st.res.Warnings, result.Warnings...)
	if len(result.Contracts) > 0 {
		st.collected = append(st.collected, result.Contracts...)
		st.res.SourcesProcessed += len(result.PerSource)
		st.res.RecordsProcessed += len(result.Contracts)
		r.logger.Info("fetched %d record(s) from %d source(s)", len(result.Contracts), len(result.PerSource))
	}
	return nil
}

// Step 4: merge uploads and API data into one deduplicated table
func (r *Runner) stepConsolidate(_ context.Context, st *runState) error {
	if len(st.collected) == 0 {
		st.res.Warnings = append(st.res.Warnings, "no data to consolidate")
		return nil
	}
	before := len(st.collected)
	merged := dedupeByKeyAndEnd(st.collected)
	if dropped := before - len(merged); dropped > 0 {
		st.res.Warnings = append(st.res.Warnings, fmt.Sprintf("removed %d duplicate record(s)", dropped))
	}
	st.collected = merged
	st.tbl = contract.ToTable(merged, st.now, contract.DefaultWarningDays)
	r.logger.Info("consolidated %d unique record(s)", len(merged))
	return nil
}

// dedupeByKeyAndEnd collapses records sharing vendor, product and end
// date, keeping the most recently fetched copy. Cross-source overlap on
// vendor+product alone is resolved earlier by contract.Dedupe.
func dedupeByKeyAndEnd(contracts []contract.Contract) []contract.Contract {
	byKey := map[string]int{}
	out := make([]contract.Contract, 0, len(contracts))
	for _, c := range contracts {
		key := c.Key() + "|" + c.EndDate.Format("2006-01-02")
		if i, ok := byKey[key]; ok {
			if c.FetchedAt.After(out[i].FetchedAt) {
				out[i] = c
			}
			continue
		}
		byKey[key] = len(out)
		out = append(out, c)
	}
	return out
}

// Step 5: score data quality and strip rows that fail hard validation
func (r *Runner) stepQuality(_ context.Context, st *runState) error {
	if st.tbl == nil || st.tbl.IsEmpty() {
		return nil
	}
	if !r.cfg.PipelineSettings.QualityChecks {
		r.logger.Debug("quality checks disabled")
		return nil
	}
	cleaned, report := NewQualityValidator(st.now).Validate(st.tbl)
	st.res.Quality = report
	st.res.QualityScore = report.Score
	for _, name := range report.FailedChecks() {
		st.res.Warnings = append(st.res.Warnings, "data quality issue: "+name)
	}
	if report.RemovedRows > 0 {
		st.res.Warnings = append(st.res.Warnings, fmt.Sprintf("removed %d invalid record(s)", report.RemovedRows))
		st.collected = contract.FromTable(cleaned)
	}
	st.tbl = cleaned
	r.logger.Info("data quality score: %.1f%%", report.Score)
	return nil
}

// Step 6: encrypt sensitive columns for the processed files. Failure
// falls back to plaintext so the refresh still lands.
func (r *Runner) stepEncrypt(ctx context.Context, st *runState) error {
	st.secured = st.tbl
	if st.tbl == nil || st.tbl.IsEmpty() || r.cipher == nil || !r.cfg.PipelineSettings.EnableEncryption {
		return nil
	}
	columns := r.cipher.SensitiveColumns(st.tbl)
	if len(columns) == 0 {
		return nil
	}
	secured, err := r.cipher.EncryptColumns(st.tbl, columns)
	if err != nil {
		return r.recordStepError(ctx, st, "security application failed", err)
	}
	st.secured = secured
	if !st.opts.DryRun {
		r.exportAudit(st)
	}
	r.logger.Info("encrypted %d sensitive column(s)", len(columns))
	return nil
}

// exportAudit drops the crypto audit log next to the run reports when
// the cipher keeps one. Export failures are warnings, not run errors.
func (r *Runner) exportAudit(st *runState) {
	exporter, ok := r.cipher.(ports.AuditExporter)
	if !ok {
		return
	}
	data, err := exporter.ExportAudit()
	if err != nil {
		st.res.Warnings = append(st.res.Warnings, fmt.Sprintf("audit export: %v", err))
		return
	}
	dir := r.cfg.OutputSettings.ReportsDirectory
	if err := os.MkdirAll(dir, 0o755); err != nil {
		st.res.Warnings = append(st.res.Warnings, fmt.Sprintf("audit export: %v", err))
		return
	}
	path := filepath.Join(dir, "audit_log_"+core.NewTimestamp(st.now).FileStamp()+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		st.res.Warnings = append(st.res.Warnings, fmt.Sprintf("audit export: %v", err))
		return
	}
	st.res.OutputFiles = append(st.res.OutputFiles, path)
}

// Step 7: write the processed contract set, latest plus timestamped copy
func (r *Runner) stepSaveProcessed(ctx context.Context, st *runState) error {
	if st.secured == nil || st.secured.IsEmpty() {
		r.logger.Warn("no data to save")
		return nil
	}
	latest := r.latestContractsPath()
	stamped := filepath.Join(r.processedDir(),
		core.NewTimestamp(st.now).FileStamp()+"_"+r.cfg.OutputSettings.ContractsFilename)
	if st.opts.DryRun {
		r.logger.Info("dry run: would write %s and %s", latest, stamped)
		return nil
	}
	for _, path := range []string{latest, stamped} {
		if err := fileproc.WriteCSV(path, st.secured); err != nil {
			return r.recordStepError(ctx, st, "failed to save processed data", err)
		}
		st.res.OutputFiles = append(st.res.OutputFiles, path)
	}
	r.logger.Info("processed data saved to %s", latest)
	return nil
}

// Step 8: refresh the dashboard metric file and the contract repository.
// Metric files are written plaintext; the registry serves them directly.
func (r *Runner) stepUpdateMetrics(ctx context.Context, st *runState) error {
	if st.tbl == nil || st.tbl.IsEmpty() {
		return nil
	}
	if r.contracts != nil && !st.opts.DryRun {
		if err := r.contracts.ReplaceAll(ctx, st.collected); err != nil {
			if ferr := r.recordStepError(ctx, st, "failed to refresh contract repository", err); ferr != nil {
				return ferr
			}
		}
	}
	path := r.metricFilePath(metric.PersonaCFO, contractMetricName)
	if st.opts.DryRun {
		r.logger.Info("dry run: would update %s", path)
		return nil
	}
	if err := fileproc.WriteCSV(path, st.tbl); err != nil {
		return r.recordStepError(ctx, st, "failed to update metrics files", err)
	}
	st.res.OutputFiles = append(st.res.OutputFiles, path)
	if r.metrics != nil {
		r.metrics.Invalidate(metric.PersonaCFO, contractMetricName)
	}
	r.logger.Info("metrics files updated")
	return nil
}

// Step 9: drop a run report next to the data for later inspection
func (r *Runner) stepWriteReport(ctx context.Context, st *runState) error {
	if st.tbl == nil || st.tbl.IsEmpty() {
		return nil
	}
	report := r.buildReport(st)
	if st.opts.DryRun {
		r.logger.Info("dry run: skipping report")
		return nil
	}
	dir := r.cfg.OutputSettings.ReportsDirectory
	path := filepath.Join(dir, "pipeline_report_"+core.NewTimestamp(st.now).FileStamp()+".json")
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return r.recordStepError(ctx, st, "failed to generate reports", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return r.recordStepError(ctx, st, "failed to generate reports", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return r.recordStepError(ctx, st, "failed to generate reports", err)
	}
	st.res.OutputFiles = append(st.res.OutputFiles, path)
	r.logger.Info("pipeline report saved to %s", path)
	return nil
}

func (r *Runner) buildReport(st *runState) *RunReport {
	summary := DataSummary{
		TotalContracts:   len(st.collected),
		UniqueVendors:    st.tbl.DistinctCount("Vendor"),
		TotalAnnualSpend: contract.TotalSpend(st.collected),
	}
	for _, c := range st.collected {
		days, ok := c.DaysUntilExpiry(st.now)
		if !ok {
			continue
		}
		if days <= 30 {
			summary.ExpiringWithin30Days++
		}
		if days <= 90 {
			summary.ExpiringWithin90Days++
		}
	}
	r.mu.Lock()
	stats := r.stats
	r.mu.Unlock()
	return &RunReport{Execution: st.res, Data: summary, Stats: stats}
}

// Step 10: enforce the retention policy on generated files
func (r *Runner) stepCleanup(_ context.Context, st *runState) error {
	days := r.cfg.PipelineSettings.DataRetentionDays
	if days <= 0 {
		return nil
	}
	if st.opts.DryRun {
		r.logger.Info("dry run: skipping retention cleanup")
		return nil
	}
	cutoff := st.now.AddDate(0, 0, -days)
	removed := 0
	for _, dir := range uniqueDirs([]string{
		r.processedDir(),
		r.cfg.OutputSettings.BackupDirectory,
		r.cfg.OutputSettings.ReportsDirectory,
	}) {
		n, err := removeOlderThan(dir, cutoff)
		removed += n
		if err != nil {
			st.res.Warnings = append(st.res.Warnings, fmt.Sprintf("cleanup %s: %v", dir, err))
		}
	}
	if removed > 0 {
		r.logger.Info("retention cleanup removed %d file(s) older than %d day(s)", removed, days)
	}
	return nil
}

func (r *Runner) processedDir() string {
	return r.cfg.DataSources.FileUpload.ProcessedDirectory
}

func (r *Runner) latestContractsPath() string {
	return filepath.Join(r.processedDir(), r.cfg.OutputSettings.ContractsFilename)
}

func (r *Runner) metricFilePath(p metric.Persona, name string) string {
	return filepath.Join(r.cfg.OutputSettings.MetricsRoot, string(p), name+".csv")
}

func (r *Runner) tryAcquire(force bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running && !force {
		return false
	}
	r.running = true
	return true
}

func (r *Runner) release() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

// recordStats folds the run into the aggregate counters and persists
// them. Dry runs leave the stats untouched.
func (r *Runner) recordStats(res *Result, end time.Time) {
	if res.DryRun {
		return
	}
	r.mu.Lock()
	r.stats.TotalRuns++
	if res.Success {
		r.stats.SuccessfulRuns++
	} else {
		r.stats.FailedRuns++
		r.stats.LastError = res.Errors[0]
	}
	r.stats.RecordsProcessed += res.RecordsProcessed
	last := end
	r.stats.LastRunTime = &last
	stats := r.stats
	r.mu.Unlock()

	if err := r.saveStats(stats); err != nil {
		r.logger.Warn("could not save pipeline stats: %v", err)
	}
}

func (r *Runner) finishRecord(ctx context.Context, record *ports.RunRecord, res *Result, end time.Time) {
	if r.runs == nil || res.DryRun {
		return
	}
	record.CompletedAt = &end
	record.Success = res.Success
	record.RecordsProcessed = res.RecordsProcessed
	record.QualityScore = res.QualityScore
	if len(res.Errors) > 0 {
		record.Error = res.Errors[0]
	}
	record.StepDurations = res.StepDurations
	if err := r.runs.Finish(ctx, record); err != nil {
		r.logger.Warn("could not record run completion: %v", err)
	}
}

func (r *Runner) notify(res *Result) {
	if r.notifier == nil {
		return
	}
	n := ports.RunNotification{
		RunID:        res.RunID.String(),
		Success:      res.Success,
		DryRun:       res.DryRun,
		Records:      res.RecordsProcessed,
		QualityScore: res.QualityScore,
	}
	if len(res.Errors) > 0 {
		n.Error = res.Errors[0]
	}
	if err := r.notifier.NotifyRun(n); err != nil {
		r.logger.Warn("run notification failed: %v", err)
	}
}

// Status reports aggregate stats and per-source health. The run
// repository wins over file-backed stats when both are available.
func (r *Runner) Status(ctx context.Context) *Status {
	s := &Status{}
	r.mu.Lock()
	s.Stats = r.stats
	s.Running = r.running
	r.mu.Unlock()

	if r.runs != nil {
		if stats, err := r.runs.Stats(ctx); err == nil && stats != nil {
			s.Stats = *stats
		}
	}
	s.LastUpdate = s.Stats.LastRunTime
	if r.sources != nil {
		s.Sources = r.sources.Status(ctx)
		s.ConfiguredSources = len(r.sources.Names())
	}
	return s
}

func (r *Runner) statsPath() string {
	return filepath.Join(r.cfg.OutputSettings.MetricsRoot, statsFilename)
}

func (r *Runner) loadStats() {
	data, err := os.ReadFile(r.statsPath())
	if err != nil {
		return
	}
	var stats ports.RunStats
	if err := json.Unmarshal(data, &stats); err != nil {
		r.logger.Warn("ignoring malformed %s: %v", statsFilename, err)
		return
	}
	r.stats = stats
}

func (r *Runner) saveStats(stats ports.RunStats) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.statsPath()), 0o755); err != nil {
		return err
	}
	return os.WriteFile(r.statsPath(), data, 0o644)
}
