package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"spendlens/domain/metric"
	"spendlens/internal/pipeline"
)

func newPipelineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run and inspect the data consolidation pipeline",
	}
	cmd.AddCommand(newPipelineRunCmd(), newPipelineDaemonCmd(), newPipelineStatusCmd())
	return cmd
}

func newPipelineRunCmd() *cobra.Command {
	var dryRun, force, skipBackup, asJSON bool
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one pipeline run and report the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap(cmd.Context(), bootOpts{pipelineConfig: configPath})
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			result, err := c.Runner.Run(cmd.Context(), pipeline.Options{
				DryRun:     dryRun,
				Force:      force,
				SkipBackup: skipBackup,
				Manual:     true,
			})
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(result)
			}
			printRunResult(result)
			if !result.Success {
				return fmt.Errorf("pipeline run %s finished with %d error(s)",
					result.RunID, len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Execute without writing outputs or moving files")
	cmd.Flags().BoolVar(&force, "force", false, "Start even when another run is in progress")
	cmd.Flags().BoolVar(&skipBackup, "skip-backup", false, "Skip the pre-run backup step")
	cmd.Flags().StringVar(&configPath, "config", "", "Pipeline config file (default from PIPELINE_CONFIG)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full run result as JSON")

	return cmd
}

func newPipelineDaemonCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the scheduler and upload watcher until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := bootstrap(ctx, bootOpts{pipelineConfig: configPath})
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			fmt.Printf("⏱  Pipeline daemon started (%s at %s)\n",
				c.PipelineCfg.PipelineSettings.ScheduleFrequency,
				c.PipelineCfg.PipelineSettings.ScheduleTime)

			group, groupCtx := errgroup.WithContext(ctx)
			group.Go(func() error { return c.Scheduler.Start(groupCtx) })
			if c.Watcher != nil {
				group.Go(func() error { return c.Watcher.Start(groupCtx) })
			}

			err = group.Wait()
			if err == context.Canceled {
				fmt.Println("\nDaemon stopped")
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Pipeline config file (default from PIPELINE_CONFIG)")
	return cmd
}

func newPipelineStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show run statistics and per-source connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap(cmd.Context(), bootOpts{})
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			status := c.Runner.Status(cmd.Context())
			if asJSON {
				return printJSON(status)
			}

			fmt.Printf("📊 PIPELINE STATUS\n")
			fmt.Printf("Total Runs: %d (successful: %d, failed: %d)\n",
				status.Stats.TotalRuns, status.Stats.SuccessfulRuns, status.Stats.FailedRuns)
			fmt.Printf("Records Processed: %d\n", status.Stats.RecordsProcessed)
			if status.Stats.LastRunTime != nil {
				fmt.Printf("Last Run: %s\n", status.Stats.LastRunTime.Format(time.RFC3339))
			}
			if status.Stats.LastError != "" {
				fmt.Printf("Last Error: %s\n", status.Stats.LastError)
			}
			fmt.Printf("Running Now: %v\n", status.Running)

			if len(status.Sources) > 0 {
				fmt.Printf("\n🔌 DATA SOURCES (%d configured)\n", status.ConfiguredSources)
				for _, src := range status.Sources {
					state := "✅ connected"
					if !src.Connected {
						state = "❌ " + src.Error
					}
					fmt.Printf("• %s: %s\n", src.Name, state)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print status as JSON")
	return cmd
}

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage pre-run backups of pipeline outputs",
	}
	cmd.AddCommand(newBackupCreateCmd(), newBackupListCmd())
	return cmd
}

func newBackupCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Back up the consolidated contract outputs now",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap(cmd.Context(), bootOpts{})
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			out := c.PipelineCfg.OutputSettings
			paths := []string{
				filepath.Join(c.PipelineCfg.DataSources.FileUpload.ProcessedDirectory, out.ContractsFilename),
				filepath.Join(out.MetricsRoot, string(metric.PersonaCFO), "contract_expiration_alerts.csv"),
			}

			created, warnings := c.Runner.Backups().Backup(paths)
			for _, w := range warnings {
				fmt.Printf("⚠️  %s\n", w)
			}
			if len(created) == 0 {
				fmt.Println("No output files found to back up")
				return nil
			}
			fmt.Printf("💾 Backed up %d file(s):\n", len(created))
			for _, p := range created {
				fmt.Printf("• %s\n", p)
			}
			return nil
		},
	}
	return cmd
}

func newBackupListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap(cmd.Context(), bootOpts{})
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			backups, err := c.Runner.Backups().List()
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(backups)
			}
			if len(backups) == 0 {
				fmt.Println("No backups found")
				return nil
			}
			fmt.Printf("💾 BACKUPS (%d)\n", len(backups))
			for _, b := range backups {
				fmt.Printf("• %s  %s  %d bytes\n",
					b.CreatedAt.Format("2006-01-02 15:04:05"), b.Original, b.SizeBytes)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print backups as JSON")
	return cmd
}

// printRunResult renders the human-readable run summary
func printRunResult(res *pipeline.Result) {
	icon := "✅"
	if !res.Success {
		icon = "❌"
	}
	fmt.Printf("%s PIPELINE RUN %s\n", icon, res.RunID)
	if res.DryRun {
		fmt.Println("Mode: dry run (no files written)")
	}
	fmt.Printf("Duration: %.1fs\n", res.DurationSeconds)
	fmt.Printf("Records Processed: %d (from %d source(s))\n",
		res.RecordsProcessed, res.SourcesProcessed)
	fmt.Printf("Data Quality Score: %.1f%%\n", res.QualityScore)

	if len(res.Warnings) > 0 {
		fmt.Printf("\n⚠️  WARNINGS (%d)\n", len(res.Warnings))
		for _, w := range res.Warnings {
			fmt.Printf("• %s\n", w)
		}
	}
	if len(res.Errors) > 0 {
		fmt.Printf("\n❌ ERRORS (%d)\n", len(res.Errors))
		for _, e := range res.Errors {
			fmt.Printf("• %s\n", e)
		}
	}
	if len(res.OutputFiles) > 0 {
		fmt.Printf("\n📁 OUTPUT FILES (%d)\n", len(res.OutputFiles))
		for _, f := range res.OutputFiles {
			fmt.Printf("• %s\n", f)
		}
	}
}
