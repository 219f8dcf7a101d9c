package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"spendlens/internal/config"
	"spendlens/internal/container"
	"spendlens/internal/errors"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "spendlens",
		Short:         "IT spend analytics for lean college IT departments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newPipelineCmd(),
		newBackupCmd(),
		newRegistryCmd(),
		newInsightsCmd(),
		newForecastCmd(),
		newScorecardCmd(),
		newQACmd(),
		newExportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bootOpts tune the shared CLI bootstrap
type bootOpts struct {
	// requireData fails fast when the metric root is absent, so
	// analytics commands report a clear prerequisite error.
	requireData bool
	// pipelineConfig overrides the config file path from --config
	pipelineConfig string
}

// bootstrap loads configuration and wires a container the same way the
// service entrypoints do, minus the HTTP servers.
func bootstrap(ctx context.Context, opts bootOpts) (*container.Container, error) {
	// .env is optional for CLI use
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.pipelineConfig != "" {
		cfg.Data.PipelineConfigPath = opts.pipelineConfig
	}

	if opts.requireData {
		if _, err := os.Stat(cfg.Data.Root); os.IsNotExist(err) {
			return nil, errors.ConfigInvalid(fmt.Sprintf(
				"data root %s does not exist; set DATA_ROOT or seed demo data with 'spendlens registry seed'",
				cfg.Data.Root))
		}
	}

	c, err := container.New(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Database.Enabled {
		db, err := sqlx.Connect("postgres", cfg.Database.URL)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to database")
		}
		if err := c.InitWithDatabase(ctx, db); err != nil {
			return nil, err
		}
	}

	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// printJSON writes v as indented JSON to stdout
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
