package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"spendlens/domain/metric"
	"spendlens/internal/config"
	"spendlens/internal/errors"
	"spendlens/internal/testkit"
)

func newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect and seed the persona metric registry",
	}
	cmd.AddCommand(newRegistryListCmd(), newRegistryCatalogCmd(), newRegistrySeedCmd())
	return cmd
}

func newRegistryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [persona]",
		Short: "List discovered metrics, optionally for one persona",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap(cmd.Context(), bootOpts{requireData: true})
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			personas := metric.AllPersonas()
			if len(args) == 1 {
				p, err := metric.ParsePersona(args[0])
				if err != nil {
					return err
				}
				personas = []metric.Persona{p}
			}

			for _, p := range personas {
				summary := c.Registry.Summary(p)
				fmt.Printf("📋 %s (%s): %d metric(s), %d live-capable\n",
					strings.ToUpper(string(p)), summary.Title, summary.MetricCount, summary.LiveMetrics)
				for _, name := range summary.MetricNames {
					fmt.Printf("• %s\n", name)
				}
				if len(summary.MissingFiles) > 0 {
					fmt.Printf("⚠️  missing expected files: %s\n", strings.Join(summary.MissingFiles, ", "))
				}
				fmt.Println()
			}
			return nil
		},
	}
	return cmd
}

func newRegistryCatalogCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the metric catalog, or export it with -o",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap(cmd.Context(), bootOpts{requireData: true})
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			if outDir != "" {
				path, err := c.Registry.ExportCatalog(outDir)
				if err != nil {
					return err
				}
				fmt.Printf("💾 Catalog exported to %s\n", path)
				return nil
			}
			return printJSON(c.Registry.Catalog())
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory to write the catalog JSON into")
	return cmd
}

func newRegistrySeedCmd() *cobra.Command {
	var fromDir string
	var seed int64
	var workbook string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the data root with demo metrics or copy an existing root",
		Long: `Populate the metric registry.

Without flags, a deterministic synthetic dataset sized for a small
college is generated. With --from, CSV and XLSX files are copied from
another data root instead, preserving the <persona>/<metric> layout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Seeding must work before any data root exists, so this
			// command skips the container and works with config only.
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if fromDir != "" {
				copied, err := copyDataRoot(fromDir, cfg.Data.Root)
				if err != nil {
					return err
				}
				fmt.Printf("💾 Copied %d file(s) from %s to %s\n", copied, fromDir, cfg.Data.Root)
				return nil
			}

			genCfg := testkit.DefaultGeneratorConfig()
			if seed != 0 {
				genCfg.Seed = seed
			}
			kit := testkit.NewKit(genCfg)

			paths, err := kit.SeedRegistry(cfg.Data.Root)
			if err != nil {
				return err
			}
			fmt.Printf("🌱 Seeded %d metric file(s) under %s\n", len(paths), cfg.Data.Root)
			for _, p := range paths {
				fmt.Printf("• %s\n", p)
			}

			if workbook != "" {
				if err := kit.WriteWorkbook(workbook); err != nil {
					return err
				}
				fmt.Printf("📗 Workbook written to %s\n", workbook)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fromDir, "from", "", "Copy metric files from this data root instead of generating")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for the synthetic dataset (default 42)")
	cmd.Flags().StringVar(&workbook, "workbook", "", "Also write the dataset as a multi-sheet XLSX")
	return cmd
}

// copyDataRoot copies every metric file from one registry layout into
// another, creating persona directories as needed.
func copyDataRoot(from, to string) (int, error) {
	info, err := os.Stat(from)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("source data root %s does not exist", from))
	}
	if !info.IsDir() {
		return 0, errors.ConfigInvalid(fmt.Sprintf("source data root %s is not a directory", from))
	}

	copied := 0
	err = filepath.WalkDir(from, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv", ".xlsx":
		default:
			return nil
		}

		rel, err := filepath.Rel(from, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(to, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := copyFile(path, dest); err != nil {
			return err
		}
		copied++
		return nil
	})
	return copied, err
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
