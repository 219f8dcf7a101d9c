package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spendlens/domain/insight"
	"spendlens/domain/metric"
	"spendlens/internal/analytics"
	"spendlens/internal/export"
)

func newInsightsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "insights [persona]",
		Short: "Compute ranked optimization recommendations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap(cmd.Context(), bootOpts{requireData: true})
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			ctx := cmd.Context()
			in := c.Loader.Load(ctx)

			var recs []insight.Recommendation
			if len(args) == 1 {
				persona, err := metric.ParsePersona(args[0])
				if err != nil {
					return err
				}
				recs = c.Engine.ForPersona(ctx, persona, in)
			} else {
				recs = c.Engine.Recommendations(ctx, in)
			}

			if asJSON {
				return printJSON(recs)
			}
			printRecommendations(recs)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print recommendations as JSON")
	return cmd
}

func newForecastCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast budget overruns, vendor risks, and savings",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap(cmd.Context(), bootOpts{requireData: true})
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			in := c.Loader.Load(cmd.Context())
			report := c.Forecaster.Run(in)

			if asJSON {
				return printJSON(report)
			}

			fmt.Printf("🔮 PREDICTIVE ANALYTICS\n")
			fmt.Printf("Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04"))
			fmt.Printf("High-Risk Items: %d\n", report.HighRiskItems)
			fmt.Printf("Total Potential Savings: $%s\n", report.TotalPotentialSavings.StringFixed(0))

			if len(report.BudgetOverruns) > 0 {
				fmt.Printf("\n💸 BUDGET OVERRUN FORECASTS (%d)\n", len(report.BudgetOverruns))
				for i, o := range report.BudgetOverruns {
					fmt.Printf("%d. %s: %.0f%% probability, est. overrun $%s\n",
						i+1, o.Project, o.Probability, o.EstimatedOverrun.StringFixed(0))
					fmt.Printf("   %s\n", o.Recommendation)
				}
			}

			if len(report.VendorRisks) > 0 {
				fmt.Printf("\n⚠️  VENDOR RISKS (%d)\n", len(report.VendorRisks))
				for i, v := range report.VendorRisks {
					fmt.Printf("%d. %s (risk %.0f/100): %s\n", i+1, v.Vendor, v.RiskScore, v.PrimaryRisk)
					fmt.Printf("   %s\n", v.RecommendedAction)
				}
			}

			if len(report.Savings) > 0 {
				fmt.Printf("\n💰 SAVINGS OPPORTUNITIES (%d)\n", len(report.Savings))
				for i, s := range report.Savings {
					fmt.Printf("%d. %s: $%s (%s effort, %s)\n",
						i+1, s.Opportunity, s.PotentialSavings.StringFixed(0), s.Effort, s.Timeline)
				}
			}

			if report.Spend != nil {
				fmt.Printf("\n📈 SPEND TREND (r²=%.2f)\n", report.Spend.R2)
				for _, p := range report.Spend.Projected {
					fmt.Printf("• %s: $%s\n", p.Month.Format("2006-01"), p.Total.StringFixed(0))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the forecast report as JSON")
	return cmd
}

func newScorecardCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scorecard",
		Short: "Compute the IT effectiveness scorecard",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrap(cmd.Context(), bootOpts{requireData: true})
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			in := c.Loader.Load(cmd.Context())
			sc := c.Scorecards.Build(in)

			if asJSON {
				return printJSON(sc)
			}

			fmt.Printf("🎯 IT EFFECTIVENESS SCORECARD\n")
			fmt.Printf("Generated: %s\n", sc.GeneratedAt.Format("2006-01-02 15:04"))
			for _, theme := range insight.AllThemes() {
				metrics := sc.Themes[theme]
				if len(metrics) == 0 {
					continue
				}
				fmt.Printf("\n%s\n", strings.ToUpper(string(theme)))
				for _, m := range metrics {
					icon := statusIcon(m.Status)
					fmt.Printf("%s %s: %.1f%s", icon, m.Name, m.Value, m.Unit)
					if m.Benchmark != "" {
						fmt.Printf(" (benchmark %s)", m.Benchmark)
					}
					fmt.Println()
					if m.Detail != "" {
						fmt.Printf("   %s\n", m.Detail)
					}
				}
			}
			if len(sc.Insights) > 0 {
				fmt.Printf("\n💡 EXECUTIVE INSIGHTS\n")
				for _, line := range sc.Insights {
					fmt.Printf("• %s\n", line)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the scorecard as JSON")
	return cmd
}

func newQACmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "qa [persona]",
		Short: "Answer the standing leadership questions for a persona",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			personaArg := "cfo"
			if len(args) == 1 {
				personaArg = args[0]
			}
			persona, err := metric.ParsePersona(personaArg)
			if err != nil {
				return err
			}

			c, err := bootstrap(cmd.Context(), bootOpts{requireData: true})
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			in := c.Loader.Load(cmd.Context())
			sc := c.Scorecards.Build(in)
			answers, err := analytics.Answers(persona, sc, in)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(answers)
			}

			fmt.Printf("❓ LEADERSHIP Q&A — %s\n", persona.Title())
			for i, a := range answers {
				fmt.Printf("\n%d. %s\n", i+1, a.Question)
				fmt.Printf("%s %s\n", statusIcon(a.Status), a.Answer)
				for _, d := range a.Detail {
					fmt.Printf("   • %s\n", d)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print answers as JSON")
	return cmd
}

func newExportCmd() *cobra.Command {
	var format, outDir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the executive analytics bundle to disk",
		Long: `Compute and write the export bundle: executive summary, vendor
analysis, projects at risk, board summary, and dashboard metrics.

Formats: csv (default), xlsx (single workbook), markdown (board summary
plus rendered HTML).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case export.FormatCSV, export.FormatXLSX, export.FormatMarkdown:
			default:
				return fmt.Errorf("unsupported format %q (use csv, xlsx, or markdown)", format)
			}

			c, err := bootstrap(cmd.Context(), bootOpts{requireData: true})
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			in := c.Loader.Load(cmd.Context())
			bundle := c.Exporter.Build(cmd.Context(), in)

			dir := outDir
			if dir == "" {
				dir = c.PipelineCfg.OutputSettings.ReportsDirectory
			}

			paths, err := c.Exporter.Write(bundle, format, dir)
			if err != nil {
				return err
			}

			fmt.Printf("📤 Exported %d artifact(s) to %s\n", len(paths), dir)
			for _, p := range paths {
				fmt.Printf("• %s\n", p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", export.FormatCSV, "Output format: csv, xlsx, or markdown")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (default: reports directory from pipeline config)")
	return cmd
}

// printRecommendations renders the ranked recommendation list
func printRecommendations(recs []insight.Recommendation) {
	if len(recs) == 0 {
		fmt.Println("No recommendations; load more metric data and retry")
		return
	}
	fmt.Printf("💡 OPTIMIZATION RECOMMENDATIONS (%d)\n", len(recs))
	for i, r := range recs {
		fmt.Printf("\n%d. [%s] %s (score %.0f)\n", i+1, r.Kind, r.Title, r.Score)
		fmt.Printf("   %s\n", r.Description)
		if !r.PotentialSavings.IsZero() {
			fmt.Printf("   Savings: $%s/yr", r.PotentialSavings.StringFixed(0))
			if !r.InvestmentRequired.IsZero() {
				fmt.Printf(" (investment $%s)", r.InvestmentRequired.StringFixed(0))
			}
			fmt.Println()
		}
		fmt.Printf("   Effort: %s, Timeline: %s, Confidence: %.0f%%\n",
			r.Effort, r.Timeline, r.Confidence*100)
	}
}

func statusIcon(s insight.Status) string {
	switch s {
	case insight.StatusGood:
		return "✅"
	case insight.StatusWatch:
		return "⚠️ "
	default:
		return "❌"
	}
}
