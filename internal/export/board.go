package export

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/shopspring/decimal"

	"spendlens/domain/insight"
	"spendlens/domain/table"
	"spendlens/internal/analytics"
)

// Board summary shape limits
const (
	maxBoardRecommendations = 5
	maxQuickWins            = 3
)

// DashboardMetrics is the machine-readable rollup web dashboards poll
type DashboardMetrics struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Financial   FinancialMetrics   `json:"financial"`
	Projects    ProjectMetrics     `json:"projects"`
	Operational OperationalMetrics `json:"operational"`
}

// FinancialMetrics totals spend exposure and identified savings
type FinancialMetrics struct {
	TotalSpend          decimal.Decimal            `json:"total_spend"`
	SpendByCategory     map[string]decimal.Decimal `json:"spend_by_category,omitempty"`
	HighRiskVendorSpend decimal.Decimal            `json:"high_risk_vendor_spend"`
	PotentialSavings    decimal.Decimal            `json:"potential_savings"`
}

// ProjectMetrics counts the portfolio by state
type ProjectMetrics struct {
	Total       int             `json:"total_projects"`
	Active      int             `json:"active_projects"`
	AtRisk      int             `json:"at_risk_projects"`
	TotalBudget decimal.Decimal `json:"total_budget"`
}

// OperationalMetrics summarizes the vendor and system estate
type OperationalMetrics struct {
	VendorCount     int     `json:"vendor_count"`
	SystemCount     int     `json:"system_count"`
	AvgSatisfaction float64 `json:"avg_satisfaction,omitempty"`
	AvgAvailability float64 `json:"avg_availability,omitempty"`
}

func dashboardMetrics(now time.Time, in *analytics.Inputs, recs []insight.Recommendation) DashboardMetrics {
	return DashboardMetrics{
		GeneratedAt: now,
		Financial: FinancialMetrics{
			TotalSpend:          vendorSpend(in.Vendors),
			SpendByCategory:     spendByCategory(in.Vendors),
			HighRiskVendorSpend: highRiskSpend(in.Vendors),
			PotentialSavings:    totalSavings(recs),
		},
		Projects:    projectMetrics(in.Projects),
		Operational: operationalMetrics(in),
	}
}

func spendByCategory(vendors *table.Table) map[string]decimal.Decimal {
	catCol := findColumn(vendors, "category", "Category")
	spendCol := findColumn(vendors, "annual_spend", "Annual Spend")
	if catCol == "" || spendCol == "" {
		return nil
	}
	by := map[string]decimal.Decimal{}
	for _, gs := range vendors.GroupStats(catCol, spendCol) {
		if gs.Key != "" {
			by[gs.Key] = gs.Sum
		}
	}
	if len(by) == 0 {
		return nil
	}
	return by
}

func highRiskSpend(vendors *table.Table) decimal.Decimal {
	riskCol := findColumn(vendors, "risk_level", "Risk Level")
	spendCol := findColumn(vendors, "annual_spend", "Annual Spend")
	if riskCol == "" || spendCol == "" {
		return decimal.Zero
	}
	total := decimal.Zero
	for row := 0; row < vendors.NumRows(); row++ {
		if !strings.EqualFold(vendors.Value(row, riskCol), "High") {
			continue
		}
		if d, ok := table.ParseAmount(vendors.Value(row, spendCol)); ok {
			total = total.Add(d)
		}
	}
	return total
}

func projectMetrics(projects *table.Table) ProjectMetrics {
	pm := ProjectMetrics{TotalBudget: decimal.Zero}
	if projects == nil || projects.IsEmpty() {
		return pm
	}
	pm.Total = projects.NumRows()
	pm.Active = activeProjects(projects)
	pm.AtRisk = len(atRiskRows(projects))
	if col := findColumn(projects, "budget", "Budget"); col != "" {
		pm.TotalBudget = projects.SumDecimal(col)
	}
	return pm
}

func operationalMetrics(in *analytics.Inputs) OperationalMetrics {
	om := OperationalMetrics{}
	if in.Vendors != nil {
		om.VendorCount = in.Vendors.NumRows()
		if col := findColumn(in.Vendors, "satisfaction_score", "Satisfaction Score"); col != "" {
			if mean, ok := in.Vendors.MeanFloat(col); ok {
				om.AvgSatisfaction = math.Round(mean*100) / 100
			}
		}
	}
	if in.Systems != nil {
		om.SystemCount = in.Systems.NumRows()
		if col := findColumn(in.Systems, "availability_pct", "Availability %", "availability"); col != "" {
			if mean, ok := in.Systems.MeanFloat(col); ok {
				om.AvgAvailability = math.Round(mean*100) / 100
			}
		}
	}
	return om
}

// boardSummary renders the markdown leadership handout. Sections with
// no computed backing are left out entirely.
func boardSummary(generatedAt time.Time, sc *insight.Scorecard, recs []insight.Recommendation, dm DashboardMetrics) string {
	var sb strings.Builder
	sb.WriteString("# IT Spend & Effectiveness Summary\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", generatedAt.Format("January 2, 2006"))

	sb.WriteString("## Executive Highlights\n\n")
	if dm.Financial.TotalSpend.IsPositive() {
		fmt.Fprintf(&sb, "- Total IT investment: $%s\n", groupDigits(dm.Financial.TotalSpend.Round(0)))
	}
	if m, ok := sc.Metric(insight.ThemeFinancial, "it_spend_pct_revenue"); ok {
		fmt.Fprintf(&sb, "- IT spend at %.1f%% of revenue (benchmark %s)\n", m.Value, m.Benchmark)
	}
	if dm.Financial.PotentialSavings.IsPositive() {
		fmt.Fprintf(&sb, "- Identified savings opportunities: $%s annually\n", groupDigits(dm.Financial.PotentialSavings))
	}
	if dm.Projects.Total > 0 {
		fmt.Fprintf(&sb, "- Projects at risk: %d of %d\n", dm.Projects.AtRisk, dm.Projects.Total)
	}
	if m, ok := sc.Metric(insight.ThemeService, "avg_availability"); ok {
		fmt.Fprintf(&sb, "- Average system availability: %.2f%%\n", m.Value)
	}
	for _, line := range sc.Insights {
		fmt.Fprintf(&sb, "- %s\n", line)
	}

	if len(recs) > 0 {
		sb.WriteString("\n## Top Recommendations\n\n")
		top := recs
		if len(top) > maxBoardRecommendations {
			top = top[:maxBoardRecommendations]
		}
		for n, rec := range top {
			fmt.Fprintf(&sb, "%d. **%s** (%s effort, %s)", n+1, rec.Title, strings.ToLower(rec.Effort), rec.Timeline)
			if rec.PotentialSavings.IsPositive() {
				fmt.Fprintf(&sb, " saves $%s/yr", groupDigits(rec.PotentialSavings))
			} else if rec.CostAvoidance.IsPositive() {
				fmt.Fprintf(&sb, " avoids $%s", groupDigits(rec.CostAvoidance))
			}
			sb.WriteString("\n")
		}
	}

	if wins := quickWins(recs); len(wins) > 0 {
		sb.WriteString("\n## Quick Wins (90 Days)\n\n")
		for _, rec := range wins {
			fmt.Fprintf(&sb, "- %s\n", rec.Title)
		}
	}
	return sb.String()
}

// quickWins picks the highest scoring low-effort recommendations
func quickWins(recs []insight.Recommendation) []insight.Recommendation {
	wins := []insight.Recommendation{}
	for _, rec := range recs {
		if rec.Effort == insight.EffortLow {
			wins = append(wins, rec)
		}
	}
	sort.SliceStable(wins, func(i, j int) bool { return wins[i].Score > wins[j].Score })
	if len(wins) > maxQuickWins {
		wins = wins[:maxQuickWins]
	}
	return wins
}

// BoardHTML renders the board summary markdown to HTML, the body format
// webhook notifications carry.
func BoardHTML(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	return string(markdown.Render(doc, renderer))
}
