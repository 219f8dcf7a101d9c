package export

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"spendlens/domain/insight"
	"spendlens/domain/table"
	"spendlens/internal/analytics"
)

// categorySavingsRate is the negotiated-rate assumption applied to a
// category's total spend when its vendors are consolidated.
const categorySavingsRate = 0.20

// Grading gates for summary rows the scorecard does not cover
const (
	vendorCrowdGate   = 2 // more vendors than this in one category reads as overlap
	atRiskWatchCount  = 1
	atRiskActionCount = 4
)

// executiveSummary distills the loaded tables and scorecard into the
// Metric/Value/Status sheet leadership reads first. Rows whose inputs
// are missing are omitted instead of padded with placeholders.
func executiveSummary(in *analytics.Inputs, sc *insight.Scorecard, recs []insight.Recommendation) *table.Table {
	out := table.New("Metric", "Value", "Status")

	if total := vendorSpend(in.Vendors); total.IsPositive() {
		out.AppendRow("Total IT Spend", "$"+groupDigits(total.Round(0)), statusLabel(scStatus(sc, insight.ThemeFinancial, "it_spend_pct_revenue")))
	}
	if m, ok := sc.Metric(insight.ThemeFinancial, "it_spend_pct_revenue"); ok {
		out.AppendRow("IT Spend as % of Revenue", fmt.Sprintf("%.1f%%", m.Value), statusLabel(m.Status))
	}
	if m, ok := sc.Metric(insight.ThemeFinancial, "cost_per_user"); ok {
		out.AppendRow("Cost per User", fmt.Sprintf("$%.0f", m.Value), statusLabel(m.Status))
	}
	if in.Vendors != nil && in.Vendors.NumRows() > 0 {
		status := "Good"
		if crowdedCategories(in.Vendors) > 0 {
			status = "Watch"
		}
		out.AppendRow("Vendor Count", fmt.Sprintf("%d", in.Vendors.NumRows()), status)
	}
	if in.Projects != nil && in.Projects.NumRows() > 0 {
		out.AppendRow("Active Projects", fmt.Sprintf("%d", activeProjects(in.Projects)), "Good")
		atRisk := len(atRiskRows(in.Projects))
		out.AppendRow("At-Risk Projects", fmt.Sprintf("%d", atRisk), riskCountLabel(atRisk))
	}
	if m, ok := sc.Metric(insight.ThemeService, "avg_availability"); ok {
		out.AppendRow("Average System Availability", fmt.Sprintf("%.2f%%", m.Value), statusLabel(m.Status))
	}
	if m, ok := sc.Metric(insight.ThemeFinancial, "project_roi"); ok {
		out.AppendRow("Project ROI", fmt.Sprintf("%.1f%%", m.Value), statusLabel(m.Status))
	}
	if savings := totalSavings(recs); savings.IsPositive() {
		out.AppendRow("Potential Savings Identified", "$"+groupDigits(savings), "Opportunity")
	}
	return out
}

// vendorAnalysis rolls vendors up by category: count, total and average
// spend, average satisfaction, and the savings a consolidation
// negotiation at the assumed rate would yield.
func vendorAnalysis(vendors *table.Table) *table.Table {
	out := table.New("category", "vendor_count", "total_spend", "avg_spend", "avg_satisfaction", "savings_opportunity")
	catCol := findColumn(vendors, "category", "Category")
	spendCol := findColumn(vendors, "annual_spend", "Annual Spend")
	if catCol == "" || spendCol == "" {
		return out
	}
	satCol := findColumn(vendors, "satisfaction_score", "Satisfaction Score")

	for _, gs := range vendors.GroupStats(catCol, spendCol) {
		if gs.Key == "" {
			continue
		}
		out.AppendRow(
			gs.Key,
			fmt.Sprintf("%d", gs.Count),
			table.FormatAmount(gs.Sum),
			table.FormatAmount(gs.Mean),
			categorySatisfaction(vendors, catCol, satCol, gs.Key),
			table.FormatAmount(gs.Sum.Mul(decimal.NewFromFloat(categorySavingsRate))),
		)
	}
	return out
}

// projectsAtRisk lists flagged projects with their spend position and
// the share of budget already consumed, highest overrun first.
func projectsAtRisk(projects *table.Table) *table.Table {
	out := table.New("project_name", "department", "budget", "spent_to_date", "health", "risk_score", "overrun_risk_pct")
	rows := atRiskRows(projects)
	if len(rows) == 0 {
		return out
	}
	nameCol := findColumn(projects, "project_name", "Project Name", "Project")
	deptCol := findColumn(projects, "department", "Department")
	budgetCol := findColumn(projects, "budget", "Budget")
	spentCol := findColumn(projects, "spent_to_date", "Spent to Date")
	healthCol := findColumn(projects, "health", "Health")
	flagCol := findColumn(projects, "risk_flag", "Risk Flag")
	scoreCol := findColumn(projects, "risk_score", "Risk Score")

	for _, row := range rows {
		health := projects.Value(row, healthCol)
		if health == "" {
			health = projects.Value(row, flagCol)
		}
		overrun := ""
		budget, okBudget := table.ParseAmountFloat(projects.Value(row, budgetCol))
		spent, okSpent := table.ParseAmountFloat(projects.Value(row, spentCol))
		if okBudget && okSpent && budget > 0 {
			overrun = fmt.Sprintf("%.0f", spent/budget*100)
		}
		out.AppendRow(
			projects.Value(row, nameCol),
			projects.Value(row, deptCol),
			projects.Value(row, budgetCol),
			projects.Value(row, spentCol),
			health,
			projects.Value(row, scoreCol),
			overrun,
		)
	}
	out.SortBy("overrun_risk_pct", true, true)
	return out
}

// atRiskRows returns the indexes of projects flagged by any of the risk
// signals the sources carry: a Red or Yellow health grade, a HIGH risk
// flag, or an At Risk status.
func atRiskRows(projects *table.Table) []int {
	if projects == nil || projects.IsEmpty() {
		return nil
	}
	healthCol := findColumn(projects, "health", "Health")
	flagCol := findColumn(projects, "risk_flag", "Risk Flag")
	statusCol := findColumn(projects, "status", "Status")

	rows := []int{}
	for row := 0; row < projects.NumRows(); row++ {
		health := strings.ToLower(projects.Value(row, healthCol))
		if health == "red" || health == "yellow" ||
			projects.Value(row, flagCol) == "HIGH" ||
			strings.EqualFold(projects.Value(row, statusCol), "At Risk") {
			rows = append(rows, row)
		}
	}
	return rows
}

func activeProjects(projects *table.Table) int {
	statusCol := findColumn(projects, "status", "Status")
	if statusCol == "" {
		return projects.NumRows()
	}
	count := 0
	for row := 0; row < projects.NumRows(); row++ {
		if strings.EqualFold(projects.Value(row, statusCol), "In Progress") {
			count++
		}
	}
	return count
}

// crowdedCategories counts categories carrying more vendors than the
// overlap gate allows.
func crowdedCategories(vendors *table.Table) int {
	catCol := findColumn(vendors, "category", "Category")
	if catCol == "" {
		return 0
	}
	crowded := 0
	for _, gs := range vendors.GroupStats(catCol, findColumn(vendors, "annual_spend", "Annual Spend")) {
		if gs.Key != "" && gs.Count > vendorCrowdGate {
			crowded++
		}
	}
	return crowded
}

func categorySatisfaction(vendors *table.Table, catCol, satCol, category string) string {
	if satCol == "" {
		return ""
	}
	sum, n := 0.0, 0
	for row := 0; row < vendors.NumRows(); row++ {
		if vendors.Value(row, catCol) != category {
			continue
		}
		if v, ok := table.ParseAmountFloat(vendors.Value(row, satCol)); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", sum/float64(n))
}

func vendorSpend(vendors *table.Table) decimal.Decimal {
	col := findColumn(vendors, "annual_spend", "Annual Spend")
	if col == "" {
		return decimal.Zero
	}
	return vendors.SumDecimal(col)
}

func totalSavings(recs []insight.Recommendation) decimal.Decimal {
	total := decimal.Zero
	for _, rec := range recs {
		total = total.Add(rec.PotentialSavings)
	}
	return total.Round(0)
}

// findColumn returns the first present column name, "" when none match
func findColumn(t *table.Table, names ...string) string {
	if t == nil {
		return ""
	}
	for _, name := range names {
		if t.HasColumn(name) {
			return name
		}
	}
	return ""
}

func statusLabel(s insight.Status) string {
	switch s {
	case insight.StatusGood:
		return "Good"
	case insight.StatusWatch:
		return "Watch"
	case insight.StatusAction:
		return "Action"
	default:
		return "Info"
	}
}

func scStatus(sc *insight.Scorecard, theme insight.Theme, name string) insight.Status {
	if m, ok := sc.Metric(theme, name); ok {
		return m.Status
	}
	return ""
}

func riskCountLabel(n int) string {
	switch {
	case n >= atRiskActionCount:
		return "Action"
	case n >= atRiskWatchCount:
		return "Watch"
	default:
		return "Good"
	}
}

// groupDigits renders a whole decimal with comma separators for board
// readability.
func groupDigits(d decimal.Decimal) string {
	s := d.StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		s = "-" + s
	}
	return s
}
