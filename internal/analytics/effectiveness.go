package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"spendlens/domain/insight"
	"spendlens/domain/table"
)

// Institutional defaults used when config does not supply them. Sized
// for a small college.
const (
	DefaultAnnualRevenue = 50_000_000.0
	DefaultUserCount     = 1500
)

// Sector benchmarks the scorecard grades against
const (
	spendPctBenchmarkLow  = 3.0 // IT spend as % of revenue, higher-ed band
	spendPctBenchmarkHigh = 5.0
	roiBenchmarkPct       = 20.0
	satisfactionBenchmark = 4.0
	availabilityBenchmark = 99.5
	projectBenefitMult    = 1.5 // assumed payback multiple on project budgets
	costAvoidanceRate     = 0.1
)

// ScorecardBuilder computes the balanced effectiveness scorecard from
// vendor, project, system, and survey tables.
type ScorecardBuilder struct {
	annualRevenue float64
	userCount     float64
	now           func() time.Time
}

// NewScorecardBuilder creates a builder for the given institution.
// Zero arguments fall back to the small-college defaults.
func NewScorecardBuilder(annualRevenue float64, userCount int) *ScorecardBuilder {
	if annualRevenue <= 0 {
		annualRevenue = DefaultAnnualRevenue
	}
	if userCount <= 0 {
		userCount = DefaultUserCount
	}
	return &ScorecardBuilder{
		annualRevenue: annualRevenue,
		userCount:     float64(userCount),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Build computes every theme. Themes whose source tables are missing
// come back empty rather than failing the scorecard.
func (b *ScorecardBuilder) Build(in *Inputs) *insight.Scorecard {
	sc := &insight.Scorecard{
		GeneratedAt: b.now(),
		Themes:      map[insight.Theme][]insight.ScorecardMetric{},
	}
	sc.Themes[insight.ThemeFinancial] = b.financial(in)
	sc.Themes[insight.ThemeCustomer] = b.customer(in)
	sc.Themes[insight.ThemeCost] = b.cost(in)
	sc.Themes[insight.ThemeSatisfaction] = b.satisfaction(in)
	sc.Themes[insight.ThemeService] = b.service(in)
	sc.Insights = b.executiveInsights(in, sc)
	return sc
}

func (b *ScorecardBuilder) financial(in *Inputs) []insight.ScorecardMetric {
	metrics := []insight.ScorecardMetric{}

	itSpend := vendorSpendTotal(in.Vendors)
	if itSpend > 0 {
		pct := itSpend / b.annualRevenue * 100
		metrics = append(metrics, insight.ScorecardMetric{
			Name:      "it_spend_pct_revenue",
			Value:     round1(pct),
			Unit:      "%",
			Benchmark: "3-5% of revenue",
			Status:    bandStatus(pct, spendPctBenchmarkLow, spendPctBenchmarkHigh, 1.0),
			Detail:    fmt.Sprintf("$%s IT spend against $%s revenue", money(itSpend), money(b.annualRevenue)),
		})
		metrics = append(metrics, insight.ScorecardMetric{
			Name:   "cost_per_user",
			Value:  round1(itSpend / b.userCount),
			Unit:   "$",
			Status: insight.StatusGood,
			Detail: fmt.Sprintf("across %.0f students and staff", b.userCount),
		})
	}

	if in.Projects != nil && !in.Projects.IsEmpty() {
		budgetCol := pickColumn(in.Projects, "budget", "Budget")
		spentCol := pickColumn(in.Projects, "spent_to_date", "Spent to Date")
		budgetSum := sumColumn(in.Projects, budgetCol)
		spentSum := sumColumn(in.Projects, spentCol)
		if spentSum > 0 {
			benefits := budgetSum * projectBenefitMult
			roi := (benefits - spentSum) / spentSum * 100
			metrics = append(metrics, insight.ScorecardMetric{
				Name:      "project_roi",
				Value:     round1(roi),
				Unit:      "%",
				Benchmark: ">20%",
				Status:    floorStatus(roi, roiBenchmarkPct, 10),
			})
		}
		if budgetSum > 0 {
			variance := (budgetSum - spentSum) / budgetSum * 100
			metrics = append(metrics, insight.ScorecardMetric{
				Name:   "budget_variance",
				Value:  round1(variance),
				Unit:   "%",
				Status: bandStatus(variance, 0, 20, 10),
				Detail: "portfolio budget remaining vs plan",
			})
		}
	}
	return metrics
}

func (b *ScorecardBuilder) customer(in *Inputs) []insight.ScorecardMetric {
	metrics := []insight.ScorecardMetric{}

	if in.Satisfaction != nil {
		scoreCol := pickColumn(in.Satisfaction, "satisfaction_score", "Satisfaction Score")
		if vals := in.Satisfaction.NumericColumn(scoreCol); len(vals) > 0 {
			mean, _ := stats.Mean(vals)
			metrics = append(metrics, insight.ScorecardMetric{
				Name:      "avg_satisfaction",
				Value:     round1(mean),
				Unit:      "/5",
				Benchmark: ">=4.0",
				Status:    floorStatus(mean, satisfactionBenchmark, 3.5),
			})
		}
	}

	if in.Systems != nil {
		usersCol := pickColumn(in.Systems, "user_count", "users", "Users")
		if total := sumColumn(in.Systems, usersCol); total > 0 {
			adoption := total / b.userCount * 100
			metrics = append(metrics, insight.ScorecardMetric{
				Name:   "service_adoption_pct",
				Value:  round1(adoption),
				Unit:   "%",
				Status: floorStatus(adoption, 100, 60),
				Detail: "system seats in use relative to the population served",
			})
		}
	}
	return metrics
}

func (b *ScorecardBuilder) cost(in *Inputs) []insight.ScorecardMetric {
	metrics := []insight.ScorecardMetric{}

	if in.Vendors != nil && !in.Vendors.IsEmpty() {
		categoryCol := pickColumn(in.Vendors, "category", "Category")
		if categoryCol != "" && in.Vendors.NumRows() > 0 {
			concentration := float64(in.Vendors.DistinctCount(categoryCol)) / float64(in.Vendors.NumRows())
			metrics = append(metrics, insight.ScorecardMetric{
				Name:      "vendor_concentration",
				Value:     round2(concentration),
				Benchmark: "lower is better",
				Status:    ceilingStatus(concentration, 0.5, 0.8),
				Detail:    fmt.Sprintf("%d categories across %d vendors", in.Vendors.DistinctCount(categoryCol), in.Vendors.NumRows()),
			})
		}
		if spend := vendorSpendTotal(in.Vendors); spend > 0 {
			metrics = append(metrics, insight.ScorecardMetric{
				Name:   "cost_avoidance",
				Value:  round1(spend * costAvoidanceRate),
				Unit:   "$",
				Status: insight.StatusGood,
				Detail: "optimization potential at 10% of vendor spend",
			})
		}
	}

	if efficiency, ok := budgetEfficiency(in.Projects); ok {
		metrics = append(metrics, insight.ScorecardMetric{
			Name:      "budget_efficiency",
			Value:     round1(efficiency),
			Unit:      "%",
			Benchmark: "50-85% utilization",
			Status:    bandStatus(efficiency, 50, 85, 10),
			Detail:    "mean utilization across projects not flagged high risk",
		})
	}
	return metrics
}

func (b *ScorecardBuilder) satisfaction(in *Inputs) []insight.ScorecardMetric {
	metrics := []insight.ScorecardMetric{}

	if in.Satisfaction != nil {
		scoreCol := pickColumn(in.Satisfaction, "satisfaction_score", "Satisfaction Score")
		if vals := in.Satisfaction.NumericColumn(scoreCol); len(vals) > 1 {
			sd, _ := stats.StandardDeviation(vals)
			metrics = append(metrics, insight.ScorecardMetric{
				Name:      "satisfaction_variance",
				Value:     round2(sd),
				Benchmark: "consistent experience across departments",
				Status:    ceilingStatus(sd, 0.5, 1.0),
			})
		}
		rateCol := pickColumn(in.Satisfaction, "response_rate", "Response Rate")
		if vals := in.Satisfaction.NumericColumn(rateCol); len(vals) > 0 {
			mean, _ := stats.Mean(vals)
			if mean <= 1 {
				mean *= 100
			}
			metrics = append(metrics, insight.ScorecardMetric{
				Name:   "avg_response_rate",
				Value:  round1(mean),
				Unit:   "%",
				Status: floorStatus(mean, 70, 50),
			})
		}
	}

	if in.Staff != nil {
		engagementCol := pickColumn(in.Staff, "engagement_score", "Engagement Score")
		if vals := in.Staff.NumericColumn(engagementCol); len(vals) > 0 {
			mean, _ := stats.Mean(vals)
			metrics = append(metrics, insight.ScorecardMetric{
				Name:      "employee_satisfaction",
				Value:     round1(mean),
				Unit:      "/5",
				Benchmark: ">=4.0",
				Status:    floorStatus(mean, satisfactionBenchmark, 3.5),
			})
		}
	}
	return metrics
}

func (b *ScorecardBuilder) service(in *Inputs) []insight.ScorecardMetric {
	metrics := []insight.ScorecardMetric{}

	if in.Systems != nil {
		availCol := pickColumn(in.Systems, "availability_pct", "Availability %", "availability")
		if vals := in.Systems.NumericColumn(availCol); len(vals) > 0 {
			mean, _ := stats.Mean(vals)
			metrics = append(metrics, insight.ScorecardMetric{
				Name:      "avg_availability",
				Value:     round2(mean),
				Unit:      "%",
				Benchmark: ">=99.5%",
				Status:    floorStatus(mean, availabilityBenchmark, 98.5),
			})
		}
		incidentsCol := pickColumn(in.Systems, "incidents_monthly", "Incidents Monthly", "incidents")
		if vals := in.Systems.NumericColumn(incidentsCol); len(vals) > 0 {
			total, _ := stats.Sum(vals)
			metrics = append(metrics, insight.ScorecardMetric{
				Name:   "monthly_incidents",
				Value:  total,
				Status: ceilingStatus(total, 15, 30),
				Detail: fmt.Sprintf("across %d systems", len(vals)),
			})
		}
	}

	if in.Satisfaction != nil {
		hoursCol := pickColumn(in.Satisfaction, "avg_resolution_time", "Avg Resolution Time")
		if vals := in.Satisfaction.NumericColumn(hoursCol); len(vals) > 0 {
			mean, _ := stats.Mean(vals)
			metrics = append(metrics, insight.ScorecardMetric{
				Name:      "avg_resolution_hours",
				Value:     round1(mean),
				Unit:      "h",
				Benchmark: "<=4h",
				Status:    ceilingStatus(mean, 4, 8),
			})
		}
	}
	return metrics
}

// executiveInsights distills the scorecard into headline statements
func (b *ScorecardBuilder) executiveInsights(in *Inputs, sc *insight.Scorecard) []string {
	insights := []string{}

	if roi, ok := sc.Metric(insight.ThemeFinancial, "project_roi"); ok {
		if roi.Value > roiBenchmarkPct {
			insights = append(insights, fmt.Sprintf("STRONG: Project ROI of %.1f%% exceeds the 20%% benchmark", roi.Value))
		} else {
			insights = append(insights, fmt.Sprintf("ATTENTION: Project ROI of %.1f%% is below the 20%% benchmark", roi.Value))
		}
	}

	if highRisk := highRiskProjectCount(in.Projects); highRisk > 2 {
		insights = append(insights, fmt.Sprintf("RISK ALERT: %d projects at high risk require intervention", highRisk))
	}

	if spend := vendorSpendTotal(in.Vendors); spend > 0 {
		savings := decimal.NewFromFloat(spend * consolidationSavingsRate).Round(0)
		insights = append(insights, fmt.Sprintf("OPPORTUNITY: Vendor consolidation could save $%s annually", savings.StringFixed(0)))
	}

	if avail, ok := sc.Metric(insight.ThemeService, "avg_availability"); ok && avail.Value > availabilityBenchmark {
		insights = append(insights, fmt.Sprintf("EXCELLENT: System availability at %.1f%% exceeds target", avail.Value))
	}
	return insights
}

// budgetEfficiency averages utilization over projects not flagged HIGH
func budgetEfficiency(projects *table.Table) (float64, bool) {
	if projects == nil || projects.IsEmpty() {
		return 0, false
	}
	utilCol := pickColumn(projects, "budget_utilization_%", "Budget Utilization %", "budget_utilization_pct")
	if utilCol == "" {
		return 0, false
	}
	flagCol := pickColumn(projects, "risk_flag", "Risk Flag")

	vals := []float64{}
	for row := 0; row < projects.NumRows(); row++ {
		if flagCol != "" && projects.Value(row, flagCol) == "HIGH" {
			continue
		}
		if util, ok := numericCell(projects, row, utilCol); ok {
			vals = append(vals, util)
		}
	}
	if len(vals) == 0 {
		return 0, false
	}
	mean, err := stats.Mean(vals)
	if err != nil {
		return 0, false
	}
	return mean, true
}

func highRiskProjectCount(projects *table.Table) int {
	if projects == nil || projects.IsEmpty() {
		return 0
	}
	flagCol := pickColumn(projects, "risk_flag", "Risk Flag")
	if flagCol == "" {
		return 0
	}
	count := 0
	for row := 0; row < projects.NumRows(); row++ {
		if projects.Value(row, flagCol) == "HIGH" {
			count++
		}
	}
	return count
}

func vendorSpendTotal(vendors *table.Table) float64 {
	if vendors == nil || vendors.IsEmpty() {
		return 0
	}
	spendCol := pickColumn(vendors, "annual_spend", "Annual Spend")
	return sumColumn(vendors, spendCol)
}

func sumColumn(t *table.Table, column string) float64 {
	if t == nil || column == "" {
		return 0
	}
	total := 0.0
	for _, v := range t.NumericColumn(column) {
		total += v
	}
	return total
}

// bandStatus grades a value that should sit inside [low, high];
// slack widens the watch band on both sides.
func bandStatus(value, low, high, slack float64) insight.Status {
	if value >= low && value <= high {
		return insight.StatusGood
	}
	if value >= low-slack && value <= high+slack {
		return insight.StatusWatch
	}
	return insight.StatusAction
}

// floorStatus grades a value that should be at least the target
func floorStatus(value, target, watchFloor float64) insight.Status {
	switch {
	case value >= target:
		return insight.StatusGood
	case value >= watchFloor:
		return insight.StatusWatch
	}
	return insight.StatusAction
}

// ceilingStatus grades a value that should stay below the target
func ceilingStatus(value, target, actionCeiling float64) insight.Status {
	switch {
	case value <= target:
		return insight.StatusGood
	case value <= actionCeiling:
		return insight.StatusWatch
	}
	return insight.StatusAction
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

func money(v float64) string {
	return decimal.NewFromFloat(v).Round(0).StringFixed(0)
}
