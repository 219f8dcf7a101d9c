package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"spendlens/domain/insight"
	"spendlens/domain/table"
)

// Forecast thresholds
const (
	overrunUtilizationGate = 75.0 // percent of budget consumed
	overrunEstimateRate    = 0.15
	vendorSpendRiskFloor   = 40_000.0
	renewalRiskMonths      = 6.0
	riskFactorWeight       = 33
	licenseUtilizationGate = 50.0
)

// Forecaster derives forward-looking risk and savings signals from
// portfolio, vendor, and spend tables.
type Forecaster struct {
	now func() time.Time
}

// NewForecaster creates a forecaster clocked to the current time
func NewForecaster() *Forecaster {
	return &Forecaster{now: func() time.Time { return time.Now().UTC() }}
}

// Report bundles every forecast for one reporting pass
type Report struct {
	GeneratedAt           time.Time                    `json:"generated_at"`
	BudgetOverruns        []insight.BudgetOverrun      `json:"budget_overruns"`
	VendorRisks           []insight.VendorRisk         `json:"vendor_risks"`
	Savings               []insight.SavingsOpportunity `json:"savings_opportunities"`
	Spend                 *insight.SpendForecast       `json:"spend_forecast,omitempty"`
	TotalPotentialSavings decimal.Decimal              `json:"total_potential_savings"`
	HighRiskItems         int                          `json:"high_risk_items"`
}

// Run computes all forecasts from the loaded inputs
func (f *Forecaster) Run(in *Inputs) *Report {
	report := &Report{
		GeneratedAt:           f.now(),
		BudgetOverruns:        f.BudgetOverruns(in.Projects),
		VendorRisks:           f.VendorRisks(in.Vendors),
		TotalPotentialSavings: decimal.Zero,
	}
	report.Savings = f.SavingsOpportunities(in.Vendors, in.Systems)

	if in.Budget != nil {
		if points := MonthlySpend(in.Budget, "Month", "Actual Spend", "Actual", "Amount"); len(points) >= 2 {
			spend := f.SpendTrend(points, 6)
			report.Spend = &spend
		}
	}

	for _, s := range report.Savings {
		report.TotalPotentialSavings = report.TotalPotentialSavings.Add(s.PotentialSavings)
	}
	report.HighRiskItems = len(report.BudgetOverruns) + len(report.VendorRisks)
	return report
}

// BudgetOverruns flags projects whose burn rate points at a breach
func (f *Forecaster) BudgetOverruns(projects *table.Table) []insight.BudgetOverrun {
	if projects == nil || projects.IsEmpty() {
		return nil
	}
	nameCol := pickColumn(projects, "project_name", "Project Name", "Project")
	budgetCol := pickColumn(projects, "budget", "Budget")
	if nameCol == "" || budgetCol == "" {
		return nil
	}
	utilCol := pickColumn(projects, "budget_utilization_%", "Budget Utilization %", "budget_utilization_pct")
	spentCol := pickColumn(projects, "spent_to_date", "Spent to Date")

	overruns := []insight.BudgetOverrun{}
	for row := 0; row < projects.NumRows(); row++ {
		budget, ok := numericCell(projects, row, budgetCol)
		if !ok || budget <= 0 {
			continue
		}
		spent, _ := numericCell(projects, row, spentCol)

		util, ok := numericCell(projects, row, utilCol)
		if !ok {
			if spentCol == "" {
				continue
			}
			util = spent / budget * 100
		}
		if util <= overrunUtilizationGate {
			continue
		}

		probability := math.Min(100, util*1.2)
		recommendation := "Monitor closely"
		if probability > 90 {
			recommendation = "Immediate review required"
		}
		overruns = append(overruns, insight.BudgetOverrun{
			Project:          projects.Value(row, nameCol),
			Budget:           decimal.NewFromFloat(budget).Round(0),
			Spent:            decimal.NewFromFloat(spent).Round(0),
			UtilizationPct:   math.Round(util*10) / 10,
			Probability:      math.Round(probability),
			EstimatedOverrun: decimal.NewFromFloat(budget * overrunEstimateRate).Round(0),
			Recommendation:   recommendation,
		})
	}
	return overruns
}

// VendorRisks scores vendors against the three-factor model: risk
// rating, spend concentration, and renewal proximity. Two or more
// factors put the vendor on the report.
func (f *Forecaster) VendorRisks(vendors *table.Table) []insight.VendorRisk {
	if vendors == nil || vendors.IsEmpty() {
		return nil
	}
	nameCol := pickColumn(vendors, "vendor_name", "Vendor Name", "Vendor")
	spendCol := pickColumn(vendors, "annual_spend", "Annual Spend")
	if nameCol == "" || spendCol == "" {
		return nil
	}
	riskCol := pickColumn(vendors, "risk_level", "Risk Level")
	monthsCol := pickColumn(vendors, "months_to_renewal", "Months to Renewal")
	endCol := pickColumn(vendors, "contract_end", "Contract End Date", "End Date")

	now := f.now()
	risks := []insight.VendorRisk{}
	for row := 0; row < vendors.NumRows(); row++ {
		spend, ok := numericCell(vendors, row, spendCol)
		if !ok {
			continue
		}

		factors := []string{}
		if riskCol != "" && vendors.Value(row, riskCol) == "High" {
			factors = append(factors, "High vendor risk rating")
		}
		if spend > vendorSpendRiskFloor {
			factors = append(factors, "High spend concentration")
		}

		months, haveRenewal := f.monthsToRenewal(vendors, row, monthsCol, endCol, now)
		if haveRenewal && months < renewalRiskMonths {
			factors = append(factors, "Contract renewal imminent")
		}

		if len(factors) < 2 {
			continue
		}

		primary := "High spend concentration"
		action := "Seek alternatives"
		if haveRenewal && months < renewalRiskMonths {
			primary = "Contract renewal"
			action = "Begin renegotiation"
		}
		risks = append(risks, insight.VendorRisk{
			Vendor:            vendors.Value(row, nameCol),
			AnnualSpend:       decimal.NewFromFloat(spend).Round(0),
			RiskScore:         float64(len(factors) * riskFactorWeight),
			RiskFactors:       factors,
			PrimaryRisk:       primary,
			RecommendedAction: action,
		})
	}
	return risks
}

// monthsToRenewal prefers an explicit months column and falls back to
// the contract end date.
func (f *Forecaster) monthsToRenewal(t *table.Table, row int, monthsCol, endCol string, now time.Time) (float64, bool) {
	if months, ok := numericCell(t, row, monthsCol); ok {
		return months, true
	}
	if endCol == "" {
		return 0, false
	}
	end, ok := table.ParseDate(t.Value(row, endCol))
	if !ok {
		return 0, false
	}
	return end.Sub(now).Hours() / (24 * 30), true
}

// SavingsOpportunities combines category consolidation plays with
// license right-sizing detected from utilization data.
func (f *Forecaster) SavingsOpportunities(vendors, systems *table.Table) []insight.SavingsOpportunity {
	opportunities := []insight.SavingsOpportunity{}

	if vendors != nil && !vendors.IsEmpty() {
		categoryCol := pickColumn(vendors, "category", "Category")
		spendCol := pickColumn(vendors, "annual_spend", "Annual Spend")
		if categoryCol != "" && spendCol != "" {
			for _, cat := range vendors.GroupStats(categoryCol, spendCol) {
				if cat.Key == "" || cat.Count <= 2 {
					continue
				}
				savings := cat.Sum.Mul(decimal.NewFromFloat(consolidationSavingsRate)).Round(0)
				opportunities = append(opportunities, insight.SavingsOpportunity{
					Opportunity:      fmt.Sprintf("Consolidate %s vendors", cat.Key),
					Category:         cat.Key,
					PotentialSavings: savings,
					Effort:           insight.EffortMedium,
					Timeline:         "3-6 months",
				})
			}
		}
	}

	if licenses, ok := f.licenseSavings(systems); ok {
		opportunities = append(opportunities, licenses)
	}
	return opportunities
}

// licenseSavings totals the idle annualized cost of systems running
// below half utilization.
func (f *Forecaster) licenseSavings(systems *table.Table) (insight.SavingsOpportunity, bool) {
	if systems == nil || systems.IsEmpty() {
		return insight.SavingsOpportunity{}, false
	}
	utilCol := pickColumn(systems, "Utilization %", "utilization_pct", "utilization_%")
	costCol := pickColumn(systems, "Monthly Cost", "monthly_cost")
	if utilCol == "" || costCol == "" {
		return insight.SavingsOpportunity{}, false
	}

	savings := decimal.Zero
	hits := 0
	for row := 0; row < systems.NumRows(); row++ {
		util, ok := numericCell(systems, row, utilCol)
		if !ok || util >= licenseUtilizationGate {
			continue
		}
		cost, ok := numericCell(systems, row, costCol)
		if !ok || cost <= 0 {
			continue
		}
		savings = savings.Add(decimal.NewFromFloat(cost * 12 * (1 - util/100)))
		hits++
	}
	if hits == 0 || !savings.IsPositive() {
		return insight.SavingsOpportunity{}, false
	}

	return insight.SavingsOpportunity{
		Opportunity:      "Optimize software licenses",
		Category:         "Licensing",
		PotentialSavings: savings.Round(0),
		Effort:           insight.EffortLow,
		Timeline:         "1-2 months",
	}, true
}

// SpendTrend fits a least-squares line to the monthly series and
// projects it forward. R-squared reports fit quality.
func (f *Forecaster) SpendTrend(history []insight.SpendPoint, horizonMonths int) insight.SpendForecast {
	forecast := insight.SpendForecast{History: history}
	if len(history) < 2 {
		return forecast
	}

	xs := make([]float64, len(history))
	ys := make([]float64, len(history))
	for i, p := range history {
		xs[i] = float64(i)
		ys[i] = p.Total.InexactFloat64()
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	forecast.Intercept = alpha
	forecast.Slope = beta
	forecast.R2 = stat.RSquared(xs, ys, nil, alpha, beta)

	first := history[0].Month
	for i := len(history); i < len(history)+horizonMonths; i++ {
		value := alpha + beta*float64(i)
		if value < 0 {
			value = 0
		}
		forecast.Projected = append(forecast.Projected, insight.SpendPoint{
			Month: first.AddDate(0, i, 0),
			Total: decimal.NewFromFloat(value).Round(0),
		})
	}
	return forecast
}

// MonthlySpend buckets a dated amount column into month totals, sorted
// ascending. Column candidates are tried in order.
func MonthlySpend(t *table.Table, dateColumn string, amountColumns ...string) []insight.SpendPoint {
	if t == nil || t.IsEmpty() {
		return nil
	}
	dateCol := pickColumn(t, dateColumn, "Date", "month", "date")
	amountCol := pickColumn(t, amountColumns...)
	if dateCol == "" || amountCol == "" {
		return nil
	}

	totals := map[time.Time]decimal.Decimal{}
	for row := 0; row < t.NumRows(); row++ {
		when, ok := table.ParseDate(t.Value(row, dateCol))
		if !ok {
			continue
		}
		amount, ok := table.ParseAmount(t.Value(row, amountCol))
		if !ok {
			continue
		}
		month := time.Date(when.Year(), when.Month(), 1, 0, 0, 0, 0, time.UTC)
		totals[month] = totals[month].Add(amount)
	}
	if len(totals) == 0 {
		return nil
	}

	points := make([]insight.SpendPoint, 0, len(totals))
	for month, total := range totals {
		points = append(points, insight.SpendPoint{Month: month, Total: total})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Month.Before(points[j].Month) })
	return points
}
