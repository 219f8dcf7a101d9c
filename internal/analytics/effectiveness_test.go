package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/domain/insight"
	"spendlens/domain/table"
)

func effectivenessInputs() *Inputs {
	vendors := table.New("vendor_name", "category", "annual_spend", "risk_level")
	vendors.AppendRow("Oracle", "Software", "1000000", "Medium")
	vendors.AppendRow("Microsoft", "Software", "600000", "Low")
	vendors.AppendRow("CDW", "IT Services", "300000", "High")
	vendors.AppendRow("Zoom", "Communications", "100000", "Low")

	projects := table.New("project_name", "type", "budget", "spent_to_date", "budget_utilization_%", "risk_flag")
	projects.AppendRow("Analytics Platform", "Transform", "100000", "50000", "50", "LOW")
	projects.AppendRow("ERP Upgrade", "Grow", "200000", "180000", "90", "MEDIUM")
	projects.AppendRow("Server Refresh", "Run", "100000", "95000", "95", "HIGH")

	systems := table.New("system", "availability_pct", "user_count", "incidents_monthly")
	systems.AppendRow("ERP", "99.9", "1200", "2")
	systems.AppendRow("LMS", "99.7", "500", "5")
	systems.AppendRow("Portal", "99.1", "100", "10")

	staff := table.New("team", "engagement_score")
	staff.AppendRow("Infrastructure", "4.0")
	staff.AppendRow("Support", "3.6")

	return &Inputs{
		Vendors:      vendors,
		Projects:     projects,
		Systems:      systems,
		Satisfaction: satisfactionFixture(),
		Staff:        staff,
	}
}

func buildScorecard(t *testing.T) (*insight.Scorecard, *Inputs) {
	t.Helper()
	in := effectivenessInputs()
	b := NewScorecardBuilder(0, 0)
	b.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return b.Build(in), in
}

func TestScorecardFinancialTheme(t *testing.T) {
	sc, _ := buildScorecard(t)

	spend, ok := sc.Metric(insight.ThemeFinancial, "it_spend_pct_revenue")
	require.True(t, ok)
	assert.InDelta(t, 4.0, spend.Value, 0.001, "2M spend on the default 50M revenue")
	assert.Equal(t, insight.StatusGood, spend.Status)

	perUser, ok := sc.Metric(insight.ThemeFinancial, "cost_per_user")
	require.True(t, ok)
	assert.InDelta(t, 1333.3, perUser.Value, 0.001)

	roi, ok := sc.Metric(insight.ThemeFinancial, "project_roi")
	require.True(t, ok)
	assert.InDelta(t, 84.6, roi.Value, 0.001)
	assert.Equal(t, insight.StatusGood, roi.Status)

	variance, ok := sc.Metric(insight.ThemeFinancial, "budget_variance")
	require.True(t, ok)
	assert.InDelta(t, 18.8, variance.Value, 0.001)
}

func TestScorecardCostTheme(t *testing.T) {
	sc, _ := buildScorecard(t)

	concentration, ok := sc.Metric(insight.ThemeCost, "vendor_concentration")
	require.True(t, ok)
	assert.InDelta(t, 0.75, concentration.Value, 0.001, "3 categories across 4 vendors")
	assert.Equal(t, insight.StatusWatch, concentration.Status)

	avoidance, ok := sc.Metric(insight.ThemeCost, "cost_avoidance")
	require.True(t, ok)
	assert.InDelta(t, 200000, avoidance.Value, 0.1)

	efficiency, ok := sc.Metric(insight.ThemeCost, "budget_efficiency")
	require.True(t, ok)
	assert.InDelta(t, 70.0, efficiency.Value, 0.001, "HIGH-flagged project excluded from the mean")
	assert.Equal(t, insight.StatusGood, efficiency.Status)
}

func TestScorecardSatisfactionAndCustomerThemes(t *testing.T) {
	sc, _ := buildScorecard(t)

	satisfaction, ok := sc.Metric(insight.ThemeCustomer, "avg_satisfaction")
	require.True(t, ok)
	assert.InDelta(t, 4.2, satisfaction.Value, 0.001)
	assert.Equal(t, insight.StatusGood, satisfaction.Status)

	adoption, ok := sc.Metric(insight.ThemeCustomer, "service_adoption_pct")
	require.True(t, ok)
	assert.InDelta(t, 120.0, adoption.Value, 0.001)

	variance, ok := sc.Metric(insight.ThemeSatisfaction, "satisfaction_variance")
	require.True(t, ok)
	assert.InDelta(t, 0.33, variance.Value, 0.001)

	response, ok := sc.Metric(insight.ThemeSatisfaction, "avg_response_rate")
	require.True(t, ok)
	assert.InDelta(t, 80.0, response.Value, 0.001, "fractional rates scale to percent")

	engagement, ok := sc.Metric(insight.ThemeSatisfaction, "employee_satisfaction")
	require.True(t, ok)
	assert.InDelta(t, 3.8, engagement.Value, 0.001)
	assert.Equal(t, insight.StatusWatch, engagement.Status)
}

func TestScorecardServiceTheme(t *testing.T) {
	sc, _ := buildScorecard(t)

	availability, ok := sc.Metric(insight.ThemeService, "avg_availability")
	require.True(t, ok)
	assert.InDelta(t, 99.57, availability.Value, 0.001)
	assert.Equal(t, insight.StatusGood, availability.Status)

	incidents, ok := sc.Metric(insight.ThemeService, "monthly_incidents")
	require.True(t, ok)
	assert.InDelta(t, 17.0, incidents.Value, 0.001)
	assert.Equal(t, insight.StatusWatch, incidents.Status)

	resolution, ok := sc.Metric(insight.ThemeService, "avg_resolution_hours")
	require.True(t, ok)
	assert.InDelta(t, 4.0, resolution.Value, 0.001)
	assert.Equal(t, insight.StatusGood, resolution.Status)
}

func TestScorecardExecutiveInsights(t *testing.T) {
	sc, _ := buildScorecard(t)

	require.NotEmpty(t, sc.Insights)
	joined := ""
	for _, s := range sc.Insights {
		joined += s + "\n"
	}
	assert.Contains(t, joined, "STRONG: Project ROI of 84.6%")
	assert.Contains(t, joined, "OPPORTUNITY: Vendor consolidation could save $300000 annually")
	assert.Contains(t, joined, "EXCELLENT: System availability at 99.6%")
	assert.NotContains(t, joined, "RISK ALERT", "a single high-risk project stays off the headline")
}

func TestScorecardDegradesWithoutData(t *testing.T) {
	b := NewScorecardBuilder(0, 0)
	sc := b.Build(&Inputs{})

	require.NotNil(t, sc)
	assert.False(t, sc.GeneratedAt.IsZero())
	for _, theme := range insight.AllThemes() {
		assert.Empty(t, sc.Themes[theme])
	}
	assert.Empty(t, sc.Insights)
}

func TestScorecardCustomInstitution(t *testing.T) {
	in := effectivenessInputs()
	b := NewScorecardBuilder(100_000_000, 4000)
	sc := b.Build(in)

	spend, ok := sc.Metric(insight.ThemeFinancial, "it_spend_pct_revenue")
	require.True(t, ok)
	assert.InDelta(t, 2.0, spend.Value, 0.001)
	assert.Equal(t, insight.StatusWatch, spend.Status, "a point under the band is watch, not action")

	perUser, ok := sc.Metric(insight.ThemeFinancial, "cost_per_user")
	require.True(t, ok)
	assert.InDelta(t, 500.0, perUser.Value, 0.001)
}
