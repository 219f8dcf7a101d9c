package analytics

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/domain/insight"
	"spendlens/domain/table"
)

func contractsFixture() *table.Table {
	t := table.New("Vendor", "Annual Spend")
	t.AppendRow("Oracle", "80000")
	t.AppendRow("Oracle", "45000")
	t.AppendRow("Zoom", "30000")
	t.AppendRow("CDW", "60000")
	t.AppendRow("CDW", "30000")
	return t
}

func budgetFixture() *table.Table {
	t := table.New("Budget Category", "Variance Amount")
	t.AppendRow("Cloud Services", "-80,000")
	t.AppendRow("Hardware", "-20000")
	t.AppendRow("Software", "15000")
	return t
}

func vendorsFixture() *table.Table {
	t := table.New("vendor_name", "category", "annual_spend", "risk_level")
	t.AppendRow("Adobe", "Software", "30000", "Low")
	t.AppendRow("Canva", "Software", "10000", "Low")
	t.AppendRow("Figma", "Software", "20000", "Medium")
	t.AppendRow("CDW", "IT Services", "50000", "High")
	return t
}

func projectsFixture() *table.Table {
	t := table.New("project_name", "category", "type", "status", "health",
		"budget", "spent_to_date", "business_value_score", "risk_flag", "budget_utilization_%")
	t.AppendRow("Cloud Migration Phase 1", "Digital Transform", "Transform", "In Progress", "Green",
		"200000", "50000", "8", "LOW", "25")
	t.AppendRow("Server Refresh", "Infrastructure", "Run", "In Progress", "Yellow",
		"100000", "90000", "5", "MEDIUM", "90")
	t.AppendRow("Legacy Archive", "Applications", "Run", "Completed", "Green",
		"50000", "50000", "9", "LOW", "100")
	t.AppendRow("ERP Upgrade", "Applications", "Grow", "At Risk", "Red",
		"300000", "290000", "7", "HIGH", "96.7")
	return t
}

func systemsFixture() *table.Table {
	t := table.New("System", "Monthly Cost", "Utilization %")
	t.AppendRow("Dev Cluster", "4000", "30")
	t.AppendRow("ERP", "10000", "85")
	t.AppendRow("Sandbox", "1000", "50")
	return t
}

func satisfactionFixture() *table.Table {
	t := table.New("department", "satisfaction_score", "response_rate", "tickets_resolved", "avg_resolution_time")
	t.AppendRow("IT", "4.2", "0.8", "120", "3")
	t.AppendRow("Finance", "3.8", "0.7", "80", "5")
	t.AppendRow("Academic Affairs", "4.6", "0.9", "60", "4")
	return t
}

func grantsFixture() *table.Table {
	t := table.New("Grant Name", "Award Amount", "Risk of Fund Clawback")
	t.AppendRow("Title III", "1200000", "High")
	t.AppendRow("NSF STEM", "400000", "Low")
	return t
}

func findRec(recs []insight.Recommendation, title string) (insight.Recommendation, bool) {
	for _, r := range recs {
		if r.Title == title {
			return r, true
		}
	}
	return insight.Recommendation{}, false
}

func TestConsolidationPlays(t *testing.T) {
	a := newCostReductionAnalyzer()
	recs := a.Analyze(context.Background(), &Inputs{Contracts: contractsFixture()})

	require.Len(t, recs, 1, "only Oracle clears the floor with multiple contracts")
	rec := recs[0]
	assert.Equal(t, "Consolidate contracts with Oracle", rec.Title)
	assert.Equal(t, "18750", rec.PotentialSavings.String())
	assert.Equal(t, insight.EffortMedium, rec.Effort)
	assert.Equal(t, 0.8, rec.Confidence)
	assert.Equal(t, "Contract Optimization", rec.Category)
}

func TestReallocationPlays(t *testing.T) {
	a := newCostReductionAnalyzer()
	recs := a.Analyze(context.Background(), &Inputs{Budget: budgetFixture()})

	require.Len(t, recs, 1, "only Cloud Services is under budget past the gate")
	rec := recs[0]
	assert.Equal(t, "Reallocate underutilized budget from Cloud Services", rec.Title)
	assert.Equal(t, "56000", rec.PotentialSavings.String())
	assert.Equal(t, insight.EffortLow, rec.Effort)
	assert.Equal(t, 0.9, rec.Confidence)
}

func TestRationalizationPlays(t *testing.T) {
	a := newCostReductionAnalyzer()
	recs := a.Analyze(context.Background(), &Inputs{Vendors: vendorsFixture()})

	require.Len(t, recs, 1, "only the three-vendor Software category qualifies")
	rec := recs[0]
	assert.Equal(t, "Rationalize the Software portfolio", rec.Title)
	assert.Equal(t, "9000", rec.PotentialSavings.String())
	assert.Equal(t, insight.EffortHigh, rec.Effort)
}

func TestROIAnalyzerAcceleratesHighValueProjects(t *testing.T) {
	a := newROIAnalyzer()
	recs := a.Analyze(context.Background(), &Inputs{Projects: projectsFixture()})

	require.Len(t, recs, 1, "completed and low-value projects are skipped")
	rec := recs[0]
	assert.Equal(t, "Accelerate Cloud Migration Phase 1", rec.Title)
	assert.Equal(t, "150000", rec.InvestmentRequired.String())
	assert.Equal(t, "480000", rec.ExpectedBenefit.String())
	assert.InDelta(t, 3.2, rec.PotentialROI, 0.001)
	assert.Equal(t, insight.EffortMedium, rec.Effort)
	assert.Equal(t, 0.85, rec.Confidence)
	assert.Equal(t, "Digital Transform", rec.Category)
}

func TestRiskMitigationVendorExposure(t *testing.T) {
	a := newRiskMitigationAnalyzer()
	recs := a.Analyze(context.Background(), &Inputs{Vendors: vendorsFixture()})

	rec, ok := findRec(recs, "Diversify high-risk vendor exposure")
	require.True(t, ok)
	assert.Equal(t, "50000", rec.CostAvoidance.String())
	assert.InDelta(t, 0.45, rec.RiskReduction, 0.001)
	assert.Contains(t, rec.Description, "1 vendors rated High")
}

func TestRiskMitigationProjectIntervention(t *testing.T) {
	a := newRiskMitigationAnalyzer()
	recs := a.Analyze(context.Background(), &Inputs{Projects: projectsFixture()})

	rec, ok := findRec(recs, "Intervene on at-risk projects")
	require.True(t, ok)
	assert.Equal(t, "45000", rec.CostAvoidance.String())
	assert.InDelta(t, 0.7, rec.RiskReduction, 0.001)
	assert.Contains(t, rec.Description, "1 projects flagged")
}

func TestRiskMitigationGrantCompliance(t *testing.T) {
	a := newRiskMitigationAnalyzer()
	recs := a.Analyze(context.Background(), &Inputs{Grants: grantsFixture()})

	rec, ok := findRec(recs, "Automate grant compliance monitoring")
	require.True(t, ok)
	assert.Equal(t, "1200000", rec.CostAvoidance.String())
	assert.Equal(t, 0.92, rec.RiskReduction)
	assert.Equal(t, 0.91, rec.Confidence)
}

func TestResourceOptimizationRightsizing(t *testing.T) {
	a := newResourceOptimizationAnalyzer()
	recs := a.Analyze(context.Background(), &Inputs{Systems: systemsFixture()})

	rec, ok := findRec(recs, "Right-size underutilized infrastructure")
	require.True(t, ok)
	// Dev Cluster 4000*12*0.7 + Sandbox 1000*12*0.5
	assert.Equal(t, "39600", rec.PotentialSavings.String())
	assert.Contains(t, rec.Description, "2 systems")
	assert.Equal(t, insight.EffortMedium, rec.Effort)
}

func TestResourceOptimizationServiceAutomation(t *testing.T) {
	a := newResourceOptimizationAnalyzer()
	recs := a.Analyze(context.Background(), &Inputs{Satisfaction: satisfactionFixture()})

	rec, ok := findRec(recs, "Automate routine service requests")
	require.True(t, ok)
	// (120*3 + 80*5 + 60*4) hours * $45 * 60% deflection
	assert.Equal(t, "27000", rec.PotentialSavings.String())
	assert.Equal(t, insight.EffortMedium, rec.Effort)
}

func TestScoreRecommendation(t *testing.T) {
	reallocation := insight.Recommendation{
		Kind:             insight.KindCostReduction,
		PotentialSavings: mustDecimal(t, "56000"),
		Effort:           insight.EffortLow,
		Confidence:       0.9,
	}
	assert.InDelta(t, 58.5, scoreRecommendation(reallocation), 0.001)

	consolidation := insight.Recommendation{
		Kind:             insight.KindCostReduction,
		PotentialSavings: mustDecimal(t, "18750"),
		Effort:           insight.EffortMedium,
		Confidence:       0.8,
	}
	assert.InDelta(t, 47.7, scoreRecommendation(consolidation), 0.001)

	// Resource plays score savings against the smaller divisor.
	resource := insight.Recommendation{
		Kind:             insight.KindResourceOptimization,
		PotentialSavings: mustDecimal(t, "180000"),
		Effort:           insight.EffortMedium,
		Confidence:       0.83,
	}
	assert.InDelta(t, 60.2, scoreRecommendation(resource), 0.001)

	// Nothing financial falls back to the neutral midpoint, and the risk
	// dimension reads RiskReduction when no confidence is set.
	bare := insight.Recommendation{Kind: insight.KindRiskMitigation, Effort: insight.EffortHigh, RiskReduction: 0.85}
	assert.InDelta(t, 58.0, scoreRecommendation(bare), 0.001)
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestEngineRanksAndCaps(t *testing.T) {
	budget := table.New("Budget Category", "Variance Amount")
	for i := 0; i < 12; i++ {
		budget.AppendRow("Category", "-90000")
	}
	in := &Inputs{
		Budget:       budget,
		Contracts:    contractsFixture(),
		Vendors:      vendorsFixture(),
		Projects:     projectsFixture(),
		Systems:      systemsFixture(),
		Satisfaction: satisfactionFixture(),
		Grants:       grantsFixture(),
	}

	engine := NewEngine()
	recs := engine.Recommendations(context.Background(), in)

	require.Len(t, recs, maxRecommendations)
	for i := 1; i < len(recs); i++ {
		assert.GreaterOrEqual(t, recs[i-1].Score, recs[i].Score, "ranked descending")
	}
	for _, rec := range recs {
		assert.Greater(t, rec.Score, 0.0)
	}
}

func TestEngineByKind(t *testing.T) {
	engine := NewEngine()
	in := &Inputs{Contracts: contractsFixture(), Projects: projectsFixture()}

	recs := engine.ByKind(context.Background(), insight.KindCostReduction, in)
	require.NotEmpty(t, recs)
	for _, rec := range recs {
		assert.Equal(t, insight.KindCostReduction, rec.Kind)
	}

	assert.Len(t, engine.ListAnalyzers(), 4)
}

func TestAnalyzersTolerateEmptyInputs(t *testing.T) {
	engine := NewEngine()
	recs := engine.Recommendations(context.Background(), &Inputs{})
	assert.Empty(t, recs)
}
