package personas

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/domain/core"
	"spendlens/internal/registry"
)

func seedViews(t *testing.T) *registry.Registry {
	t.Helper()
	root := t.TempDir()

	write := func(persona, filename, content string) {
		dir := filepath.Join(root, persona)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(content), 0o644))
	}

	write("cfo", "cfo_budget_vs_actual.csv",
		"Department,Budget,Actual,Variance Amount,Variance %\n"+
			"IT Operations,500000,armor,\"-75,000\",-15%\n"+
			"Infrastructure,300000,310000,10000,3.3%\n")
	write("cfo", "contract_expiration_alerts.csv",
		"Vendor,Contract End Date\n"+
			"Acme,2025-06-20\n"+
			"Globex,06/15/2026\n"+
			"Hooli,\n")
	write("cfo", "cfo_grant_compliance.csv",
		"Grant Name,Compliance Rate (%),Risk of Fund Clawback\n"+
			"Title III,96%,Low\n"+
			"NSF STEM,82,High\n")
	write("cfo", "cfo_total_it_spend_breakdown.csv",
		"Project,Vendor,Functional Area,Year,Spend Amount\n"+
			"ERP,Acme,Finance,2024,\"$100,000\"\n"+
			"ERP,Acme,Finance,2025,\"$120,000\"\n"+
			"LMS,EduSoft,Academics,2024,80000\n")
	write("pm", "project_timeline_budget_performance.csv",
		"project_name,timeline_completion_pct,health_score,budget_status\n"+
			"ERP Migration,62.5,78,On Budget\n"+
			"WiFi Upgrade,n/a,91,Over Budget\n")

	reg := registry.New(root)
	require.NoError(t, reg.Discover())
	return reg
}

func TestBudgetVarianceCoercion(t *testing.T) {
	cfo := NewCFO(seedViews(t))

	tbl, err := cfo.BudgetVariance(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, "-75000", tbl.Value(0, "Variance Amount"))
	assert.Equal(t, "-15", tbl.Value(0, "Variance %"))
	assert.Equal(t, "3.3", tbl.Value(1, "Variance %"))
}

func TestContractAlertsDerivesStatus(t *testing.T) {
	cfo := NewCFO(seedViews(t))
	cfo.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

	tbl, err := cfo.ContractAlerts(context.Background(), 90, false)
	require.NoError(t, err)

	require.True(t, tbl.HasColumn("Days Until Expiry"))
	require.True(t, tbl.HasColumn("Alert Status"))

	assert.Equal(t, "19", tbl.Value(0, "Days Until Expiry"))
	assert.Equal(t, "Critical", tbl.Value(0, "Alert Status"))

	assert.Equal(t, "2026-06-15", tbl.Value(1, "Contract End Date"), "US-format date is normalized")
	assert.Equal(t, "OK", tbl.Value(1, "Alert Status"))

	assert.Equal(t, "", tbl.Value(2, "Days Until Expiry"))
	assert.Equal(t, "Unknown", tbl.Value(2, "Alert Status"))
}

func TestContractAlertsCustomThreshold(t *testing.T) {
	cfo := NewCFO(seedViews(t))
	cfo.now = func() time.Time { return time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC) }

	// Globex ends 2026-06-15: 75 days out, Warning under a 120-day threshold
	tbl, err := cfo.ContractAlerts(context.Background(), 120, false)
	require.NoError(t, err)
	assert.Equal(t, "Warning", tbl.Value(1, "Alert Status"))
}

func TestGrantComplianceRiskLevel(t *testing.T) {
	cfo := NewCFO(seedViews(t))

	tbl, err := cfo.GrantCompliance(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, "96", tbl.Value(0, "Compliance Rate (%)"))
	assert.Equal(t, "Low", tbl.Value(0, "Risk Level"))
	assert.Equal(t, "High", tbl.Value(1, "Risk Level"))
}

func TestTotalSpendBreakdownPivot(t *testing.T) {
	cfo := NewCFO(seedViews(t))

	tbl, err := cfo.TotalSpendBreakdown(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"Project", "Vendor", "Functional Area", "2024", "2025"}, tbl.Columns)
	require.Equal(t, 2, tbl.NumRows())

	assert.Equal(t, "ERP", tbl.Value(0, "Project"))
	assert.Equal(t, "100000.00", tbl.Value(0, "2024"))
	assert.Equal(t, "120000.00", tbl.Value(0, "2025"))

	assert.Equal(t, "LMS", tbl.Value(1, "Project"))
	assert.Equal(t, "80000.00", tbl.Value(1, "2024"))
	assert.Equal(t, "", tbl.Value(1, "2025"), "missing years stay blank")
}

func TestProjectTimelineCoercion(t *testing.T) {
	pm := NewPM(seedViews(t))

	tbl, err := pm.ProjectTimeline(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, "62.5", tbl.Value(0, "timeline_completion_pct"))
	assert.Equal(t, "", tbl.Value(1, "timeline_completion_pct"), "unparseable cells are blanked")
	assert.Equal(t, "91", tbl.Value(1, "health_score"))
}

func TestMissingMetricIsNotFound(t *testing.T) {
	cio := NewCIO(seedViews(t))

	_, err := cio.RiskMetrics(context.Background(), false)
	require.Error(t, err)
	assert.True(t, core.IsNotFoundError(err))
}
