package personas

import (
	"context"
	"strconv"
	"time"

	"spendlens/domain/contract"
	"spendlens/domain/metric"
	"spendlens/domain/table"
	"spendlens/internal/registry"
)

// CFO serves the finance dashboard's metric views
type CFO struct {
	reg *registry.Registry
	now func() time.Time
}

// NewCFO creates the CFO view over a registry
func NewCFO(reg *registry.Registry) *CFO {
	return &CFO{reg: reg, now: func() time.Time { return time.Now().UTC() }}
}

// BudgetVariance returns budget vs actual lines with variance columns
// coerced to numbers. A % suffix on the variance percent is tolerated.
func (c *CFO) BudgetVariance(ctx context.Context, preferLive bool) (*table.Table, error) {
	t, err := firstAvailable(ctx, c.reg, metric.PersonaCFO, preferLive, "budget_vs_actual", "budget_variance")
	if err != nil {
		return nil, err
	}

	out := t.Clone()
	coerceNumeric(out, "Variance Amount")
	coercePercent(out, "Variance %")
	return out, nil
}

// ContractAlerts returns contract lines with expiry dates coerced,
// Days Until Expiry derived when absent, and Alert Status computed
// against the threshold (Critical under 30 days regardless).
func (c *CFO) ContractAlerts(ctx context.Context, thresholdDays int, preferLive bool) (*table.Table, error) {
	t, err := firstAvailable(ctx, c.reg, metric.PersonaCFO, preferLive, "contract_expiration_alerts")
	if err != nil {
		return nil, err
	}

	out := t.Clone()
	coerceDate(out, "Contract End Date")

	now := c.now()
	if !out.HasColumn("Days Until Expiry") {
		out.AddColumn("Days Until Expiry", "")
		for r := range out.Rows {
			end, ok := table.ParseDate(out.Value(r, "Contract End Date"))
			if !ok {
				continue
			}
			days := int(end.Sub(now).Hours() / 24)
			out.SetValue(r, "Days Until Expiry", strconv.Itoa(days))
		}
	} else {
		coerceNumeric(out, "Days Until Expiry")
	}

	if !out.HasColumn("Alert Status") {
		out.AddColumn("Alert Status", string(contract.AlertUnknown))
	}
	for r := range out.Rows {
		cell := out.Value(r, "Days Until Expiry")
		if cell == "" {
			out.SetValue(r, "Alert Status", string(contract.AlertUnknown))
			continue
		}
		days, err := strconv.Atoi(cell)
		if err != nil {
			out.SetValue(r, "Alert Status", string(contract.AlertUnknown))
			continue
		}
		out.SetValue(r, "Alert Status", string(contract.AlertFor(days, thresholdDays)))
	}

	return out, nil
}

// GrantCompliance returns grant lines with the compliance rate coerced
// and a Risk Level column sourced from the clawback-risk column.
func (c *CFO) GrantCompliance(ctx context.Context, preferLive bool) (*table.Table, error) {
	t, err := firstAvailable(ctx, c.reg, metric.PersonaCFO, preferLive, "grant_compliance")
	if err != nil {
		return nil, err
	}

	out := t.Clone()
	coercePercent(out, "Compliance Rate (%)")

	if out.HasColumn("Risk of Fund Clawback") {
		out.AddColumn("Risk Level", "")
		for r := range out.Rows {
			out.SetValue(r, "Risk Level", out.Value(r, "Risk of Fund Clawback"))
		}
	} else if !out.HasColumn("Risk Level") {
		out.AddColumn("Risk Level", "Unknown")
	}

	return out, nil
}

// VendorOptimization returns the vendor spend optimization table
func (c *CFO) VendorOptimization(ctx context.Context, preferLive bool) (*table.Table, error) {
	return firstAvailable(ctx, c.reg, metric.PersonaCFO, preferLive,
		"vendor_spend_optimization", "vendor_optimization")
}

// StudentSuccessROI returns the student success ROI table
func (c *CFO) StudentSuccessROI(ctx context.Context, preferLive bool) (*table.Table, error) {
	return firstAvailable(ctx, c.reg, metric.PersonaCFO, preferLive, "student_success_roi")
}

// TotalSpendBreakdown pivots the IT spend breakdown by project, vendor
// and functional area across years.
func (c *CFO) TotalSpendBreakdown(ctx context.Context, preferLive bool) (*table.Table, error) {
	t, err := firstAvailable(ctx, c.reg, metric.PersonaCFO, preferLive, "total_it_spend_breakdown")
	if err != nil {
		return nil, err
	}
	return pivotSpendByYear(t, []string{"Project", "Vendor", "Functional Area"}, "Year", "Spend Amount")
}
