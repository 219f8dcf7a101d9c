package personas

import (
	"context"

	"spendlens/domain/metric"
	"spendlens/domain/table"
	"spendlens/internal/registry"
)

// CIO serves the information-officer dashboard's metric views
type CIO struct {
	reg *registry.Registry
}

// NewCIO creates the CIO view over a registry
func NewCIO(reg *registry.Registry) *CIO {
	return &CIO{reg: reg}
}

// DigitalTransformation returns the transformation initiative metrics
func (c *CIO) DigitalTransformation(ctx context.Context, preferLive bool) (*table.Table, error) {
	return firstAvailable(ctx, c.reg, metric.PersonaCIO, preferLive,
		"digital_transformation_metrics", "digital_transformation")
}

// BusinessUnitSpend returns IT spend by business unit with the spend
// column coerced to numbers.
func (c *CIO) BusinessUnitSpend(ctx context.Context, preferLive bool) (*table.Table, error) {
	t, err := firstAvailable(ctx, c.reg, metric.PersonaCIO, preferLive,
		"business_unit_it_spend", "business_unit_spend")
	if err != nil {
		return nil, err
	}

	out := t.Clone()
	coerceNumeric(out, "Spend")
	coerceNumeric(out, "IT Spend")
	return out, nil
}

// RiskMetrics returns the risk dashboard table
func (c *CIO) RiskMetrics(ctx context.Context, preferLive bool) (*table.Table, error) {
	return firstAvailable(ctx, c.reg, metric.PersonaCIO, preferLive, "risk_metrics")
}

// AppCostAnalysis returns per-application cost metrics
func (c *CIO) AppCostAnalysis(ctx context.Context, preferLive bool) (*table.Table, error) {
	return firstAvailable(ctx, c.reg, metric.PersonaCIO, preferLive,
		"app_cost_analysis_metrics", "app_cost_analysis")
}

// StrategicAlignment returns the strategic alignment scores
func (c *CIO) StrategicAlignment(ctx context.Context, preferLive bool) (*table.Table, error) {
	return firstAvailable(ctx, c.reg, metric.PersonaCIO, preferLive,
		"strategic_alignment_metrics", "strategic_alignment")
}
