package personas

import (
	"context"

	"spendlens/domain/metric"
	"spendlens/domain/table"
	"spendlens/internal/registry"
)

// CTO serves the technology-officer dashboard's metric views
type CTO struct {
	reg *registry.Registry
}

// NewCTO creates the CTO view over a registry
func NewCTO(reg *registry.Registry) *CTO {
	return &CTO{reg: reg}
}

// CloudCostOptimization returns cloud spend and utilization metrics
// with cost and utilization columns coerced.
func (c *CTO) CloudCostOptimization(ctx context.Context, preferLive bool) (*table.Table, error) {
	t, err := firstAvailable(ctx, c.reg, metric.PersonaCTO, preferLive,
		"cloud_cost_optimization_metrics", "cloud_cost_optimization")
	if err != nil {
		return nil, err
	}

	out := t.Clone()
	coerceNumeric(out, "Monthly Cost")
	coercePercent(out, "Utilization %")
	return out, nil
}

// AssetLifecycle returns hardware and software lifecycle metrics
func (c *CTO) AssetLifecycle(ctx context.Context, preferLive bool) (*table.Table, error) {
	return firstAvailable(ctx, c.reg, metric.PersonaCTO, preferLive,
		"asset_lifecycle_management_metrics", "asset_lifecycle")
}

// SecurityMetrics returns the security posture and response table
func (c *CTO) SecurityMetrics(ctx context.Context, preferLive bool) (*table.Table, error) {
	return firstAvailable(ctx, c.reg, metric.PersonaCTO, preferLive,
		"security_metrics_and_response", "security_metrics")
}

// CapacityPlanning returns infrastructure capacity metrics
func (c *CTO) CapacityPlanning(ctx context.Context, preferLive bool) (*table.Table, error) {
	return firstAvailable(ctx, c.reg, metric.PersonaCTO, preferLive,
		"capacity_planning_metrics", "capacity_planning")
}

// TechStackHealth returns the technology stack health scores
func (c *CTO) TechStackHealth(ctx context.Context, preferLive bool) (*table.Table, error) {
	return firstAvailable(ctx, c.reg, metric.PersonaCTO, preferLive,
		"tech_stack_health_metrics", "tech_stack_health")
}
