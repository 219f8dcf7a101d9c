package personas

import (
	"context"

	"spendlens/domain/metric"
	"spendlens/domain/table"
	"spendlens/internal/registry"
)

// PM serves the project-manager dashboard's metric views
type PM struct {
	reg *registry.Registry
}

// NewPM creates the PM view over a registry
func NewPM(reg *registry.Registry) *PM {
	return &PM{reg: reg}
}

// ProjectCharter returns the project portfolio charter table
func (p *PM) ProjectCharter(ctx context.Context, preferLive bool) (*table.Table, error) {
	return firstAvailable(ctx, p.reg, metric.PersonaPM, preferLive,
		"project_charter_metrics", "project_charter")
}

// RAIDLog returns risks, actions, issues and decisions
func (p *PM) RAIDLog(ctx context.Context, preferLive bool) (*table.Table, error) {
	return firstAvailable(ctx, p.reg, metric.PersonaPM, preferLive,
		"raid_log_metrics", "raid_log")
}

// ProjectTimeline returns timeline and budget performance with
// completion percentage and health score coerced to numbers.
func (p *PM) ProjectTimeline(ctx context.Context, preferLive bool) (*table.Table, error) {
	t, err := firstAvailable(ctx, p.reg, metric.PersonaPM, preferLive,
		"project_timeline_budget_performance", "project_timeline")
	if err != nil {
		return nil, err
	}

	out := t.Clone()
	coerceNumeric(out, "timeline_completion_pct")
	coerceNumeric(out, "health_score")
	return out, nil
}
