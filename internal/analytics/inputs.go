// Package analytics computes optimization recommendations, forecasts,
// effectiveness scorecards, and leadership answers from registry tables.
// Every output is derived from loaded data; nothing here returns canned
// figures.
package analytics

import (
	"context"

	"spendlens/domain/core"
	"spendlens/domain/metric"
	"spendlens/domain/table"
	"spendlens/internal"
	"spendlens/internal/registry"
)

// Inputs carries the tables the analyzers read. Any field may be nil;
// analyzers skip what is missing.
type Inputs struct {
	Contracts    *table.Table // consolidated contracts: Vendor, Annual Spend, end dates
	Budget       *table.Table // budget vs actual lines: Budget Category, Variance Amount
	Vendors      *table.Table // vendor master: vendor_name, category, annual_spend, risk_level
	Projects     *table.Table // portfolio: project_name, budget, spent_to_date, risk_flag
	Systems      *table.Table // system inventory: availability, monthly cost, utilization
	Satisfaction *table.Table // department survey: satisfaction_score, tickets, resolution time
	Grants       *table.Table // grant lines: award amount, clawback risk
	Staff        *table.Table // team engagement scores
}

// tableSource names the registry metrics a given input slot is read from,
// in preference order.
type tableSource struct {
	assign     func(*Inputs, *table.Table)
	candidates []metricRef
	preferLive bool
}

type metricRef struct {
	persona metric.Persona
	name    string
}

var inputSources = []tableSource{
	{
		assign:     func(in *Inputs, t *table.Table) { in.Contracts = t },
		preferLive: true,
		candidates: []metricRef{
			{metric.PersonaCFO, "contract_expiration_alerts"},
			{metric.PersonaCFO, "contract_alerts"},
		},
	},
	{
		assign: func(in *Inputs, t *table.Table) { in.Budget = t },
		candidates: []metricRef{
			{metric.PersonaCFO, "budget_vs_actual"},
			{metric.PersonaCFO, "budget_variance"},
		},
	},
	{
		assign:     func(in *Inputs, t *table.Table) { in.Vendors = t },
		preferLive: true,
		candidates: []metricRef{
			{metric.PersonaCFO, "vendor_optimization"},
			{metric.PersonaCFO, "vendor_portfolio"},
			{metric.PersonaCIO, "vendor_management"},
		},
	},
	{
		assign: func(in *Inputs, t *table.Table) { in.Projects = t },
		candidates: []metricRef{
			{metric.PersonaPM, "project_portfolio"},
			{metric.PersonaPM, "project_charter"},
			{metric.PersonaCIO, "project_portfolio"},
		},
	},
	{
		assign: func(in *Inputs, t *table.Table) { in.Systems = t },
		candidates: []metricRef{
			{metric.PersonaCTO, "cloud_cost_optimization"},
			{metric.PersonaCTO, "system_performance"},
			{metric.PersonaCTO, "tech_stack_health"},
		},
	},
	{
		assign: func(in *Inputs, t *table.Table) { in.Satisfaction = t },
		candidates: []metricRef{
			{metric.PersonaCIO, "customer_satisfaction"},
			{metric.PersonaCIO, "service_satisfaction"},
		},
	},
	{
		assign: func(in *Inputs, t *table.Table) { in.Grants = t },
		candidates: []metricRef{
			{metric.PersonaCFO, "grant_compliance"},
		},
	},
	{
		assign: func(in *Inputs, t *table.Table) { in.Staff = t },
		candidates: []metricRef{
			{metric.PersonaCTO, "team_engagement"},
			{metric.PersonaCIO, "staff_engagement"},
		},
	},
}

// Loader assembles analyzer inputs from the metric registry.
type Loader struct {
	reg    *registry.Registry
	logger *internal.Logger
}

// NewLoader creates a registry-backed input loader
func NewLoader(reg *registry.Registry) *Loader {
	return &Loader{
		reg:    reg,
		logger: internal.NewDefaultLogger().Component("Analytics"),
	}
}

// Load gathers every available input table. Missing metrics are skipped;
// the analyzers degrade to whatever data exists.
func (l *Loader) Load(ctx context.Context) *Inputs {
	in := &Inputs{}
	loaded := 0
	for _, src := range inputSources {
		for _, ref := range src.candidates {
			t, err := l.reg.Table(ctx, ref.persona, ref.name, src.preferLive)
			if err != nil {
				if !core.IsNotFoundError(err) {
					l.logger.Warn("skipping %s/%s: %v", ref.persona, ref.name, err)
				}
				continue
			}
			if t.IsEmpty() {
				continue
			}
			src.assign(in, t)
			loaded++
			break
		}
	}
	l.logger.Debug("loaded %d of %d analyzer inputs", loaded, len(inputSources))
	return in
}

// pickColumn returns the first candidate column present in the table
func pickColumn(t *table.Table, names ...string) string {
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

// numericCell parses one cell leniently; false when blank or malformed
func numericCell(t *table.Table, row int, column string) (float64, bool) {
	if column == "" {
		return 0, false
	}
	return table.ParseAmountFloat(t.Value(row, column))
}
