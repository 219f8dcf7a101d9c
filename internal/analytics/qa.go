package analytics

import (
	"fmt"

	"spendlens/domain/core"
	"spendlens/domain/insight"
	"spendlens/domain/metric"
	"spendlens/domain/table"
)

// Answers computes the standing leadership question set for a persona
// from the scorecard and the loaded inputs. CFO, CIO, and CTO carry
// question sets; other personas are rejected.
func Answers(persona metric.Persona, sc *insight.Scorecard, in *Inputs) ([]insight.Answer, error) {
	switch persona {
	case metric.PersonaCFO:
		return cfoAnswers(sc), nil
	case metric.PersonaCIO:
		return cioAnswers(sc, in), nil
	case metric.PersonaCTO:
		return ctoAnswers(sc), nil
	}
	return nil, core.NewValidationError("persona", fmt.Sprintf("no standing question set for %q", persona))
}

func cfoAnswers(sc *insight.Scorecard) []insight.Answer {
	answers := []insight.Answer{}

	const spendQ = "Are we spending appropriately on IT?"
	if m, ok := sc.Metric(insight.ThemeFinancial, "it_spend_pct_revenue"); ok {
		detail := "Within the 3-5% higher-ed benchmark"
		if m.Status != insight.StatusGood {
			detail = "Outside the 3-5% higher-ed benchmark"
		}
		answers = append(answers, insight.Answer{
			Question: spendQ,
			Answer:   fmt.Sprintf("IT spend is %.1f%% of revenue.", m.Value),
			Detail:   []string{detail},
			Status:   m.Status,
		})
	} else {
		answers = append(answers, insufficientAnswer(spendQ))
	}

	const roiQ = "What's our ROI on IT investments?"
	if m, ok := sc.Metric(insight.ThemeFinancial, "project_roi"); ok {
		recommendation := "Review project selection criteria"
		if m.Value > roiBenchmarkPct {
			recommendation = "Maintain current investment strategy"
		}
		answers = append(answers, insight.Answer{
			Question: roiQ,
			Answer:   fmt.Sprintf("Current project ROI is %.1f%%.", m.Value),
			Detail:   []string{recommendation},
			Status:   m.Status,
		})
	} else {
		answers = append(answers, insufficientAnswer(roiQ))
	}

	const costQ = "Where can we optimize IT costs?"
	if m, ok := sc.Metric(insight.ThemeCost, "cost_avoidance"); ok {
		answers = append(answers, insight.Answer{
			Question: costQ,
			Answer:   "Three immediate opportunities identified.",
			Detail: []string{
				fmt.Sprintf("Vendor consolidation: $%.0f potential savings", m.Value),
				"Reduce high-risk projects to improve efficiency",
				"Automate manual processes in the busiest departments",
			},
			Status: insight.StatusGood,
		})
	} else {
		answers = append(answers, insufficientAnswer(costQ))
	}

	return answers
}

func cioAnswers(sc *insight.Scorecard, in *Inputs) []insight.Answer {
	answers := []insight.Answer{}

	const valueQ = "Are we delivering value to the business?"
	if m, ok := sc.Metric(insight.ThemeCustomer, "avg_satisfaction"); ok {
		detail := []string{}
		if adoption, ok := sc.Metric(insight.ThemeCustomer, "service_adoption_pct"); ok {
			detail = append(detail, fmt.Sprintf("Service adoption is %.0f%%", adoption.Value))
		}
		answers = append(answers, insight.Answer{
			Question: valueQ,
			Answer:   fmt.Sprintf("Customer satisfaction is %.1f/5.0.", m.Value),
			Detail:   detail,
			Status:   m.Status,
		})
	} else {
		answers = append(answers, insufficientAnswer(valueQ))
	}

	const portfolioQ = "How is our project portfolio performing?"
	if m, ok := sc.Metric(insight.ThemeCost, "budget_efficiency"); ok {
		answers = append(answers, insight.Answer{
			Question: portfolioQ,
			Answer:   fmt.Sprintf("Budget efficiency is %.0f%%.", m.Value),
			Detail:   []string{"Review projects above 90% budget utilization"},
			Status:   m.Status,
		})
	} else {
		answers = append(answers, insufficientAnswer(portfolioQ))
	}

	const mixQ = "Are we balancing innovation vs maintenance?"
	if mix, ok := portfolioMix(in.Projects); ok {
		status := insight.StatusWatch
		if mix.transformPct >= 20 {
			status = insight.StatusGood
		}
		answers = append(answers, insight.Answer{
			Question: mixQ,
			Answer:   "Current portfolio mix by project classification.",
			Detail: []string{
				fmt.Sprintf("%.0f%% Transform (innovation)", mix.transformPct),
				fmt.Sprintf("%.0f%% Grow (enhancement)", mix.growPct),
				fmt.Sprintf("%.0f%% Run (keep the lights on)", mix.runPct),
			},
			Status: status,
		})
	} else {
		answers = append(answers, insufficientAnswer(mixQ))
	}

	return answers
}

func ctoAnswers(sc *insight.Scorecard) []insight.Answer {
	answers := []insight.Answer{}

	const reliabilityQ = "How reliable are our systems?"
	if m, ok := sc.Metric(insight.ThemeService, "avg_availability"); ok {
		detail := []string{}
		if incidents, ok := sc.Metric(insight.ThemeService, "monthly_incidents"); ok {
			detail = append(detail, fmt.Sprintf("%.0f incidents logged this month", incidents.Value))
		}
		answers = append(answers, insight.Answer{
			Question: reliabilityQ,
			Answer:   fmt.Sprintf("System availability is averaging %.1f%%.", m.Value),
			Detail:   detail,
			Status:   m.Status,
		})
	} else {
		answers = append(answers, insufficientAnswer(reliabilityQ))
	}

	const debtQ = "How is our technical debt situation?"
	if m, ok := sc.Metric(insight.ThemeCost, "vendor_concentration"); ok {
		answers = append(answers, insight.Answer{
			Question: debtQ,
			Answer:   fmt.Sprintf("Vendor concentration ratio is %.2f.", m.Value),
			Detail:   []string{"Lower is better; consolidate overlapping platforms"},
			Status:   m.Status,
		})
	} else {
		answers = append(answers, insufficientAnswer(debtQ))
	}

	const teamQ = "Is our IT team effective?"
	if m, ok := sc.Metric(insight.ThemeSatisfaction, "employee_satisfaction"); ok {
		detail := []string{}
		if hours, ok := sc.Metric(insight.ThemeService, "avg_resolution_hours"); ok {
			detail = append(detail, fmt.Sprintf("Resolution time averaging %.1f hours", hours.Value))
		}
		answers = append(answers, insight.Answer{
			Question: teamQ,
			Answer:   fmt.Sprintf("Team engagement score is %.1f/5.0.", m.Value),
			Detail:   detail,
			Status:   m.Status,
		})
	} else {
		answers = append(answers, insufficientAnswer(teamQ))
	}

	return answers
}

func insufficientAnswer(question string) insight.Answer {
	return insight.Answer{
		Question: question,
		Answer:   "Not enough data loaded to answer yet.",
		Status:   insight.StatusWatch,
	}
}

type mixShares struct {
	runPct       float64
	growPct      float64
	transformPct float64
}

// portfolioMix computes the run/grow/transform split from the project
// classification column.
func portfolioMix(projects *table.Table) (mixShares, bool) {
	if projects == nil || projects.IsEmpty() {
		return mixShares{}, false
	}
	typeCol := pickColumn(projects, "type", "Type", "investment_type")
	if typeCol == "" {
		return mixShares{}, false
	}

	counts := map[string]int{}
	total := 0
	for row := 0; row < projects.NumRows(); row++ {
		kind := projects.Value(row, typeCol)
		if kind == "" {
			continue
		}
		counts[kind]++
		total++
	}
	if total == 0 {
		return mixShares{}, false
	}

	share := func(kind string) float64 {
		return float64(counts[kind]) / float64(total) * 100
	}
	return mixShares{
		runPct:       share("Run"),
		growPct:      share("Grow"),
		transformPct: share("Transform"),
	}, true
}
