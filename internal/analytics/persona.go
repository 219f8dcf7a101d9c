package analytics

import (
	"context"

	"spendlens/domain/insight"
	"spendlens/domain/metric"
)

// personaKinds maps each executive role to the recommendation kinds that
// match its decision scope. The CFO sees money and exposure, the CIO sees
// value and portfolio cost, the CTO sees infrastructure efficiency, and
// the PM sees delivery risk.
var personaKinds = map[metric.Persona][]insight.Kind{
	metric.PersonaCFO: {insight.KindCostReduction, insight.KindRiskMitigation},
	metric.PersonaCIO: {insight.KindROIMaximization, insight.KindCostReduction},
	metric.PersonaCTO: {insight.KindResourceOptimization, insight.KindCostReduction},
	metric.PersonaPM:  {insight.KindRiskMitigation, insight.KindROIMaximization},
}

// KindsFor returns the recommendation kinds relevant to a persona.
func KindsFor(persona metric.Persona) []insight.Kind {
	kinds, ok := personaKinds[persona]
	if !ok {
		return insight.AllKinds()
	}
	return kinds
}

// ForPersona runs only the analyzers relevant to the persona and returns
// the combined ranked recommendations.
func (e *Engine) ForPersona(ctx context.Context, persona metric.Persona, in *Inputs) []insight.Recommendation {
	var combined []insight.Recommendation
	for _, kind := range KindsFor(persona) {
		for _, a := range e.analyzers {
			if a.Kind() == kind {
				combined = append(combined, a.Analyze(ctx, in)...)
			}
		}
	}
	return rankRecommendations(combined)
}
