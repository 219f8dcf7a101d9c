package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/domain/insight"
	"spendlens/domain/metric"
)

func TestCFOAnswers(t *testing.T) {
	sc, in := buildScorecard(t)

	answers, err := Answers(metric.PersonaCFO, sc, in)
	require.NoError(t, err)
	require.Len(t, answers, 3)

	assert.Equal(t, "Are we spending appropriately on IT?", answers[0].Question)
	assert.Equal(t, "IT spend is 4.0% of revenue.", answers[0].Answer)
	assert.Equal(t, insight.StatusGood, answers[0].Status)
	require.Len(t, answers[0].Detail, 1)
	assert.Equal(t, "Within the 3-5% higher-ed benchmark", answers[0].Detail[0])

	assert.Equal(t, "Current project ROI is 84.6%.", answers[1].Answer)
	assert.Equal(t, []string{"Maintain current investment strategy"}, answers[1].Detail)

	require.NotEmpty(t, answers[2].Detail)
	assert.Equal(t, "Vendor consolidation: $200000 potential savings", answers[2].Detail[0])
}

func TestCIOAnswers(t *testing.T) {
	sc, in := buildScorecard(t)

	answers, err := Answers(metric.PersonaCIO, sc, in)
	require.NoError(t, err)
	require.Len(t, answers, 3)

	assert.Equal(t, "Customer satisfaction is 4.2/5.0.", answers[0].Answer)
	assert.Contains(t, answers[0].Detail, "Service adoption is 120%")

	assert.Equal(t, "Budget efficiency is 70%.", answers[1].Answer)

	mix := answers[2]
	assert.Equal(t, "Are we balancing innovation vs maintenance?", mix.Question)
	require.Len(t, mix.Detail, 3)
	assert.Equal(t, "33% Transform (innovation)", mix.Detail[0])
	assert.Equal(t, "33% Grow (enhancement)", mix.Detail[1])
	assert.Equal(t, "33% Run (keep the lights on)", mix.Detail[2])
	assert.Equal(t, insight.StatusGood, mix.Status, "transform share clears 20%")
}

func TestCTOAnswers(t *testing.T) {
	sc, in := buildScorecard(t)

	answers, err := Answers(metric.PersonaCTO, sc, in)
	require.NoError(t, err)
	require.Len(t, answers, 3)

	assert.Equal(t, "System availability is averaging 99.6%.", answers[0].Answer)
	assert.Contains(t, answers[0].Detail, "17 incidents logged this month")

	assert.Equal(t, "Vendor concentration ratio is 0.75.", answers[1].Answer)
	assert.Equal(t, insight.StatusWatch, answers[1].Status)

	assert.Equal(t, "Team engagement score is 3.8/5.0.", answers[2].Answer)
	assert.Contains(t, answers[2].Detail, "Resolution time averaging 4.0 hours")
}

func TestAnswersRejectsUnknownPersona(t *testing.T) {
	sc, in := buildScorecard(t)

	_, err := Answers(metric.PersonaPM, sc, in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no standing question set")
}

func TestAnswersDegradeWithoutData(t *testing.T) {
	empty := NewScorecardBuilder(0, 0).Build(&Inputs{})

	for _, persona := range []metric.Persona{metric.PersonaCFO, metric.PersonaCIO, metric.PersonaCTO} {
		answers, err := Answers(persona, empty, &Inputs{})
		require.NoError(t, err)
		require.Len(t, answers, 3, persona)
		for _, a := range answers {
			assert.Equal(t, "Not enough data loaded to answer yet.", a.Answer)
			assert.Equal(t, insight.StatusWatch, a.Status)
		}
	}
}
