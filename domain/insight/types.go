package insight

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies an optimization recommendation by its primary goal
type Kind string

const (
	KindCostReduction        Kind = "cost_reduction"
	KindROIMaximization      Kind = "roi_maximization"
	KindRiskMitigation       Kind = "risk_mitigation"
	KindResourceOptimization Kind = "resource_optimization"
)

// AllKinds returns the recommendation kinds in scoring order
func AllKinds() []Kind {
	return []Kind{KindCostReduction, KindROIMaximization, KindRiskMitigation, KindResourceOptimization}
}

// ParseKind validates a recommendation kind string
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllKinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown recommendation kind %q", s)
}

// Effort buckets for implementation difficulty
const (
	EffortLow    = "Low"
	EffortMedium = "Medium"
	EffortHigh   = "High"
)

// Recommendation is one computed optimization opportunity
type Recommendation struct {
	Kind        Kind   `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`

	PotentialSavings   decimal.Decimal `json:"potential_savings"`             // annualized
	InvestmentRequired decimal.Decimal `json:"investment_required,omitempty"` // one-time
	ExpectedBenefit    decimal.Decimal `json:"expected_benefit,omitempty"`
	CostAvoidance      decimal.Decimal `json:"cost_avoidance,omitempty"`
	PotentialROI       float64         `json:"potential_roi,omitempty"`  // benefit multiple
	RiskReduction      float64         `json:"risk_reduction,omitempty"` // 0..1

	Effort     string  `json:"implementation_effort"` // Low, Medium, High
	Timeline   string  `json:"timeline"`
	Confidence float64 `json:"confidence"` // 0..1
	Score      float64 `json:"score"`      // weighted composite, 0..100
}

// BudgetOverrun is a forecasted project budget breach
type BudgetOverrun struct {
	Project          string          `json:"project"`
	Budget           decimal.Decimal `json:"budget"`
	Spent            decimal.Decimal `json:"spent"`
	UtilizationPct   float64         `json:"utilization_pct"`
	Probability      float64         `json:"probability"` // 0..100
	EstimatedOverrun decimal.Decimal `json:"estimated_overrun"`
	Recommendation   string          `json:"recommendation"`
}

// VendorRisk is a vendor flagged by the risk factor model
type VendorRisk struct {
	Vendor            string          `json:"vendor"`
	AnnualSpend       decimal.Decimal `json:"annual_spend"`
	RiskScore         float64         `json:"risk_score"` // 0..100
	RiskFactors       []string        `json:"risk_factors"`
	PrimaryRisk       string          `json:"primary_risk"`
	RecommendedAction string          `json:"recommended_action"`
}

// SavingsOpportunity is a forecasted consolidation or right-sizing play
type SavingsOpportunity struct {
	Opportunity      string          `json:"opportunity"`
	Category         string          `json:"category,omitempty"`
	PotentialSavings decimal.Decimal `json:"potential_savings"`
	Effort           string          `json:"effort"`
	Timeline         string          `json:"timeline"`
}

// SpendPoint is one month's total in a spend series
type SpendPoint struct {
	Month time.Time       `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// SpendForecast is a least-squares projection over monthly spend
type SpendForecast struct {
	History   []SpendPoint `json:"history"`
	Projected []SpendPoint `json:"projected"`
	Slope     float64      `json:"slope"`     // per month
	Intercept float64      `json:"intercept"` // at first month
	R2        float64      `json:"r2"`
}

// Theme groups scorecard metrics the way leadership reviews them
type Theme string

const (
	ThemeFinancial    Theme = "financial"
	ThemeCustomer     Theme = "customer"
	ThemeCost         Theme = "cost"
	ThemeSatisfaction Theme = "satisfaction"
	ThemeService      Theme = "service"
)

// AllThemes returns the scorecard themes in review order
func AllThemes() []Theme {
	return []Theme{ThemeFinancial, ThemeCustomer, ThemeCost, ThemeSatisfaction, ThemeService}
}

// Status classifies a metric against its benchmark
type Status string

const (
	StatusGood   Status = "good"
	StatusWatch  Status = "watch"
	StatusAction Status = "action"
)

// ScorecardMetric is one computed effectiveness measure
type ScorecardMetric struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit,omitempty"`
	Benchmark string  `json:"benchmark,omitempty"`
	Status    Status  `json:"status"`
	Detail    string  `json:"detail,omitempty"`
}

// Scorecard is the balanced effectiveness view across all themes
type Scorecard struct {
	GeneratedAt time.Time                   `json:"generated_at"`
	Themes      map[Theme][]ScorecardMetric `json:"themes"`
	Insights    []string                    `json:"insights,omitempty"`
}

// Metric looks up a scorecard metric by theme and name
func (s *Scorecard) Metric(theme Theme, name string) (ScorecardMetric, bool) {
	for _, m := range s.Themes[theme] {
		if m.Name == name {
			return m, true
		}
	}
	return ScorecardMetric{}, false
}

// Answer is a computed response to a standing leadership question
type Answer struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Detail   []string `json:"detail,omitempty"`
	Status   Status   `json:"status"`
}
