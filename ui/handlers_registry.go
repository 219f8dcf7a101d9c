package ui

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"spendlens/domain/metric"
	"spendlens/domain/table"
	apperrors "spendlens/internal/errors"
)

// parsePersona resolves the :persona path parameter, aborting with a 400
// when the role is unknown.
func (s *Server) parsePersona(c *gin.Context) (metric.Persona, bool) {
	persona, err := metric.ParsePersona(c.Param("persona"))
	if err != nil {
		s.abortWithError(c, apperrors.InvalidInput(err.Error()))
		return "", false
	}
	return persona, true
}

// preferLive reads the prefer_live query flag. Absent means false, so
// dashboards default to the cheap file-backed tables.
func preferLive(c *gin.Context) bool {
	v, _ := strconv.ParseBool(c.DefaultQuery("prefer_live", "false"))
	return v
}

// tableJSON shapes a metric table for API consumers
func tableJSON(t *table.Table) gin.H {
	if t == nil {
		return gin.H{"columns": []string{}, "records": []map[string]string{}, "row_count": 0}
	}
	return gin.H{
		"columns":   t.Columns,
		"records":   t.Records(),
		"row_count": t.NumRows(),
	}
}

func (s *Server) handlePersonas(c *gin.Context) {
	summaries := make([]metric.Summary, 0, len(metric.AllPersonas()))
	for _, p := range metric.AllPersonas() {
		summaries = append(summaries, s.deps.Registry.Summary(p))
	}
	c.JSON(http.StatusOK, gin.H{"personas": summaries})
}

func (s *Server) handlePersonaMetrics(c *gin.Context) {
	persona, ok := s.parsePersona(c)
	if !ok {
		return
	}
	infos := s.deps.Registry.Metrics(persona)
	c.JSON(http.StatusOK, gin.H{
		"persona": persona,
		"title":   persona.Title(),
		"metrics": infos,
	})
}

func (s *Server) handleMetricTable(c *gin.Context) {
	persona, ok := s.parsePersona(c)
	if !ok {
		return
	}
	name := c.Param("name")

	t, err := s.deps.Registry.Table(c.Request.Context(), persona, name, preferLive(c))
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	body := tableJSON(t)
	body["persona"] = persona
	body["metric"] = name
	if servedAt, live := s.deps.Registry.LiveServed(persona, name); live {
		body["live"] = true
		body["live_served_at"] = servedAt
	}
	c.JSON(http.StatusOK, body)
}

// handlePersonaDashboard assembles the curated table set each role's
// dashboard page renders, in one response.
func (s *Server) handlePersonaDashboard(c *gin.Context) {
	persona, ok := s.parsePersona(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	live := preferLive(c)
	sections := gin.H{}

	add := func(key string, t *table.Table, err error) {
		if err != nil {
			sections[key] = gin.H{"error": err.Error()}
			return
		}
		sections[key] = tableJSON(t)
	}

	// threshold_days tunes the contract alert window, like the
	// expiration slider on the old dashboard.
	thresholdDays, _ := strconv.Atoi(c.DefaultQuery("threshold_days", "0"))

	switch persona {
	case metric.PersonaCFO:
		t, err := s.deps.CFO.BudgetVariance(ctx, live)
		add("budget_variance", t, err)
		t, err = s.deps.CFO.ContractAlerts(ctx, thresholdDays, live)
		add("contract_alerts", t, err)
		t, err = s.deps.CFO.VendorOptimization(ctx, live)
		add("vendor_optimization", t, err)
		t, err = s.deps.CFO.GrantCompliance(ctx, live)
		add("grant_compliance", t, err)
		t, err = s.deps.CFO.StudentSuccessROI(ctx, live)
		add("student_success_roi", t, err)
		t, err = s.deps.CFO.TotalSpendBreakdown(ctx, live)
		add("total_spend", t, err)
	case metric.PersonaCIO:
		t, err := s.deps.CIO.DigitalTransformation(ctx, live)
		add("digital_transformation", t, err)
		t, err = s.deps.CIO.BusinessUnitSpend(ctx, live)
		add("business_unit_spend", t, err)
		t, err = s.deps.CIO.RiskMetrics(ctx, live)
		add("risk_metrics", t, err)
		t, err = s.deps.CIO.AppCostAnalysis(ctx, live)
		add("app_cost_analysis", t, err)
		t, err = s.deps.CIO.StrategicAlignment(ctx, live)
		add("strategic_alignment", t, err)
	case metric.PersonaCTO:
		t, err := s.deps.CTO.CloudCostOptimization(ctx, live)
		add("cloud_cost_optimization", t, err)
		t, err = s.deps.CTO.AssetLifecycle(ctx, live)
		add("asset_lifecycle", t, err)
		t, err = s.deps.CTO.SecurityMetrics(ctx, live)
		add("security_metrics", t, err)
		t, err = s.deps.CTO.CapacityPlanning(ctx, live)
		add("capacity_planning", t, err)
		t, err = s.deps.CTO.TechStackHealth(ctx, live)
		add("tech_stack_health", t, err)
	case metric.PersonaPM:
		t, err := s.deps.PM.ProjectCharter(ctx, live)
		add("project_charter", t, err)
		t, err = s.deps.PM.RAIDLog(ctx, live)
		add("raid_log", t, err)
		t, err = s.deps.PM.ProjectTimeline(ctx, live)
		add("project_timeline", t, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"persona":  persona,
		"title":    persona.Title(),
		"sections": sections,
	})
}
