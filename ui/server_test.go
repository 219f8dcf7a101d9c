package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendlens/internal/config"
	"spendlens/internal/container"
	"spendlens/internal/testkit"
)

// newTestServer boots a file-only container over a seeded temp registry.
// Every pipeline path points into temp dirs so tests leave no files behind.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	_, err := testkit.NewKit(testkit.DefaultGeneratorConfig()).SeedRegistry(root)
	require.NoError(t, err)

	scratch := t.TempDir()
	pcfg := config.DefaultPipelineConfig()
	pcfg.DataSources.FileUpload.WatchDirectory = filepath.Join(scratch, "uploads")
	pcfg.DataSources.FileUpload.ProcessedDirectory = filepath.Join(scratch, "processed")
	pcfg.OutputSettings.MetricsRoot = root
	pcfg.OutputSettings.BackupDirectory = filepath.Join(scratch, "backups")
	pcfg.OutputSettings.ReportsDirectory = filepath.Join(scratch, "reports")
	cfgPath := filepath.Join(scratch, "pipeline_config.json")
	require.NoError(t, config.SavePipelineConfig(cfgPath, &pcfg))

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0", GinMode: gin.TestMode},
		Data:   config.DataConfig{Root: root, PipelineConfigPath: cfgPath},
	}

	c, err := container.New(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Init(context.Background()))
	t.Cleanup(func() { _ = c.Shutdown(context.Background()) })

	return NewServer(c)
}

func getJSON(t *testing.T, s *Server, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	body := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return rec.Code, body
}

func postJSON(t *testing.T, s *Server, path, payload string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	body := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return rec.Code, body
}

func TestPersonasList(t *testing.T) {
	s := newTestServer(t)

	code, body := getJSON(t, s, "/api/personas")
	require.Equal(t, http.StatusOK, code)

	personas := body["personas"].([]any)
	require.Len(t, personas, 4)

	byName := map[string]map[string]any{}
	for _, p := range personas {
		m := p.(map[string]any)
		byName[m["persona"].(string)] = m
	}
	assert.Equal(t, float64(4), byName["cfo"]["metric_count"])
	assert.Equal(t, float64(2), byName["cto"]["metric_count"])
	assert.Equal(t, "Chief Financial Officer", byName["cfo"]["title"])
}

func TestPersonaMetricsAndUnknownPersona(t *testing.T) {
	s := newTestServer(t)

	code, body := getJSON(t, s, "/api/personas/cfo/metrics")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cfo", body["persona"])
	assert.Len(t, body["metrics"].([]any), 4)

	code, body = getJSON(t, s, "/api/personas/ceo/metrics")
	require.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"].(string), "unknown persona")
}

func TestMetricTable(t *testing.T) {
	s := newTestServer(t)

	code, body := getJSON(t, s, "/api/personas/cfo/metrics/vendor_optimization")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cfo", body["persona"])
	assert.Equal(t, "vendor_optimization", body["metric"])
	assert.Equal(t, float64(24), body["row_count"])

	columns := body["columns"].([]any)
	assert.Contains(t, columns, "vendor_name")
	assert.Contains(t, columns, "annual_spend")

	records := body["records"].([]any)
	require.Len(t, records, 24)
	first := records[0].(map[string]any)
	assert.NotEmpty(t, first["vendor_name"])
}

func TestMetricTableNotFound(t *testing.T) {
	s := newTestServer(t)

	code, body := getJSON(t, s, "/api/personas/cfo/metrics/does_not_exist")
	require.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body["error"].(string), "does_not_exist")
}

func TestCFODashboardSections(t *testing.T) {
	s := newTestServer(t)

	code, body := getJSON(t, s, "/api/personas/cfo/dashboard?threshold_days=60")
	require.Equal(t, http.StatusOK, code)

	sections := body["sections"].(map[string]any)
	for _, key := range []string{
		"budget_variance", "contract_alerts", "vendor_optimization",
		"grant_compliance", "student_success_roi", "total_spend",
	} {
		require.Contains(t, sections, key)
	}

	// Seeded sections carry table payloads
	alerts := sections["contract_alerts"].(map[string]any)
	require.Contains(t, alerts, "columns")
	assert.Contains(t, alerts["columns"].([]any), "Alert Status")
	assert.Equal(t, float64(24), alerts["row_count"])

	// Metrics with no seeded file degrade to an inline error
	roi := sections["student_success_roi"].(map[string]any)
	assert.Contains(t, roi, "error")
}

func TestPMDashboardSections(t *testing.T) {
	s := newTestServer(t)

	code, body := getJSON(t, s, "/api/personas/pm/dashboard")
	require.Equal(t, http.StatusOK, code)

	sections := body["sections"].(map[string]any)
	charter := sections["project_charter"].(map[string]any)
	require.Contains(t, charter, "columns")
	assert.Equal(t, float64(12), charter["row_count"])
}

func TestInsights(t *testing.T) {
	s := newTestServer(t)

	code, body := getJSON(t, s, "/api/insights/cfo")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "cfo", body["persona"])

	kinds := body["kinds"].([]any)
	assert.ElementsMatch(t, []any{"cost_reduction", "risk_mitigation"}, kinds)

	recs := body["recommendations"].([]any)
	require.NotEmpty(t, recs)
	first := recs[0].(map[string]any)
	assert.NotEmpty(t, first["title"])
	assert.Contains(t, []any{"cost_reduction", "risk_mitigation"}, first["kind"])
}

func TestInsightsKindFilter(t *testing.T) {
	s := newTestServer(t)

	code, body := getJSON(t, s, "/api/insights/cto?kind=cost_reduction")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"cost_reduction"}, body["kinds"].([]any))
	for _, r := range body["recommendations"].([]any) {
		assert.Equal(t, "cost_reduction", r.(map[string]any)["kind"])
	}

	code, body = getJSON(t, s, "/api/insights/cto?kind=world_peace")
	require.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"].(string), "unknown recommendation kind")
}

func TestForecasts(t *testing.T) {
	s := newTestServer(t)

	code, body := getJSON(t, s, "/api/forecasts")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, body, "generated_at")
	require.Contains(t, body, "budget_overruns")
	require.Contains(t, body, "vendor_risks")

	// Vendors 0 and 1 always renew inside the alert windows
	risks := body["vendor_risks"].([]any)
	assert.NotEmpty(t, risks)
}

func TestScorecard(t *testing.T) {
	s := newTestServer(t)

	code, body := getJSON(t, s, "/api/scorecard")
	require.Equal(t, http.StatusOK, code)

	themes := body["themes"].(map[string]any)
	require.Contains(t, themes, "financial")
	assert.NotEmpty(t, themes["financial"].([]any))
}

func TestScorecardPersistenceRequiresDatabase(t *testing.T) {
	s := newTestServer(t)

	code, _ := getJSON(t, s, "/api/scorecard?persist=true")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, body := getJSON(t, s, "/api/scorecard/history")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body["error"].(string), "database")
}

func TestQA(t *testing.T) {
	s := newTestServer(t)

	code, body := getJSON(t, s, "/api/qa/cfo")
	require.Equal(t, http.StatusOK, code)
	answers := body["answers"].([]any)
	require.NotEmpty(t, answers)
	first := answers[0].(map[string]any)
	assert.NotEmpty(t, first["question"])
	assert.NotEmpty(t, first["answer"])

	// PM has no standing question set
	code, _ = getJSON(t, s, "/api/qa/pm")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPipelineDryRun(t *testing.T) {
	s := newTestServer(t)

	code, body := postJSON(t, s, "/api/pipeline/run", `{"dry_run": true}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["dry_run"])
	assert.NotEmpty(t, body["run_id"])
}

func TestPipelineStatus(t *testing.T) {
	s := newTestServer(t)

	code, body := getJSON(t, s, "/api/pipeline/status")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["running"])
	assert.Equal(t, float64(0), body["configured_sources"])
}

func TestPipelineRunsRequireDatabase(t *testing.T) {
	s := newTestServer(t)

	code, body := getJSON(t, s, "/api/pipeline/runs")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body["error"].(string), "database")

	code, _ = getJSON(t, s, "/api/pipeline/runs/"+strings.Repeat("0", 32))
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestSourcesStatus(t *testing.T) {
	s := newTestServer(t)

	code, body := getJSON(t, s, "/api/sources/status")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), body["configured"])
	assert.Equal(t, float64(0), body["connected"])
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func TestUpload(t *testing.T) {
	s := newTestServer(t)

	csv := "Supplier,Amount,End Date\nAcme Corp,12000,2026-12-31\nZenith LLC,8000,2027-06-30\n"
	buf, contentType := multipartUpload(t, "contracts.csv", csv)

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "contracts.csv", body["file"])
	assert.NotEmpty(t, body["upload_id"])
	assert.True(t, strings.HasSuffix(body["stored_as"].(string), "_contracts.csv"))
	assert.Equal(t, float64(2), body["rows"])

	summary := body["summary"].(map[string]any)
	assert.Equal(t, float64(2), summary["rows_in"])
	mapped := summary["mapped_columns"].(map[string]any)
	assert.Equal(t, "Supplier", mapped["Vendor"])
}

func TestUploadRejectsUnsupportedAndUnmappable(t *testing.T) {
	s := newTestServer(t)

	buf, contentType := multipartUpload(t, "notes.txt", "not a table")
	req := httptest.NewRequest(http.MethodPost, "/api/uploads", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	buf, contentType = multipartUpload(t, "numbers.csv", "a,b\n1,2\n")
	req = httptest.NewRequest(http.MethodPost, "/api/uploads", buf)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"].(string), "no vendor column")
}
