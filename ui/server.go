package ui

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spendlens/domain/core"
	"spendlens/internal"
	"spendlens/internal/container"
	apperrors "spendlens/internal/errors"
)

// Server is the JSON API for the spend analytics dashboard
type Server struct {
	router *gin.Engine
	deps   *container.Container
	logger *internal.Logger
}

// NewServer creates the API server over an initialized container
func NewServer(deps *container.Container) *Server {
	if deps.Config.Server.GinMode != "" {
		gin.SetMode(deps.Config.Server.GinMode)
	}

	s := &Server{
		router: gin.Default(),
		deps:   deps,
		logger: internal.NewDefaultLogger().Component("API"),
	}

	s.setupRoutes()
	return s
}

// Router exposes the gin engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")

	// Registry and persona views
	api.GET("/personas", s.handlePersonas)
	api.GET("/personas/:persona/metrics", s.handlePersonaMetrics)
	api.GET("/personas/:persona/metrics/:name", s.handleMetricTable)
	api.GET("/personas/:persona/dashboard", s.handlePersonaDashboard)

	// Computed analytics
	api.GET("/insights/:persona", s.handleInsights)
	api.GET("/forecasts", s.handleForecasts)
	api.GET("/scorecard", s.handleScorecard)
	api.GET("/scorecard/history", s.handleScorecardHistory)
	api.GET("/qa/:persona", s.handleQA)

	// Pipeline control
	api.POST("/pipeline/run", s.handlePipelineRun)
	api.GET("/pipeline/status", s.handlePipelineStatus)
	api.GET("/pipeline/runs", s.handlePipelineRuns)
	api.GET("/pipeline/runs/:id", s.handlePipelineRunByID)
	api.GET("/sources/status", s.handleSourcesStatus)
	api.POST("/uploads", s.handleUpload)

	// Run progress stream
	api.GET("/events", s.deps.SSEHub.HandleSSE)
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	s.logger.Info("starting spend analytics API on http://%s", addr)
	return s.router.Run(addr)
}

// abortWithError writes the JSON error body for a typed application error
func (s *Server) abortWithError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if core.IsNotFoundError(err) {
		status = http.StatusNotFound
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	body := gin.H{"error": err.Error()}
	if appErr, ok := err.(*apperrors.AppError); ok {
		body["code"] = appErr.Code
		body["error"] = appErr.Message
	}
	c.AbortWithStatusJSON(status, body)
}
