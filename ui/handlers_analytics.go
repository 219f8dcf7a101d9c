package ui

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"spendlens/domain/core"
	"spendlens/domain/insight"
	"spendlens/internal/analytics"
	apperrors "spendlens/internal/errors"
)

func (s *Server) handleInsights(c *gin.Context) {
	persona, ok := s.parsePersona(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	in := s.deps.Loader.Load(ctx)

	var recs []insight.Recommendation
	kinds := analytics.KindsFor(persona)
	if kindParam := c.Query("kind"); kindParam != "" {
		kind, err := insight.ParseKind(kindParam)
		if err != nil {
			s.abortWithError(c, apperrors.InvalidInput(err.Error()))
			return
		}
		recs = s.deps.Engine.ByKind(ctx, kind, in)
		kinds = []insight.Kind{kind}
	} else {
		recs = s.deps.Engine.ForPersona(ctx, persona, in)
	}

	c.JSON(http.StatusOK, gin.H{
		"persona":         persona,
		"kinds":           kinds,
		"generated_at":    time.Now().UTC(),
		"recommendations": recs,
	})
}

func (s *Server) handleForecasts(c *gin.Context) {
	in := s.deps.Loader.Load(c.Request.Context())
	report := s.deps.Forecaster.Run(in)
	c.JSON(http.StatusOK, report)
}

// handleScorecard computes the balanced scorecard. With persist=true and
// a database configured, the result is also stored as a snapshot.
func (s *Server) handleScorecard(c *gin.Context) {
	ctx := c.Request.Context()
	in := s.deps.Loader.Load(ctx)
	sc := s.deps.Scorecards.Build(in)

	persist, _ := strconv.ParseBool(c.DefaultQuery("persist", "false"))
	if persist {
		if s.deps.SnapshotRepo == nil {
			s.abortWithError(c, apperrors.New(apperrors.CodeSourceUnavailable,
				"scorecard snapshots require database persistence"))
			return
		}
		if err := s.deps.SnapshotRepo.Save(ctx, core.SnapshotID(core.NewID()), sc); err != nil {
			s.abortWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, sc)
}

// handleScorecardHistory returns saved snapshots for trend charts
func (s *Server) handleScorecardHistory(c *gin.Context) {
	if s.deps.SnapshotRepo == nil {
		s.abortWithError(c, apperrors.New(apperrors.CodeSourceUnavailable,
			"scorecard history requires database persistence"))
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "90"))
	if err != nil || days <= 0 {
		s.abortWithError(c, apperrors.InvalidInput("days must be a positive integer"))
		return
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	cards, err := s.deps.SnapshotRepo.ListSince(c.Request.Context(), since)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"since":     since,
		"count":     len(cards),
		"snapshots": cards,
	})
}

func (s *Server) handleQA(c *gin.Context) {
	persona, ok := s.parsePersona(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	in := s.deps.Loader.Load(ctx)
	sc := s.deps.Scorecards.Build(in)

	answers, err := analytics.Answers(persona, sc, in)
	if err != nil {
		s.abortWithError(c, apperrors.InvalidInput(err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"persona": persona,
		"title":   persona.Title(),
		"answers": answers,
	})
}
