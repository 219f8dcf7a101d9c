package ui

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"spendlens/adapters/fileproc"
	"spendlens/domain/core"
	apperrors "spendlens/internal/errors"
	"spendlens/internal/pipeline"
)

// runRequest mirrors the pipeline CLI flags for the run endpoint
type runRequest struct {
	DryRun     bool `json:"dry_run"`
	Force      bool `json:"force"`
	SkipBackup bool `json:"skip_backup"`
}

// handlePipelineRun triggers a run and blocks until it finishes. A
// concurrent run is rejected with 409 unless force is set.
func (s *Server) handlePipelineRun(c *gin.Context) {
	var req runRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.abortWithError(c, apperrors.InvalidInput("invalid run options: "+err.Error()))
			return
		}
	}

	result, err := s.deps.Runner.Run(c.Request.Context(), pipeline.Options{
		DryRun:     req.DryRun,
		Force:      req.Force,
		SkipBackup: req.SkipBackup,
		Manual:     true,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": "a pipeline run is already in progress",
				"code":  apperrors.CodePipelineFailed,
			})
			return
		}
		s.abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handlePipelineStatus(c *gin.Context) {
	status := s.deps.Runner.Status(c.Request.Context())
	if s.deps.Scheduler != nil {
		if next := s.deps.Scheduler.NextRun(); !next.IsZero() {
			status.NextScheduledRun = &next
		}
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handlePipelineRuns(c *gin.Context) {
	if s.deps.RunRepo == nil {
		s.abortWithError(c, apperrors.New(apperrors.CodeSourceUnavailable,
			"run history requires database persistence"))
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		s.abortWithError(c, apperrors.InvalidInput("limit must be a positive integer"))
		return
	}

	runs, err := s.deps.RunRepo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(runs), "runs": runs})
}

func (s *Server) handlePipelineRunByID(c *gin.Context) {
	if s.deps.RunRepo == nil {
		s.abortWithError(c, apperrors.New(apperrors.CodeSourceUnavailable,
			"run history requires database persistence"))
		return
	}

	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		s.abortWithError(c, apperrors.InvalidInput(err.Error()))
		return
	}

	run, err := s.deps.RunRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleSourcesStatus(c *gin.Context) {
	statuses := s.deps.Sources.Status(c.Request.Context())
	connected := 0
	for _, st := range statuses {
		if st.Connected {
			connected++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"configured": len(statuses),
		"connected":  connected,
		"sources":    statuses,
	})
}

// handleUpload accepts a multipart spreadsheet, stores it in the watch
// directory, and runs it through the file processor so the caller sees
// the column mapping and validation outcome immediately. The stored copy
// is picked up by the next pipeline run.
func (s *Server) handleUpload(c *gin.Context) {
	fu := s.deps.PipelineCfg.DataSources.FileUpload
	if !fu.Enabled {
		s.abortWithError(c, apperrors.New(apperrors.CodeSourceUnavailable,
			"file uploads are disabled in the pipeline config"))
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		s.abortWithError(c, apperrors.InvalidInput("multipart field 'file' is required"))
		return
	}
	if !fileproc.IsSupported(file.Filename) {
		s.abortWithError(c, apperrors.InvalidInput(
			fmt.Sprintf("unsupported file type %q", filepath.Ext(file.Filename))))
		return
	}

	if err := os.MkdirAll(fu.WatchDirectory, 0o755); err != nil {
		s.abortWithError(c, apperrors.Wrap(err, "failed to create upload directory"))
		return
	}

	uploadID := core.UploadID(core.NewID())
	stored := filepath.Join(fu.WatchDirectory, storedUploadName(uploadID, file.Filename))
	if err := c.SaveUploadedFile(file, stored); err != nil {
		s.abortWithError(c, apperrors.Wrap(err, "failed to store upload"))
		return
	}

	tbl, summary, err := fileproc.NewProcessor(time.Now().UTC()).ProcessFile(stored)
	if err != nil {
		s.abortWithError(c, apperrors.InvalidInput("file processing failed: "+err.Error()))
		return
	}

	body := gin.H{
		"upload_id": uploadID.String(),
		"file":      file.Filename,
		"stored_as": filepath.Base(stored),
		"summary":   summary,
	}
	if tbl != nil {
		body["rows"] = tbl.NumRows()
	}
	c.JSON(http.StatusOK, body)
}

// storedUploadName prefixes the original filename with the upload ID so
// concurrent uploads of the same file never collide in the watch dir.
func storedUploadName(id core.UploadID, original string) string {
	base := filepath.Base(original)
	base = strings.ReplaceAll(base, string(os.PathSeparator), "_")
	return fmt.Sprintf("%s_%s", id.String()[:8], base)
}
