package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clausecheck/internal/guard"
	"clausecheck/internal/pipeline"
	"clausecheck/internal/playbook"
	"clausecheck/internal/types"
)

type analyzeRequest struct {
	ContractText      string             `json:"contract_text" binding:"required"`
	AnalysisType      types.AnalysisType `json:"analysis_type"`
	PlaybookVersionID string             `json:"playbook_version_id"`
}

type statusResponse struct {
	AnalysisID string `json:"analysis_id"`
	Status     string `json:"status"`
}

type playbookResponse struct {
	ID           string `json:"id"`
	CreatedAt    string `json:"created_at"`
	Content      string `json:"content"`
	ChangeNote   string `json:"change_note"`
	VersionLabel string `json:"version_label"`
}

func versionResponse(v *types.PlaybookVersion) playbookResponse {
	return playbookResponse{
		ID:           v.ID,
		CreatedAt:    v.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Content:      v.Content,
		ChangeNote:   v.ChangeNote,
		VersionLabel: v.VersionLabel,
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	if req.AnalysisType == "" {
		req.AnalysisType = types.AnalysisRisks
	}

	// Sanitize at admission so the stored text and warnings match what
	// the pipeline will see.
	sanitized, warnings := guard.Sanitize(req.ContractText)

	analysis, err := s.store.CreateAnalysis(c.Request.Context(), req.AnalysisType, sanitized, req.PlaybookVersionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to create analysis"})
		s.logger.Error("create analysis", zap.Error(err))
		return
	}
	if len(warnings) > 0 {
		warningsJSON, _ := json.Marshal(warnings)
		if err := s.store.SetAnalysisWarnings(c.Request.Context(), analysis.ID, string(warningsJSON)); err != nil {
			s.logger.Warn("persist admission warnings", zap.Error(err))
		}
	}

	if s.cfg.InlineMode {
		s.processAnalysis(c.Request.Context(), analysis.ID)
		loaded, err := s.store.GetAnalysis(c.Request.Context(), analysis.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to load analysis"})
			return
		}
		c.JSON(http.StatusOK, statusResponse{AnalysisID: loaded.ID, Status: string(loaded.Status)})
		return
	}

	go s.processAnalysis(context.Background(), analysis.ID)
	c.JSON(http.StatusOK, statusResponse{AnalysisID: analysis.ID, Status: string(analysis.Status)})
}

// processAnalysis runs the pipeline for a stored analysis and persists
// the outcome. Failures mark the run failed and emit an error event.
func (s *Server) processAnalysis(ctx context.Context, analysisID string) {
	analysis, err := s.store.GetAnalysis(ctx, analysisID)
	if err != nil {
		s.logger.Error("load analysis for processing", zap.String("analysis_id", analysisID), zap.Error(err))
		return
	}

	s.bus.Publish(analysis.ID, "status", map[string]any{
		"analysis_id": analysis.ID,
		"status":      "running",
		"message":     "Started analysis",
	})

	var initialWarnings []types.GuardrailWarning
	if analysis.WarningsJSON != "" {
		if err := json.Unmarshal([]byte(analysis.WarningsJSON), &initialWarnings); err != nil {
			initialWarnings = nil
		}
	}

	result, err := s.orchestrator.Run(ctx, pipeline.Request{
		AnalysisID:        analysis.ID,
		AnalysisType:      analysis.AnalysisType,
		ContractText:      analysis.ContractText,
		PlaybookVersionID: analysis.PlaybookVersionID,
		InitialWarnings:   initialWarnings,
	})
	if err != nil {
		s.logger.Error("analysis failed", zap.String("analysis_id", analysis.ID), zap.Error(err))
		if failErr := s.store.FailAnalysis(ctx, analysis.ID, err.Error()); failErr != nil {
			s.logger.Error("mark analysis failed", zap.Error(failErr))
		}
		s.bus.Publish(analysis.ID, "error", map[string]any{
			"analysis_id": analysis.ID,
			"error":       err.Error(),
		})
		return
	}

	resultJSON, _ := json.Marshal(result)
	warningsJSON, _ := json.Marshal(result.GuardrailWarnings)
	usageJSON, _ := json.Marshal(result.Usage)
	if err := s.store.CompleteAnalysis(ctx, analysis.ID, string(resultJSON), string(warningsJSON), string(usageJSON), result.PlaybookVersionID); err != nil {
		s.logger.Error("persist analysis result", zap.String("analysis_id", analysis.ID), zap.Error(err))
	}
}

func (s *Server) handleGetAnalysis(c *gin.Context) {
	analysis, err := s.store.GetAnalysis(c.Request.Context(), c.Param("id"))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Analysis not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to load analysis"})
		return
	}

	if analysis.Status == types.StatusCompleted && analysis.ResultJSON != "" {
		c.Data(http.StatusOK, "application/json", []byte(analysis.ResultJSON))
		return
	}
	c.JSON(http.StatusOK, statusResponse{AnalysisID: analysis.ID, Status: string(analysis.Status)})
}

func (s *Server) handleStreamAnalysis(c *gin.Context) {
	analysis, err := s.store.GetAnalysis(c.Request.Context(), c.Param("id"))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Analysis not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to load analysis"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// A finished run has no future events; replay the terminal state and
	// close the stream.
	if analysis.Status == types.StatusCompleted && analysis.ResultJSON != "" {
		var result json.RawMessage = []byte(analysis.ResultJSON)
		c.SSEvent("final", map[string]any{"analysis_id": analysis.ID, "result": result})
		return
	}
	if analysis.Status == types.StatusFailed {
		c.SSEvent("error", map[string]any{"analysis_id": analysis.ID, "error": analysis.ResultJSON})
		return
	}

	ch, cancel := s.bus.Subscribe(analysis.ID)
	defer cancel()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent(event.Name, event.Data)
			c.Writer.Flush()
			if event.Name == "final" || event.Name == "error" {
				return
			}
		}
	}
}

func (s *Server) handleGetPlaybook(c *gin.Context) {
	version, err := s.store.LatestVersion(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to load playbook"})
		return
	}
	if version == nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Playbook version not found"})
		return
	}
	c.JSON(http.StatusOK, versionResponse(version))
}

type playbookUpdateRequest struct {
	Content    string `json:"content" binding:"required"`
	ChangeNote string `json:"change_note"`
}

func (s *Server) handleUpdatePlaybook(c *gin.Context) {
	var req playbookUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	version, err := s.playbook.Update(c.Request.Context(), req.Content, req.ChangeNote)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to update playbook"})
		s.logger.Error("update playbook", zap.Error(err))
		return
	}
	c.JSON(http.StatusOK, versionResponse(version))
}

func (s *Server) handleListVersions(c *gin.Context) {
	versions, err := s.store.ListVersions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to list versions"})
		return
	}
	out := make([]playbookResponse, 0, len(versions))
	for i := range versions {
		out = append(out, versionResponse(&versions[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetVersion(c *gin.Context) {
	version, err := s.store.GetVersion(c.Request.Context(), c.Param("id"))
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Playbook version not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to load version"})
		return
	}
	c.JSON(http.StatusOK, versionResponse(version))
}

type reindexRequest struct {
	VersionID string `json:"version_id"`
}

func (s *Server) handleReindex(c *gin.Context) {
	var req reindexRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
			return
		}
	}
	version, err := s.playbook.Reindex(c.Request.Context(), req.VersionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, playbook.ErrNoVersion) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Playbook version not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version_id": version.ID})
}
