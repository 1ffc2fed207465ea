package pipeline

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"audit-backend/internal/analyses"
	"audit-backend/internal/shared/server/respond"
	"audit-backend/internal/token"
)

// Handler exposes the pipeline over HTTP.
type Handler struct {
	Service  *Service
	Analyses analyses.Repo
}

// NewHandler builds a Handler.
func NewHandler(service *Service, analysesRepo analyses.Repo) *Handler {
	return &Handler{Service: service, Analyses: analysesRepo}
}

type runRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// RunAnalysis handles POST /api/v1/run-analysis. The request is processed
// synchronously; the response carries the full run result or, for a failed
// run, the id of the failed record.
func (h *Handler) RunAnalysis(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "userId is required", nil)
		return
	}
	c.Set("userId", req.UserID)

	result, err := h.Service.Run(c.Request.Context(), req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			respond.Error(c, http.StatusNotFound, "user_not_found", "user not found", nil)
		case errors.Is(err, ErrNoRecentUploads):
			respond.Error(c, http.StatusBadRequest, "no_recent_uploads", "no uploads found in the analysis window", nil)
		default:
			var runErr *RunError
			if errors.As(err, &runErr) {
				c.Set("analysisId", runErr.AnalysisID)
				respond.Error(c, http.StatusBadGateway, "analysis_failed", runErr.Reason, map[string]any{
					"analysisId": runErr.AnalysisID,
				})
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "analysis could not be started", nil)
		}
		return
	}

	c.Set("analysisId", result.AnalysisID)
	respond.OK(c, gin.H{"success": true, "result": result})
}

// GetAnalysis handles GET /api/v1/analyses/:id. Access requires a report
// token issued for exactly this analysis.
func (h *Handler) GetAnalysis(c *gin.Context) {
	analysisID := c.Param("id")
	c.Set("analysisId", analysisID)

	tok := c.Query("token")
	if tok == "" {
		tok = c.GetHeader("X-Report-Token")
	}
	claims, err := token.Verify(tok)
	if err != nil || claims.AnalysisID != analysisID {
		respond.Error(c, http.StatusUnauthorized, "invalid_token", "a valid report token is required", nil)
		return
	}
	c.Set("userId", claims.Sub)

	analysis, err := h.Analyses.GetByID(c.Request.Context(), analysisID)
	if err != nil {
		if errors.Is(err, analyses.ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load analysis", nil)
		return
	}
	if analysis.UserID != claims.Sub {
		respond.Error(c, http.StatusUnauthorized, "invalid_token", "a valid report token is required", nil)
		return
	}

	respond.OK(c, analysis)
}
