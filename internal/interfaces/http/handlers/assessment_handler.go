package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/credicefi/crediface/internal/application/dto"
	"github.com/credicefi/crediface/internal/application/service"
	"github.com/credicefi/crediface/pkg/errors"
)

// AssessmentHandler handles HTTP requests for credit assessments.
// AssessmentHandler 信用评估 HTTP 处理器。
type AssessmentHandler struct {
	assessmentService service.AssessmentAppService
}

// NewAssessmentHandler creates a new AssessmentHandler.
func NewAssessmentHandler(assessmentService service.AssessmentAppService) *AssessmentHandler {
	return &AssessmentHandler{assessmentService: assessmentService}
}

// Assess handles POST /api/v1/assessments.
func (h *AssessmentHandler) Assess(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		sendError(c, err)
		return
	}

	var req dto.AssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, bindError(err))
		return
	}

	record, err := h.assessmentService.Assess(c.Request.Context(), tenant, &req)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, record)
}

// AssessBatch handles POST /api/v1/assessments/batch.
func (h *AssessmentHandler) AssessBatch(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		sendError(c, err)
		return
	}

	var req dto.BatchAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, bindError(err))
		return
	}

	resp, err := h.assessmentService.AssessBatch(c.Request.Context(), tenant, &req)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, resp)
}

// Recent handles GET /api/v1/assessments/recent?limit=N.
func (h *AssessmentHandler) Recent(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		sendError(c, err)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			sendError(c, errors.ErrInvalidRequest("limit must be a non-negative integer").
				WithMetadata("limit", raw))
			return
		}
	}

	resp, err := h.assessmentService.RecentAssessments(c.Request.Context(), tenant, limit)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, resp)
}

// Performance handles GET /api/v1/performance.
func (h *AssessmentHandler) Performance(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		sendError(c, err)
		return
	}

	summary, err := h.assessmentService.Performance(c.Request.Context(), tenant)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, summary)
}
