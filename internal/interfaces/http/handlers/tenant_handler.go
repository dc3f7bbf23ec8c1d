package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/credicefi/crediface/internal/application/service"
	"github.com/credicefi/crediface/internal/infrastructure/persistence/seed"
	"github.com/credicefi/crediface/pkg/logger"
)

// Seeder writes the demonstration institution.
type Seeder interface {
	SeedAll(ctx context.Context) (*seed.Result, error)
}

// TenantHandler handles HTTP requests about institutions.
// TenantHandler 机构相关 HTTP 处理器。
type TenantHandler struct {
	tenantService service.TenantAppService
	seeder        Seeder
	logger        logger.Logger
}

// NewTenantHandler creates a new TenantHandler. A nil seeder disables Setup.
func NewTenantHandler(tenantService service.TenantAppService, seeder Seeder, log logger.Logger) *TenantHandler {
	return &TenantHandler{
		tenantService: tenantService,
		seeder:        seeder,
		logger:        log.WithComponent("tenant_handler"),
	}
}

// CanSeed reports whether the setup endpoint is available.
func (h *TenantHandler) CanSeed() bool { return h.seeder != nil }

// ListInstitutions handles GET /api/v1/institutions.
func (h *TenantHandler) ListInstitutions(c *gin.Context) {
	resp, err := h.tenantService.ListInstitutions(c.Request.Context())
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, resp)
}

// GetConfig handles GET /api/v1/tenant/config.
func (h *TenantHandler) GetConfig(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		sendError(c, err)
		return
	}

	resp, err := h.tenantService.GetTenantConfig(c.Request.Context(), tenant)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, resp)
}

// DataCheck handles GET /api/v1/data-check.
func (h *TenantHandler) DataCheck(c *gin.Context) {
	tenant, err := tenantID(c)
	if err != nil {
		sendError(c, err)
		return
	}

	resp, err := h.tenantService.DataCheck(c.Request.Context(), tenant)
	if err != nil {
		sendError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, resp)
}

// Setup handles POST /api/v1/setup: it writes the demonstration institution
// and its historical dataset.
func (h *TenantHandler) Setup(c *gin.Context) {
	result, err := h.seeder.SeedAll(c.Request.Context())
	if err != nil {
		h.logger.Error(c.Request.Context(), "Seeding failed", err)
		sendError(c, err)
		return
	}
	sendSuccess(c, http.StatusCreated, result)
}
