package dto

import "github.com/credicefi/crediface/internal/domain/models"

// InstitutionListResponse represents the response for a list institutions request.
type InstitutionListResponse struct {
	Institutions []models.TenantSummary `json:"institutions"`
	Total        int                    `json:"total"`
}

// TenantConfigResponse represents the response for a tenant's configuration.
type TenantConfigResponse struct {
	TenantID string               `json:"tenant_id"`
	Config   *models.TenantConfig `json:"config"`
}

// DataCheckResponse summarizes a tenant's dataset for diagnostics.
type DataCheckResponse struct {
	TenantID          string              `json:"tenant_id"`
	Rows              int                 `json:"rows"`
	Columns           []string            `json:"columns"`
	ConfirmedDefaults int                 `json:"confirmed_defaults"`
	Unconvertible     int                 `json:"unconvertible_rows"`
	Sample            []map[string]string `json:"sample"`
}
