package repository

import (
	"context"

	"github.com/credicefi/crediface/internal/domain/models"
)

// TenantRepository defines the interface for reading tenant configuration and
// historical datasets. Implementations are safe for concurrent use and never
// mutate storage on read.
type TenantRepository interface {
	// GetConfig returns the validated configuration of a tenant.
	// It fails with configuration_not_found for unknown tenants and with
	// data_unavailable when the stored configuration fails validation.
	GetConfig(ctx context.Context, tenantID string) (*models.TenantConfig, error)

	// GetHistoricalDefaults returns the tenant's confirmed default records.
	// Rows explicitly flagged as non-defaults are filtered out.
	GetHistoricalDefaults(ctx context.Context, tenantID string) ([]models.HistoricalDefaultRecord, error)

	// ListTenants returns a summary of every known tenant, including misconfigured ones.
	ListTenants(ctx context.Context) ([]models.TenantSummary, error)
}

// TenantWriter persists tenant configuration and datasets. It is used by seeding
// and administration tooling, never on the assessment path.
type TenantWriter interface {
	// SaveConfig creates or replaces a tenant configuration.
	SaveConfig(ctx context.Context, tenantID string, cfg *models.TenantConfig) error

	// ReplaceHistoricalDefaults replaces the whole dataset of a tenant. Rows are
	// stored as given, including non-default rows.
	ReplaceHistoricalDefaults(ctx context.Context, tenantID string, records []models.HistoricalDefaultRecord) error
}

// DatasetInspector exposes the raw, unfiltered dataset for diagnostics.
type DatasetInspector interface {
	// InspectDataset returns the column names and every row of the tenant's dataset.
	InspectDataset(ctx context.Context, tenantID string) (columns []string, rows []models.HistoricalDefaultRecord, err error)
}
