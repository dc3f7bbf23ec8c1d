package service

import (
	"context"
	"sort"

	"github.com/credicefi/crediface/internal/application/dto"
	"github.com/credicefi/crediface/internal/domain/repository"
	domainService "github.com/credicefi/crediface/internal/domain/service"
	"github.com/credicefi/crediface/pkg/errors"
	"github.com/credicefi/crediface/pkg/logger"
	"github.com/credicefi/crediface/pkg/utils"
)

// dataCheckSampleSize is the number of rows returned by DataCheck.
const dataCheckSampleSize = 5

// TenantAppService defines the application service interface for tenant use cases.
// TenantAppService 租户应用服务接口。
type TenantAppService interface {
	// ListInstitutions lists every configured institution.
	// ListInstitutions 列出所有已配置的机构。
	ListInstitutions(ctx context.Context) (*dto.InstitutionListResponse, error)

	// GetTenantConfig retrieves the configuration for a specific tenant.
	// GetTenantConfig 获取租户配置。
	GetTenantConfig(ctx context.Context, tenantID string) (*dto.TenantConfigResponse, error)

	// DataCheck summarizes a tenant's historical dataset.
	// DataCheck 汇总租户的历史数据集。
	DataCheck(ctx context.Context, tenantID string) (*dto.DataCheckResponse, error)
}

// tenantAppServiceImpl is the concrete implementation of the TenantAppService interface.
// tenantAppServiceImpl 租户应用服务实现。
type tenantAppServiceImpl struct {
	tenantRepo repository.TenantRepository
	inspector  repository.DatasetInspector
	logger     logger.Logger
}

// NewTenantAppService creates a new instance of TenantAppService.
// The inspector may be nil, in which case DataCheck reports the filtered dataset.
// NewTenantAppService 创建租户应用服务实例。
func NewTenantAppService(
	tenantRepo repository.TenantRepository,
	inspector repository.DatasetInspector,
	log logger.Logger,
) TenantAppService {
	return &tenantAppServiceImpl{
		tenantRepo: tenantRepo,
		inspector:  inspector,
		logger:     log.WithComponent("tenant"),
	}
}

// ListInstitutions lists every configured institution.
// ListInstitutions 列出所有已配置的机构。
func (s *tenantAppServiceImpl) ListInstitutions(ctx context.Context) (*dto.InstitutionListResponse, error) {
	tenants, err := s.tenantRepo.ListTenants(ctx)
	if err != nil {
		s.logger.Error(ctx, "Failed to list institutions", err)
		if _, ok := errors.AsAppError(err); ok {
			return nil, err
		}
		return nil, errors.ErrServerError("failed to list institutions").WithCause(err)
	}

	sort.Slice(tenants, func(i, j int) bool { return tenants[i].ID < tenants[j].ID })
	return &dto.InstitutionListResponse{Institutions: tenants, Total: len(tenants)}, nil
}

// GetTenantConfig retrieves the configuration for a specific tenant.
// GetTenantConfig 获取租户配置。
func (s *tenantAppServiceImpl) GetTenantConfig(ctx context.Context, tenantID string) (*dto.TenantConfigResponse, error) {
	if err := utils.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	s.logger.Debug(ctx, "Getting tenant config", logger.String("tenant_id", tenantID))

	cfg, err := s.tenantRepo.GetConfig(ctx, tenantID)
	if err != nil {
		s.logger.Warn(ctx, "Tenant config unavailable", logger.String("tenant_id", tenantID), logger.Err(err))
		return nil, err
	}
	return &dto.TenantConfigResponse{TenantID: tenantID, Config: cfg}, nil
}

// DataCheck summarizes a tenant's historical dataset: row count, columns, how many
// rows are confirmed defaults, how many cannot be converted, and a short sample.
// DataCheck 汇总租户的历史数据集。
func (s *tenantAppServiceImpl) DataCheck(ctx context.Context, tenantID string) (*dto.DataCheckResponse, error) {
	if err := utils.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	if _, err := s.tenantRepo.GetConfig(ctx, tenantID); err != nil {
		return nil, err
	}

	var columns []string
	rows, err := s.tenantRepo.GetHistoricalDefaults(ctx, tenantID)
	if s.inspector != nil && err == nil {
		columns, rows, err = s.inspector.InspectDataset(ctx, tenantID)
	}
	if err != nil {
		s.logger.Warn(ctx, "Dataset unavailable", logger.String("tenant_id", tenantID), logger.Err(err))
		return nil, err
	}

	resp := &dto.DataCheckResponse{
		TenantID: tenantID,
		Rows:     len(rows),
		Columns:  columns,
		Sample:   make([]map[string]string, 0, dataCheckSampleSize),
	}
	seen := make(map[string]bool)
	for i, rec := range rows {
		if domainService.IsConfirmedDefault(rec) {
			resp.ConfirmedDefaults++
		}
		if _, err := domainService.MapHistoricalRecord(rec); err != nil {
			resp.Unconvertible++
		}
		if i < dataCheckSampleSize {
			resp.Sample = append(resp.Sample, rec.Fields)
		}
		if columns == nil {
			for k := range rec.Fields {
				seen[k] = true
			}
		}
	}
	if columns == nil {
		resp.Columns = make([]string, 0, len(seen))
		for k := range seen {
			resp.Columns = append(resp.Columns, k)
		}
		sort.Strings(resp.Columns)
	}
	return resp, nil
}
