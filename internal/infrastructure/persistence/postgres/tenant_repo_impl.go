package postgres

import (
	"context"
	goerrors "errors"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/credicefi/crediface/internal/domain/models"
	"github.com/credicefi/crediface/internal/domain/repository"
	"github.com/credicefi/crediface/internal/domain/service"
	"github.com/credicefi/crediface/pkg/constants"
	"github.com/credicefi/crediface/pkg/errors"
	"github.com/credicefi/crediface/pkg/logger"
)

const sourceName = "database"

// InstitutionRow is the persisted form of a tenant configuration.
type InstitutionRow struct {
	TenantID      string              `gorm:"primaryKey;size:64"`
	Name          string              `gorm:"size:255"`
	Country       string              `gorm:"size:8"`
	Status        string              `gorm:"size:32"`
	Config        models.TenantConfig `gorm:"type:text;serializer:json"`
	DatasetLoaded bool                `gorm:"not null;default:false"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName overrides the gorm default.
func (InstitutionRow) TableName() string { return "institutions" }

// HistoricalDefaultRow is one row of a tenant dataset. Defaulted caches the
// parsed default flag; NULL means the row carried no usable flag.
type HistoricalDefaultRow struct {
	ID        uint              `gorm:"primaryKey"`
	TenantID  string            `gorm:"size:64;index:idx_historical_tenant_row,priority:1"`
	RowNum    int               `gorm:"column:row_num;index:idx_historical_tenant_row,priority:2"`
	Fields    map[string]string `gorm:"type:text;serializer:json"`
	Defaulted *bool
}

// TableName overrides the gorm default.
func (HistoricalDefaultRow) TableName() string { return "historical_defaults" }

// TenantRepoImpl implements the tenant ports using gorm.
type TenantRepoImpl struct {
	db      *gorm.DB
	metrics service.Metrics
	logger  logger.Logger
}

var (
	_ repository.TenantRepository = (*TenantRepoImpl)(nil)
	_ repository.TenantWriter     = (*TenantRepoImpl)(nil)
	_ repository.DatasetInspector = (*TenantRepoImpl)(nil)
)

// NewTenantRepository creates a gorm-backed tenant repository. metrics may be nil.
func NewTenantRepository(db *gorm.DB, metrics service.Metrics, log logger.Logger) *TenantRepoImpl {
	if metrics == nil {
		metrics = service.NoopMetrics{}
	}
	return &TenantRepoImpl{db: db, metrics: metrics, logger: log.WithComponent("tenant-db")}
}

func (r *TenantRepoImpl) observe(op string, start time.Time) {
	r.metrics.RecordDBQuery(op, time.Since(start))
}

func (r *TenantRepoImpl) findInstitution(ctx context.Context, tenantID string) (*InstitutionRow, error) {
	defer r.observe("find_institution", time.Now())

	var row InstitutionRow
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&row).Error
	if err != nil {
		if goerrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrConfigurationNotFound(tenantID)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Error(ctx, "Failed to load institution", err, logger.String("tenant_id", tenantID))
		return nil, errors.ErrDataUnavailable(tenantID, "configuration store unavailable").WithCause(err)
	}
	return &row, nil
}

// GetConfig returns the validated configuration of a tenant.
func (r *TenantRepoImpl) GetConfig(ctx context.Context, tenantID string) (*models.TenantConfig, error) {
	row, err := r.findInstitution(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	cfg := row.Config
	if err := cfg.Validate(); err != nil {
		r.logger.Warn(ctx, "Tenant configuration failed validation",
			logger.String("tenant_id", tenantID), logger.Err(err))
		return nil, errors.ErrDataUnavailable(tenantID, "tenant is misconfigured: "+err.Error()).WithCause(err)
	}
	return &cfg, nil
}

// GetHistoricalDefaults returns the confirmed default rows of a tenant in row order.
func (r *TenantRepoImpl) GetHistoricalDefaults(ctx context.Context, tenantID string) ([]models.HistoricalDefaultRecord, error) {
	if err := r.requireDataset(ctx, tenantID); err != nil {
		return nil, err
	}
	defer r.observe("historical_defaults", time.Now())

	var rows []HistoricalDefaultRow
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND (defaulted IS NULL OR defaulted = ?)", tenantID, true).
		Order("row_num").
		Find(&rows).Error
	if err != nil {
		return nil, r.datasetError(ctx, tenantID, err)
	}
	return toRecords(rows), nil
}

// InspectDataset returns every row of a tenant dataset and the union of its columns.
func (r *TenantRepoImpl) InspectDataset(ctx context.Context, tenantID string) ([]string, []models.HistoricalDefaultRecord, error) {
	if err := r.requireDataset(ctx, tenantID); err != nil {
		return nil, nil, err
	}
	defer r.observe("inspect_dataset", time.Now())

	var rows []HistoricalDefaultRow
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("row_num").Find(&rows).Error; err != nil {
		return nil, nil, r.datasetError(ctx, tenantID, err)
	}

	seen := make(map[string]bool)
	columns := []string{}
	for _, row := range rows {
		for k := range row.Fields {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)
	return columns, toRecords(rows), nil
}

func (r *TenantRepoImpl) requireDataset(ctx context.Context, tenantID string) error {
	row, err := r.findInstitution(ctx, tenantID)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return errors.ErrDataUnavailable(tenantID, "historical dataset not found")
		}
		return err
	}
	if !row.DatasetLoaded {
		return errors.ErrDataUnavailable(tenantID, "historical dataset not found")
	}
	return nil
}

func (r *TenantRepoImpl) datasetError(ctx context.Context, tenantID string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	r.logger.Error(ctx, "Failed to load historical dataset", err, logger.String("tenant_id", tenantID))
	return errors.ErrDataUnavailable(tenantID, "historical dataset unreadable").WithCause(err)
}

func toRecords(rows []HistoricalDefaultRow) []models.HistoricalDefaultRecord {
	out := make([]models.HistoricalDefaultRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.HistoricalDefaultRecord{Fields: row.Fields, Source: sourceName, Row: row.RowNum})
	}
	return out
}

// ListTenants returns every stored institution.
func (r *TenantRepoImpl) ListTenants(ctx context.Context) ([]models.TenantSummary, error) {
	defer r.observe("list_institutions", time.Now())

	var rows []InstitutionRow
	if err := r.db.WithContext(ctx).Order("tenant_id").Find(&rows).Error; err != nil {
		r.logger.Error(ctx, "Failed to list institutions", err)
		return nil, errors.ErrServerError("failed to list institutions").WithCause(err)
	}

	out := make([]models.TenantSummary, 0, len(rows))
	for _, row := range rows {
		status := constants.TenantStatus(row.Status)
		if row.Config.Validate() != nil {
			status = constants.TenantStatusMisconfigured
		} else if status == "" {
			status = constants.TenantStatusActive
		}
		out = append(out, models.TenantSummary{
			ID:      row.TenantID,
			Name:    row.Name,
			Country: row.Country,
			Status:  status,
			Source:  sourceName,
		})
	}
	return out, nil
}

// SaveConfig inserts or replaces a tenant configuration, keeping its dataset.
func (r *TenantRepoImpl) SaveConfig(ctx context.Context, tenantID string, cfg *models.TenantConfig) error {
	if err := cfg.Validate(); err != nil {
		return errors.ErrInvalidRequest(err.Error())
	}
	defer r.observe("save_institution", time.Now())

	row := InstitutionRow{
		TenantID: tenantID,
		Name:     cfg.Label(),
		Country:  cfg.InstitutionInfo.Country,
		Status:   string(cfg.InstitutionInfo.Status),
		Config:   *cfg,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "country", "status", "config", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to save institution", err, logger.String("tenant_id", tenantID))
		return errors.ErrServerError("failed to save configuration").WithCause(err)
	}

	r.logger.Info(ctx, "Tenant configuration saved", logger.String("tenant_id", tenantID))
	return nil
}

// ReplaceHistoricalDefaults replaces the dataset of an existing tenant atomically.
func (r *TenantRepoImpl) ReplaceHistoricalDefaults(ctx context.Context, tenantID string, records []models.HistoricalDefaultRecord) error {
	defer r.observe("replace_dataset", time.Now())

	rows := make([]HistoricalDefaultRow, 0, len(records))
	for i, rec := range records {
		row := HistoricalDefaultRow{TenantID: tenantID, RowNum: rec.Row, Fields: rec.Fields}
		if row.RowNum == 0 {
			row.RowNum = i + 1
		}
		if v, present, err := service.DefaultFlag(rec); present && err == nil {
			flag := v
			row.Defaulted = &flag
		}
		rows = append(rows, row)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&InstitutionRow{}).Where("tenant_id = ?", tenantID).Update("dataset_loaded", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.ErrConfigurationNotFound(tenantID)
		}
		if err := tx.Where("tenant_id = ?", tenantID).Delete(&HistoricalDefaultRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
	if err != nil {
		if _, ok := errors.AsAppError(err); ok {
			return err
		}
		r.logger.Error(ctx, "Failed to replace historical dataset", err, logger.String("tenant_id", tenantID))
		return errors.ErrServerError("failed to replace dataset").WithCause(err)
	}

	r.logger.Info(ctx, "Historical dataset replaced",
		logger.String("tenant_id", tenantID),
		logger.Int("rows", len(rows)),
	)
	return nil
}
