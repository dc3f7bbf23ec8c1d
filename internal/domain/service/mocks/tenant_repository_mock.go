package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/credicefi/crediface/internal/domain/models"
)

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) GetConfig(ctx context.Context, tenantID string) (*models.TenantConfig, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TenantConfig), args.Error(1)
}

func (m *MockTenantRepository) GetHistoricalDefaults(ctx context.Context, tenantID string) ([]models.HistoricalDefaultRecord, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.HistoricalDefaultRecord), args.Error(1)
}

func (m *MockTenantRepository) ListTenants(ctx context.Context) ([]models.TenantSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TenantSummary), args.Error(1)
}

func (m *MockTenantRepository) InspectDataset(ctx context.Context, tenantID string) ([]string, []models.HistoricalDefaultRecord, error) {
	args := m.Called(ctx, tenantID)
	var cols []string
	if args.Get(0) != nil {
		cols = args.Get(0).([]string)
	}
	var rows []models.HistoricalDefaultRecord
	if args.Get(1) != nil {
		rows = args.Get(1).([]models.HistoricalDefaultRecord)
	}
	return cols, rows, args.Error(2)
}
