package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credicefi/crediface/internal/domain/models"
	"github.com/credicefi/crediface/internal/domain/service"
	"github.com/credicefi/crediface/pkg/logger"
)

type recordingWriter struct {
	configs map[string]*models.TenantConfig
	records map[string][]models.HistoricalDefaultRecord
}

func (w *recordingWriter) SaveConfig(_ context.Context, tenantID string, cfg *models.TenantConfig) error {
	w.configs[tenantID] = cfg
	return nil
}

func (w *recordingWriter) ReplaceHistoricalDefaults(_ context.Context, tenantID string, records []models.HistoricalDefaultRecord) error {
	w.records[tenantID] = records
	return nil
}

func TestDemoDataset(t *testing.T) {
	header, records, err := DemoDataset()
	require.NoError(t, err)
	assert.Equal(t, []string{"edad", "ingresos", "ciudad", "score_crediticio", "moroso"}, header)
	require.Len(t, records, 10)
	assert.Equal(t, "Medellín", records[1].Fields["ciudad"])
	assert.Equal(t, 10, records[9].Row)
}

func TestDemoConfigIsValid(t *testing.T) {
	cfg, err := DemoConfig()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
	assert.InDelta(t, 1.0, cfg.EffectiveWeights().Total(), 1e-9)
}

func TestSeeder_SeedAll(t *testing.T) {
	w := &recordingWriter{configs: map[string]*models.TenantConfig{}, records: map[string][]models.HistoricalDefaultRecord{}}
	s := NewSeeder(w, logger.NewNoopLogger())
	s.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }

	res, err := s.SeedAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DemoTenantID, res.TenantID)
	assert.Equal(t, 10, res.Records)
	assert.Equal(t, "2024-05-01T09:30:00", w.configs[DemoTenantID].InstitutionInfo.Created)
	assert.Len(t, w.records[DemoTenantID], 10)
}

func TestDemoTenant_ScoresReferenceApplicants(t *testing.T) {
	cfg, err := DemoConfig()
	require.NoError(t, err)
	_, rows, err := DemoDataset()
	require.NoError(t, err)

	var defaults []models.HistoricalDefaultRecord
	for _, rec := range rows {
		if service.IsConfirmedDefault(rec) {
			defaults = append(defaults, rec)
		}
	}
	require.Len(t, defaults, 3)

	score := func(p models.RawProfile) (float64, models.Decision) {
		applicant := service.Normalize(p, cfg.EffectiveBounds())
		res := service.ScanRecords(applicant, defaults, cfg.EffectiveBounds(), cfg.EffectiveWeights())
		require.Zero(t, res.Skipped)
		return res.Similarity, service.Classify(res.Similarity, cfg.RiskConfiguration, cfg.Label()).Decision
	}
	intPtr := func(v int) *int { return &v }
	floatPtr := func(v float64) *float64 { return &v }

	sim, decision := score(models.RawProfile{
		Age: 35, MonthlyIncome: 8_000_000, CreditScore: intPtr(780),
		DebtToIncomeRatio: floatPtr(0.2), LatePayments: intPtr(0), City: "Bogotá",
	})
	assert.Contains(t, []models.Decision{models.DecisionApprove, models.DecisionApproveWithConditions}, decision, "similarity %.1f", sim)
	assert.InDelta(t, 59.8, sim, 0.2)

	sim, decision = score(models.RawProfile{
		Age: 24, MonthlyIncome: 1_400_000, CreditScore: intPtr(540),
		DebtToIncomeRatio: floatPtr(0.8), LatePayments: intPtr(8),
	})
	assert.Contains(t, []models.Decision{models.DecisionManualReview, models.DecisionReject}, decision, "similarity %.1f", sim)
	assert.InDelta(t, 89.8, sim, 0.2)
}
