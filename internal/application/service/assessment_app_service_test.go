package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/credicefi/crediface/internal/application/dto"
	"github.com/credicefi/crediface/internal/domain/models"
	domainService "github.com/credicefi/crediface/internal/domain/service"
	"github.com/credicefi/crediface/internal/domain/service/mocks"
	"github.com/credicefi/crediface/pkg/constants"
	"github.com/credicefi/crediface/pkg/errors"
	"github.com/credicefi/crediface/pkg/logger"
)

const tenant = "banco_demo"

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func demoConfig() *models.TenantConfig {
	return &models.TenantConfig{
		InstitutionInfo:   models.InstitutionInfo{ID: "banco_demo_001", Name: "Banco Demo Colombia", Status: constants.TenantStatusActive},
		RiskConfiguration: models.DefaultRiskThresholds(),
		FeatureWeights:    models.DefaultFeatureWeights(),
	}
}

func demoDefaulters() []models.HistoricalDefaultRecord {
	return []models.HistoricalDefaultRecord{
		{Row: 1, Fields: map[string]string{"age": "22", "monthly_income": "1000000", "credit_score": "450", "debt_to_income_ratio": "0.9", "late_payments": "15"}},
		{Row: 2, Fields: map[string]string{"age": "25", "monthly_income": "1500000", "credit_score": "530", "debt_to_income_ratio": "0.85", "late_payments": "9"}},
		{Row: 3, Fields: map[string]string{"age": "30", "monthly_income": "1200000", "credit_score": "500", "debt_to_income_ratio": "0.75", "late_payments": "12"}},
		{Row: 4, Fields: map[string]string{"edad": "23", "ingresos": "1200000", "score_crediticio": "460", "moroso": "1"}},
	}
}

func lowRiskRequest() *dto.AssessmentRequest {
	return &dto.AssessmentRequest{
		Age: 35, MonthlyIncome: 8_000_000, CreditScore: intPtr(780),
		DebtToIncomeRatio: floatPtr(0.2), LatePayments: intPtr(0), City: "Bogotá",
		LoanAmount: 20_000_000, LoanTermMonths: 36, LoanPurpose: "vehicle",
	}
}

func highRiskRequest() *dto.AssessmentRequest {
	return &dto.AssessmentRequest{
		Age: 24, MonthlyIncome: 1_400_000, CreditScore: intPtr(540),
		DebtToIncomeRatio: floatPtr(0.8), LatePayments: intPtr(8),
		LoanAmount: 5_000_000, LoanTermMonths: 12,
	}
}

func newTestService(repo *mocks.MockTenantRepository, pub *mocks.MockAuditPublisher, reader *mocks.MockAuditReader) AssessmentAppService {
	var r domainService.AuditReader
	if reader != nil {
		r = reader
	}
	return NewAssessmentAppService(repo, pub, r, nil,
		AssessmentOptions{ResolveTimeout: 200 * time.Millisecond, BatchConcurrency: 2, MaxBatchSize: 3},
		logger.NewNoopLogger())
}

func TestAssess_LowRiskApplicantIsApproved(t *testing.T) {
	repo := new(mocks.MockTenantRepository)
	pub := new(mocks.MockAuditPublisher)
	repo.On("GetConfig", mock.Anything, tenant).Return(demoConfig(), nil)
	repo.On("GetHistoricalDefaults", mock.Anything, tenant).Return(demoDefaulters(), nil)
	pub.On("Publish", mock.Anything, mock.AnythingOfType("*models.AuditEntry")).Return()

	svc := newTestService(repo, pub, nil)
	rec, err := svc.Assess(context.Background(), tenant, lowRiskRequest())
	require.NoError(t, err)

	assert.Contains(t,
		[]models.Decision{models.DecisionApprove, models.DecisionApproveWithConditions},
		rec.RiskAssessment.Decision)
	assert.InDelta(t, 58.2, rec.SimilarityScore, 0.2)
	assert.Equal(t, 4, rec.RecordsScanned)
	assert.Zero(t, rec.RecordsSkipped)
	assert.Equal(t, tenant, rec.TenantID)
	assert.Len(t, rec.RequestID, 36)
	assert.Equal(t, 20_000_000.0, rec.Loan.Amount)
	assert.Contains(t, rec.RiskAssessment.Explanation, "Banco Demo Colombia")

	pub.AssertNumberOfCalls(t, "Publish", 1)
	entry := pub.Calls[0].Arguments.Get(1).(*models.AuditEntry)
	assert.Equal(t, rec.RequestID, entry.RequestID)
	assert.Equal(t, rec.RiskAssessment.Decision, entry.Decision)
	assert.Equal(t, 36, entry.LoanTermMonths)
}

func TestAssess_HighRiskApplicantIsRejected(t *testing.T) {
	repo := new(mocks.MockTenantRepository)
	pub := new(mocks.MockAuditPublisher)
	repo.On("GetConfig", mock.Anything, tenant).Return(demoConfig(), nil)
	repo.On("GetHistoricalDefaults", mock.Anything, tenant).Return(demoDefaulters(), nil)
	pub.On("Publish", mock.Anything, mock.Anything).Return()

	rec, err := newTestService(repo, pub, nil).Assess(context.Background(), tenant, highRiskRequest())
	require.NoError(t, err)

	assert.Contains(t, []models.Decision{models.DecisionManualReview, models.DecisionReject}, rec.RiskAssessment.Decision)
	assert.Equal(t, models.DecisionReject, rec.RiskAssessment.Decision)
	assert.Equal(t, models.PriorityImmediate, rec.RiskAssessment.Priority)
	assert.InDelta(t, 97.0, rec.SimilarityScore, 0.2)
}

func TestAssess_Idempotent(t *testing.T) {
	repo := new(mocks.MockTenantRepository)
	pub := new(mocks.MockAuditPublisher)
	repo.On("GetConfig", mock.Anything, tenant).Return(demoConfig(), nil)
	repo.On("GetHistoricalDefaults", mock.Anything, tenant).Return(demoDefaulters(), nil)
	pub.On("Publish", mock.Anything, mock.Anything).Return()
	svc := newTestService(repo, pub, nil)

	first, err := svc.Assess(context.Background(), tenant, lowRiskRequest())
	require.NoError(t, err)
	second, err := svc.Assess(context.Background(), tenant, lowRiskRequest())
	require.NoError(t, err)

	assert.Equal(t, first.SimilarityScore, second.SimilarityScore)
	assert.Equal(t, first.RiskAssessment, second.RiskAssessment)
	assert.NotEqual(t, first.RequestID, second.RequestID)
}

func TestAssess_EmptyDatasetApproves(t *testing.T) {
	repo := new(mocks.MockTenantRepository)
	pub := new(mocks.MockAuditPublisher)
	repo.On("GetConfig", mock.Anything, tenant).Return(demoConfig(), nil)
	repo.On("GetHistoricalDefaults", mock.Anything, tenant).Return([]models.HistoricalDefaultRecord{}, nil)
	pub.On("Publish", mock.Anything, mock.Anything).Return()

	rec, err := newTestService(repo, pub, nil).Assess(context.Background(), tenant, lowRiskRequest())
	require.NoError(t, err)
	assert.Equal(t, 0.0, rec.SimilarityScore)
	assert.Equal(t, models.DecisionApprove, rec.RiskAssessment.Decision)
}

func TestAssess_SkipsUnconvertibleRecords(t *testing.T) {
	repo := new(mocks.MockTenantRepository)
	pub := new(mocks.MockAuditPublisher)
	records := append(demoDefaulters(), models.HistoricalDefaultRecord{Row: 9, Fields: map[string]string{"edad": "n/a"}})
	repo.On("GetConfig", mock.Anything, tenant).Return(demoConfig(), nil)
	repo.On("GetHistoricalDefaults", mock.Anything, tenant).Return(records, nil)
	pub.On("Publish", mock.Anything, mock.Anything).Return()

	rec, err := newTestService(repo, pub, nil).Assess(context.Background(), tenant, lowRiskRequest())
	require.NoError(t, err)
	assert.Equal(t, 4, rec.RecordsScanned)
	assert.Equal(t, 1, rec.RecordsSkipped)
}

func TestAssess_UnknownTenantAbortsBeforeDataset(t *testing.T) {
	repo := new(mocks.MockTenantRepository)
	pub := new(mocks.MockAuditPublisher)
	repo.On("GetConfig", mock.Anything, "ghost").Return(nil, errors.ErrConfigurationNotFound("ghost"))

	_, err := newTestService(repo, pub, nil).Assess(context.Background(), "ghost", lowRiskRequest())
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
	repo.AssertNotCalled(t, "GetHistoricalDefaults", mock.Anything, mock.Anything)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestAssess_MissingDatasetIsDataUnavailable(t *testing.T) {
	repo := new(mocks.MockTenantRepository)
	repo.On("GetConfig", mock.Anything, tenant).Return(demoConfig(), nil)
	repo.On("GetHistoricalDefaults", mock.Anything, tenant).Return(nil, errors.ErrDataUnavailable(tenant, "dataset missing"))

	_, err := newTestService(repo, new(mocks.MockAuditPublisher), nil).Assess(context.Background(), tenant, lowRiskRequest())
	assert.True(t, errors.IsDataUnavailable(err))
}

func TestAssess_SuspendedTenantIsDataUnavailable(t *testing.T) {
	repo := new(mocks.MockTenantRepository)
	cfg := demoConfig()
	cfg.InstitutionInfo.Status = constants.TenantStatusSuspended
	repo.On("GetConfig", mock.Anything, tenant).Return(cfg, nil)

	_, err := newTestService(repo, new(mocks.MockAuditPublisher), nil).Assess(context.Background(), tenant, lowRiskRequest())
	assert.True(t, errors.IsDataUnavailable(err))
}

func TestAssess_ResolverTimeoutIsDataUnavailable(t *testing.T) {
	repo := new(mocks.MockTenantRepository)
	repo.On("GetConfig", mock.Anything, tenant).Return(demoConfig(), nil)
	repo.On("GetHistoricalDefaults", mock.Anything, tenant).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	start := time.Now()
	_, err := newTestService(repo, new(mocks.MockAuditPublisher), nil).Assess(context.Background(), tenant, lowRiskRequest())
	assert.True(t, errors.IsDataUnavailable(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestAssess_InvalidRequests(t *testing.T) {
	tests := []struct {
		name     string
		tenantID string
		req      *dto.AssessmentRequest
	}{
		{"nil request", tenant, nil},
		{"bad tenant id", "../etc", lowRiskRequest()},
		{"underage", tenant, &dto.AssessmentRequest{Age: 16, MonthlyIncome: 1_000_000}},
		{"no income", tenant, &dto.AssessmentRequest{Age: 30}},
		{"score out of range", tenant, &dto.AssessmentRequest{Age: 30, MonthlyIncome: 1, CreditScore: intPtr(900)}},
		{"ratio above one", tenant, &dto.AssessmentRequest{Age: 30, MonthlyIncome: 1, DebtToIncomeRatio: floatPtr(1.5)}},
		{"negative late payments", tenant, &dto.AssessmentRequest{Age: 30, MonthlyIncome: 1, LatePayments: intPtr(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockTenantRepository)
			_, err := newTestService(repo, new(mocks.MockAuditPublisher), nil).Assess(context.Background(), tt.tenantID, tt.req)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, constants.ErrCodeInvalidRequest))
			repo.AssertNotCalled(t, "GetConfig", mock.Anything, mock.Anything)
		})
	}
}

func TestAssessBatch(t *testing.T) {
	repo := new(mocks.MockTenantRepository)
	pub := new(mocks.MockAuditPublisher)
	repo.On("GetConfig", mock.Anything, tenant).Return(demoConfig(), nil).Once()
	repo.On("GetHistoricalDefaults", mock.Anything, tenant).Return(demoDefaulters(), nil).Once()
	pub.On("Publish", mock.Anything, mock.Anything).Return()

	req := &dto.BatchAssessmentRequest{Applications: []dto.AssessmentRequest{
		*lowRiskRequest(),
		{Age: 10, MonthlyIncome: 1},
		*highRiskRequest(),
	}}

	resp, err := newTestService(repo, pub, nil).AssessBatch(context.Background(), tenant, req)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)

	require.NotNil(t, resp.Results[0].Record)
	assert.Equal(t, models.DecisionApproveWithConditions, resp.Results[0].Record.RiskAssessment.Decision)
	require.NotNil(t, resp.Results[1].Error)
	assert.Equal(t, string(constants.ErrCodeInvalidRequest), resp.Results[1].Error.Code)
	assert.Equal(t, models.DecisionReject, resp.Results[2].Record.RiskAssessment.Decision)
	pub.AssertNumberOfCalls(t, "Publish", 2)
	repo.AssertExpectations(t)
}

func TestAssessBatch_Limits(t *testing.T) {
	svc := newTestService(new(mocks.MockTenantRepository), new(mocks.MockAuditPublisher), nil)

	_, err := svc.AssessBatch(context.Background(), tenant, &dto.BatchAssessmentRequest{})
	assert.True(t, errors.HasCode(err, constants.ErrCodeInvalidRequest))

	big := &dto.BatchAssessmentRequest{Applications: make([]dto.AssessmentRequest, 4)}
	_, err = svc.AssessBatch(context.Background(), tenant, big)
	assert.True(t, errors.HasCode(err, constants.ErrCodeInvalidRequest))
}

func TestRecentAssessmentsAndPerformance(t *testing.T) {
	repo := new(mocks.MockTenantRepository)
	reader := new(mocks.MockAuditReader)
	repo.On("GetConfig", mock.Anything, tenant).Return(demoConfig(), nil)

	now := time.Now().UTC()
	entries := []*models.AuditEntry{
		{TenantID: tenant, Decision: models.DecisionReject, SimilarityScore: 97, ProcessingTimeMs: 1, Timestamp: now},
		{TenantID: tenant, Decision: models.DecisionApprove, SimilarityScore: 21, ProcessingTimeMs: 3, Timestamp: now.Add(-time.Second)},
	}
	reader.On("Recent", mock.Anything, tenant, constants.DefaultRecentLimit).Return(entries, nil)
	reader.On("Recent", mock.Anything, tenant, constants.AuditRingSize).Return(entries, nil)

	svc := newTestService(repo, new(mocks.MockAuditPublisher), reader)

	recent, err := svc.RecentAssessments(context.Background(), tenant, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, recent.Count)

	perf, err := svc.Performance(context.Background(), tenant)
	require.NoError(t, err)
	assert.Equal(t, 2, perf.TotalAssessments)
	assert.Equal(t, 1, perf.DecisionCounts[models.DecisionReject])
	assert.InDelta(t, 59.0, perf.AverageSimilarity, 1e-9)
	assert.InDelta(t, 50.0, perf.ApprovalRate, 1e-9)
}

func TestRecentAssessments_UnknownTenant(t *testing.T) {
	repo := new(mocks.MockTenantRepository)
	repo.On("GetConfig", mock.Anything, "ghost").Return(nil, errors.ErrConfigurationNotFound("ghost"))

	_, err := newTestService(repo, new(mocks.MockAuditPublisher), new(mocks.MockAuditReader)).
		RecentAssessments(context.Background(), "ghost", 10)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestAssess_ConcurrentUse(t *testing.T) {
	repo := new(mocks.MockTenantRepository)
	pub := new(mocks.MockAuditPublisher)
	repo.On("GetConfig", mock.Anything, tenant).Return(demoConfig(), nil)
	repo.On("GetHistoricalDefaults", mock.Anything, tenant).Return(demoDefaulters(), nil)
	pub.On("Publish", mock.Anything, mock.Anything).Return()
	svc := newTestService(repo, pub, nil)

	var wg sync.WaitGroup
	decisions := make([]models.Decision, 16)
	for i := range decisions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := svc.Assess(context.Background(), tenant, highRiskRequest())
			if err == nil {
				decisions[i] = rec.RiskAssessment.Decision
			}
		}(i)
	}
	wg.Wait()
	for _, d := range decisions {
		assert.Equal(t, models.DecisionReject, d)
	}
}

func TestAssess_NormalizationFailureFallsBackToSafeProfile(t *testing.T) {
	repo := new(mocks.MockTenantRepository)
	pub := new(mocks.MockAuditPublisher)
	repo.On("GetConfig", mock.Anything, tenant).Return(demoConfig(), nil)
	repo.On("GetHistoricalDefaults", mock.Anything, tenant).Return(demoDefaulters(), nil)
	pub.On("Publish", mock.Anything, mock.Anything).Return()

	svc := newTestService(repo, pub, nil).(*assessmentAppServiceImpl)
	var seen []models.RawProfile
	svc.normalize = func(p models.RawProfile, b models.NormalizationBounds) (models.NormalizedProfile, bool) {
		seen = append(seen, p)
		if len(seen) == 1 {
			return nil, false
		}
		return domainService.SafeNormalize(p, b)
	}

	rec, err := svc.Assess(context.Background(), tenant, lowRiskRequest())
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, models.FallbackProfile(), seen[1])

	cfg := demoConfig()
	fallback, ok := domainService.SafeNormalize(models.FallbackProfile(), cfg.EffectiveBounds())
	require.True(t, ok)
	want := domainService.ScanRecords(fallback, demoDefaulters(), cfg.EffectiveBounds(), cfg.EffectiveWeights())
	assert.Equal(t, models.Round1(want.Similarity), rec.SimilarityScore)
	assert.Equal(t, 4, rec.RecordsScanned)
	assert.Equal(t, 35, rec.Applicant.Age, "the record keeps the submitted applicant")
	pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestAssess_PanickingNormalizationFallsBack(t *testing.T) {
	repo := new(mocks.MockTenantRepository)
	pub := new(mocks.MockAuditPublisher)
	repo.On("GetConfig", mock.Anything, tenant).Return(demoConfig(), nil)
	repo.On("GetHistoricalDefaults", mock.Anything, tenant).Return(demoDefaulters(), nil)
	pub.On("Publish", mock.Anything, mock.Anything).Return()

	svc := newTestService(repo, pub, nil).(*assessmentAppServiceImpl)
	calls := 0
	svc.normalize = func(p models.RawProfile, b models.NormalizationBounds) (models.NormalizedProfile, bool) {
		calls++
		if calls == 1 {
			panic("corrupt bounds")
		}
		return domainService.SafeNormalize(p, b)
	}

	rec, err := svc.Assess(context.Background(), tenant, highRiskRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 4, rec.RecordsScanned)
	assert.NotEmpty(t, rec.RiskAssessment.Decision)
}

func TestAssess_FallbackFailureSkipsEveryRecord(t *testing.T) {
	repo := new(mocks.MockTenantRepository)
	pub := new(mocks.MockAuditPublisher)
	repo.On("GetConfig", mock.Anything, tenant).Return(demoConfig(), nil)
	repo.On("GetHistoricalDefaults", mock.Anything, tenant).Return(demoDefaulters(), nil)
	pub.On("Publish", mock.Anything, mock.Anything).Return()

	svc := newTestService(repo, pub, nil).(*assessmentAppServiceImpl)
	svc.normalize = func(models.RawProfile, models.NormalizationBounds) (models.NormalizedProfile, bool) {
		return nil, false
	}

	rec, err := svc.Assess(context.Background(), tenant, lowRiskRequest())
	require.NoError(t, err)
	assert.Zero(t, rec.SimilarityScore)
	assert.Zero(t, rec.RecordsScanned)
	assert.Equal(t, 4, rec.RecordsSkipped)
	assert.Equal(t, models.DecisionApprove, rec.RiskAssessment.Decision)
	pub.AssertNumberOfCalls(t, "Publish", 1)
}
