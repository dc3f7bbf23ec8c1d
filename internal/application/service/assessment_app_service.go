// Package service provides application-level services that orchestrate domain services and repositories
package service

import (
	"context"
	goerrors "errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/credicefi/crediface/internal/application/dto"
	"github.com/credicefi/crediface/internal/domain/models"
	"github.com/credicefi/crediface/internal/domain/repository"
	domainService "github.com/credicefi/crediface/internal/domain/service"
	"github.com/credicefi/crediface/pkg/constants"
	"github.com/credicefi/crediface/pkg/errors"
	"github.com/credicefi/crediface/pkg/logger"
	"github.com/credicefi/crediface/pkg/utils"
)

const tracerName = "github.com/credicefi/crediface/internal/application/service"

// AssessmentAppService defines the interface for the credit assessment use cases.
// AssessmentAppService 信用评估应用服务接口。
type AssessmentAppService interface {
	// Assess evaluates one applicant against the tenant's historical defaulters.
	// Assess 根据租户的历史违约者评估单个申请人。
	Assess(ctx context.Context, tenantID string, req *dto.AssessmentRequest) (*models.AssessmentRecord, error)

	// AssessBatch evaluates several applicants with bounded parallelism.
	// AssessBatch 以有限并发评估多个申请人。
	AssessBatch(ctx context.Context, tenantID string, req *dto.BatchAssessmentRequest) (*dto.BatchAssessmentResponse, error)

	// RecentAssessments returns the newest audit entries of a tenant.
	// RecentAssessments 返回租户最新的审计条目。
	RecentAssessments(ctx context.Context, tenantID string, limit int) (*dto.RecentAssessmentsResponse, error)

	// Performance aggregates the tenant's audit ring.
	// Performance 汇总租户的审计环。
	Performance(ctx context.Context, tenantID string) (*models.PerformanceSummary, error)
}

// AssessmentOptions tunes the orchestrator.
type AssessmentOptions struct {
	ResolveTimeout   time.Duration
	BatchConcurrency int
	MaxBatchSize     int
	RingSize         int
}

func (o AssessmentOptions) withDefaults() AssessmentOptions {
	if o.ResolveTimeout <= 0 {
		o.ResolveTimeout = constants.DefaultResolveTimeout
	}
	if o.BatchConcurrency <= 0 {
		o.BatchConcurrency = constants.DefaultBatchConcurrency
	}
	if o.MaxBatchSize <= 0 {
		o.MaxBatchSize = constants.DefaultMaxBatchSize
	}
	if o.RingSize <= 0 {
		o.RingSize = constants.AuditRingSize
	}
	return o
}

// assessmentAppServiceImpl is the concrete implementation of AssessmentAppService
type assessmentAppServiceImpl struct {
	tenantRepo repository.TenantRepository
	publisher  domainService.AuditPublisher
	reader     domainService.AuditReader
	metrics    domainService.Metrics
	opts       AssessmentOptions
	logger     logger.Logger
	perf       *logger.PerformanceLogger
	tracer     trace.Tracer
	normalize  func(models.RawProfile, models.NormalizationBounds) (models.NormalizedProfile, bool)
}

// NewAssessmentAppService creates a new instance of AssessmentAppService.
// A nil reader disables the audit read-back operations.
func NewAssessmentAppService(
	tenantRepo repository.TenantRepository,
	publisher domainService.AuditPublisher,
	reader domainService.AuditReader,
	metrics domainService.Metrics,
	opts AssessmentOptions,
	log logger.Logger,
) AssessmentAppService {
	if metrics == nil {
		metrics = domainService.NoopMetrics{}
	}
	return &assessmentAppServiceImpl{
		tenantRepo: tenantRepo,
		publisher:  publisher,
		reader:     reader,
		metrics:    metrics,
		opts:       opts.withDefaults(),
		logger:     log.WithComponent("assessment"),
		perf:       logger.NewPerformanceLogger(log, 500*time.Millisecond),
		tracer:     otel.Tracer(tracerName),
		normalize:  domainService.SafeNormalize,
	}
}

// Assess implements the single assessment pipeline:
// resolve, normalize, scan, classify, record, audit.
func (s *assessmentAppServiceImpl) Assess(ctx context.Context, tenantID string, req *dto.AssessmentRequest) (*models.AssessmentRecord, error) {
	ctx, span := s.tracer.Start(ctx, "AssessmentAppService.Assess",
		trace.WithAttributes(attribute.String("tenant_id", tenantID)))
	defer span.End()

	start := time.Now()

	if err := s.validate(tenantID, req); err != nil {
		s.fail(ctx, span, tenantID, err)
		return nil, err
	}

	cfg, records, err := s.resolve(ctx, tenantID)
	if err != nil {
		s.fail(ctx, span, tenantID, err)
		return nil, err
	}

	record := s.evaluate(ctx, tenantID, cfg, records, req, start)
	span.SetAttributes(
		attribute.String("request_id", record.RequestID),
		attribute.String("decision", string(record.RiskAssessment.Decision)),
		attribute.Float64("similarity", record.SimilarityScore),
	)
	return record, nil
}

// AssessBatch resolves the tenant once and assesses every application in parallel.
// Invalid applications fail individually; only tenant resolution fails the batch.
func (s *assessmentAppServiceImpl) AssessBatch(ctx context.Context, tenantID string, req *dto.BatchAssessmentRequest) (*dto.BatchAssessmentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "AssessmentAppService.AssessBatch",
		trace.WithAttributes(attribute.String("tenant_id", tenantID)))
	defer span.End()

	if err := utils.ValidateTenantID(tenantID); err != nil {
		s.fail(ctx, span, tenantID, err)
		return nil, err
	}
	if req == nil || len(req.Applications) == 0 {
		err := errors.ErrMissingRequiredParameter("applications")
		s.fail(ctx, span, tenantID, err)
		return nil, err
	}
	if len(req.Applications) > s.opts.MaxBatchSize {
		err := errors.ErrInvalidRequest(fmt.Sprintf("batch of %d exceeds the maximum of %d applications",
			len(req.Applications), s.opts.MaxBatchSize))
		s.fail(ctx, span, tenantID, err)
		return nil, err
	}

	cfg, records, err := s.resolve(ctx, tenantID)
	if err != nil {
		s.fail(ctx, span, tenantID, err)
		return nil, err
	}

	results := make([]dto.BatchItemResult, len(req.Applications))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.BatchConcurrency)
	for i := range req.Applications {
		i, item := i, req.Applications[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			if err := utils.ValidateStruct(&item); err != nil {
				_, body := dto.ErrorResponse(err, "")
				results[i] = dto.BatchItemResult{Index: i, Error: body.Error}
				return nil
			}
			results[i] = dto.BatchItemResult{
				Index:  i,
				Record: s.evaluate(gctx, tenantID, cfg, records, &item, start),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.fail(ctx, span, tenantID, err)
		return nil, errors.ErrServerError("batch assessment interrupted").WithCause(err)
	}

	resp := &dto.BatchAssessmentResponse{TenantID: tenantID, Total: len(results), Results: results}
	for _, r := range results {
		if r.Error != nil {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}
	s.logger.Info(ctx, "Batch assessment completed",
		logger.String("tenant_id", tenantID),
		logger.Int("total", resp.Total),
		logger.Int("failed", resp.Failed),
	)
	return resp, nil
}

// RecentAssessments implements the audit read-back.
func (s *assessmentAppServiceImpl) RecentAssessments(ctx context.Context, tenantID string, limit int) (*dto.RecentAssessmentsResponse, error) {
	if err := s.checkTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = constants.DefaultRecentLimit
	}
	if limit > s.opts.RingSize {
		limit = s.opts.RingSize
	}

	entries, err := s.recent(ctx, tenantID, limit)
	if err != nil {
		return nil, err
	}
	return &dto.RecentAssessmentsResponse{TenantID: tenantID, Count: len(entries), Assessments: entries}, nil
}

// Performance implements the audit aggregation.
func (s *assessmentAppServiceImpl) Performance(ctx context.Context, tenantID string) (*models.PerformanceSummary, error) {
	if err := s.checkTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	entries, err := s.recent(ctx, tenantID, s.opts.RingSize)
	if err != nil {
		return nil, err
	}
	return models.Summarize(tenantID, entries), nil
}

func (s *assessmentAppServiceImpl) validate(tenantID string, req *dto.AssessmentRequest) error {
	if err := utils.ValidateTenantID(tenantID); err != nil {
		return err
	}
	if req == nil {
		return errors.ErrInvalidRequest("request body is required")
	}
	return utils.ValidateStruct(req)
}

// resolve loads the configuration and the dataset within the resolve timeout.
// The configuration is loaded first so an unknown tenant never touches the dataset.
func (s *assessmentAppServiceImpl) resolve(ctx context.Context, tenantID string) (*models.TenantConfig, []models.HistoricalDefaultRecord, error) {
	done := s.perf.StartOperation(ctx, "resolve_tenant")
	defer done(logger.String("tenant_id", tenantID))

	rctx, cancel := context.WithTimeout(ctx, s.opts.ResolveTimeout)
	defer cancel()

	cfg, err := s.tenantRepo.GetConfig(rctx, tenantID)
	if err != nil {
		return nil, nil, s.resolveError(rctx, tenantID, err)
	}
	if !cfg.IsActive() {
		return nil, nil, errors.ErrDataUnavailable(tenantID,
			fmt.Sprintf("institution status is %s", cfg.InstitutionInfo.Status))
	}

	records, err := s.tenantRepo.GetHistoricalDefaults(rctx, tenantID)
	if err != nil {
		return nil, nil, s.resolveError(rctx, tenantID, err)
	}
	return cfg, records, nil
}

// checkTenant confirms that the tenant exists.
func (s *assessmentAppServiceImpl) checkTenant(ctx context.Context, tenantID string) error {
	if err := utils.ValidateTenantID(tenantID); err != nil {
		return err
	}
	rctx, cancel := context.WithTimeout(ctx, s.opts.ResolveTimeout)
	defer cancel()
	if _, err := s.tenantRepo.GetConfig(rctx, tenantID); err != nil {
		return s.resolveError(rctx, tenantID, err)
	}
	return nil
}

func (s *assessmentAppServiceImpl) resolveError(ctx context.Context, tenantID string, err error) error {
	if _, ok := errors.AsAppError(err); ok {
		return err
	}
	if goerrors.Is(err, context.DeadlineExceeded) || goerrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.ErrDataUnavailable(tenantID, "tenant resolution timed out").WithCause(err)
	}
	return errors.ErrDataUnavailable(tenantID, "tenant resolution failed").WithCause(err)
}

func (s *assessmentAppServiceImpl) recent(ctx context.Context, tenantID string, limit int) ([]*models.AuditEntry, error) {
	if s.reader == nil {
		return []*models.AuditEntry{}, nil
	}
	entries, err := s.reader.Recent(ctx, tenantID, limit)
	if err != nil {
		s.logger.Error(ctx, "Failed to read audit ring", err, logger.String("tenant_id", tenantID))
		return nil, errors.ErrServerError("audit trail unavailable").WithCause(err)
	}
	return entries, nil
}

// evaluate runs the pure pipeline for one applicant and hands the result to the
// audit trail. It never fails: computation faults degrade to the fallback profile.
func (s *assessmentAppServiceImpl) evaluate(
	ctx context.Context,
	tenantID string,
	cfg *models.TenantConfig,
	records []models.HistoricalDefaultRecord,
	req *dto.AssessmentRequest,
	start time.Time,
) *models.AssessmentRecord {
	applicant := req.ToRawProfile()
	res := s.scan(ctx, tenantID, applicant, cfg, records)

	similarity := models.Round1(res.Similarity)
	assessment := domainService.Classify(similarity, cfg.RiskConfiguration, cfg.Label())

	elapsed := time.Since(start)
	record := &models.AssessmentRecord{
		RequestID:        uuid.NewString(),
		TenantID:         tenantID,
		SimilarityScore:  similarity,
		RiskAssessment:   assessment,
		ProcessingTimeMs: math.Round(float64(elapsed.Microseconds())/10) / 100,
		Timestamp:        time.Now().UTC(),
		Applicant:        applicant,
		Loan:             req.Loan(),
		RecordsScanned:   res.Scanned,
		RecordsSkipped:   res.Skipped,
	}

	s.metrics.RecordAssessment(tenantID, string(assessment.Decision), similarity, elapsed)
	if res.Skipped > 0 {
		s.metrics.RecordRecordsSkipped(tenantID, res.Skipped)
		s.logger.Debug(ctx, "Historical records skipped",
			logger.String("tenant_id", tenantID),
			logger.Int("skipped", res.Skipped),
		)
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, models.NewAuditEntry(record))
	}

	s.logger.Info(ctx, "Assessment completed",
		logger.String("tenant_id", tenantID),
		logger.String("request_id", record.RequestID),
		logger.Float64("similarity", similarity),
		logger.String("decision", string(assessment.Decision)),
		logger.Int("records_scanned", res.Scanned),
		logger.Float64("processing_time_ms", record.ProcessingTimeMs),
	)
	return record
}

// scan normalizes the applicant and scans the dataset. A panic or a non-finite value
// re-runs the scan with the fallback profile so a similarity is always produced.
func (s *assessmentAppServiceImpl) scan(
	ctx context.Context,
	tenantID string,
	applicant models.RawProfile,
	cfg *models.TenantConfig,
	records []models.HistoricalDefaultRecord,
) domainService.ScanResult {
	bounds := cfg.EffectiveBounds()
	weights := cfg.EffectiveWeights()

	res, err := s.safeScan(applicant, records, bounds, weights)
	if err == nil {
		return res
	}

	s.logger.Warn(ctx, "Computation failed, falling back to the safe profile",
		logger.String("tenant_id", tenantID),
		logger.Err(err),
	)
	res, err = s.safeScan(models.FallbackProfile(), records, bounds, weights)
	if err != nil {
		s.logger.Error(ctx, "Fallback computation failed", err, logger.String("tenant_id", tenantID))
		return domainService.ScanResult{NearestIndex: -1, Skipped: len(records)}
	}
	return res
}

func (s *assessmentAppServiceImpl) safeScan(
	applicant models.RawProfile,
	records []models.HistoricalDefaultRecord,
	bounds models.NormalizationBounds,
	weights models.FeatureWeights,
) (res domainService.ScanResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.ErrComputation("scan", r)
		}
	}()

	norm, ok := s.normalize(applicant, bounds)
	if !ok {
		return res, errors.ErrComputation("normalize", "non-finite applicant feature")
	}
	res = domainService.ScanRecords(norm, records, bounds, weights)
	if math.IsNaN(res.Similarity) {
		return res, errors.ErrComputation("score", "similarity is not a number")
	}
	return res, nil
}

// fail records a user-visible failure on the span, the log and the metrics.
func (s *assessmentAppServiceImpl) fail(ctx context.Context, span trace.Span, tenantID string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	code := string(constants.ErrCodeServerError)
	if appErr, ok := errors.AsAppError(err); ok {
		code = string(appErr.Code())
	}
	s.metrics.RecordAssessmentError(tenantID, code)

	if errors.ShouldLogError(err) {
		s.logger.Error(ctx, "Assessment failed", err, logger.String("tenant_id", tenantID), logger.String("code", code))
	} else {
		s.logger.Warn(ctx, "Assessment rejected", logger.String("tenant_id", tenantID), logger.String("code", code))
	}
}
