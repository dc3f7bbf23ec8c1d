package grpc

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/credicefi/crediface/internal/application/dto"
	appservice "github.com/credicefi/crediface/internal/application/service"
	"github.com/credicefi/crediface/internal/domain/service"
	"github.com/credicefi/crediface/internal/infrastructure/audit"
	"github.com/credicefi/crediface/internal/infrastructure/persistence/filestore"
	"github.com/credicefi/crediface/internal/infrastructure/persistence/seed"
	"github.com/credicefi/crediface/internal/infrastructure/ratelimit"
	"github.com/credicefi/crediface/pkg/constants"
	"github.com/credicefi/crediface/pkg/logger"
)

const bufSize = 1024 * 1024

func intPtr(v int) *int { return &v }

// startServer runs the gRPC server on an in-memory listener and returns a client.
func startServer(t *testing.T, limiter TenantLimiter) (*RiskServiceClient, *grpc.ClientConn) {
	t.Helper()
	log := logger.NewNoopLogger()

	root := t.TempDir()
	repo := filestore.NewTenantRepo(filepath.Join(root, "config", "institutions"), filepath.Join(root, "data"), log)
	_, err := seed.NewSeeder(repo, log).SeedAll(context.Background())
	require.NoError(t, err)

	dispatcher := audit.NewDispatcher([]service.AuditSink{audit.NewMemoryRing(constants.AuditRingSize)}, nil, audit.Options{}, nil, log)
	t.Cleanup(func() { _ = dispatcher.Close(context.Background()) })

	svc := NewRiskGRPCService(
		appservice.NewAssessmentAppService(repo, dispatcher, dispatcher, nil, appservice.AssessmentOptions{}, log),
		appservice.NewTenantAppService(repo, repo, log),
		log,
	)
	server := NewServer(svc, NewInterceptorChain(log, limiter, nil), log)

	lis := bufconn.Listen(bufSize)
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Stop(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewRiskServiceClient(conn), conn
}

func applicant() *dto.AssessmentRequest {
	return &dto.AssessmentRequest{
		TenantID:      seed.DemoTenantID,
		Age:           40,
		MonthlyIncome: 5_000_000,
		CreditScore:   intPtr(720),
		City:          "Medellín",
		LoanAmount:    8_000_000,
	}
}

func TestRiskService_Assess(t *testing.T) {
	client, _ := startServer(t, nil)
	ctx := context.Background()

	var header metadata.MD
	rec, err := client.Assess(ctx, applicant(), grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, seed.DemoTenantID, rec.TenantID)
	assert.Equal(t, 3, rec.RecordsScanned)
	assert.Equal(t, "Medellín", rec.Applicant.City)
	assert.NotEmpty(t, rec.RiskAssessment.Decision)
	assert.NotEmpty(t, header.Get("x-request-id"))

	require.Eventually(t, func() bool {
		recent, err := client.GetRecentAssessments(ctx, &RecentRequest{TenantID: seed.DemoTenantID})
		return err == nil && recent.Count == 1 && recent.Assessments[0].RequestID == rec.RequestID
	}, 2*time.Second, 10*time.Millisecond)

	perf, err := client.GetPerformance(ctx, &TenantRequest{TenantID: seed.DemoTenantID})
	require.NoError(t, err)
	assert.Equal(t, 1, perf.TotalAssessments)
}

func TestRiskService_Errors(t *testing.T) {
	client, _ := startServer(t, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		mutate   func(*dto.AssessmentRequest)
		wantCode codes.Code
		wantApp  string
	}{
		{"missing tenant", func(r *dto.AssessmentRequest) { r.TenantID = "" }, codes.InvalidArgument, "invalid_request"},
		{"unknown tenant", func(r *dto.AssessmentRequest) { r.TenantID = "banco_fantasma" }, codes.NotFound, "configuration_not_found"},
		{"invalid applicant", func(r *dto.AssessmentRequest) { r.Age = 15 }, codes.InvalidArgument, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := applicant()
			tt.mutate(req)

			var trailer metadata.MD
			_, err := client.Assess(ctx, req, grpc.Trailer(&trailer))
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, status.Code(err))
			assert.Equal(t, []string{tt.wantApp}, trailer.Get(ErrorCodeTrailer))
		})
	}
}

func TestRiskService_Batch(t *testing.T) {
	client, _ := startServer(t, nil)

	bad := *applicant()
	bad.MonthlyIncome = 0
	resp, err := client.AssessBatch(context.Background(), &BatchRequest{
		TenantID:     seed.DemoTenantID,
		Applications: []dto.AssessmentRequest{*applicant(), bad, *applicant()},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
	require.NotNil(t, resp.Results[1].Error)
	assert.Equal(t, "invalid_request", resp.Results[1].Error.Code)
}

func TestRiskService_TenantCalls(t *testing.T) {
	client, _ := startServer(t, nil)
	ctx := context.Background()

	list, err := client.ListInstitutions(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, seed.DemoTenantID, list.Institutions[0].ID)

	cfg, err := client.GetTenantConfig(ctx, &TenantRequest{TenantID: seed.DemoTenantID})
	require.NoError(t, err)
	assert.Equal(t, "Banco Demo Colombia", cfg.Config.InstitutionInfo.Name)

	check, err := client.DataCheck(ctx, &TenantRequest{TenantID: seed.DemoTenantID})
	require.NoError(t, err)
	assert.Equal(t, 10, check.Rows)
	assert.Equal(t, 3, check.ConfirmedDefaults)
}

func TestRiskService_RateLimit(t *testing.T) {
	limiter := ratelimit.NewTenantLimiter(ratelimit.Config{RequestsPerMinute: 1, Burst: 1})
	client, _ := startServer(t, limiter)
	ctx := context.Background()

	_, err := client.GetTenantConfig(ctx, &TenantRequest{TenantID: seed.DemoTenantID})
	require.NoError(t, err)

	var trailer metadata.MD
	_, err = client.GetTenantConfig(ctx, &TenantRequest{TenantID: seed.DemoTenantID}, grpc.Trailer(&trailer))
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
	assert.Equal(t, []string{"rate_limit_exceeded"}, trailer.Get(ErrorCodeTrailer))

	// unscoped calls are not throttled
	_, err = client.ListInstitutions(ctx)
	assert.NoError(t, err)
}

func TestRiskService_Health(t *testing.T) {
	_, conn := startServer(t, nil)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
