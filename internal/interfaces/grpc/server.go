package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/credicefi/crediface/internal/application/dto"
	appservice "github.com/credicefi/crediface/internal/application/service"
	"github.com/credicefi/crediface/internal/domain/models"
	"github.com/credicefi/crediface/pkg/errors"
	"github.com/credicefi/crediface/pkg/logger"
)

// RiskGRPCService implements RiskServiceServer over the application services.
type RiskGRPCService struct {
	UnimplementedRiskServiceServer
	assessments appservice.AssessmentAppService
	tenants     appservice.TenantAppService
	log         logger.Logger
}

// NewRiskGRPCService creates the service implementation.
func NewRiskGRPCService(assessments appservice.AssessmentAppService, tenants appservice.TenantAppService, log logger.Logger) *RiskGRPCService {
	return &RiskGRPCService{
		assessments: assessments,
		tenants:     tenants,
		log:         log.WithComponent("grpc_service"),
	}
}

// Assess evaluates one applicant. The tenant is read from the request body.
func (s *RiskGRPCService) Assess(ctx context.Context, req *dto.AssessmentRequest) (*models.AssessmentRecord, error) {
	if req.TenantID == "" {
		return nil, errors.ErrMissingRequiredParameter("tenant_id")
	}
	return s.assessments.Assess(ctx, req.TenantID, req)
}

// AssessBatch evaluates several applicants for one tenant.
func (s *RiskGRPCService) AssessBatch(ctx context.Context, req *BatchRequest) (*dto.BatchAssessmentResponse, error) {
	if req.TenantID == "" {
		return nil, errors.ErrMissingRequiredParameter("tenant_id")
	}
	return s.assessments.AssessBatch(ctx, req.TenantID, &dto.BatchAssessmentRequest{Applications: req.Applications})
}

// GetRecentAssessments returns the newest audit entries.
func (s *RiskGRPCService) GetRecentAssessments(ctx context.Context, req *RecentRequest) (*dto.RecentAssessmentsResponse, error) {
	if req.Limit < 0 {
		return nil, errors.ErrInvalidRequest("limit must be non-negative")
	}
	return s.assessments.RecentAssessments(ctx, req.TenantID, req.Limit)
}

// GetPerformance aggregates the tenant's audit ring.
func (s *RiskGRPCService) GetPerformance(ctx context.Context, req *TenantRequest) (*models.PerformanceSummary, error) {
	return s.assessments.Performance(ctx, req.TenantID)
}

// ListInstitutions lists every configured institution.
func (s *RiskGRPCService) ListInstitutions(ctx context.Context, _ *ListInstitutionsRequest) (*dto.InstitutionListResponse, error) {
	return s.tenants.ListInstitutions(ctx)
}

// GetTenantConfig returns a tenant's configuration.
func (s *RiskGRPCService) GetTenantConfig(ctx context.Context, req *TenantRequest) (*dto.TenantConfigResponse, error) {
	return s.tenants.GetTenantConfig(ctx, req.TenantID)
}

// DataCheck summarizes a tenant's dataset.
func (s *RiskGRPCService) DataCheck(ctx context.Context, req *TenantRequest) (*dto.DataCheckResponse, error) {
	return s.tenants.DataCheck(ctx, req.TenantID)
}

// Server owns the gRPC server and its health service.
type Server struct {
	server *grpc.Server
	health *health.Server
	log    logger.Logger
}

// NewServer registers the risk service next to the standard health service.
func NewServer(svc RiskServiceServer, chain *InterceptorChain, log logger.Logger) *Server {
	server := grpc.NewServer(chain.ChainUnaryInterceptors())
	RegisterRiskServiceServer(server, svc)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return &Server{server: server, health: hs, log: log.WithComponent("grpc_server")}
}

// Serve blocks serving lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info(context.Background(), "Starting gRPC server", logger.String("address", lis.Addr().String()))
	return s.server.Serve(lis)
}

// Stop marks the service as not serving and drains in-flight calls until ctx expires.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn(ctx, "gRPC graceful stop timed out, forcing")
		s.server.Stop()
	}
}
