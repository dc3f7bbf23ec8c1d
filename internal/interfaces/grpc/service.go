package grpc

// service.go hand-writes the service descriptor of crediface.risk.v1.RiskService.
// Messages are the application DTOs, carried by the JSON codec.

import (
	"context"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/credicefi/crediface/internal/application/dto"
	"github.com/credicefi/crediface/internal/domain/models"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "crediface.risk.v1.RiskService"

// TenantRequest addresses one tenant.
type TenantRequest struct {
	TenantID string `json:"tenant_id"`
}

// GetTenantID implements tenantScoped.
func (r *TenantRequest) GetTenantID() string { return r.TenantID }

// RecentRequest asks for the newest audit entries of a tenant.
type RecentRequest struct {
	TenantID string `json:"tenant_id"`
	Limit    int    `json:"limit,omitempty"`
}

// GetTenantID implements tenantScoped.
func (r *RecentRequest) GetTenantID() string { return r.TenantID }

// BatchRequest carries several applications for one tenant.
type BatchRequest struct {
	TenantID     string                  `json:"tenant_id"`
	Applications []dto.AssessmentRequest `json:"applications"`
}

// GetTenantID implements tenantScoped.
func (r *BatchRequest) GetTenantID() string { return r.TenantID }

// ListInstitutionsRequest has no fields.
type ListInstitutionsRequest struct{}

// RiskServiceServer is the server API for RiskService.
type RiskServiceServer interface {
	Assess(context.Context, *dto.AssessmentRequest) (*models.AssessmentRecord, error)
	AssessBatch(context.Context, *BatchRequest) (*dto.BatchAssessmentResponse, error)
	GetRecentAssessments(context.Context, *RecentRequest) (*dto.RecentAssessmentsResponse, error)
	GetPerformance(context.Context, *TenantRequest) (*models.PerformanceSummary, error)
	ListInstitutions(context.Context, *ListInstitutionsRequest) (*dto.InstitutionListResponse, error)
	GetTenantConfig(context.Context, *TenantRequest) (*dto.TenantConfigResponse, error)
	DataCheck(context.Context, *TenantRequest) (*dto.DataCheckResponse, error)
	mustEmbedUnimplementedRiskServiceServer()
}

// UnimplementedRiskServiceServer provides forward-compatible default implementations.
type UnimplementedRiskServiceServer struct{}

func (UnimplementedRiskServiceServer) Assess(context.Context, *dto.AssessmentRequest) (*models.AssessmentRecord, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Assess not implemented")
}
func (UnimplementedRiskServiceServer) AssessBatch(context.Context, *BatchRequest) (*dto.BatchAssessmentResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method AssessBatch not implemented")
}
func (UnimplementedRiskServiceServer) GetRecentAssessments(context.Context, *RecentRequest) (*dto.RecentAssessmentsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetRecentAssessments not implemented")
}
func (UnimplementedRiskServiceServer) GetPerformance(context.Context, *TenantRequest) (*models.PerformanceSummary, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetPerformance not implemented")
}
func (UnimplementedRiskServiceServer) ListInstitutions(context.Context, *ListInstitutionsRequest) (*dto.InstitutionListResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListInstitutions not implemented")
}
func (UnimplementedRiskServiceServer) GetTenantConfig(context.Context, *TenantRequest) (*dto.TenantConfigResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetTenantConfig not implemented")
}
func (UnimplementedRiskServiceServer) DataCheck(context.Context, *TenantRequest) (*dto.DataCheckResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method DataCheck not implemented")
}
func (UnimplementedRiskServiceServer) mustEmbedUnimplementedRiskServiceServer() {}

// RegisterRiskServiceServer registers srv with the gRPC server.
func RegisterRiskServiceServer(s grpclib.ServiceRegistrar, srv RiskServiceServer) {
	s.RegisterService(&riskServiceDesc, srv)
}

var riskServiceDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RiskServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: "Assess", Handler: unaryHandler("Assess", RiskServiceServer.Assess)},
		{MethodName: "AssessBatch", Handler: unaryHandler("AssessBatch", RiskServiceServer.AssessBatch)},
		{MethodName: "GetRecentAssessments", Handler: unaryHandler("GetRecentAssessments", RiskServiceServer.GetRecentAssessments)},
		{MethodName: "GetPerformance", Handler: unaryHandler("GetPerformance", RiskServiceServer.GetPerformance)},
		{MethodName: "ListInstitutions", Handler: unaryHandler("ListInstitutions", RiskServiceServer.ListInstitutions)},
		{MethodName: "GetTenantConfig", Handler: unaryHandler("GetTenantConfig", RiskServiceServer.GetTenantConfig)},
		{MethodName: "DataCheck", Handler: unaryHandler("DataCheck", RiskServiceServer.DataCheck)},
	},
	Streams: []grpclib.StreamDesc{},
}

// unaryHandler builds the method handler that generated code would otherwise spell
// out per method.
func unaryHandler[Req any, Resp any](
	method string,
	call func(RiskServiceServer, context.Context, *Req) (Resp, error),
) grpclib.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RiskServiceServer), ctx, in)
		}
		info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(RiskServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RiskServiceClient calls RiskService over a connection using the JSON codec.
type RiskServiceClient struct {
	cc grpclib.ClientConnInterface
}

// NewRiskServiceClient wraps cc.
func NewRiskServiceClient(cc grpclib.ClientConnInterface) *RiskServiceClient {
	return &RiskServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *RiskServiceClient, method string, in interface{}, opts ...grpclib.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpclib.CallOption{grpclib.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RiskServiceClient) Assess(ctx context.Context, in *dto.AssessmentRequest, opts ...grpclib.CallOption) (*models.AssessmentRecord, error) {
	return invoke[models.AssessmentRecord](ctx, c, "Assess", in, opts...)
}

func (c *RiskServiceClient) AssessBatch(ctx context.Context, in *BatchRequest, opts ...grpclib.CallOption) (*dto.BatchAssessmentResponse, error) {
	return invoke[dto.BatchAssessmentResponse](ctx, c, "AssessBatch", in, opts...)
}

func (c *RiskServiceClient) GetRecentAssessments(ctx context.Context, in *RecentRequest, opts ...grpclib.CallOption) (*dto.RecentAssessmentsResponse, error) {
	return invoke[dto.RecentAssessmentsResponse](ctx, c, "GetRecentAssessments", in, opts...)
}

func (c *RiskServiceClient) GetPerformance(ctx context.Context, in *TenantRequest, opts ...grpclib.CallOption) (*models.PerformanceSummary, error) {
	return invoke[models.PerformanceSummary](ctx, c, "GetPerformance", in, opts...)
}

func (c *RiskServiceClient) ListInstitutions(ctx context.Context, opts ...grpclib.CallOption) (*dto.InstitutionListResponse, error) {
	return invoke[dto.InstitutionListResponse](ctx, c, "ListInstitutions", &ListInstitutionsRequest{}, opts...)
}

func (c *RiskServiceClient) GetTenantConfig(ctx context.Context, in *TenantRequest, opts ...grpclib.CallOption) (*dto.TenantConfigResponse, error) {
	return invoke[dto.TenantConfigResponse](ctx, c, "GetTenantConfig", in, opts...)
}

func (c *RiskServiceClient) DataCheck(ctx context.Context, in *TenantRequest, opts ...grpclib.CallOption) (*dto.DataCheckResponse, error) {
	return invoke[dto.DataCheckResponse](ctx, c, "DataCheck", in, opts...)
}
