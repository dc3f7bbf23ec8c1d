package grpc

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	grpcCodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/credicefi/crediface/internal/domain/service"
	"github.com/credicefi/crediface/pkg/constants"
	"github.com/credicefi/crediface/pkg/errors"
	"github.com/credicefi/crediface/pkg/logger"
)

// ErrorCodeTrailer carries the machine-readable error code of a failed call.
const ErrorCodeTrailer = "x-error-code"

// TenantLimiter throttles calls per tenant.
type TenantLimiter interface {
	Allow(tenantID string) bool
}

// tenantScoped is implemented by request messages bound to one tenant.
type tenantScoped interface {
	GetTenantID() string
}

// InterceptorChain 拦截器链
type InterceptorChain struct {
	log     logger.Logger
	limiter TenantLimiter
	metrics service.Metrics
}

// NewInterceptorChain 创建拦截器链. limiter and metrics may be nil.
func NewInterceptorChain(log logger.Logger, limiter TenantLimiter, metrics service.Metrics) *InterceptorChain {
	if metrics == nil {
		metrics = service.NoopMetrics{}
	}
	return &InterceptorChain{
		log:     log.WithComponent("grpc"),
		limiter: limiter,
		metrics: metrics,
	}
}

// UnaryRecoveryInterceptor 恢复拦截器(捕获 panic)
func (ic *InterceptorChain) UnaryRecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				ic.log.Error(ctx, "gRPC handler panic recovered", fmt.Errorf("%v", r),
					logger.String("method", info.FullMethod),
				)
				err = status.Error(grpcCodes.Internal, "internal server error")
			}
		}()

		return handler(ctx, req)
	}
}

// UnaryContextInterceptor copies request and tenant identifiers into the context.
func (ic *InterceptorChain) UnaryContextInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		requestID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get("x-request-id"); len(ids) > 0 {
				requestID = ids[0]
			}
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = context.WithValue(ctx, constants.ContextKeyRequestID, requestID)
		if scoped, ok := req.(tenantScoped); ok && scoped.GetTenantID() != "" {
			ctx = context.WithValue(ctx, constants.ContextKeyTenantID, scoped.GetTenantID())
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs("x-request-id", requestID))

		return handler(ctx, req)
	}
}

// UnaryLoggingInterceptor 日志拦截器
func (ic *InterceptorChain) UnaryLoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		startTime := time.Now()

		// 执行处理器
		resp, err := handler(ctx, req)

		statusCode := grpcCodes.OK
		if err != nil {
			if st, ok := status.FromError(err); ok {
				statusCode = st.Code()
			}
		}

		ic.log.Info(ctx, "gRPC request completed",
			logger.String("method", info.FullMethod),
			logger.Duration("duration", time.Since(startTime)),
			logger.String("status", statusCode.String()),
		)
		return resp, err
	}
}

// UnaryRateLimitInterceptor 限流拦截器
func (ic *InterceptorChain) UnaryRateLimitInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		scoped, ok := req.(tenantScoped)
		if ic.limiter == nil || !ok || scoped.GetTenantID() == "" {
			return handler(ctx, req)
		}

		tenantID := scoped.GetTenantID()
		if !ic.limiter.Allow(tenantID) {
			ic.metrics.RecordRateLimitHit(tenantID)
			ic.log.Warn(ctx, "rate limit exceeded",
				logger.String("tenant_id", tenantID),
				logger.String("method", info.FullMethod),
			)
			return nil, errors.ErrRateLimitExceeded(tenantID)
		}
		return handler(ctx, req)
	}
}

// UnaryErrorInterceptor 错误转换拦截器(将领域错误转换为 gRPC 状态码)
func (ic *InterceptorChain) UnaryErrorInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		if _, isStatus := status.FromError(err); isStatus {
			return resp, err
		}

		appErr, ok := errors.AsAppError(err)
		if ok {
			_ = grpc.SetTrailer(ctx, metadata.Pairs(ErrorCodeTrailer, string(appErr.Code())))
		}
		return resp, convertDomainErrorToGRPC(err)
	}
}

// convertDomainErrorToGRPC 将领域错误转换为 gRPC 错误
func convertDomainErrorToGRPC(err error) error {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return status.Error(grpcCodes.Internal, "internal server error")
	}

	switch appErr.HTTPStatus() {
	case http.StatusNotFound:
		return status.Error(grpcCodes.NotFound, appErr.Error())
	case http.StatusBadRequest:
		return status.Error(grpcCodes.InvalidArgument, appErr.Error())
	case http.StatusTooManyRequests:
		return status.Error(grpcCodes.ResourceExhausted, appErr.Error())
	case http.StatusServiceUnavailable:
		return status.Error(grpcCodes.Unavailable, appErr.Error())
	default:
		return status.Error(grpcCodes.Internal, appErr.Error())
	}
}

// ChainUnaryInterceptors 链式调用所有拦截器
func (ic *InterceptorChain) ChainUnaryInterceptors() grpc.ServerOption {
	return grpc.ChainUnaryInterceptor(
		ic.UnaryRecoveryInterceptor(),  // 1. 恢复 panic
		ic.UnaryContextInterceptor(),   // 2. 请求上下文
		ic.UnaryLoggingInterceptor(),   // 3. 日志
		ic.UnaryErrorInterceptor(),     // 4. 错误转换
		ic.UnaryRateLimitInterceptor(), // 5. 限流
	)
}
