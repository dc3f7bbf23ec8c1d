package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/credicefi/crediface/internal/domain/service"
	"github.com/credicefi/crediface/pkg/constants"
	"github.com/credicefi/crediface/pkg/errors"
	"github.com/credicefi/crediface/pkg/logger"
)

// HTTPMetrics records transport level metrics.
type HTTPMetrics interface {
	ActiveRequestsInc()
	ActiveRequestsDec()
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
}

// TenantLimiter throttles requests per tenant.
type TenantLimiter interface {
	Allow(tenantID string) bool
	Remaining(tenantID string) int
	Burst() int
}

// Middleware bundles the gin middlewares of the service.
// Middleware 中间件集合。
type Middleware struct {
	logger      logger.Logger
	httpMetrics HTTPMetrics
	metrics     service.Metrics
	limiter     TenantLimiter
}

// NewMiddleware creates the middleware set. httpMetrics, metrics and limiter may be nil.
func NewMiddleware(log logger.Logger, httpMetrics HTTPMetrics, metrics service.Metrics, limiter TenantLimiter) *Middleware {
	if metrics == nil {
		metrics = service.NoopMetrics{}
	}
	return &Middleware{
		logger:      log.WithComponent("http"),
		httpMetrics: httpMetrics,
		metrics:     metrics,
		limiter:     limiter,
	}
}

// RequestID propagates or generates the request identifier and stores it, together
// with the tenant header, in the request context for logging.
func (m *Middleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(string(constants.ContextKeyRequestID), requestID)
		c.Header(constants.HeaderRequestID, requestID)

		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyRequestID, requestID)
		if tenant := c.GetHeader(constants.HeaderTenantID); tenant != "" {
			ctx = context.WithValue(ctx, constants.ContextKeyTenantID, tenant)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Logger logs one line per request.
func (m *Middleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", status),
			logger.Duration("latency", time.Since(start)),
			logger.String("client_ip", c.ClientIP()),
		}
		switch {
		case status >= http.StatusInternalServerError:
			m.logger.Warn(c.Request.Context(), "Request failed", fields...)
		case c.Request.URL.Path == "/metrics" || c.Request.URL.Path == "/live":
			m.logger.Debug(c.Request.Context(), "Request processed", fields...)
		default:
			m.logger.Info(c.Request.Context(), "Request processed", fields...)
		}
	}
}

// Recovery turns a panic into a server_error response.
func (m *Middleware) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("panic: %v", r)
				m.logger.Error(c.Request.Context(), "Panic recovered", err,
					logger.String("path", c.Request.URL.Path))
				sendError(c, errors.ErrServerError("internal error").WithCause(err))
			}
		}()
		c.Next()
	}
}

// Metrics records request counts, durations and in-flight requests.
func (m *Middleware) Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.httpMetrics == nil {
			c.Next()
			return
		}
		start := time.Now()
		m.httpMetrics.ActiveRequestsInc()
		defer m.httpMetrics.ActiveRequestsDec()

		c.Next()

		// route template keeps label cardinality low
		path := c.FullPath()
		if path == "" {
			path = "not_found"
		}
		m.httpMetrics.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// RateLimit applies the per-tenant budget. Requests without a tenant header pass
// through and are rejected by the handler.
func (m *Middleware) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant := c.GetHeader(constants.HeaderTenantID)
		if m.limiter == nil || tenant == "" {
			c.Next()
			return
		}

		allowed := m.limiter.Allow(tenant)
		c.Header("X-RateLimit-Limit", strconv.Itoa(m.limiter.Burst()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(m.limiter.Remaining(tenant)))
		if !allowed {
			m.metrics.RecordRateLimitHit(tenant)
			m.logger.Warn(c.Request.Context(), "Rate limit exceeded", logger.String("tenant_id", tenant))
			sendError(c, errors.ErrRateLimitExceeded(tenant))
			return
		}
		c.Next()
	}
}
