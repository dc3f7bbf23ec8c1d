package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/credicefi/crediface/internal/config"
	"github.com/credicefi/crediface/internal/interfaces/http/handlers"
	"github.com/credicefi/crediface/pkg/constants"
	"github.com/credicefi/crediface/pkg/logger"
)

// Router HTTP 路由器
type Router struct {
	engine            *gin.Engine
	config            *config.Config
	logger            logger.Logger
	middleware        *handlers.Middleware
	healthHandler     *handlers.HealthHandler
	assessmentHandler *handlers.AssessmentHandler
	tenantHandler     *handlers.TenantHandler
	gatherer          prometheus.Gatherer
	server            *http.Server
}

// NewRouter 创建路由器. A nil gatherer serves the default Prometheus registry.
func NewRouter(
	cfg *config.Config,
	log logger.Logger,
	middleware *handlers.Middleware,
	healthHandler *handlers.HealthHandler,
	assessmentHandler *handlers.AssessmentHandler,
	tenantHandler *handlers.TenantHandler,
	gatherer prometheus.Gatherer,
) *Router {
	// 设置 Gin 模式
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := &Router{
		engine:            gin.New(),
		config:            cfg,
		logger:            log.WithComponent("router"),
		middleware:        middleware,
		healthHandler:     healthHandler,
		assessmentHandler: assessmentHandler,
		tenantHandler:     tenantHandler,
		gatherer:          gatherer,
	}
	r.setupRoutes()
	r.server = &http.Server{
		Addr:           cfg.Server.HTTPAddr(),
		Handler:        r.engine,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
	return r
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 全局中间件
	r.engine.Use(r.middleware.Recovery())
	r.engine.Use(otelgin.Middleware(r.config.Tracing.ServiceName))
	r.engine.Use(r.middleware.RequestID())
	r.engine.Use(r.middleware.Logger())
	r.engine.Use(r.middleware.Metrics())

	// CORS 配置
	corsConfig := cors.Config{
		AllowOrigins:  r.config.Server.AllowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", constants.HeaderTenantID, constants.HeaderRequestID},
		ExposeHeaders: []string{constants.HeaderRequestID, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	r.engine.Use(cors.New(corsConfig))

	// 健康检查路由
	r.engine.GET("/health", r.healthHandler.HealthCheck)
	r.engine.GET("/ready", r.healthHandler.ReadinessCheck)
	r.engine.GET("/live", r.healthHandler.LivenessCheck)

	// Prometheus metrics
	r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))

	// Pprof 性能分析（仅在非生产环境）
	if !r.config.Server.IsProduction() {
		pprof.Register(r.engine)
	}

	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/institutions", r.tenantHandler.ListInstitutions)
		if r.tenantHandler.CanSeed() {
			v1.POST("/setup", r.tenantHandler.Setup)
		}

		scoped := v1.Group("")
		scoped.Use(r.middleware.RateLimit())
		{
			scoped.POST("/assessments", r.assessmentHandler.Assess)
			scoped.POST("/assessments/batch", r.assessmentHandler.AssessBatch)
			scoped.GET("/assessments/recent", r.assessmentHandler.Recent)
			scoped.GET("/performance", r.assessmentHandler.Performance)
			scoped.GET("/tenant/config", r.tenantHandler.GetConfig)
			scoped.GET("/data-check", r.tenantHandler.DataCheck)
		}
	}

	// 404 处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "not_found",
				"message": "The requested resource was not found",
			},
			"timestamp": time.Now().Unix(),
		})
	})
}

// Start 启动 HTTP 服务器. It blocks until the server stops.
func (r *Router) Start() error {
	r.logger.Info(context.Background(), "Starting HTTP server", logger.String("address", r.server.Addr))
	if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 停止 HTTP 服务器
func (r *Router) Stop(ctx context.Context) error {
	r.logger.Info(ctx, "Stopping HTTP server...")
	return r.server.Shutdown(ctx)
}

// Engine exposes the gin engine for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
