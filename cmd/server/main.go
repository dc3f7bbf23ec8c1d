package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/credicefi/crediface/internal/bootstrap"
	"github.com/credicefi/crediface/internal/config"
	"github.com/credicefi/crediface/internal/infrastructure/monitoring"
	grpchandlers "github.com/credicefi/crediface/internal/interfaces/grpc"
	"github.com/credicefi/crediface/internal/interfaces/http"
	"github.com/credicefi/crediface/internal/interfaces/http/handlers"
	"github.com/credicefi/crediface/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	// Load config
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Fatal(context.Background(), "Server exited with error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, appLogger logger.Logger) error {
	c, err := bootstrap.Build(ctx, cfg, appLogger)
	if err != nil {
		return err
	}

	// HTTP
	checks := make(map[string]handlers.Checker, len(c.Checks))
	for name, check := range c.Checks {
		checks[name] = check
	}
	var limiter handlers.TenantLimiter
	if c.Limiter != nil {
		limiter = c.Limiter
	}
	router := http.NewRouter(cfg, appLogger,
		handlers.NewMiddleware(appLogger, c.Metrics, c.Metrics, limiter),
		handlers.NewHealthHandler(checks, version, appLogger),
		handlers.NewAssessmentHandler(c.Assessments),
		handlers.NewTenantHandler(c.TenantsApp, c, appLogger),
		c.Registry,
	)

	// gRPC
	var grpcLimiter grpchandlers.TenantLimiter
	if c.Limiter != nil {
		grpcLimiter = c.Limiter
	}
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr())
	if err != nil {
		_ = c.Close(context.Background())
		return err
	}
	grpcServer := grpchandlers.NewServer(
		grpchandlers.NewRiskGRPCService(c.Assessments, c.TenantsApp, appLogger),
		grpchandlers.NewInterceptorChain(appLogger, grpcLimiter, c.Metrics),
		appLogger,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(router.Start)
	g.Go(func() error { return grpcServer.Serve(lis) })
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info(context.Background(), "Shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		err := router.Stop(shutdownCtx)
		grpcServer.Stop(shutdownCtx)
		if cerr := c.Close(shutdownCtx); cerr != nil {
			appLogger.Warn(shutdownCtx, "Failed to release resources cleanly", logger.Err(cerr))
		}
		return err
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	appLogger.Info(context.Background(), "Server exited")
	return nil
}
