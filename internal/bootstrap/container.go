// Package bootstrap wires the service from configuration. The server and the CLI
// share it so both see the same tenant store, caches and audit trail.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	appservice "github.com/credicefi/crediface/internal/application/service"
	"github.com/credicefi/crediface/internal/config"
	"github.com/credicefi/crediface/internal/domain/repository"
	"github.com/credicefi/crediface/internal/domain/service"
	"github.com/credicefi/crediface/internal/infrastructure/audit"
	"github.com/credicefi/crediface/internal/infrastructure/monitoring"
	"github.com/credicefi/crediface/internal/infrastructure/persistence/filestore"
	"github.com/credicefi/crediface/internal/infrastructure/persistence/postgres"
	"github.com/credicefi/crediface/internal/infrastructure/persistence/redis"
	"github.com/credicefi/crediface/internal/infrastructure/persistence/seed"
	"github.com/credicefi/crediface/internal/infrastructure/ratelimit"
	"github.com/credicefi/crediface/pkg/logger"
)

// limiterIdle is how long an unused tenant bucket is kept.
const limiterIdle = 30 * time.Minute

// tenantStore is what every backend offers.
type tenantStore interface {
	repository.TenantRepository
	repository.TenantWriter
	repository.DatasetInspector
}

// Container holds the wired components. Fields left nil are disabled by configuration.
type Container struct {
	Config   *config.Config
	Logger   logger.Logger
	Registry *prometheus.Registry
	Metrics  *monitoring.Metrics
	Tracing  *monitoring.TracingManager

	Store       tenantStore
	Tenants     repository.TenantRepository
	Cache       *redis.CachedTenantRepo
	Watcher     *filestore.Watcher
	RedisConn   *redis.RedisConnection
	PGConn      *postgres.DBConnection
	Audit       *audit.Dispatcher
	Limiter     *ratelimit.TenantLimiter
	Seeder      *seed.Seeder
	Assessments appservice.AssessmentAppService
	TenantsApp  appservice.TenantAppService

	// Checks are probed by the health endpoints.
	Checks map[string]func(ctx context.Context) error

	closers []func(ctx context.Context) error
	cancel  context.CancelFunc
}

// Build wires every component enabled in cfg. On error the partially built
// container is closed before returning.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger) (*Container, error) {
	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &Container{
		Config:   cfg,
		Logger:   log,
		Registry: prometheus.NewRegistry(),
		Checks:   make(map[string]func(ctx context.Context) error),
		cancel:   cancel,
	}
	if err := c.build(ctx, bgCtx); err != nil {
		_ = c.Close(context.Background())
		return nil, err
	}
	return c, nil
}

func (c *Container) build(ctx, bgCtx context.Context) (err error) {
	cfg, log := c.Config, c.Logger
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.Metrics = monitoring.NewMetrics(c.Registry)

	if c.Tracing, err = monitoring.NewTracingManager(ctx, cfg, log); err != nil {
		return err
	}
	c.closers = append(c.closers, c.Tracing.Shutdown)

	if cfg.Redis.Enabled {
		c.RedisConn = redis.NewRedisConnection(&cfg.Redis, log)
		if err = c.RedisConn.Connect(ctx); err != nil {
			return err
		}
		c.closers = append(c.closers, func(context.Context) error { return c.RedisConn.Close() })
		c.Checks["redis"] = c.RedisConn.Ping
	}

	if err = c.buildStore(bgCtx); err != nil {
		return err
	}
	if err = c.buildAudit(ctx); err != nil {
		return err
	}

	if cfg.RateLimit.Enabled {
		c.Limiter = ratelimit.NewTenantLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RateLimit.DefaultRPM,
			Burst:             cfg.RateLimit.BurstSize,
		})
		go c.sweepLimiter(bgCtx)
	}

	c.Seeder = seed.NewSeeder(c.Store, log)
	c.Assessments = appservice.NewAssessmentAppService(c.Tenants, c.Audit, c.Audit, c.Metrics,
		appservice.AssessmentOptions{
			ResolveTimeout:   cfg.Assessment.ResolveTimeout,
			BatchConcurrency: cfg.Assessment.BatchConcurrency,
			MaxBatchSize:     cfg.Assessment.MaxBatchSize,
			RingSize:         cfg.Audit.RingSize,
		}, log)
	c.TenantsApp = appservice.NewTenantAppService(c.Tenants, c.Store, log)
	return nil
}

// buildStore opens the configured tenant backend and the cache in front of it.
func (c *Container) buildStore(ctx context.Context) error {
	cfg := c.Config
	switch cfg.Storage.Backend {
	case config.StorageFile:
		repo := filestore.NewTenantRepo(cfg.Storage.ConfigDir, cfg.Storage.DataDir, c.Logger)
		c.Store = repo
		c.Checks["tenant_store"] = func(ctx context.Context) error {
			_, err := repo.ListTenants(ctx)
			return err
		}
		if cfg.Storage.Watch {
			w, err := filestore.NewWatcher(repo, c.Logger)
			if err != nil {
				return err
			}
			if err := w.Start(ctx); err != nil {
				_ = w.Close()
				return err
			}
			c.Watcher = w
			c.closers = append(c.closers, func(context.Context) error { return w.Close() })
		}

	case config.StoragePostgres, config.StorageSQLite:
		db, err := postgres.OpenGorm(cfg.Storage.Backend, &cfg.Database, c.Logger)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		c.closers = append(c.closers, func(context.Context) error { return sqlDB.Close() })
		c.Checks["tenant_store"] = sqlDB.PingContext
		c.Store = postgres.NewTenantRepository(db, c.Metrics, c.Logger)

	default:
		return fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}

	c.Tenants = c.Store
	if cfg.Cache.Enabled {
		var client goredis.UniversalClient
		if c.RedisConn != nil {
			client = c.RedisConn.GetClient()
		}
		c.Cache = redis.NewCachedTenantRepo(c.Store, client, cfg.Cache.L1TTL, cfg.Cache.L2TTL, c.Metrics, c.Logger)
		c.Tenants = c.Cache
		if c.Watcher != nil {
			c.Watcher.OnChange(func(tenantID string) {
				c.Cache.Invalidate(context.Background(), tenantID)
			})
		}
	}
	return nil
}

// buildAudit creates the configured sinks in order; the first readable sink
// serves the audit read-back.
func (c *Container) buildAudit(ctx context.Context) error {
	cfg := c.Config
	sinks := make([]service.AuditSink, 0, len(cfg.Audit.Sinks))
	for _, name := range cfg.Audit.Sinks {
		switch name {
		case config.SinkMemory:
			sinks = append(sinks, audit.NewMemoryRing(cfg.Audit.RingSize))
		case config.SinkRedis:
			if c.RedisConn == nil {
				return fmt.Errorf("audit sink %q requires redis.enabled", name)
			}
			sinks = append(sinks, audit.NewRedisRing(c.RedisConn.GetClient(), cfg.Audit.RingSize))
		case config.SinkPostgres:
			if c.PGConn == nil {
				conn, err := postgres.NewDBConnection(ctx, &cfg.Database, c.Logger)
				if err != nil {
					return err
				}
				c.PGConn = conn
				c.closers = append(c.closers, func(context.Context) error { conn.Close(); return nil })
				c.Checks["audit_postgres"] = conn.Ping
			}
			ring := audit.NewPostgresRing(c.PGConn.Pool(), cfg.Audit.RingSize)
			if err := ring.EnsureSchema(ctx); err != nil {
				return err
			}
			sinks = append(sinks, ring)
		case config.SinkKafka:
			sinks = append(sinks, audit.NewKafkaSink(cfg.Kafka))
		default:
			return fmt.Errorf("unknown audit sink %q", name)
		}
	}

	c.Audit = audit.NewDispatcher(sinks, audit.NewSigner(cfg.Audit.HMACSecret),
		audit.Options{BufferSize: cfg.Audit.BufferSize, Workers: cfg.Audit.Workers}, c.Metrics, c.Logger)
	// drain before the connections the sinks use are closed
	c.closers = append(c.closers, c.Audit.Close)
	return nil
}

func (c *Container) sweepLimiter(ctx context.Context) {
	ticker := time.NewTicker(limiterIdle / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Limiter.Cleanup(limiterIdle); n > 0 {
				c.Logger.Debug(ctx, "Idle rate limit buckets removed", logger.Int("removed", n))
			}
		}
	}
}

// SeedAll writes the demonstration tenant and drops any cached copy of it.
func (c *Container) SeedAll(ctx context.Context) (*seed.Result, error) {
	res, err := c.Seeder.SeedAll(ctx)
	if err != nil {
		return nil, err
	}
	if c.Cache != nil {
		c.Cache.Invalidate(ctx, res.TenantID)
	}
	return res, nil
}

// CheckAll runs every health check and returns the first failure.
func (c *Container) CheckAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for name, check := range c.Checks {
		g.Go(func() error {
			if err := check(gctx); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close releases resources in reverse order of creation.
func (c *Container) Close(ctx context.Context) error {
	c.cancel()
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}
