package redis

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/credicefi/crediface/internal/domain/models"
	"github.com/credicefi/crediface/internal/domain/repository"
	"github.com/credicefi/crediface/internal/domain/service"
	"github.com/credicefi/crediface/pkg/constants"
	"github.com/credicefi/crediface/pkg/logger"
)

const keyPrefix = "crediface:tenant:"

// Cache layers reported to metrics.
const (
	LayerL1 = "l1"
	LayerL2 = "l2"
)

// CachedTenantRepo decorates a TenantRepository with an in-process L1 cache and
// an optional Redis L2 cache. Only successful lookups are cached; errors always
// come from the wrapped repository. Redis failures degrade to the next layer.
type CachedTenantRepo struct {
	next    repository.TenantRepository
	l1      *cache.Cache
	l2      redis.UniversalClient
	l2TTL   time.Duration
	metrics service.Metrics
	logger  logger.Logger
}

var _ repository.TenantRepository = (*CachedTenantRepo)(nil)

// NewCachedTenantRepo wraps next. client may be nil for an L1-only cache; a zero
// TTL uses the package defaults.
func NewCachedTenantRepo(next repository.TenantRepository, client redis.UniversalClient, l1TTL, l2TTL time.Duration, metrics service.Metrics, log logger.Logger) *CachedTenantRepo {
	if l1TTL <= 0 {
		l1TTL = constants.TenantConfigL1TTL
	}
	if l2TTL <= 0 {
		l2TTL = constants.TenantConfigL2TTL
	}
	if metrics == nil {
		metrics = service.NoopMetrics{}
	}
	return &CachedTenantRepo{
		next:    next,
		l1:      cache.New(l1TTL, constants.TenantCacheCleanupInterval),
		l2:      client,
		l2TTL:   l2TTL,
		metrics: metrics,
		logger:  log.WithComponent("tenant-cache"),
	}
}

func configKey(tenantID string) string   { return keyPrefix + tenantID + ":config" }
func defaultsKey(tenantID string) string { return keyPrefix + tenantID + ":defaults" }

// GetConfig returns the tenant configuration, consulting L1 then L2.
func (c *CachedTenantRepo) GetConfig(ctx context.Context, tenantID string) (*models.TenantConfig, error) {
	return lookup(ctx, c, configKey(tenantID), func() (*models.TenantConfig, error) {
		return c.next.GetConfig(ctx, tenantID)
	})
}

// GetHistoricalDefaults returns the tenant dataset, consulting L1 then L2.
func (c *CachedTenantRepo) GetHistoricalDefaults(ctx context.Context, tenantID string) ([]models.HistoricalDefaultRecord, error) {
	return lookup(ctx, c, defaultsKey(tenantID), func() ([]models.HistoricalDefaultRecord, error) {
		return c.next.GetHistoricalDefaults(ctx, tenantID)
	})
}

// ListTenants is not cached.
func (c *CachedTenantRepo) ListTenants(ctx context.Context) ([]models.TenantSummary, error) {
	return c.next.ListTenants(ctx)
}

// InspectDataset passes through when the wrapped repository supports it.
func (c *CachedTenantRepo) InspectDataset(ctx context.Context, tenantID string) ([]string, []models.HistoricalDefaultRecord, error) {
	inspector, ok := c.next.(repository.DatasetInspector)
	if !ok {
		return nil, nil, fmt.Errorf("dataset inspection not supported")
	}
	return inspector.InspectDataset(ctx, tenantID)
}

// Invalidate drops both cache layers for a tenant.
func (c *CachedTenantRepo) Invalidate(ctx context.Context, tenantID string) {
	c.l1.Delete(configKey(tenantID))
	c.l1.Delete(defaultsKey(tenantID))
	if c.l2 == nil {
		return
	}
	if err := c.l2.Del(ctx, configKey(tenantID), defaultsKey(tenantID)).Err(); err != nil {
		c.logger.Warn(ctx, "Failed to invalidate L2 tenant cache", logger.String("tenant_id", tenantID), logger.Err(err))
	}
}

func lookup[T any](ctx context.Context, c *CachedTenantRepo, key string, load func() (T, error)) (T, error) {
	if v, ok := c.l1.Get(key); ok {
		if typed, ok := v.(T); ok {
			c.metrics.RecordCacheAccess(LayerL1, true)
			return typed, nil
		}
	}
	c.metrics.RecordCacheAccess(LayerL1, false)

	if c.l2 != nil {
		raw, err := c.l2.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				c.metrics.RecordCacheAccess(LayerL2, true)
				c.l1.SetDefault(key, v)
				return v, nil
			}
			c.logger.Warn(ctx, "Discarding corrupt L2 cache entry", logger.String("key", key))
		case goerrors.Is(err, redis.Nil):
		default:
			c.logger.Warn(ctx, "L2 tenant cache unavailable", logger.String("key", key), logger.Err(err))
		}
		c.metrics.RecordCacheAccess(LayerL2, false)
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	c.l1.SetDefault(key, v)

	if c.l2 != nil {
		if raw, err := json.Marshal(v); err == nil {
			if err := c.l2.Set(ctx, key, raw, c.l2TTL).Err(); err != nil {
				c.logger.Warn(ctx, "Failed to populate L2 tenant cache", logger.String("key", key), logger.Err(err))
			}
		}
	}
	return v, nil
}
