package audit

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/credicefi/crediface/internal/config"
	"github.com/credicefi/crediface/internal/domain/models"
	"github.com/credicefi/crediface/pkg/constants"
)

const redisRingPrefix = "crediface:audit:"

// RedisRing stores entries in one Redis list per tenant, newest at the head,
// trimmed to a fixed length on every write.
type RedisRing struct {
	client redis.UniversalClient
	size   int
}

// NewRedisRing creates a Redis-backed ring holding size entries per tenant.
func NewRedisRing(client redis.UniversalClient, size int) *RedisRing {
	if size <= 0 {
		size = constants.AuditRingSize
	}
	return &RedisRing{client: client, size: size}
}

func ringKey(tenantID string) string { return redisRingPrefix + tenantID }

func (r *RedisRing) Name() string { return config.SinkRedis }

func (r *RedisRing) Write(ctx context.Context, entry *models.AuditEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	key := ringKey(entry.TenantID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, raw)
		pipe.LTrim(ctx, key, 0, int64(r.size-1))
		return nil
	})
	return err
}

// Recent returns up to limit entries, newest first.
func (r *RedisRing) Recent(ctx context.Context, tenantID string, limit int) ([]*models.AuditEntry, error) {
	if limit <= 0 || limit > r.size {
		limit = r.size
	}
	values, err := r.client.LRange(ctx, ringKey(tenantID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*models.AuditEntry, 0, len(values))
	for _, v := range values {
		var entry models.AuditEntry
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			continue
		}
		out = append(out, &entry)
	}
	return out, nil
}

// Close leaves the shared client open; its owner closes it.
func (r *RedisRing) Close() error { return nil }
