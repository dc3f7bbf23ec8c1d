package service

import (
	"context"

	"github.com/credicefi/crediface/internal/domain/models"
)

//go:generate mockery --name AuditPublisher --output mocks --outpkg mocks
// AuditPublisher hands completed assessments to the audit trail.
// Publish never blocks the caller and never reports failures; they are logged and counted.
// AuditPublisher 将完成的评估交给审计轨迹。Publish 不阻塞调用方，也不返回失败。
type AuditPublisher interface {
	// Publish enqueues an entry for asynchronous delivery to every sink.
	// Publish 将条目排入队列，异步投递到所有接收端。
	Publish(ctx context.Context, entry *models.AuditEntry)
}

//go:generate mockery --name AuditReader --output mocks --outpkg mocks
// AuditReader reads back the bounded per-tenant audit ring.
// AuditReader 读取按租户划分的有界审计环。
type AuditReader interface {
	// Recent returns up to limit entries for the tenant, newest first.
	// Recent 返回租户最多 limit 条记录，按时间倒序。
	Recent(ctx context.Context, tenantID string, limit int) ([]*models.AuditEntry, error)
}

// AuditSink is a single audit destination. Implementations must be safe for concurrent use.
// AuditSink 是单个审计目标，实现必须支持并发使用。
type AuditSink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// Write appends one entry.
	Write(ctx context.Context, entry *models.AuditEntry) error

	// Close releases the sink's resources.
	Close() error
}
