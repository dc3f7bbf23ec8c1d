// Package service defines the domain services of the risk engine and the
// interfaces they need from the outside world.
package service

import (
	"time"
)

// Metrics defines the interface for collecting business metrics.
// This abstraction allows the application layer to remain independent of the specific monitoring implementation (e.g., Prometheus).
// Metrics 定义了收集业务指标的接口。
// 这种抽象使应用层能够独立于具体的监控实现（例如 Prometheus）。
type Metrics interface {
	// RecordAssessment records one completed assessment.
	// RecordAssessment 记录一次完成的评估。
	RecordAssessment(tenantID, decision string, similarity float64, duration time.Duration)

	// RecordAssessmentError records an assessment aborted with the given error code.
	// RecordAssessmentError 记录以给定错误码中止的评估。
	RecordAssessmentError(tenantID, errorCode string)

	// RecordRecordsSkipped records historical records skipped during a scan.
	// RecordRecordsSkipped 记录扫描中跳过的历史记录数。
	RecordRecordsSkipped(tenantID string, count int)

	// RecordAuditFailure records an entry rejected by an audit sink.
	// RecordAuditFailure 记录被审计接收端拒绝的条目。
	RecordAuditFailure(sink string)

	// RecordAuditDropped records an entry dropped because the audit queue was full.
	// RecordAuditDropped 记录因审计队列已满而丢弃的条目。
	RecordAuditDropped()

	// RecordCacheAccess records a cache hit or miss.
	// RecordCacheAccess 记录缓存命中或未命中。
	RecordCacheAccess(layer string, hit bool)

	// RecordRateLimitHit records an event when a rate limit is triggered.
	// RecordRateLimitHit 记录触发速率限制的事件。
	RecordRateLimitHit(tenantID string)

	// RecordDBQuery records the duration of a database query.
	// RecordDBQuery 记录数据库查询的持续时间。
	RecordDBQuery(operation string, duration time.Duration)
}

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

func (NoopMetrics) RecordAssessment(string, string, float64, time.Duration) {}
func (NoopMetrics) RecordAssessmentError(string, string)                    {}
func (NoopMetrics) RecordRecordsSkipped(string, int)                        {}
func (NoopMetrics) RecordAuditFailure(string)                               {}
func (NoopMetrics) RecordAuditDropped()                                     {}
func (NoopMetrics) RecordCacheAccess(string, bool)                          {}
func (NoopMetrics) RecordRateLimitHit(string)                               {}
func (NoopMetrics) RecordDBQuery(string, time.Duration)                     {}
