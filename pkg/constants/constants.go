// Package constants defines system-wide constants for the CrediFace risk service.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Error Code Constants
// ================================================================================

// ErrorCode is the machine-readable code attached to every AppError.
type ErrorCode string

const (
	// ErrCodeInvalidRequest indicates a malformed or incomplete request payload.
	ErrCodeInvalidRequest ErrorCode = "invalid_request"

	// ErrCodeConfigurationNotFound indicates that no configuration exists for a tenant.
	ErrCodeConfigurationNotFound ErrorCode = "configuration_not_found"

	// ErrCodeDataUnavailable indicates that a tenant's dataset is missing, unreadable
	// or that the tenant is misconfigured.
	ErrCodeDataUnavailable ErrorCode = "data_unavailable"

	// ErrCodeRecordConversion indicates a historical record could not be mapped.
	ErrCodeRecordConversion ErrorCode = "record_conversion_error"

	// ErrCodeComputation indicates an unexpected failure inside normalization or scoring.
	ErrCodeComputation ErrorCode = "computation_error"

	// ErrCodeAuditWrite indicates that an audit sink rejected an entry.
	ErrCodeAuditWrite ErrorCode = "audit_write_failure"

	// ErrCodeRateLimitExceeded indicates the tenant exceeded its request budget.
	ErrCodeRateLimitExceeded ErrorCode = "rate_limit_exceeded"

	// ErrCodeServerError indicates an unexpected internal condition.
	ErrCodeServerError ErrorCode = "server_error"
)

// ================================================================================
// HTTP Header Constants
// ================================================================================

const (
	// HeaderTenantID carries the tenant identifier on every tenant-scoped request.
	HeaderTenantID = "X-Tenant-ID"

	// HeaderRequestID carries the request identifier for correlation.
	HeaderRequestID = "X-Request-ID"
)

// ================================================================================
// Context Key Constants
// ================================================================================

// ContextKey is the type used for values stored in a context.Context.
type ContextKey string

const (
	// ContextKeyRequestID holds the request identifier.
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyTenantID holds the tenant identifier.
	ContextKeyTenantID ContextKey = "tenant_id"

	// ContextKeyTraceID holds the trace identifier.
	ContextKeyTraceID ContextKey = "trace_id"
)

// ================================================================================
// Tenant Status Constants
// ================================================================================

// TenantStatus represents the lifecycle status of an institution.
type TenantStatus string

const (
	// TenantStatusActive indicates the tenant accepts assessments.
	TenantStatusActive TenantStatus = "active"

	// TenantStatusSuspended indicates the tenant is temporarily disabled.
	TenantStatusSuspended TenantStatus = "suspended"

	// TenantStatusMisconfigured indicates the tenant configuration failed validation.
	TenantStatusMisconfigured TenantStatus = "misconfigured"
)

// ================================================================================
// Audit Constants
// ================================================================================

const (
	// AuditRingSize is the number of most recent audit entries retained per tenant.
	AuditRingSize = 1000

	// AuditDefaultBufferSize is the default capacity of the async audit queue.
	AuditDefaultBufferSize = 1024

	// AuditDefaultWorkers is the default number of audit dispatch workers.
	AuditDefaultWorkers = 2

	// AuditWriteTimeout bounds a single sink write.
	AuditWriteTimeout = 5 * time.Second
)

// ================================================================================
// Cache Constants
// ================================================================================

const (
	// TenantConfigL1TTL is the in-memory cache lifetime for tenant snapshots.
	TenantConfigL1TTL = 1 * time.Minute

	// TenantConfigL2TTL is the Redis cache lifetime for tenant snapshots.
	TenantConfigL2TTL = 30 * time.Minute

	// TenantCacheCleanupInterval is how often expired L1 entries are purged.
	TenantCacheCleanupInterval = 5 * time.Minute
)

// ================================================================================
// Assessment Constants
// ================================================================================

const (
	// DefaultResolveTimeout bounds configuration and dataset resolution.
	DefaultResolveTimeout = 2 * time.Second

	// DefaultBatchConcurrency is the number of assessments run in parallel per batch.
	DefaultBatchConcurrency = 8

	// DefaultMaxBatchSize is the largest accepted batch.
	DefaultMaxBatchSize = 100

	// DefaultRecentLimit is the default page size for recent audit entries.
	DefaultRecentLimit = 50
)
