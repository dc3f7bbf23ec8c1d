// Package ratelimit provides per-tenant request throttling.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds the limiter budget shared by every tenant.
type Config struct {
	// RequestsPerMinute is the sustained rate per tenant.
	RequestsPerMinute int
	// Burst is the number of requests allowed at once.
	Burst int
}

// TenantLimiter keeps one token bucket per tenant.
type TenantLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	buckets map[string]*bucketEntry
	now     func() time.Time
}

type bucketEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewTenantLimiter creates a limiter pool. A non-positive rate disables throttling.
func NewTenantLimiter(cfg Config) *TenantLimiter {
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &TenantLimiter{
		limit:   limit,
		burst:   burst,
		buckets: make(map[string]*bucketEntry),
		now:     time.Now,
	}
}

// Allow consumes one token from the tenant's bucket.
func (l *TenantLimiter) Allow(tenantID string) bool {
	return l.get(tenantID).AllowN(l.now(), 1)
}

// Remaining reports the whole tokens left in the tenant's bucket.
func (l *TenantLimiter) Remaining(tenantID string) int {
	if l.limit == rate.Inf {
		return l.burst
	}
	n := int(l.get(tenantID).TokensAt(l.now()))
	if n < 0 {
		return 0
	}
	return n
}

// Burst returns the bucket capacity.
func (l *TenantLimiter) Burst() int { return l.burst }

func (l *TenantLimiter) get(tenantID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.buckets[tenantID]
	if !ok {
		entry = &bucketEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[tenantID] = entry
	}
	entry.lastUsed = l.now()
	return entry.limiter
}

// Cleanup drops buckets idle for longer than maxIdle and returns how many were removed.
func (l *TenantLimiter) Cleanup(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, entry := range l.buckets {
		if now.Sub(entry.lastUsed) > maxIdle {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked tenants.
func (l *TenantLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
