package audit

import (
	"context"
	"sync"

	"github.com/credicefi/crediface/internal/config"
	"github.com/credicefi/crediface/internal/domain/models"
	"github.com/credicefi/crediface/pkg/constants"
)

// ring is a fixed-capacity circular buffer; the oldest entry is overwritten first.
type ring struct {
	entries []*models.AuditEntry
	next    int
	full    bool
}

// MemoryRing keeps the most recent entries of every tenant in process memory.
type MemoryRing struct {
	size  int
	mu    sync.RWMutex
	rings map[string]*ring
}

// NewMemoryRing creates an in-memory ring holding size entries per tenant.
func NewMemoryRing(size int) *MemoryRing {
	if size <= 0 {
		size = constants.AuditRingSize
	}
	return &MemoryRing{size: size, rings: make(map[string]*ring)}
}

func (m *MemoryRing) Name() string { return config.SinkMemory }

func (m *MemoryRing) Write(_ context.Context, entry *models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rings[entry.TenantID]
	if !ok {
		r = &ring{entries: make([]*models.AuditEntry, m.size)}
		m.rings[entry.TenantID] = r
	}
	r.entries[r.next] = entry
	r.next = (r.next + 1) % m.size
	if r.next == 0 {
		r.full = true
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (m *MemoryRing) Recent(_ context.Context, tenantID string, limit int) ([]*models.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rings[tenantID]
	if !ok {
		return []*models.AuditEntry{}, nil
	}

	count := r.next
	if r.full {
		count = m.size
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	out := make([]*models.AuditEntry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (r.next - i + m.size) % m.size
		out = append(out, r.entries[idx])
	}
	return out, nil
}

func (m *MemoryRing) Close() error { return nil }
