package audit

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/credicefi/crediface/internal/config"
	"github.com/credicefi/crediface/internal/domain/models"
	"github.com/credicefi/crediface/pkg/constants"
)

// pgxPool is the subset of *pgxpool.Pool used by PostgresRing.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS assessment_audit (
	id          BIGSERIAL PRIMARY KEY,
	tenant_id   VARCHAR(64) NOT NULL,
	request_id  VARCHAR(64) NOT NULL,
	decision    VARCHAR(32) NOT NULL,
	payload     JSONB NOT NULL,
	hash        TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_assessment_audit_tenant_id ON assessment_audit (tenant_id, id DESC);
`

// PostgresRing appends entries to the assessment_audit table and trims each
// tenant to the newest size rows.
type PostgresRing struct {
	pool pgxPool
	size int
}

// NewPostgresRing creates a PostgreSQL-backed ring holding size entries per tenant.
func NewPostgresRing(pool pgxPool, size int) *PostgresRing {
	if size <= 0 {
		size = constants.AuditRingSize
	}
	return &PostgresRing{pool: pool, size: size}
}

// EnsureSchema creates the audit table if it does not exist.
func (p *PostgresRing) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, auditSchema)
	return err
}

func (p *PostgresRing) Name() string { return config.SinkPostgres }

func (p *PostgresRing) Write(ctx context.Context, entry *models.AuditEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO assessment_audit (tenant_id, request_id, decision, payload, hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.TenantID, entry.RequestID, string(entry.Decision), payload, entry.Hash, entry.Timestamp)
	if err != nil {
		return err
	}

	_, err = p.pool.Exec(ctx, `
		DELETE FROM assessment_audit
		WHERE tenant_id = $1 AND id <= (
			SELECT id FROM assessment_audit WHERE tenant_id = $1
			ORDER BY id DESC OFFSET $2 LIMIT 1
		)`,
		entry.TenantID, p.size)
	return err
}

// Recent returns up to limit entries, newest first.
func (p *PostgresRing) Recent(ctx context.Context, tenantID string, limit int) ([]*models.AuditEntry, error) {
	if limit <= 0 || limit > p.size {
		limit = p.size
	}
	rows, err := p.pool.Query(ctx, `
		SELECT payload FROM assessment_audit
		WHERE tenant_id = $1
		ORDER BY id DESC
		LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*models.AuditEntry, 0, limit)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var entry models.AuditEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		out = append(out, &entry)
	}
	return out, rows.Err()
}

// Close leaves the shared pool open; its owner closes it.
func (p *PostgresRing) Close() error { return nil }
