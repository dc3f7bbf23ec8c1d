package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/credicefi/crediface/internal/config"
	"github.com/credicefi/crediface/pkg/constants"
	"github.com/credicefi/crediface/pkg/logger"
)

func TestMetrics_RecordAssessment(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordAssessment("banco_demo", "REJECT", 97.0, 3*time.Millisecond)
	m.RecordAssessment("banco_demo", "REJECT", 91.2, 2*time.Millisecond)
	m.RecordRecordsSkipped("banco_demo", 2)
	m.RecordRecordsSkipped("banco_demo", 0)
	m.RecordCacheAccess("l1", true)
	m.RecordCacheAccess("l1", false)
	m.RecordAuditDropped()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Assessments.WithLabelValues("banco_demo", "REJECT")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordsSkipped.WithLabelValues("banco_demo")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheAccess.WithLabelValues("l1", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheAccess.WithLabelValues("l1", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuditDropped))
}

func TestZapLogger_ContextFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewZapLoggerFrom(zap.New(core)).WithComponent("assessment")

	ctx := context.WithValue(context.Background(), constants.ContextKeyRequestID, "req-1")
	ctx = context.WithValue(ctx, constants.ContextKeyTenantID, "banco_demo")
	log.Info(ctx, "Assessment completed", logger.Float64("similarity", 60.9))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "banco_demo", fields["tenant_id"])
	assert.Equal(t, "assessment", fields["component"])
	assert.Equal(t, 60.9, fields["similarity"])
}

func TestNewZapLogger_FallsBackToInfo(t *testing.T) {
	log, err := NewZapLogger(&config.LogConfig{Level: "bogus", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestTracingManager_Disabled(t *testing.T) {
	cfg := &config.Config{}
	tm, err := NewTracingManager(context.Background(), cfg, logger.NewNoopLogger())
	require.NoError(t, err)

	ctx, span := tm.StartSpan(context.Background(), "noop")
	defer span.End()
	assert.Empty(t, TraceID(ctx))
	assert.NoError(t, tm.Shutdown(context.Background()))
}
