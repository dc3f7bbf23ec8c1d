package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/credicefi/crediface/internal/domain/models"
	"github.com/credicefi/crediface/internal/domain/service"
	"github.com/credicefi/crediface/internal/domain/service/mocks"
	"github.com/credicefi/crediface/pkg/logger"
)

func entry(tenantID string, n int) *models.AuditEntry {
	return &models.AuditEntry{
		RequestID:       fmt.Sprintf("req-%d", n),
		TenantID:        tenantID,
		SimilarityScore: float64(n),
		RiskLevel:       models.RiskLevelLow,
		Decision:        models.DecisionApproveWithConditions,
		Timestamp:       time.Date(2024, 1, 1, 0, 0, n, 0, time.UTC),
		Assessment: models.RiskAssessment{
			RiskLevel: models.RiskLevelLow,
			Decision:  models.DecisionApproveWithConditions,
		},
	}
}

func requestIDs(entries []*models.AuditEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.RequestID)
	}
	return ids
}

func TestMemoryRing_EvictsOldest(t *testing.T) {
	ring := NewMemoryRing(3)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		require.NoError(t, ring.Write(ctx, entry("banco_demo", i)))
	}
	require.NoError(t, ring.Write(ctx, entry("coop_sur", 9)))

	got, err := ring.Recent(ctx, "banco_demo", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"req-5", "req-4", "req-3"}, requestIDs(got))

	got, err = ring.Recent(ctx, "banco_demo", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"req-5", "req-4"}, requestIDs(got))

	got, err = ring.Recent(ctx, "coop_sur", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"req-9"}, requestIDs(got))

	got, err = ring.Recent(ctx, "ghost", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisRing_LPushLTrim(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ring := NewRedisRing(client, 3)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		require.NoError(t, ring.Write(ctx, entry("banco_demo", i)))
	}

	n, err := client.LLen(ctx, ringKey("banco_demo")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	got, err := ring.Recent(ctx, "banco_demo", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"req-5", "req-4", "req-3"}, requestIDs(got))
	assert.Equal(t, models.DecisionApproveWithConditions, got[0].Decision)
}

func TestSigner(t *testing.T) {
	assert.Nil(t, NewSigner(""))

	s := NewSigner("s3cret")
	e := entry("banco_demo", 1)
	require.NoError(t, s.Sign(e))
	assert.NotEmpty(t, e.Hash)
	assert.True(t, s.Verify(e))

	e.SimilarityScore = 99
	assert.False(t, s.Verify(e))

	other := NewSigner("other")
	e.SimilarityScore = 1
	assert.False(t, other.Verify(e))
}

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaSink_KeyedByTenant(t *testing.T) {
	w := &fakeWriter{}
	sink := &KafkaSink{writer: w}

	require.NoError(t, sink.Write(context.Background(), entry("banco_demo", 7)))
	require.Len(t, w.messages, 1)
	assert.Equal(t, "banco_demo", string(w.messages[0].Key))

	var decoded models.AuditEntry
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &decoded))
	assert.Equal(t, "req-7", decoded.RequestID)

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}

func TestDispatcher_FanOutAndFailures(t *testing.T) {
	memory := NewMemoryRing(10)
	failing := new(mocks.MockAuditSink)
	failing.On("Name").Return("failing")
	failing.On("Write", mock.Anything, mock.Anything).Return(fmt.Errorf("disk full"))
	failing.On("Close").Return(nil)

	metrics := new(mocks.MockMetrics)
	metrics.On("RecordAuditFailure", "failing").Return()

	d := NewDispatcher([]service.AuditSink{failing, memory}, NewSigner("k"), Options{Workers: 1}, metrics, logger.NewNoopLogger())
	for i := 1; i <= 3; i++ {
		d.Publish(context.Background(), entry("banco_demo", i))
	}
	require.NoError(t, d.Close(context.Background()))

	got, err := d.Recent(context.Background(), "banco_demo", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"req-3", "req-2", "req-1"}, requestIDs(got))
	assert.NotEmpty(t, got[0].Hash)

	metrics.AssertNumberOfCalls(t, "RecordAuditFailure", 3)
	failing.AssertCalled(t, "Close")
}

type blockingSink struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSink) Name() string { return "blocking" }

func (b *blockingSink) Write(ctx context.Context, _ *models.AuditEntry) error {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return nil
}

func (b *blockingSink) Close() error { return nil }

func TestDispatcher_DropsWhenFull(t *testing.T) {
	sink := &blockingSink{started: make(chan struct{}), release: make(chan struct{})}
	metrics := new(mocks.MockMetrics)
	metrics.On("RecordAuditDropped").Return()

	d := NewDispatcher([]service.AuditSink{sink}, nil, Options{BufferSize: 1, Workers: 1, WriteTimeout: time.Second}, metrics, logger.NewNoopLogger())

	d.Publish(context.Background(), entry("banco_demo", 1))
	<-sink.started
	d.Publish(context.Background(), entry("banco_demo", 2))
	d.Publish(context.Background(), entry("banco_demo", 3))

	metrics.AssertNumberOfCalls(t, "RecordAuditDropped", 1)

	close(sink.release)
	require.NoError(t, d.Close(context.Background()))

	d.Publish(context.Background(), entry("banco_demo", 4))
	metrics.AssertNumberOfCalls(t, "RecordAuditDropped", 2)
}

func TestDispatcher_PublishIgnoresCanceledRequest(t *testing.T) {
	memory := NewMemoryRing(10)
	d := NewDispatcher([]service.AuditSink{memory}, nil, Options{}, nil, logger.NewNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	d.Publish(ctx, entry("banco_demo", 1))
	cancel()
	require.NoError(t, d.Close(context.Background()))

	got, err := memory.Recent(context.Background(), "banco_demo", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDispatcher_RecentWithoutReader(t *testing.T) {
	w := &KafkaSink{writer: &fakeWriter{}}
	d := NewDispatcher([]service.AuditSink{w}, nil, Options{}, nil, logger.NewNoopLogger())
	defer d.Close(context.Background())

	_, err := d.Recent(context.Background(), "banco_demo", 5)
	assert.Error(t, err)
}
