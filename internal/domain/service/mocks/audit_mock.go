package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/credicefi/crediface/internal/domain/models"
)

type MockAuditPublisher struct {
	mock.Mock
}

func (m *MockAuditPublisher) Publish(ctx context.Context, entry *models.AuditEntry) {
	m.Called(ctx, entry)
}

type MockAuditReader struct {
	mock.Mock
}

func (m *MockAuditReader) Recent(ctx context.Context, tenantID string, limit int) ([]*models.AuditEntry, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditEntry), args.Error(1)
}

type MockAuditSink struct {
	mock.Mock
}

func (m *MockAuditSink) Name() string {
	return m.Called().String(0)
}

func (m *MockAuditSink) Write(ctx context.Context, entry *models.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditSink) Close() error {
	return m.Called().Error(0)
}
