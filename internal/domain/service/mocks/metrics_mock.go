package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordAssessment(tenantID, decision string, similarity float64, duration time.Duration) {
	m.Called(tenantID, decision, similarity, duration)
}

func (m *MockMetrics) RecordAssessmentError(tenantID, errorCode string) {
	m.Called(tenantID, errorCode)
}

func (m *MockMetrics) RecordRecordsSkipped(tenantID string, count int) {
	m.Called(tenantID, count)
}

func (m *MockMetrics) RecordAuditFailure(sink string) {
	m.Called(sink)
}

func (m *MockMetrics) RecordAuditDropped() {
	m.Called()
}

func (m *MockMetrics) RecordCacheAccess(layer string, hit bool) {
	m.Called(layer, hit)
}

func (m *MockMetrics) RecordRateLimitHit(tenantID string) {
	m.Called(tenantID)
}

func (m *MockMetrics) RecordDBQuery(operation string, duration time.Duration) {
	m.Called(operation, duration)
}
