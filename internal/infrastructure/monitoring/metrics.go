package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/credicefi/crediface/internal/domain/service"
)

// Metrics manages the Prometheus metrics and implements service.Metrics.
type Metrics struct {
	Assessments        *prometheus.CounterVec
	AssessmentDuration *prometheus.HistogramVec
	AssessmentErrors   *prometheus.CounterVec
	SimilarityScore    *prometheus.HistogramVec
	RecordsSkipped     *prometheus.CounterVec
	AuditFailures      *prometheus.CounterVec
	AuditDropped       prometheus.Counter
	CacheAccess        *prometheus.CounterVec
	RateLimitHits      *prometheus.CounterVec
	DBQueryDuration    *prometheus.HistogramVec

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPActiveRequests  prometheus.Gauge
}

var _ service.Metrics = (*Metrics)(nil)

// NewMetrics creates the metrics and registers them with reg. A nil reg uses the
// default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Assessments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crediface_assessments_total",
				Help: "Total number of completed credit assessments.",
			},
			[]string{"tenant_id", "decision"},
		),
		AssessmentDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crediface_assessment_duration_seconds",
				Help:    "End-to-end latency of credit assessments.",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"tenant_id"},
		),
		AssessmentErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crediface_assessment_errors_total",
				Help: "Total number of aborted assessments by error code.",
			},
			[]string{"tenant_id", "code"},
		),
		SimilarityScore: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crediface_similarity_score",
				Help:    "Distribution of similarity to historical defaulters, in percent.",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
			[]string{"tenant_id"},
		),
		RecordsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crediface_records_skipped_total",
				Help: "Historical records skipped because they could not be converted.",
			},
			[]string{"tenant_id"},
		),
		AuditFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crediface_audit_failures_total",
				Help: "Audit entries rejected by a sink.",
			},
			[]string{"sink"},
		),
		AuditDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "crediface_audit_dropped_total",
				Help: "Audit entries dropped because the dispatch queue was full.",
			},
		),
		CacheAccess: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crediface_tenant_cache_access_total",
				Help: "Tenant cache lookups by layer and result.",
			},
			[]string{"layer", "result"},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crediface_rate_limit_hits_total",
				Help: "Requests rejected by the per-tenant rate limiter.",
			},
			[]string{"tenant_id"},
		),
		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crediface_db_query_duration_seconds",
				Help:    "Latency of database queries.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crediface_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crediface_http_request_duration_seconds",
				Help:    "Latency of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPActiveRequests: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "crediface_http_active_requests",
				Help: "HTTP requests currently being served.",
			},
		),
	}
}

// RecordAssessment records one completed assessment.
func (m *Metrics) RecordAssessment(tenantID, decision string, similarity float64, duration time.Duration) {
	m.Assessments.WithLabelValues(tenantID, decision).Inc()
	m.AssessmentDuration.WithLabelValues(tenantID).Observe(duration.Seconds())
	m.SimilarityScore.WithLabelValues(tenantID).Observe(similarity)
}

// RecordAssessmentError records an aborted assessment.
func (m *Metrics) RecordAssessmentError(tenantID, errorCode string) {
	m.AssessmentErrors.WithLabelValues(tenantID, errorCode).Inc()
}

// RecordRecordsSkipped adds count skipped records for a tenant.
func (m *Metrics) RecordRecordsSkipped(tenantID string, count int) {
	if count <= 0 {
		return
	}
	m.RecordsSkipped.WithLabelValues(tenantID).Add(float64(count))
}

// RecordAuditFailure records a sink write failure.
func (m *Metrics) RecordAuditFailure(sink string) {
	m.AuditFailures.WithLabelValues(sink).Inc()
}

// RecordAuditDropped records a dropped audit entry.
func (m *Metrics) RecordAuditDropped() {
	m.AuditDropped.Inc()
}

// RecordCacheAccess records a cache hit or miss.
func (m *Metrics) RecordCacheAccess(layer string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheAccess.WithLabelValues(layer, result).Inc()
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(tenantID string) {
	m.RateLimitHits.WithLabelValues(tenantID).Inc()
}

// RecordDBQuery records the duration of a database query.
func (m *Metrics) RecordDBQuery(operation string, duration time.Duration) {
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ActiveRequestsInc increments the in-flight request gauge.
func (m *Metrics) ActiveRequestsInc() { m.HTTPActiveRequests.Inc() }

// ActiveRequestsDec decrements the in-flight request gauge.
func (m *Metrics) ActiveRequestsDec() { m.HTTPActiveRequests.Dec() }

// ObserveHTTPRequest records one served HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
