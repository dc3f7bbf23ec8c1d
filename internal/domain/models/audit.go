package models

import (
	"encoding/json"
	"time"
)

// AuditEntry represents a single assessment in the audit trail.
type AuditEntry struct {
	RequestID        string    `json:"request_id"`
	TenantID         string    `json:"tenant_id"`
	SimilarityScore  float64   `json:"similarity_score"`
	RiskLevel        RiskLevel `json:"risk_level"`
	Decision         Decision  `json:"decision"`
	Confidence       float64   `json:"confidence"`
	ProcessingTimeMs float64   `json:"processing_time_ms"`
	Timestamp        time.Time `json:"timestamp"`
	LoanAmount       float64   `json:"loan_amount"`
	LoanTermMonths   int       `json:"loan_term_months"`
	LoanPurpose      string    `json:"loan_purpose,omitempty"`

	// Assessment is the signed payload; it is not persisted on its own.
	Assessment RiskAssessment `json:"-"`

	// Hash is the HMAC of the signed payload, set by the audit signer.
	Hash string `json:"hash,omitempty"`
}

// NewAuditEntry derives an audit entry from a completed assessment.
func NewAuditEntry(rec *AssessmentRecord) *AuditEntry {
	return &AuditEntry{
		RequestID:        rec.RequestID,
		TenantID:         rec.TenantID,
		SimilarityScore:  rec.SimilarityScore,
		RiskLevel:        rec.RiskAssessment.RiskLevel,
		Decision:         rec.RiskAssessment.Decision,
		Confidence:       rec.RiskAssessment.Confidence,
		ProcessingTimeMs: rec.ProcessingTimeMs,
		Timestamp:        rec.Timestamp,
		LoanAmount:       rec.Loan.Amount,
		LoanTermMonths:   rec.Loan.TermMonths,
		LoanPurpose:      rec.Loan.Purpose,
		Assessment:       rec.RiskAssessment,
	}
}

// SigningPayload returns the canonical JSON the audit hash is computed over.
func (a *AuditEntry) SigningPayload() ([]byte, error) {
	return json.Marshal(struct {
		RequestID       string         `json:"request_id"`
		TenantID        string         `json:"tenant_id"`
		SimilarityScore float64        `json:"similarity_score"`
		Assessment      RiskAssessment `json:"risk_assessment"`
	}{a.RequestID, a.TenantID, a.SimilarityScore, a.Assessment})
}

// WithHash sets the audit hash.
func (a *AuditEntry) WithHash(hash string) *AuditEntry {
	a.Hash = hash
	return a
}

// PerformanceSummary aggregates a tenant's recent audit entries.
type PerformanceSummary struct {
	TenantID              string           `json:"tenant_id"`
	TotalAssessments      int              `json:"total_assessments"`
	DecisionCounts        map[Decision]int `json:"decision_counts"`
	AverageSimilarity     float64          `json:"average_similarity"`
	AverageProcessingTime float64          `json:"average_processing_time_ms"`
	ApprovalRate          float64          `json:"approval_rate"`
	WindowStart           *time.Time       `json:"window_start,omitempty"`
	WindowEnd             *time.Time       `json:"window_end,omitempty"`
}

// Summarize aggregates entries, which are expected newest first.
func Summarize(tenantID string, entries []*AuditEntry) *PerformanceSummary {
	s := &PerformanceSummary{
		TenantID:       tenantID,
		DecisionCounts: make(map[Decision]int, len(AllDecisions)),
	}
	for _, d := range AllDecisions {
		s.DecisionCounts[d] = 0
	}
	if len(entries) == 0 {
		return s
	}

	var simSum, timeSum float64
	approved := 0
	first, last := entries[0].Timestamp, entries[0].Timestamp
	for _, e := range entries {
		s.DecisionCounts[e.Decision]++
		simSum += e.SimilarityScore
		timeSum += e.ProcessingTimeMs
		if e.Decision == DecisionApprove || e.Decision == DecisionApproveWithConditions {
			approved++
		}
		if e.Timestamp.Before(first) {
			first = e.Timestamp
		}
		if e.Timestamp.After(last) {
			last = e.Timestamp
		}
	}
	n := float64(len(entries))
	s.TotalAssessments = len(entries)
	s.AverageSimilarity = Round1(simSum / n)
	s.AverageProcessingTime = Round1(timeSum / n)
	s.ApprovalRate = Round1(float64(approved) / n * 100)
	s.WindowStart = &first
	s.WindowEnd = &last
	return s
}
