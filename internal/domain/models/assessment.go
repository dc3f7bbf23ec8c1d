package models

import (
	"math"
	"time"
)

// RiskLevel is the outcome tier of a classification.
type RiskLevel string

const (
	RiskLevelAutoReject RiskLevel = "AUTO_REJECT"
	RiskLevelHigh       RiskLevel = "HIGH_RISK"
	RiskLevelMedium     RiskLevel = "MEDIUM_RISK"
	RiskLevelLow        RiskLevel = "LOW_RISK"
	RiskLevelVeryLow    RiskLevel = "VERY_LOW_RISK"
)

// Severity orders levels from least (0) to most (4) severe.
func (l RiskLevel) Severity() int {
	switch l {
	case RiskLevelAutoReject:
		return 4
	case RiskLevelHigh:
		return 3
	case RiskLevelMedium:
		return 2
	case RiskLevelLow:
		return 1
	default:
		return 0
	}
}

// RiskCategory groups levels for reporting.
type RiskCategory string

const (
	RiskCategoryCritical RiskCategory = "CRITICAL"
	RiskCategoryHigh     RiskCategory = "HIGH"
	RiskCategoryMedium   RiskCategory = "MEDIUM"
	RiskCategoryLow      RiskCategory = "LOW"
)

// Decision is the action taken on an application.
type Decision string

const (
	DecisionReject                Decision = "REJECT"
	DecisionManualReview          Decision = "MANUAL_REVIEW"
	DecisionConditionalReview     Decision = "CONDITIONAL_REVIEW"
	DecisionApproveWithConditions Decision = "APPROVE_WITH_CONDITIONS"
	DecisionApprove               Decision = "APPROVE"
)

// AllDecisions lists decisions from most to least severe.
var AllDecisions = []Decision{
	DecisionReject,
	DecisionManualReview,
	DecisionConditionalReview,
	DecisionApproveWithConditions,
	DecisionApprove,
}

// Priority is the review urgency attached to a decision.
type Priority string

const (
	PriorityImmediate Priority = "IMMEDIATE"
	PriorityHigh      Priority = "HIGH"
	PriorityMedium    Priority = "MEDIUM"
	PriorityNormal    Priority = "NORMAL"
	PriorityLow       Priority = "LOW"
)

// RiskAssessment is the classifier output for one similarity value.
type RiskAssessment struct {
	RiskLevel      RiskLevel    `json:"risk_level"`
	Category       RiskCategory `json:"risk_category"`
	Decision       Decision     `json:"decision"`
	Recommendation string       `json:"recommendation"`
	Confidence     float64      `json:"confidence"`
	Explanation    string       `json:"explanation"`
	Priority       Priority     `json:"priority"`
}

// LoanParameters are passed through from the request to the audit trail.
type LoanParameters struct {
	Amount     float64 `json:"loan_amount"`
	TermMonths int     `json:"loan_term_months"`
	Purpose    string  `json:"loan_purpose,omitempty"`
}

// AssessmentRecord is the full result of one assessment request.
type AssessmentRecord struct {
	RequestID        string         `json:"request_id"`
	TenantID         string         `json:"tenant_id"`
	SimilarityScore  float64        `json:"similarity_score"`
	RiskAssessment   RiskAssessment `json:"risk_assessment"`
	ProcessingTimeMs float64        `json:"processing_time_ms"`
	Timestamp        time.Time      `json:"timestamp"`
	Applicant        RawProfile     `json:"applicant"`
	Loan             LoanParameters `json:"loan"`
	RecordsScanned   int            `json:"records_scanned"`
	RecordsSkipped   int            `json:"records_skipped"`
}

// Round1 rounds v to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
