// Package dto provides data transfer objects for the application layer.
package dto

import (
	"encoding/json"
	"fmt"

	"github.com/credicefi/crediface/internal/domain/models"
	"github.com/credicefi/crediface/internal/domain/service"
)

// AssessmentRequest 信用评估请求
type AssessmentRequest struct {
	// TenantID is only read by transports without a tenant header.
	TenantID string `json:"tenant_id,omitempty"`

	Age               int      `json:"age" validate:"required,gte=18,lte=100"`
	MonthlyIncome     float64  `json:"monthly_income" validate:"required,gt=0"`
	CreditScore       *int     `json:"credit_score,omitempty" validate:"omitempty,gte=300,lte=850"`
	DebtToIncomeRatio *float64 `json:"debt_to_income_ratio,omitempty" validate:"omitempty,gte=0,lte=1"`
	LatePayments      *int     `json:"late_payments,omitempty" validate:"omitempty,gte=0"`
	City              string   `json:"city,omitempty" validate:"max=100"`

	LoanAmount     float64 `json:"loan_amount" validate:"gte=0"`
	LoanTermMonths int     `json:"loan_term_months" validate:"gte=0,lte=480"`
	LoanPurpose    string  `json:"loan_purpose,omitempty" validate:"max=200"`
}

// GetTenantID returns the tenant carried in the body.
func (r *AssessmentRequest) GetTenantID() string { return r.TenantID }

// applicantFields are the request keys that accept localized aliases.
var applicantFields = []string{
	service.FieldAge,
	service.FieldMonthlyIncome,
	service.FieldCreditScore,
	service.FieldDebtToIncomeRatio,
	service.FieldLatePayments,
	service.FieldCity,
}

// UnmarshalJSON accepts the localized applicant keys (edad, ingresos, ...) wherever
// the canonical key is absent. Applicant fields may also be nested under an
// "applicant" object; top-level values win over nested ones.
func (r *AssessmentRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	resolveAliases(raw)

	if nested, ok := raw[applicantKey]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(nested, &inner); err != nil {
			return fmt.Errorf("%s: %w", applicantKey, err)
		}
		resolveAliases(inner)
		for _, field := range applicantFields {
			if _, ok := raw[field]; ok {
				continue
			}
			if v, ok := inner[field]; ok {
				raw[field] = v
			}
		}
		delete(raw, applicantKey)
	}

	canonical, err := json.Marshal(raw)
	if err != nil {
		return err
	}

	type plain AssessmentRequest
	var out plain
	if err := json.Unmarshal(canonical, &out); err != nil {
		return err
	}
	*r = AssessmentRequest(out)
	return nil
}

const applicantKey = "applicant"

// resolveAliases copies the first alias found into each missing canonical key.
func resolveAliases(raw map[string]json.RawMessage) {
	for _, field := range applicantFields {
		if _, ok := raw[field]; ok {
			continue
		}
		for _, alias := range service.Aliases(field)[1:] {
			if v, ok := raw[alias]; ok {
				raw[field] = v
				break
			}
		}
	}
}

// ToRawProfile returns the applicant part of the request.
func (r *AssessmentRequest) ToRawProfile() models.RawProfile {
	return models.RawProfile{
		Age:               r.Age,
		MonthlyIncome:     r.MonthlyIncome,
		CreditScore:       r.CreditScore,
		DebtToIncomeRatio: r.DebtToIncomeRatio,
		LatePayments:      r.LatePayments,
		City:              r.City,
	}
}

// Loan returns the loan parameters passed through to the audit trail.
func (r *AssessmentRequest) Loan() models.LoanParameters {
	return models.LoanParameters{
		Amount:     r.LoanAmount,
		TermMonths: r.LoanTermMonths,
		Purpose:    r.LoanPurpose,
	}
}

// BatchAssessmentRequest 批量评估请求
type BatchAssessmentRequest struct {
	Applications []AssessmentRequest `json:"applications" validate:"required,min=1,dive"`
}

// BatchItemResult is the outcome of one application in a batch.
type BatchItemResult struct {
	Index  int                      `json:"index"`
	Record *models.AssessmentRecord `json:"assessment,omitempty"`
	Error  *ErrorDTO                `json:"error,omitempty"`
}

// BatchAssessmentResponse 批量评估响应
type BatchAssessmentResponse struct {
	TenantID  string            `json:"tenant_id"`
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Results   []BatchItemResult `json:"results"`
}

// RecentAssessmentsResponse lists the newest audit entries of a tenant.
type RecentAssessmentsResponse struct {
	TenantID    string               `json:"tenant_id"`
	Count       int                  `json:"count"`
	Assessments []*models.AuditEntry `json:"assessments"`
}
