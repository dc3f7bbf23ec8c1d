// Package models defines the domain models for the CrediFace risk service.
// This file contains the applicant profile shapes that flow through the scoring pipeline.
package models

import "math"

// Feature names one dimension of a profile.
// Feature 表示画像中的一个维度。
type Feature string

const (
	FeatureAge               Feature = "age"
	FeatureIncome            Feature = "income"
	FeatureCreditScore       Feature = "credit_score"
	FeatureDebtToIncomeRatio Feature = "debt_to_income_ratio"
	FeatureLatePayments      Feature = "late_payments"
)

// AllFeatures lists every feature in a fixed order.
var AllFeatures = []Feature{
	FeatureAge,
	FeatureIncome,
	FeatureCreditScore,
	FeatureDebtToIncomeRatio,
	FeatureLatePayments,
}

// Fallback raw values substituted for missing optional fields before normalization.
// 缺失字段在归一化之前使用的回退原始值。
const (
	FallbackAge               = 35
	FallbackMonthlyIncome     = 2_000_000.0
	FallbackCreditScore       = 600
	FallbackDebtToIncomeRatio = 0.45
	FallbackLatePayments      = 1
)

// RawProfile is an applicant or historical borrower before normalization.
// Optional fields are nil when absent.
// RawProfile 是归一化之前的申请人或历史借款人画像，可选字段缺失时为 nil。
type RawProfile struct {
	// Age in years.
	Age int `json:"age"`

	// MonthlyIncome in the tenant's currency units.
	MonthlyIncome float64 `json:"monthly_income"`

	// CreditScore on the 300-850 scale.
	CreditScore *int `json:"credit_score,omitempty"`

	// DebtToIncomeRatio as a fraction.
	DebtToIncomeRatio *float64 `json:"debt_to_income_ratio,omitempty"`

	// LatePayments is a count of late payments.
	LatePayments *int `json:"late_payments,omitempty"`

	// City is informational and never scored.
	City string `json:"city,omitempty"`
}

// WithFallbacks returns a copy of p with every missing optional field set to its
// fallback value. Non-positive age and income are treated as missing.
func (p RawProfile) WithFallbacks() RawProfile {
	out := p
	if out.Age <= 0 {
		out.Age = FallbackAge
	}
	if out.MonthlyIncome <= 0 || math.IsNaN(out.MonthlyIncome) || math.IsInf(out.MonthlyIncome, 0) {
		out.MonthlyIncome = FallbackMonthlyIncome
	}
	if out.CreditScore == nil {
		v := FallbackCreditScore
		out.CreditScore = &v
	}
	if out.DebtToIncomeRatio == nil || math.IsNaN(*out.DebtToIncomeRatio) {
		v := FallbackDebtToIncomeRatio
		out.DebtToIncomeRatio = &v
	}
	if out.LatePayments == nil {
		v := FallbackLatePayments
		out.LatePayments = &v
	}
	return out
}

// FallbackProfile is the safe profile used when an applicant cannot be normalized.
func FallbackProfile() RawProfile {
	return RawProfile{}.WithFallbacks()
}

// NormalizedProfile maps each feature to a value in [0,1].
// A sparse profile omits features; the scorer compares shared features only.
type NormalizedProfile map[Feature]float64

// Clone returns an independent copy of the profile.
func (p NormalizedProfile) Clone() NormalizedProfile {
	out := make(NormalizedProfile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// FeatureWeights maps each feature to a non-negative weight. Weights need not sum to 1.
type FeatureWeights map[Feature]float64

// DefaultFeatureWeights returns the weights applied when a tenant configures none.
func DefaultFeatureWeights() FeatureWeights {
	return FeatureWeights{
		FeatureAge:               0.15,
		FeatureIncome:            0.25,
		FeatureCreditScore:       0.30,
		FeatureDebtToIncomeRatio: 0.20,
		FeatureLatePayments:      0.10,
	}
}

// Total returns the sum of all positive weights.
func (w FeatureWeights) Total() float64 {
	var sum float64
	for _, v := range w {
		if v > 0 {
			sum += v
		}
	}
	return sum
}

// Range is a closed numeric interval used for min-max scaling.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Valid reports whether the range is usable for scaling.
func (r Range) Valid() bool {
	return r.Max > r.Min && !math.IsNaN(r.Min) && !math.IsNaN(r.Max)
}

// NormalizationBounds are the scaling ranges per feature. The debt-to-income ratio
// is already a fraction and has no range.
// NormalizationBounds 是每个特征的缩放区间。
type NormalizationBounds struct {
	Age          Range `json:"age"`
	Income       Range `json:"income"`
	CreditScore  Range `json:"credit_score"`
	LatePayments Range `json:"late_payments"`
}

// DefaultNormalizationBounds returns the bounds calibrated for monthly incomes in COP.
func DefaultNormalizationBounds() NormalizationBounds {
	return NormalizationBounds{
		Age:          Range{Min: 18, Max: 80},
		Income:       Range{Min: 1_000_000, Max: 50_000_000},
		CreditScore:  Range{Min: 300, Max: 850},
		LatePayments: Range{Min: 0, Max: 20},
	}
}

// Merge returns b with every invalid range replaced by the matching range of def.
func (b NormalizationBounds) Merge(def NormalizationBounds) NormalizationBounds {
	out := b
	if !out.Age.Valid() {
		out.Age = def.Age
	}
	if !out.Income.Valid() {
		out.Income = def.Income
	}
	if !out.CreditScore.Valid() {
		out.CreditScore = def.CreditScore
	}
	if !out.LatePayments.Valid() {
		out.LatePayments = def.LatePayments
	}
	return out
}
