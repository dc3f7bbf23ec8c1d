package service

import (
	"math"

	"github.com/credicefi/crediface/internal/domain/models"
)

// Normalize maps a raw profile onto [0,1] per feature. Missing optional fields take
// their fallback values first, so the result always carries all five features.
//
// Credit score is inverted after scaling so that a higher value means riskier on
// every axis. The debt-to-income ratio is already a fraction and is only clamped.
func Normalize(p models.RawProfile, b models.NormalizationBounds) models.NormalizedProfile {
	full := p.WithFallbacks()

	return models.NormalizedProfile{
		models.FeatureAge:               scale(float64(full.Age), b.Age),
		models.FeatureIncome:            scale(full.MonthlyIncome, b.Income),
		models.FeatureCreditScore:       1 - scale(float64(*full.CreditScore), b.CreditScore),
		models.FeatureDebtToIncomeRatio: clamp01(*full.DebtToIncomeRatio),
		models.FeatureLatePayments:      scale(float64(*full.LatePayments), b.LatePayments),
	}
}

// SafeNormalize normalizes p and reports ok=false when normalization panicked or
// produced a non-finite value.
func SafeNormalize(p models.RawProfile, b models.NormalizationBounds) (out models.NormalizedProfile, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			out, ok = nil, false
		}
	}()

	out = Normalize(p, b)
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
	}
	return out, true
}

func scale(v float64, r models.Range) float64 {
	if !r.Valid() {
		return 0
	}
	return clamp01((v - r.Min) / (r.Max - r.Min))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Max(0, math.Min(1, v))
}
