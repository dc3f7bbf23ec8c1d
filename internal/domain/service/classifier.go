package service

import (
	"fmt"
	"math"

	"github.com/credicefi/crediface/internal/domain/models"
)

// Classify maps a similarity percentage onto the five risk levels using the tenant's
// thresholds, checked from most to least severe. It does not validate threshold order;
// tenants are validated when their configuration is loaded.
func Classify(similarityPct float64, t models.RiskThresholds, tenantLabel string) models.RiskAssessment {
	s := similarityPct / 100

	switch {
	case s >= t.AutoReject:
		return models.RiskAssessment{
			RiskLevel:      models.RiskLevelAutoReject,
			Category:       models.RiskCategoryCritical,
			Decision:       models.DecisionReject,
			Recommendation: "Reject the application automatically",
			Confidence:     confidence(math.Min(100, 90+(s-t.AutoReject)*100)),
			Explanation: fmt.Sprintf("Profile is %.1f%% similar to confirmed defaulters at %s, above the automatic rejection threshold",
				similarityPct, tenantLabel),
			Priority: models.PriorityImmediate,
		}
	case s >= t.High:
		return models.RiskAssessment{
			RiskLevel:      models.RiskLevelHigh,
			Category:       models.RiskCategoryHigh,
			Decision:       models.DecisionManualReview,
			Recommendation: "Send to a senior credit analyst for manual review",
			Confidence:     confidence(math.Min(95, 80+(s-t.High)*150)),
			Explanation: fmt.Sprintf("Profile is %.1f%% similar to confirmed defaulters at %s, a high risk pattern",
				similarityPct, tenantLabel),
			Priority: models.PriorityHigh,
		}
	case s >= t.Medium:
		return models.RiskAssessment{
			RiskLevel:      models.RiskLevelMedium,
			Category:       models.RiskCategoryMedium,
			Decision:       models.DecisionConditionalReview,
			Recommendation: "Review with additional documentation or a co-signer",
			Confidence:     confidence(math.Min(85, 70+(s-t.Medium)*100)),
			Explanation: fmt.Sprintf("Profile is %.1f%% similar to confirmed defaulters at %s, a moderate risk pattern",
				similarityPct, tenantLabel),
			Priority: models.PriorityMedium,
		}
	case s >= t.Low:
		return models.RiskAssessment{
			RiskLevel:      models.RiskLevelLow,
			Category:       models.RiskCategoryLow,
			Decision:       models.DecisionApproveWithConditions,
			Recommendation: "Approve with standard conditions and monitoring",
			Confidence:     confidence(math.Min(80, 60+(s-t.Low)*67)),
			Explanation: fmt.Sprintf("Profile is %.1f%% similar to confirmed defaulters at %s, a low risk pattern",
				similarityPct, tenantLabel),
			Priority: models.PriorityNormal,
		}
	default:
		return models.RiskAssessment{
			RiskLevel:      models.RiskLevelVeryLow,
			Category:       models.RiskCategoryLow,
			Decision:       models.DecisionApprove,
			Recommendation: "Approve the application",
			Confidence:     confidence(math.Max(70, 95-s*50)),
			Explanation: fmt.Sprintf("Profile is only %.1f%% similar to confirmed defaulters at %s, a very low risk pattern",
				similarityPct, tenantLabel),
			Priority: models.PriorityLow,
		}
	}
}

func confidence(v float64) float64 {
	return models.Round1(v)
}
