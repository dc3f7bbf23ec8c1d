// Package models defines the domain models for the CrediFace risk service.
// This file contains the tenant configuration model with its load-time validation.
package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/credicefi/crediface/pkg/constants"
)

// TenantConfig is the per-institution configuration that parameterizes an assessment.
// Each tenant carries its own thresholds, weights and optional scaling bounds.
// TenantConfig 是按机构划分的配置，为每次评估提供参数。
// 每个租户都有自己的阈值、权重和可选的缩放区间。
type TenantConfig struct {
	// InstitutionInfo describes the institution.
	// InstitutionInfo 描述机构信息。
	InstitutionInfo InstitutionInfo `json:"institution_info"`

	// RiskConfiguration holds the classifier thresholds.
	// RiskConfiguration 保存分类器阈值。
	RiskConfiguration RiskThresholds `json:"risk_configuration"`

	// FeatureWeights holds the scorer weights. Empty means DefaultFeatureWeights.
	// FeatureWeights 保存评分器权重，为空时使用默认权重。
	FeatureWeights FeatureWeights `json:"feature_weights,omitempty"`

	// NormalizationBounds overrides the default scaling ranges when present.
	// NormalizationBounds 存在时覆盖默认缩放区间。
	NormalizationBounds *NormalizationBounds `json:"normalization_bounds,omitempty"`

	// UICustomization is passed through to clients untouched.
	// UICustomization 原样透传给客户端。
	UICustomization *UICustomization `json:"ui_customization,omitempty"`
}

// InstitutionInfo holds descriptive tenant metadata.
type InstitutionInfo struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	ShortName string                 `json:"short_name,omitempty"`
	Country   string                 `json:"country,omitempty"`
	Status    constants.TenantStatus `json:"status,omitempty"`
	Created   string                 `json:"created,omitempty"`
}

// RiskThresholds are the similarity fractions at which each risk level begins.
// RiskThresholds 是各风险等级起始的相似度比例。
type RiskThresholds struct {
	AutoReject float64 `json:"auto_reject_threshold"`
	High       float64 `json:"high_risk_threshold"`
	Medium     float64 `json:"medium_risk_threshold"`
	Low        float64 `json:"low_risk_threshold"`
}

// DefaultRiskThresholds returns the thresholds of the reference institution.
func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{AutoReject: 0.90, High: 0.80, Medium: 0.65, Low: 0.35}
}

// Validate checks that every threshold is a fraction and that they descend strictly.
func (t RiskThresholds) Validate() error {
	named := []struct {
		name  string
		value float64
	}{
		{"auto_reject_threshold", t.AutoReject},
		{"high_risk_threshold", t.High},
		{"medium_risk_threshold", t.Medium},
		{"low_risk_threshold", t.Low},
	}
	for _, n := range named {
		if math.IsNaN(n.value) || n.value < 0 || n.value > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", n.name, n.value)
		}
	}
	if !(t.AutoReject > t.High && t.High > t.Medium && t.Medium > t.Low) {
		return fmt.Errorf("thresholds must descend strictly: auto_reject %v > high %v > medium %v > low %v",
			t.AutoReject, t.High, t.Medium, t.Low)
	}
	return nil
}

// UICustomization holds branding settings for tenant front-ends.
type UICustomization struct {
	PrimaryColor   string `json:"primary_color,omitempty"`
	SecondaryColor string `json:"secondary_color,omitempty"`
	Theme          string `json:"theme,omitempty"`
}

// EffectiveWeights returns the configured weights, or the defaults when none are set.
func (c *TenantConfig) EffectiveWeights() FeatureWeights {
	if len(c.FeatureWeights) == 0 {
		return DefaultFeatureWeights()
	}
	return c.FeatureWeights
}

// EffectiveBounds returns the configured scaling bounds merged over the defaults.
func (c *TenantConfig) EffectiveBounds() NormalizationBounds {
	def := DefaultNormalizationBounds()
	if c.NormalizationBounds == nil {
		return def
	}
	return c.NormalizationBounds.Merge(def)
}

// Label returns the name shown in explanations.
func (c *TenantConfig) Label() string {
	if c.InstitutionInfo.Name != "" {
		return c.InstitutionInfo.Name
	}
	return c.InstitutionInfo.ID
}

// IsActive reports whether the tenant accepts assessments.
func (c *TenantConfig) IsActive() bool {
	return c.InstitutionInfo.Status == "" || c.InstitutionInfo.Status == constants.TenantStatusActive
}

// Validate checks the configuration at load time. A tenant that fails validation
// is treated as misconfigured and never reaches the classifier.
func (c *TenantConfig) Validate() error {
	if err := c.RiskConfiguration.Validate(); err != nil {
		return fmt.Errorf("risk_configuration: %w", err)
	}

	if len(c.FeatureWeights) > 0 {
		known := make(map[Feature]bool, len(AllFeatures))
		for _, f := range AllFeatures {
			known[f] = true
		}
		for f, w := range c.FeatureWeights {
			if !known[f] {
				return fmt.Errorf("feature_weights: unknown feature %q", f)
			}
			if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
				return fmt.Errorf("feature_weights: %s must be a non-negative number, got %v", f, w)
			}
		}
		if c.FeatureWeights.Total() <= 0 {
			return fmt.Errorf("feature_weights: at least one weight must be positive")
		}
	}

	if b := c.NormalizationBounds; b != nil {
		for name, r := range map[string]Range{
			"age": b.Age, "income": b.Income, "credit_score": b.CreditScore, "late_payments": b.LatePayments,
		} {
			// zero ranges fall back to defaults; anything else must be usable
			if r != (Range{}) && !r.Valid() {
				return fmt.Errorf("normalization_bounds: %s range [%v,%v] is invalid", name, r.Min, r.Max)
			}
		}
	}
	return nil
}

// TenantSummary is the listing view of a tenant.
type TenantSummary struct {
	ID      string                 `json:"id"`
	Name    string                 `json:"name"`
	Country string                 `json:"country,omitempty"`
	Status  constants.TenantStatus `json:"status"`
	Source  string                 `json:"source"`
}

// HistoricalDefaultRecord is one row of a tenant's historical dataset, keyed by the
// column names found at the source.
// HistoricalDefaultRecord 是租户历史数据集中的一行，以源列名为键。
type HistoricalDefaultRecord struct {
	Fields map[string]string `json:"fields"`
	Source string            `json:"source,omitempty"`
	Row    int               `json:"row"`
}

// Get returns the trimmed value of the first present, non-empty key.
func (r HistoricalDefaultRecord) Get(keys ...string) (string, string, bool) {
	for _, k := range keys {
		if v, ok := r.Fields[k]; ok {
			v = strings.TrimSpace(v)
			if v != "" {
				return k, v, true
			}
		}
	}
	return "", "", false
}
