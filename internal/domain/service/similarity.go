package service

import (
	"fmt"
	"math"

	"github.com/credicefi/crediface/internal/domain/models"
)

// ErrNoSharedFeatures is returned for a pair of profiles with no positively weighted
// feature in common.
var ErrNoSharedFeatures = fmt.Errorf("profiles share no weighted feature")

// ScanResult is the outcome of scanning a historical set.
type ScanResult struct {
	// Similarity is the best pair similarity as a percentage in [0,100].
	Similarity float64

	// Scanned counts records that produced a similarity.
	Scanned int

	// Skipped counts records dropped by conversion or computation failures.
	Skipped int

	// NearestIndex is the index of the most similar record, or -1 when none scanned.
	NearestIndex int
}

// PairSimilarity returns max(0, 1-d) where d is the weighted Euclidean distance over
// the features present in both profiles with a positive weight:
//
//	d = sqrt( Σ w_f·(a_f − h_f)² / Σ w_f )
func PairSimilarity(a, h models.NormalizedProfile, w models.FeatureWeights) (float64, error) {
	var num, den float64
	for _, f := range models.AllFeatures {
		wf := w[f]
		if !(wf > 0) {
			continue
		}
		av, okA := a[f]
		hv, okH := h[f]
		if !okA || !okH {
			continue
		}
		diff := av - hv
		num += wf * diff * diff
		den += wf
	}
	if den == 0 {
		return 0, ErrNoSharedFeatures
	}

	sim := math.Max(0, 1-math.Sqrt(num/den))
	if math.IsNaN(sim) {
		return 0, fmt.Errorf("similarity is not a number")
	}
	return sim, nil
}

// Score returns the maximum similarity of the applicant to any historical profile as a
// percentage capped at 100. An empty set scores 0.
func Score(applicant models.NormalizedProfile, historical []models.NormalizedProfile, w models.FeatureWeights) float64 {
	return Scan(applicant, historical, w).Similarity
}

// Scan compares the applicant with every historical profile and keeps the maximum.
// A pair that fails is skipped; the scan always completes. On ties the earliest
// record wins.
func Scan(applicant models.NormalizedProfile, historical []models.NormalizedProfile, w models.FeatureWeights) ScanResult {
	res := ScanResult{NearestIndex: -1}
	best := 0.0
	for i, h := range historical {
		sim, err := safePair(applicant, h, w)
		if err != nil {
			res.Skipped++
			continue
		}
		res.Scanned++
		if res.NearestIndex < 0 || sim > best {
			best, res.NearestIndex = sim, i
		}
	}
	res.Similarity = math.Min(100, best*100)
	return res
}

// ScanRecords maps and normalizes every record before scanning. Records that fail
// conversion or normalization count as skipped.
func ScanRecords(applicant models.NormalizedProfile, records []models.HistoricalDefaultRecord, b models.NormalizationBounds, w models.FeatureWeights) ScanResult {
	profiles := make([]models.NormalizedProfile, 0, len(records))
	index := make([]int, 0, len(records))
	skipped := 0
	for i, rec := range records {
		raw, err := MapHistoricalRecord(rec)
		if err != nil {
			skipped++
			continue
		}
		norm, ok := SafeNormalize(raw, b)
		if !ok {
			skipped++
			continue
		}
		profiles = append(profiles, norm)
		index = append(index, i)
	}

	res := Scan(applicant, profiles, w)
	res.Skipped += skipped
	if res.NearestIndex >= 0 {
		res.NearestIndex = index[res.NearestIndex]
	}
	return res
}

func safePair(a, h models.NormalizedProfile, w models.FeatureWeights) (sim float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			sim, err = 0, fmt.Errorf("similarity panicked: %v", r)
		}
	}()
	return PairSimilarity(a, h, w)
}
