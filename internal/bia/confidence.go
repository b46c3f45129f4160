package bia

import (
	"math"

	"github.com/sells-group/bia-service/internal/model"
)

// Confidence band thresholds (inclusive lower bounds).
const (
	HighThreshold   = 0.8
	MediumThreshold = 0.6
	// RecommendationThreshold is the overall score below which remediation
	// recommendations are attached.
	RecommendationThreshold = 0.7
)

// Recommendations attached to low-confidence documents.
var lowConfidenceRecommendations = []string{
	"Re-verify connections to the unavailable or low-confidence data sources",
	"Fill in missing data manually before submitting for approval",
	"Schedule a validation review with the function's DRI",
}

// Aggregate rolls section scores and source outcomes into the document-level
// assessment. Only sections with at least one contributing source count
// toward the overall score; completeness counts succeeded sources.
func Aggregate(sections []model.SectionMeta, o Outcomes) model.ConfidenceAssessment {
	var sum float64
	var n int
	for _, s := range sections {
		if !s.Contributing() {
			continue
		}
		sum += clamp01(s.ConfidenceScore)
		n++
	}
	overall := 0.0
	if n > 0 {
		overall = round2(sum / float64(n))
	}

	succeeded := len(o.Succeeded())
	a := model.ConfidenceAssessment{
		OverallConfidence: overall,
		DataCompleteness:  float64(succeeded) * 100 / float64(len(model.Sources)),
		ConfidenceLevel:   Band(overall),
		Recommendations:   []string{},
		MissingSources:    o.Missing(),
	}
	if overall < RecommendationThreshold {
		a.Recommendations = append(a.Recommendations, lowConfidenceRecommendations...)
	}
	return a
}

// Band maps a score to High, Medium or Low.
func Band(score float64) string {
	switch {
	case score >= HighThreshold:
		return model.ConfidenceHigh
	case score >= MediumThreshold:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// round2 rounds half up to two decimals. The epsilon absorbs binary
// representation error, so a mean of 0.795 rounds to 0.80.
func round2(v float64) float64 {
	return math.Round(v*100+1e-9) / 100
}
