package predictive

import (
	"time"

	"github.com/sells-group/bia-service/internal/model"
)

// FallbackConfidence is the confidence of the baseline forecast.
const FallbackConfidence = 0.6

// Fallback returns the baseline forecast used when the engine is down. The
// note carries the reason.
func Fallback(reason string, horizonDays int) *model.Prediction {
	if horizonDays <= 0 {
		horizonDays = 90
	}
	note := "Predictive engine unavailable; baseline estimates shown"
	if reason != "" {
		note += " (" + reason + ")"
	}
	return &model.Prediction{
		GeneratedAt:      time.Now().UTC(),
		HorizonDays:      horizonDays,
		RTOCurrentHours:  4,
		RTOForecastHours: 4,
		RPOCurrentHours:  1,
		RPOForecastHours: 1,
		RiskAssessment: model.RiskAssessment{
			Level:   "Medium",
			Score:   0.5,
			Factors: []string{"No forecast available; baseline recovery profile assumed"},
		},
		Scenarios: model.PredictionScenarios{
			BestCase:   model.PredictionScenario{RTOHours: 2, RPOHours: 0.25, Probability: 0.2},
			LikelyCase: model.PredictionScenario{RTOHours: 4, RPOHours: 1, Probability: 0.6},
			WorstCase:  model.PredictionScenario{RTOHours: 12, RPOHours: 4, Probability: 0.2},
		},
		ConfidenceOverall: FallbackConfidence,
		Note:              note,
	}
}
