package bia

import (
	"github.com/sells-group/bia-service/internal/model"
)

// Predictive analysis sources.
const (
	PredictionFromEngine   = "engine"
	PredictionFromFallback = "fallback"
)

// BuildPredictive renders a prediction as the document's forecast block.
func BuildPredictive(p *model.Prediction, origin string) model.PredictiveAnalysis {
	sc := func(s model.PredictionScenario) model.Scenario {
		return model.Scenario{RTO: hoursText(s.RTOHours), RPO: hoursText(s.RPOHours), Probability: s.Probability}
	}
	risk := p.RiskAssessment
	risk.Factors = orEmpty(risk.Factors)
	if risk.Level == "" {
		risk.Level = model.Unknown
	}
	return model.PredictiveAnalysis{
		Source:         origin,
		HorizonDays:    p.HorizonDays,
		RTOCurrent:     hoursText(p.RTOCurrentHours),
		RTOForecast:    hoursText(p.RTOForecastHours),
		RPOCurrent:     hoursText(p.RPOCurrentHours),
		RPOForecast:    hoursText(p.RPOForecastHours),
		RiskAssessment: risk,
		Scenarios: model.Scenarios{
			BestCase:   sc(p.Scenarios.BestCase),
			LikelyCase: sc(p.Scenarios.LikelyCase),
			WorstCase:  sc(p.Scenarios.WorstCase),
		},
		ConfidenceOverall: p.ConfidenceOverall,
		Note:              p.Note,
	}
}
