package bia

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/bia-service/internal/model"
)

func TestBand_InclusiveThresholds(t *testing.T) {
	assert.Equal(t, model.ConfidenceHigh, Band(0.8))
	assert.Equal(t, model.ConfidenceHigh, Band(1))
	assert.Equal(t, model.ConfidenceMedium, Band(0.79))
	assert.Equal(t, model.ConfidenceMedium, Band(0.6))
	assert.Equal(t, model.ConfidenceLow, Band(0.59))
	assert.Equal(t, model.ConfidenceLow, Band(0))
}

func TestRound2(t *testing.T) {
	assert.InDelta(t, 0.80, round2((0.6+0.75+0.9+0.82+0.8+0.9)/6), 1e-12)
	assert.InDelta(t, 0.13, round2(0.125), 1e-12)
	assert.InDelta(t, 0.12, round2(0.1249), 1e-12)
	assert.InDelta(t, 0.0, round2(0), 1e-12)
}

func TestAggregate_IgnoresNonContributingSections(t *testing.T) {
	sections := []model.SectionMeta{
		{ConfidenceScore: 0.9, DataSources: []model.SourceName{model.SourceRegistry}},
		{ConfidenceScore: 0.5, DataSources: []model.SourceName{}},
		{ConfidenceScore: 0.6, DataSources: []model.SourceName{model.SourceMonitoring}},
	}
	o := Outcomes{
		model.SourceRegistry:   {Source: model.SourceRegistry, Payload: &model.RegistryPayload{}},
		model.SourceMonitoring: {Source: model.SourceMonitoring, Payload: &model.MonitoringPayload{}},
	}

	a := Aggregate(sections, o)
	assert.InDelta(t, 0.75, a.OverallConfidence, 1e-9)
	assert.Equal(t, model.ConfidenceMedium, a.ConfidenceLevel)
	assert.InDelta(t, 200.0/6, a.DataCompleteness, 1e-9)
	assert.Empty(t, a.Recommendations)
	assert.Equal(t, []model.SourceName{model.SourceEscalation, model.SourcePersonnel, model.SourceFinancial, model.SourcePredictive}, a.MissingSources)
}

func TestAggregate_RecommendationsBelowThreshold(t *testing.T) {
	sections := []model.SectionMeta{{ConfidenceScore: 0.69, DataSources: []model.SourceName{model.SourceFinancial}}}
	a := Aggregate(sections, Outcomes{})
	assert.Len(t, a.Recommendations, 3)

	sections[0].ConfidenceScore = 0.7
	a = Aggregate(sections, Outcomes{})
	assert.Empty(t, a.Recommendations)
}
