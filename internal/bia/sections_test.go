package bia

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bia-service/internal/model"
)

func collectAll(t *testing.T, down ...model.SourceName) Outcomes {
	t.Helper()
	return NewCollector(adapters(down...)...).Collect(context.Background(), model.SourceRequest{FunctionName: "PaymentsCore"})
}

func TestRuleDerivedSections_NoPlaceholders(t *testing.T) {
	tables := loadTables(t)
	none := collectAll(t, model.Sources...)

	for _, ft := range model.FunctionTypes {
		req := Request{FunctionName: "x", FunctionType: ft}

		risk := BuildRiskCompliance(none, tables, req)
		assert.Equal(t, "function_types."+string(ft), risk.RuleSet)
		for _, v := range []string{risk.RiskLevel, risk.DataClassification} {
			assert.NotEqual(t, model.TBD, v, ft)
			assert.NotEqual(t, model.Unknown, v, ft)
			assert.NotEmpty(t, v, ft)
		}
		assert.NotEmpty(t, risk.ComplianceRequirements, ft)

		iso := BuildISOClassification(none, tables, req)
		for _, v := range []string{iso.CriticalityTier, iso.DataClassification, iso.MTPD, iso.MBCO} {
			assert.NotContains(t, v, model.TBD, ft)
			assert.NotEqual(t, model.Unknown, v, ft)
			assert.NotEmpty(t, v, ft)
		}
		assert.NotEmpty(t, iso.ResourceRequirements, ft)
	}
}

func TestRuleDerivedSections_UnknownTypeUsesDefaultRow(t *testing.T) {
	tables := loadTables(t)
	req := Request{FunctionName: "x", FunctionType: "quantum"}
	none := collectAll(t, model.Sources...)

	risk := BuildRiskCompliance(none, tables, req)
	assert.Equal(t, "default", risk.RuleSet)
	assert.Equal(t, []string{"ISO 22301"}, risk.ComplianceRequirements)

	iso := BuildISOClassification(none, tables, req)
	assert.Equal(t, "72 hours", iso.MTPD)

	rec := BuildRecovery(none, tables, req)
	assert.Equal(t, "24 hours", rec.TargetRTO)
}

func TestBuildISOClassification_Idempotent(t *testing.T) {
	tables := loadTables(t)
	out := collectAll(t)
	req := paymentsCore()

	first := BuildISOClassification(out, tables, req)
	second := BuildISOClassification(out, tables, req)
	assert.Equal(t, first, second)
	assert.Equal(t, "Payments Platform", first.AssetOwner)
	assert.Equal(t, "3", first.ComponentCount)
	assert.Equal(t, "Restricted", first.DataClassification)
}

func TestBuildBusinessImpact_Formatting(t *testing.T) {
	b := BuildBusinessImpact(collectAll(t), loadTables(t), paymentsCore())
	assert.Equal(t, "$250,000,000", b.AnnualRevenue)
	assert.Equal(t, "$28,540", b.RevenueImpactPerHour)
	assert.Equal(t, "$684,948", b.RevenueImpactPerDay)
	assert.Equal(t, "1,200,000", b.CustomersAffected)
	assert.Equal(t, "CC-4410", b.CostCenter)
	assert.Equal(t, "$5,000,000", b.RegulatoryPenaltyExposure)
	assert.Equal(t, "Tier 1 - Mission Critical", b.ImpactTier)
}

func TestBuildBusinessImpact_DerivesHourlyFromAnnual(t *testing.T) {
	annual := 87600.0
	o := Outcomes{model.SourceFinancial: {
		Source:  model.SourceFinancial,
		Payload: &model.FinancialPayload{PayloadMeta: model.PayloadMeta{ConfidenceScore: 0.7}, AnnualRevenue: &annual},
	}}
	b := BuildBusinessImpact(o, loadTables(t), paymentsCore())
	assert.Equal(t, "$10", b.RevenueImpactPerHour)
	assert.Equal(t, "$240", b.RevenueImpactPerDay)
	assert.Equal(t, model.Unknown, b.CustomersAffected)
	assert.InDelta(t, 0.7, b.ConfidenceScore, 1e-9)
}

func TestBuildRecovery(t *testing.T) {
	r := BuildRecovery(collectAll(t), loadTables(t), paymentsCore())
	assert.Equal(t, "1.5 hours", r.CurrentRTO)
	assert.Equal(t, "15 minutes", r.CurrentRPO)
	assert.Equal(t, "1 hour", r.TargetRTO)
	assert.Equal(t, "15 minutes", r.TargetRPO)
	assert.Equal(t, "2 hours", r.ForecastRTO)
	assert.Equal(t, "30 minutes", r.ForecastRPO)
	assert.Equal(t, "No", r.MeetsTarget)
	assert.Equal(t, []model.SourceName{model.SourceMonitoring, model.SourcePredictive}, r.DataSources)
}

func TestBuildPersonnel_MinimumOfSources(t *testing.T) {
	p := BuildPersonnel(collectAll(t), paymentsCore())
	assert.InDelta(t, 0.6, p.ConfidenceScore, 1e-9)
	assert.Equal(t, "Dana Reyes", p.DRI.Name)
	assert.Equal(t, "14", p.TeamSize)
	assert.Equal(t, "Payments Critical", p.EscalationPolicy)
	assert.Len(t, p.KeyPersonnel, 2)

	// Without the HR source the section inherits the escalation score.
	p = BuildPersonnel(collectAll(t, model.SourcePersonnel), paymentsCore())
	assert.InDelta(t, 0.8, p.ConfidenceScore, 1e-9)
	assert.Equal(t, model.Unknown, p.DRI.Name)
}

func TestBuildTechnology(t *testing.T) {
	tech := BuildTechnology(collectAll(t))
	assert.Equal(t, "Tier 1", tech.ServiceTier)
	assert.Equal(t, "99.95%", tech.Availability30d)
	assert.Len(t, tech.Components, 3)

	tech = BuildTechnology(collectAll(t, model.SourceRegistry, model.SourceMonitoring))
	assert.InDelta(t, DefaultTechnologyScore, tech.ConfidenceScore, 1e-9)
	assert.Empty(t, tech.DataSources)
	assert.NotNil(t, tech.Components)
}

func TestBuildRegionalOverlays(t *testing.T) {
	overlays := BuildRegionalOverlays(loadTables(t), []string{"eu", "apac", "atlantis"})
	require.Len(t, overlays, 3)
	assert.Equal(t, "European Union", overlays[0].DataResidency)
	assert.InDelta(t, KnownRegionScore, overlays[0].ConfidenceScore, 1e-9)
	assert.Equal(t, "Singapore", overlays[1].DataResidency)
	assert.Equal(t, model.TBD, overlays[2].RegulatoryFramework)
	assert.InDelta(t, UnknownRegionScore, overlays[2].ConfidenceScore, 1e-9)

	assert.Empty(t, BuildRegionalOverlays(loadTables(t), nil))
	assert.NotNil(t, BuildRegionalOverlays(loadTables(t), nil))
}

func TestRequestNormalize(t *testing.T) {
	decomposed := "Cafe\u0301 Orders"
	req := Request{FunctionName: "  " + decomposed + "\t", FunctionType: " PLATFORM ", Regions: []string{" EU", "eu", "", "Na"}}.Normalize()

	assert.Equal(t, "Caf\u00e9 Orders", req.FunctionName)
	assert.Equal(t, model.FunctionTypePlatform, req.FunctionType)
	assert.Equal(t, req.FunctionName, req.Team)
	assert.Equal(t, []string{"eu", "na"}, req.Regions)
	assert.NoError(t, req.Validate())

	long := Request{FunctionName: strings.Repeat("x", 201), FunctionType: model.FunctionTypeSupport}
	assert.ErrorIs(t, long.Validate(), ErrValidation)
}

func TestHoursText(t *testing.T) {
	assert.Equal(t, "15 minutes", hoursText(0.25))
	assert.Equal(t, "1 minute", hoursText(1.0/60))
	assert.Equal(t, "1 hour", hoursText(1))
	assert.Equal(t, "12 hours", hoursText(12))
	assert.Equal(t, "2.5 hours", hoursText(2.5))

	h, ok := parseHours("30 minutes")
	assert.True(t, ok)
	assert.InDelta(t, 0.5, h, 1e-9)
	_, ok = parseHours("soon")
	assert.False(t, ok)
}
