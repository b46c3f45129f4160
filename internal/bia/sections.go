package bia

import (
	"math"

	"github.com/sells-group/bia-service/internal/model"
	"github.com/sells-group/bia-service/internal/rules"
)

// Section default scores, used when none of a section's sources returned
// data.
const (
	DefaultPersonnelScore      = 0.5
	DefaultBusinessImpactScore = 0.5
	DefaultTechnologyScore     = 0.6
	DefaultRecoveryScore       = 0.6
	DefaultRiskScore           = 0.7
	DefaultISOScore            = 0.7
)

// sectionMeta scores a section from its sources: the lowest confidence among
// the sources that succeeded, or def when none did.
func sectionMeta(o Outcomes, def float64, names ...model.SourceName) model.SectionMeta {
	meta := model.SectionMeta{DataSources: []model.SourceName{}}
	score := math.Inf(1)
	for _, name := range names {
		oc, ok := o[name]
		if !ok || !oc.OK() {
			continue
		}
		meta.DataSources = append(meta.DataSources, name)
		score = math.Min(score, clamp01(oc.Payload.Confidence()))
	}
	if len(meta.DataSources) == 0 {
		meta.ConfidenceScore = def
		return meta
	}
	meta.ConfidenceScore = score
	return meta
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func ruleSet(tables *rules.Tables, ft model.FunctionType) (rules.FunctionRule, string) {
	row, ok := tables.Function(ft)
	if !ok {
		return row, "default"
	}
	return row, "function_types." + string(ft)
}

// BuildPersonnel fills the people section from the HR directory and the
// escalation system.
func BuildPersonnel(o Outcomes, req Request) model.PersonnelSection {
	s := model.PersonnelSection{
		SectionMeta:        sectionMeta(o, DefaultPersonnelScore, model.SourcePersonnel, model.SourceEscalation),
		DRI:                model.Person{Name: model.Unknown, Role: model.Unknown},
		TeamName:           orUnknown(req.DRITeam),
		TeamSize:           model.Unknown,
		KeyPersonnel:       []model.Person{},
		OnCallRotation:     model.Unknown,
		EscalationPolicy:   model.Unknown,
		EscalationContacts: []string{},
	}

	if p, ok := payloadOf[*model.PersonnelPayload](o, model.SourcePersonnel); ok {
		if p.DRI != nil {
			s.DRI = model.Person{Name: orUnknown(p.DRI.Name), Role: orUnknown(p.DRI.Role), Email: p.DRI.Email}
		}
		if p.TeamName != "" && req.DRITeam == "" {
			s.TeamName = p.TeamName
		}
		s.TeamSize = count(p.TeamSize)
		s.KeyPersonnel = orEmpty(p.KeyPersonnel)
	}
	if req.DRIName != "" {
		s.DRI.Name = req.DRIName
	}

	if e, ok := payloadOf[*model.EscalationPayload](o, model.SourceEscalation); ok {
		s.OnCallRotation = orUnknown(e.OnCallRotation)
		s.EscalationPolicy = orUnknown(e.EscalationPolicy)
		s.EscalationContacts = orEmpty(e.Contacts)
	}
	return s
}

// BuildBusinessImpact fills the financial impact section.
func BuildBusinessImpact(o Outcomes, tables *rules.Tables, req Request) model.BusinessImpactSection {
	row, _ := ruleSet(tables, req.FunctionType)
	s := model.BusinessImpactSection{
		SectionMeta:               sectionMeta(o, DefaultBusinessImpactScore, model.SourceFinancial),
		ImpactTier:                row.CriticalityTier,
		AnnualRevenue:             model.Unknown,
		RevenueImpactPerHour:      model.Unknown,
		RevenueImpactPerDay:       model.Unknown,
		CustomersAffected:         model.Unknown,
		CostCenter:                model.Unknown,
		RegulatoryPenaltyExposure: model.Unknown,
	}

	f, ok := payloadOf[*model.FinancialPayload](o, model.SourceFinancial)
	if !ok {
		return s
	}
	perHour := f.RevenuePerHour
	if perHour == nil && f.AnnualRevenue != nil {
		v := *f.AnnualRevenue / (365 * 24)
		perHour = &v
	}
	s.AnnualRevenue = money(f.AnnualRevenue)
	s.RevenueImpactPerHour = money(perHour)
	if perHour != nil {
		perDay := *perHour * 24
		s.RevenueImpactPerDay = money(&perDay)
	}
	s.CustomersAffected = count(f.CustomersServed)
	s.CostCenter = orUnknown(f.CostCenter)
	s.RegulatoryPenaltyExposure = money(f.RegulatoryPenaltyExposure)
	return s
}

// BuildTechnology fills the technology section from the registry and
// monitoring.
func BuildTechnology(o Outcomes) model.TechnologySection {
	s := model.TechnologySection{
		SectionMeta:        sectionMeta(o, DefaultTechnologyScore, model.SourceRegistry, model.SourceMonitoring),
		ServiceTier:        model.Unknown,
		HostingPlatform:    model.Unknown,
		Components:         []model.Component{},
		Dependencies:       []string{},
		DataStores:         []string{},
		Availability30d:    model.Unknown,
		ErrorRate:          model.Unknown,
		MonitoringCoverage: model.Unknown,
	}
	if r, ok := payloadOf[*model.RegistryPayload](o, model.SourceRegistry); ok {
		s.ServiceTier = orUnknown(r.ServiceTier)
		s.HostingPlatform = orUnknown(r.HostingPlatform)
		s.Components = orEmpty(r.Components)
		s.Dependencies = orEmpty(r.Dependencies)
		s.DataStores = orEmpty(r.DataStores)
	}
	if m, ok := payloadOf[*model.MonitoringPayload](o, model.SourceMonitoring); ok {
		s.Availability30d = percent(m.Availability30d)
		s.ErrorRate = percent(m.ErrorRate)
		s.MonitoringCoverage = orUnknown(m.MonitoringCoverage)
	}
	return s
}

// BuildRecovery fills the recovery objectives section. Targets come from the
// rule table, measurements from monitoring and forecasts from the predictive
// source.
func BuildRecovery(o Outcomes, tables *rules.Tables, req Request) model.RecoverySection {
	row, _ := ruleSet(tables, req.FunctionType)
	s := model.RecoverySection{
		SectionMeta:      sectionMeta(o, DefaultRecoveryScore, model.SourceMonitoring, model.SourcePredictive),
		CurrentRTO:       model.TBD,
		CurrentRPO:       model.TBD,
		TargetRTO:        row.RTOTarget,
		TargetRPO:        row.RPOTarget,
		ForecastRTO:      model.TBD,
		ForecastRPO:      model.TBD,
		RecoveryStrategy: row.RecoveryStrategy,
		BackupFrequency:  model.Unknown,
		MeetsTarget:      model.TBD,
	}

	if m, ok := payloadOf[*model.MonitoringPayload](o, model.SourceMonitoring); ok {
		s.CurrentRTO = minutesText(m.MeasuredRTOMinutes)
		s.CurrentRPO = minutesText(m.MeasuredRPOMinutes)
		s.BackupFrequency = orUnknown(m.BackupFrequency)
		s.MeetsTarget = meetsTarget(m, row)
	}
	if p, ok := payloadOf[*model.Prediction](o, model.SourcePredictive); ok {
		s.ForecastRTO = hoursText(p.RTOForecastHours)
		s.ForecastRPO = hoursText(p.RPOForecastHours)
	}
	return s
}

func meetsTarget(m *model.MonitoringPayload, row rules.FunctionRule) string {
	if m.MeasuredRTOMinutes == nil || m.MeasuredRPOMinutes == nil {
		return model.TBD
	}
	rto, ok1 := parseHours(row.RTOTarget)
	rpo, ok2 := parseHours(row.RPOTarget)
	if !ok1 || !ok2 {
		return model.TBD
	}
	if float64(*m.MeasuredRTOMinutes)/60 <= rto && float64(*m.MeasuredRPOMinutes)/60 <= rpo {
		return "Yes"
	}
	return "No"
}

// BuildRiskCompliance derives risk and compliance content from the rule table
// and the incident history.
func BuildRiskCompliance(o Outcomes, tables *rules.Tables, req Request) model.RiskComplianceSection {
	row, set := ruleSet(tables, req.FunctionType)
	s := model.RiskComplianceSection{
		SectionMeta:            sectionMeta(o, DefaultRiskScore, model.SourceEscalation),
		RuleSet:                set,
		RiskLevel:              row.RiskLevel,
		ComplianceRequirements: row.ComplianceRequirements,
		DataClassification:     row.DataClassification,
		IncidentHistory: model.IncidentHistory{
			Incidents90d:      model.Unknown,
			MajorIncidents90d: model.Unknown,
			MeanTimeToResolve: model.Unknown,
		},
	}
	if e, ok := payloadOf[*model.EscalationPayload](o, model.SourceEscalation); ok {
		s.IncidentHistory.Incidents90d = count(e.Incidents90d)
		s.IncidentHistory.MajorIncidents90d = count(e.MajorIncidents90d)
		if e.MTTRMinutes != nil {
			s.IncidentHistory.MeanTimeToResolve = minutesText(e.MTTRMinutes)
		}
	}
	return s
}

// BuildISOClassification derives the ISO 22301 classification. It is a pure
// function of its inputs.
func BuildISOClassification(o Outcomes, tables *rules.Tables, req Request) model.ISOClassificationSection {
	row, set := ruleSet(tables, req.FunctionType)
	s := model.ISOClassificationSection{
		SectionMeta:          sectionMeta(o, DefaultISOScore, model.SourceRegistry),
		RuleSet:              set,
		CriticalityTier:      row.CriticalityTier,
		DataClassification:   row.DataClassification,
		MTPD:                 row.MTPD,
		MBCO:                 row.MBCO,
		ResourceRequirements: row.ResourceRequirements,
		AssetOwner:           model.Unknown,
		ComponentCount:       model.Unknown,
	}
	if r, ok := payloadOf[*model.RegistryPayload](o, model.SourceRegistry); ok {
		s.AssetOwner = orUnknown(r.Owner)
		n := len(r.Components)
		s.ComponentCount = count(&n)
		if r.DataClassification != "" {
			s.DataClassification = r.DataClassification
		}
	}
	return s
}
