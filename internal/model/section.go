package model

// SectionMeta is embedded in every section. DataSources lists only the
// sources that actually contributed; an empty list means every value in the
// section is a placeholder or rule-derived default.
type SectionMeta struct {
	ConfidenceScore float64      `json:"confidence_score"`
	DataSources     []SourceName `json:"data_sources"`
}

// Contributing reports whether at least one source fed the section.
func (m SectionMeta) Contributing() bool {
	return len(m.DataSources) > 0
}

// Person is a named individual attached to a function.
type Person struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
}

// PersonnelSection covers ownership and on-call coverage.
type PersonnelSection struct {
	SectionMeta
	DRI                Person   `json:"dri"`
	TeamName           string   `json:"team_name"`
	TeamSize           string   `json:"team_size"`
	KeyPersonnel       []Person `json:"key_personnel"`
	OnCallRotation     string   `json:"on_call_rotation"`
	EscalationPolicy   string   `json:"escalation_policy"`
	EscalationContacts []string `json:"escalation_contacts"`
}

// BusinessImpactSection covers the financial and customer cost of disruption.
type BusinessImpactSection struct {
	SectionMeta
	ImpactTier                string `json:"impact_tier"`
	AnnualRevenue             string `json:"annual_revenue"`
	RevenueImpactPerHour      string `json:"revenue_impact_per_hour"`
	RevenueImpactPerDay       string `json:"revenue_impact_per_day"`
	CustomersAffected         string `json:"customers_affected"`
	CostCenter                string `json:"cost_center"`
	RegulatoryPenaltyExposure string `json:"regulatory_penalty_exposure"`
}

// Component is one deployable piece of a function's technology stack.
type Component struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Tier string `json:"tier"`
}

// TechnologySection covers the systems a function runs on.
type TechnologySection struct {
	SectionMeta
	ServiceTier        string      `json:"service_tier"`
	HostingPlatform    string      `json:"hosting_platform"`
	Components         []Component `json:"components"`
	Dependencies       []string    `json:"dependencies"`
	DataStores         []string    `json:"data_stores"`
	Availability30d    string      `json:"availability_30d"`
	ErrorRate          string      `json:"error_rate"`
	MonitoringCoverage string      `json:"monitoring_coverage"`
}

// RecoverySection covers recovery objectives and strategy.
type RecoverySection struct {
	SectionMeta
	CurrentRTO       string `json:"current_rto"`
	CurrentRPO       string `json:"current_rpo"`
	TargetRTO        string `json:"target_rto"`
	TargetRPO        string `json:"target_rpo"`
	ForecastRTO      string `json:"forecast_rto"`
	ForecastRPO      string `json:"forecast_rpo"`
	RecoveryStrategy string `json:"recovery_strategy"`
	BackupFrequency  string `json:"backup_frequency"`
	MeetsTarget      string `json:"meets_target"`
}

// IncidentHistory summarises recent escalations.
type IncidentHistory struct {
	Incidents90d      string `json:"incidents_90d"`
	MajorIncidents90d string `json:"major_incidents_90d"`
	MeanTimeToResolve string `json:"mean_time_to_resolve"`
}

// RiskComplianceSection is derived from the function-type rule table plus
// escalation history.
type RiskComplianceSection struct {
	SectionMeta
	RuleSet                string          `json:"rule_set"`
	RiskLevel              string          `json:"risk_level"`
	ComplianceRequirements []string        `json:"compliance_requirements"`
	DataClassification     string          `json:"data_classification"`
	IncidentHistory        IncidentHistory `json:"incident_history"`
}

// ISOClassificationSection carries the ISO 22301 style classification.
type ISOClassificationSection struct {
	SectionMeta
	RuleSet              string   `json:"rule_set"`
	CriticalityTier      string   `json:"criticality_tier"`
	DataClassification   string   `json:"data_classification"`
	MTPD                 string   `json:"mtpd"`
	MBCO                 string   `json:"mbco"`
	ResourceRequirements []string `json:"resource_requirements"`
	AssetOwner           string   `json:"asset_owner"`
	ComponentCount       string   `json:"component_count"`
}

// RegionalOverlay adds region-specific legal and recovery parameters.
type RegionalOverlay struct {
	Region              string  `json:"region"`
	LegalEntity         string  `json:"legal_entity"`
	RegulatoryFramework string  `json:"regulatory_framework"`
	DataResidency       string  `json:"data_residency"`
	RTOTarget           string  `json:"rto_target"`
	RPOTarget           string  `json:"rpo_target"`
	ConfidenceScore     float64 `json:"confidence_score"`
}

// Scenario is one predicted recovery outcome.
type Scenario struct {
	RTO         string  `json:"rto"`
	RPO         string  `json:"rpo"`
	Probability float64 `json:"probability"`
}

// Scenarios groups the best, likely and worst cases.
type Scenarios struct {
	BestCase   Scenario `json:"best_case"`
	LikelyCase Scenario `json:"likely_case"`
	WorstCase  Scenario `json:"worst_case"`
}

// RiskAssessment is the predictive engine's risk view.
type RiskAssessment struct {
	Level   string   `json:"level"`
	Score   float64  `json:"score"`
	Factors []string `json:"factors"`
}

// PredictiveAnalysis is the document's forecast block, either from the
// predictive engine or from the fixed fallback.
type PredictiveAnalysis struct {
	Source            string         `json:"source"`
	HorizonDays       int            `json:"horizon_days"`
	RTOCurrent        string         `json:"rto_current"`
	RTOForecast       string         `json:"rto_forecast"`
	RPOCurrent        string         `json:"rpo_current"`
	RPOForecast       string         `json:"rpo_forecast"`
	RiskAssessment    RiskAssessment `json:"risk_assessment"`
	Scenarios         Scenarios      `json:"scenarios"`
	ConfidenceOverall float64        `json:"confidence_overall"`
	Note              string         `json:"note,omitempty"`
}
