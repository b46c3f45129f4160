package model

import "time"

// SourceName identifies one of the six BIA data sources.
type SourceName string

const (
	SourceRegistry   SourceName = "registry"
	SourceEscalation SourceName = "escalation"
	SourcePersonnel  SourceName = "personnel"
	SourceFinancial  SourceName = "financial"
	SourceMonitoring SourceName = "monitoring"
	SourcePredictive SourceName = "predictive"
)

// Sources lists every source in canonical order. Data source summaries and
// missing-source lists follow this order.
var Sources = []SourceName{
	SourceRegistry,
	SourceEscalation,
	SourcePersonnel,
	SourceFinancial,
	SourceMonitoring,
	SourcePredictive,
}

// SourceRequest is what every adapter receives for one BIA generation.
type SourceRequest struct {
	FunctionName string       `json:"function_name"`
	FunctionType FunctionType `json:"function_type"`
	Team         string       `json:"team"`
}

// Payload is the common contract of every source result.
type Payload interface {
	Confidence() float64
	UpdatedAt() time.Time
}

// PayloadMeta carries the fields every source payload must include.
type PayloadMeta struct {
	ConfidenceScore float64   `json:"confidence_score"`
	LastUpdated     time.Time `json:"last_updated"`
}

func (m PayloadMeta) Confidence() float64  { return m.ConfidenceScore }
func (m PayloadMeta) UpdatedAt() time.Time { return m.LastUpdated }

// RegistryPayload is the CMDB view of a function.
type RegistryPayload struct {
	PayloadMeta
	ServiceName        string      `json:"service_name"`
	ServiceTier        string      `json:"service_tier"`
	Owner              string      `json:"owner"`
	HostingPlatform    string      `json:"hosting_platform"`
	Components         []Component `json:"components"`
	Dependencies       []string    `json:"dependencies"`
	DataStores         []string    `json:"data_stores"`
	DataClassification string      `json:"data_classification"`
}

// EscalationPayload is the incident-escalation view of a function.
type EscalationPayload struct {
	PayloadMeta
	EscalationPolicy  string   `json:"escalation_policy"`
	OnCallRotation    string   `json:"on_call_rotation"`
	Contacts          []string `json:"contacts"`
	Incidents90d      *int     `json:"incidents_90d"`
	MajorIncidents90d *int     `json:"major_incidents_90d"`
	MTTRMinutes       *int     `json:"mttr_minutes"`
}

// PersonnelPayload is the HR directory view of the owning team.
type PersonnelPayload struct {
	PayloadMeta
	TeamName     string   `json:"team_name"`
	TeamSize     *int     `json:"team_size"`
	DRI          *Person  `json:"dri"`
	KeyPersonnel []Person `json:"key_personnel"`
}

// FinancialPayload is the financial-metrics view of a function.
type FinancialPayload struct {
	PayloadMeta
	AnnualRevenue             *float64 `json:"annual_revenue"`
	RevenuePerHour            *float64 `json:"revenue_per_hour"`
	CustomersServed           *int     `json:"customers_served"`
	CostCenter                string   `json:"cost_center"`
	RegulatoryPenaltyExposure *float64 `json:"regulatory_penalty_exposure"`
}

// MonitoringPayload is the observability view of a function.
type MonitoringPayload struct {
	PayloadMeta
	Availability30d    *float64 `json:"availability_30d"`
	ErrorRate          *float64 `json:"error_rate"`
	MeasuredRTOMinutes *int     `json:"measured_rto_minutes"`
	MeasuredRPOMinutes *int     `json:"measured_rpo_minutes"`
	BackupFrequency    string   `json:"backup_frequency"`
	MonitoringCoverage string   `json:"monitoring_coverage"`
}

// PredictionScenario is one scenario as produced by the predictive engine.
type PredictionScenario struct {
	RTOHours    float64 `json:"rto_hours"`
	RPOHours    float64 `json:"rpo_hours"`
	Probability float64 `json:"probability"`
}

// Prediction is the predictive engine's output.
type Prediction struct {
	GeneratedAt       time.Time           `json:"generated_at"`
	HorizonDays       int                 `json:"horizon_days"`
	RTOCurrentHours   float64             `json:"rto_current_hours"`
	RTOForecastHours  float64             `json:"rto_forecast_hours"`
	RPOCurrentHours   float64             `json:"rpo_current_hours"`
	RPOForecastHours  float64             `json:"rpo_forecast_hours"`
	RiskAssessment    RiskAssessment      `json:"risk_assessment"`
	Scenarios         PredictionScenarios `json:"scenarios"`
	ConfidenceOverall float64             `json:"confidence_overall"`
	Note              string              `json:"note,omitempty"`
}

// PredictionScenarios groups the three forecast scenarios.
type PredictionScenarios struct {
	BestCase   PredictionScenario `json:"best_case"`
	LikelyCase PredictionScenario `json:"likely_case"`
	WorstCase  PredictionScenario `json:"worst_case"`
}

func (p *Prediction) Confidence() float64  { return p.ConfidenceOverall }
func (p *Prediction) UpdatedAt() time.Time { return p.GeneratedAt }
