package model

import "time"

// FunctionType classifies the business function a BIA describes.
type FunctionType string

const (
	FunctionTypeProduct        FunctionType = "product"
	FunctionTypePlatform       FunctionType = "platform"
	FunctionTypeSupport        FunctionType = "support"
	FunctionTypeInfrastructure FunctionType = "infrastructure"
	FunctionTypeCompliance     FunctionType = "compliance"
)

// FunctionTypes lists every defined function type in canonical order.
var FunctionTypes = []FunctionType{
	FunctionTypeProduct,
	FunctionTypePlatform,
	FunctionTypeSupport,
	FunctionTypeInfrastructure,
	FunctionTypeCompliance,
}

// Valid reports whether t is one of the defined function types.
func (t FunctionType) Valid() bool {
	for _, ft := range FunctionTypes {
		if t == ft {
			return true
		}
	}
	return false
}

// Status is the approval state of a document.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusRejected        Status = "rejected"
	StatusArchived        Status = "archived"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected, StatusArchived:
		return true
	}
	return false
}

// InitialVersion is stamped on every freshly generated document.
const InitialVersion = "1.0"

// Placeholders substituted when a source did not supply a value.
const (
	Unknown = "Unknown"
	TBD     = "TBD"
)

// Document is a Business Impact Analysis for one business function.
type Document struct {
	ID           string       `json:"id"`
	FunctionName string       `json:"function_name"`
	FunctionType FunctionType `json:"function_type"`
	Version      string       `json:"version"`

	DRIName          string     `json:"dri_name"`
	DRITeam          string     `json:"dri_team"`
	Status           Status     `json:"status"`
	CreatedBy        string     `json:"created_by,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	ApprovedBy       string     `json:"approved_by,omitempty"`
	ApprovalComments string     `json:"approval_comments,omitempty"`

	Personnel         PersonnelSection         `json:"personnel"`
	BusinessImpact    BusinessImpactSection    `json:"business_impact"`
	Technology        TechnologySection        `json:"technology"`
	Recovery          RecoverySection          `json:"recovery"`
	RiskCompliance    RiskComplianceSection    `json:"risk_compliance"`
	ISOClassification ISOClassificationSection `json:"iso_classification"`

	RegionalOverlays   []RegionalOverlay  `json:"regional_overlays"`
	PredictiveAnalysis PredictiveAnalysis `json:"predictive_analysis"`

	DataSources          []DataSourceSummary  `json:"data_sources"`
	ConfidenceAssessment ConfidenceAssessment `json:"confidence_assessment"`

	Fusion FusionLink `json:"fusion"`
}

// Sections returns the metadata of the six auto-populated sections in
// canonical order.
func (d *Document) Sections() []SectionMeta {
	return []SectionMeta{
		d.Personnel.SectionMeta,
		d.BusinessImpact.SectionMeta,
		d.Technology.SectionMeta,
		d.Recovery.SectionMeta,
		d.RiskCompliance.SectionMeta,
		d.ISOClassification.SectionMeta,
	}
}

// Synced reports whether an approved document has been pushed to the
// external risk platform.
func (d *Document) Synced() bool {
	return d.Status == StatusApproved && d.Fusion.RecordID != ""
}

// FusionLink records the linkage to the external risk-management record.
type FusionLink struct {
	RecordID string     `json:"record_id,omitempty"`
	Status   string     `json:"status,omitempty"`
	LastSync *time.Time `json:"last_sync,omitempty"`
}

// DataSourceSummary describes one source that returned data.
type DataSourceSummary struct {
	Name             SourceName `json:"name"`
	ConnectionStatus string     `json:"connection_status"`
	Confidence       float64    `json:"confidence"`
	LastUpdated      time.Time  `json:"last_updated"`
}

// Confidence bands.
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
)

// ConfidenceAssessment is the document-level rollup of section scores.
type ConfidenceAssessment struct {
	OverallConfidence float64      `json:"overall_confidence"`
	DataCompleteness  float64      `json:"data_completeness"`
	ConfidenceLevel   string       `json:"confidence_level"`
	Recommendations   []string     `json:"recommendations"`
	MissingSources    []SourceName `json:"missing_sources"`
}

// DocumentFilter narrows document listings.
type DocumentFilter struct {
	FunctionName string       `json:"function_name,omitempty"`
	FunctionType FunctionType `json:"function_type,omitempty"`
	Status       Status       `json:"status,omitempty"`
	Limit        int          `json:"limit,omitempty"`
	Offset       int          `json:"offset,omitempty"`
}
