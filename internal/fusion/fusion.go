// Package fusion talks to the external risk-management platform where
// approved BIAs are registered.
package fusion

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bia-service/internal/model"
)

// ErrNotFound is returned when the platform has no record with the given ID.
var ErrNotFound = eris.New("fusion: record not found")

// Recommended actions reported by CheckExisting.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
)

// ReviewInterval is the time until the next scheduled review of a pushed
// record.
const ReviewInterval = 365 * 24 * time.Hour

// ExistingRecord describes the platform's view of a function.
type ExistingRecord struct {
	Exists            bool       `json:"exists"`
	RecordID          string     `json:"record_id,omitempty"`
	LastUpdated       *time.Time `json:"last_updated,omitempty"`
	RecommendedAction string     `json:"recommended_action"`
}

// PushResult is the platform's response to registering a document.
type PushResult struct {
	RecordID         string    `json:"record_id"`
	Status           string    `json:"status"`
	ReviewDate       time.Time `json:"review_date"`
	AutomatedActions []string  `json:"automated_actions"`
}

// RecordFields are the document fields mirrored on the platform record.
type RecordFields struct {
	DocumentID        string  `json:"document_id"`
	FunctionName      string  `json:"function_name"`
	FunctionType      string  `json:"function_type"`
	Version           string  `json:"version"`
	Owner             string  `json:"owner"`
	CriticalityTier   string  `json:"criticality_tier"`
	RiskLevel         string  `json:"risk_level"`
	RTOTarget         string  `json:"rto_target"`
	RPOTarget         string  `json:"rpo_target"`
	MTPD              string  `json:"mtpd"`
	OverallConfidence float64 `json:"overall_confidence"`
}

// Record is a risk register entry.
type Record struct {
	ID        string       `json:"id"`
	Status    string       `json:"status"`
	Fields    RecordFields `json:"fields"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Client is the risk platform API.
type Client interface {
	CheckExisting(ctx context.Context, functionName string) (*ExistingRecord, error)
	Push(ctx context.Context, doc *model.Document, comments string) (*PushResult, error)
	GetRecord(ctx context.Context, recordID string) (*Record, error)
	UpdateRecord(ctx context.Context, recordID string, fields RecordFields) (*Record, error)
}

// FieldsFromDocument extracts the mirrored fields from a document.
func FieldsFromDocument(doc *model.Document) RecordFields {
	return RecordFields{
		DocumentID:        doc.ID,
		FunctionName:      doc.FunctionName,
		FunctionType:      string(doc.FunctionType),
		Version:           doc.Version,
		Owner:             doc.DRIName,
		CriticalityTier:   doc.ISOClassification.CriticalityTier,
		RiskLevel:         doc.RiskCompliance.RiskLevel,
		RTOTarget:         doc.Recovery.TargetRTO,
		RPOTarget:         doc.Recovery.TargetRPO,
		MTPD:              doc.ISOClassification.MTPD,
		OverallConfidence: doc.ConfidenceAssessment.OverallConfidence,
	}
}
