package model

import (
	"encoding/json"
	"time"
)

// AuditAction names the mutation an audit entry records.
type AuditAction string

const (
	AuditCreated    AuditAction = "created"
	AuditSubmitted  AuditAction = "submitted"
	AuditApproved   AuditAction = "approved"
	AuditRejected   AuditAction = "rejected"
	AuditRedrafted  AuditAction = "redrafted"
	AuditArchived   AuditAction = "archived"
	AuditFusionPush AuditAction = "fusion_push"
	AuditFusionSync AuditAction = "fusion_sync"
)

// AuditEntry is an immutable record of one document mutation.
type AuditEntry struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"document_id"`
	Action     AuditAction     `json:"action"`
	Actor      string          `json:"actor"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	Comment    string          `json:"comment,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
