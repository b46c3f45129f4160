package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bia-service/internal/model"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = eris.New("store: not found")
	// ErrDuplicate is returned when a non-archived document with the same
	// function name and version already exists.
	ErrDuplicate = eris.New("store: duplicate function_name and version")
	// ErrStatusConflict is returned when a guarded write finds the document
	// in a different status than the caller expected.
	ErrStatusConflict = eris.New("store: document status changed")
)

// StatusChange moves a document from one status to another. The write only
// applies while the document is still in From. Approval fields are written
// when ApprovedBy is set.
type StatusChange struct {
	From             model.Status
	To               model.Status
	At               time.Time
	ApprovedBy       string
	ApprovalComments string
}

// patch returns the JSON merge patch applied to the stored body.
func (c StatusChange) patch() ([]byte, time.Time, error) {
	at := c.At
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	p := map[string]any{"status": c.To, "updated_at": at}
	if c.ApprovedBy != "" {
		p["approved_at"] = at
		p["approved_by"] = c.ApprovedBy
		if c.ApprovalComments != "" {
			p["approval_comments"] = c.ApprovalComments
		}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, at, eris.Wrap(err, "store: marshal status patch")
	}
	return b, at, nil
}

// Store defines the persistence interface for BIA documents and their audit
// trail.
type Store interface {
	// Documents
	CreateDocument(ctx context.Context, doc *model.Document) (string, error)
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	// UpdateDocument replaces a document's body. Status is not changed: the
	// write applies only while the stored status still equals doc.Status.
	UpdateDocument(ctx context.Context, doc *model.Document) error
	// UpdateStatus applies a guarded status change. A document that exists
	// but is no longer in change.From yields ErrStatusConflict.
	UpdateStatus(ctx context.Context, id string, change StatusChange) error
	ListDocuments(ctx context.Context, filter model.DocumentFilter) ([]model.Document, error)

	// Audit
	AppendAudit(ctx context.Context, entry model.AuditEntry) error
	ListAudit(ctx context.Context, documentID string) ([]model.AuditEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func listLimit(filter model.DocumentFilter) int {
	if filter.Limit <= 0 {
		return defaultListLimit
	}
	return filter.Limit
}
