// Package audit appends document audit entries without letting a failed
// write block the operation being audited.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/bia-service/internal/model"
)

// Appender persists audit entries. store.Store satisfies it.
type Appender interface {
	AppendAudit(ctx context.Context, entry model.AuditEntry) error
}

// Warning reports an audit entry that could not be written.
type Warning struct {
	Entry model.AuditEntry
	Err   error
}

const defaultWarningBuffer = 64

// Recorder writes audit entries. Failures are logged and published on
// Warnings; they are never returned to the caller.
type Recorder struct {
	sink     Appender
	warnings chan Warning
}

// NewRecorder creates a Recorder. buffer sizes the warning channel; when it is
// full further warnings are only logged.
func NewRecorder(sink Appender, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = defaultWarningBuffer
	}
	return &Recorder{sink: sink, warnings: make(chan Warning, buffer)}
}

// Warnings returns the channel of failed writes.
func (r *Recorder) Warnings() <-chan Warning {
	return r.warnings
}

// Record appends entry, filling in ID and CreatedAt when empty.
func (r *Recorder) Record(ctx context.Context, entry model.AuditEntry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	err := r.sink.AppendAudit(ctx, entry)
	if err == nil {
		return
	}

	zap.L().Warn("audit: append failed",
		zap.String("document_id", entry.DocumentID),
		zap.String("action", string(entry.Action)),
		zap.Error(err),
	)
	select {
	case r.warnings <- Warning{Entry: entry, Err: err}:
	default:
	}
}
