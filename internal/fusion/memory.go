package fusion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bia-service/internal/model"
)

// MemoryClient is an in-process risk platform used in fixture mode and tests.
type MemoryClient struct {
	mu      sync.Mutex
	records map[string]*Record
	byName  map[string]string
	seq     int
	fail    error
	now     func() time.Time
}

// NewMemory creates an empty MemoryClient.
func NewMemory() *MemoryClient {
	return &MemoryClient{
		records: make(map[string]*Record),
		byName:  make(map[string]string),
		now:     time.Now,
	}
}

// SetFailure makes every subsequent call fail with err until cleared with nil.
func (m *MemoryClient) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *MemoryClient) CheckExisting(_ context.Context, functionName string) (*ExistingRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, eris.Wrap(m.fail, "fusion: check existing")
	}
	id, ok := m.byName[functionName]
	if !ok {
		return &ExistingRecord{RecommendedAction: ActionCreate}, nil
	}
	updated := m.records[id].UpdatedAt
	return &ExistingRecord{Exists: true, RecordID: id, LastUpdated: &updated, RecommendedAction: ActionUpdate}, nil
}

func (m *MemoryClient) Push(_ context.Context, doc *model.Document, _ string) (*PushResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, eris.Wrap(m.fail, "fusion: push")
	}

	now := m.now().UTC()
	fields := FieldsFromDocument(doc)
	actions := []string{"Risk register entry updated", "Review reminder scheduled"}

	id, ok := m.byName[doc.FunctionName]
	if !ok {
		m.seq++
		id = fmt.Sprintf("RISK-%04d", m.seq)
		m.byName[doc.FunctionName] = id
		actions[0] = "Risk register entry created"
	}
	m.records[id] = &Record{ID: id, Status: "active", Fields: fields, UpdatedAt: now}

	return &PushResult{
		RecordID:         id,
		Status:           "active",
		ReviewDate:       now.Add(ReviewInterval),
		AutomatedActions: actions,
	}, nil
}

func (m *MemoryClient) GetRecord(_ context.Context, recordID string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, eris.Wrap(m.fail, "fusion: get record")
	}
	rec, ok := m.records[recordID]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "fusion: get record %s", recordID)
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryClient) UpdateRecord(_ context.Context, recordID string, fields RecordFields) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, eris.Wrap(m.fail, "fusion: update record")
	}
	rec, ok := m.records[recordID]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "fusion: update record %s", recordID)
	}
	rec.Fields = fields
	rec.UpdatedAt = m.now().UTC()
	cp := *rec
	return &cp, nil
}

// SetRecordFields replaces a record's fields directly, simulating an edit
// made on the platform.
func (m *MemoryClient) SetRecordFields(recordID string, fields RecordFields) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[recordID]; ok {
		rec.Fields = fields
	}
}
