package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bia-service/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testDocument(name string) *model.Document {
	now := time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)
	return &model.Document{
		FunctionName: name,
		FunctionType: model.FunctionTypeProduct,
		Version:      model.InitialVersion,
		DRIName:      "Dana Reyes",
		DRITeam:      "payments",
		Status:       model.StatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
		BusinessImpact: model.BusinessImpactSection{
			SectionMeta: model.SectionMeta{ConfidenceScore: 0.75, DataSources: []model.SourceName{model.SourceFinancial}},
			ImpactTier:  "Tier 1",
		},
		ConfidenceAssessment: model.ConfidenceAssessment{
			OverallConfidence: 0.8,
			ConfidenceLevel:   model.ConfidenceHigh,
		},
	}
}

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_Document_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	doc := testDocument("Payment Processing")
	id, err := st.CreateDocument(ctx, doc)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, doc.ID)

	got, err := st.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Payment Processing", got.FunctionName)
	assert.Equal(t, model.StatusDraft, got.Status)
	assert.Equal(t, "Tier 1", got.BusinessImpact.ImpactTier)
	assert.Equal(t, []model.SourceName{model.SourceFinancial}, got.BusinessImpact.DataSources)
	assert.InDelta(t, 0.8, got.ConfidenceAssessment.OverallConfidence, 0.0001)
	assert.True(t, doc.CreatedAt.Equal(got.CreatedAt))
}

func TestSQLite_Document_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetDocument(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	err = st.UpdateStatus(context.Background(), "missing", StatusChange{From: model.StatusPendingApproval, To: model.StatusApproved})
	assert.ErrorIs(t, err, ErrNotFound)

	doc := testDocument("Ghost")
	doc.ID = "missing"
	assert.ErrorIs(t, st.UpdateDocument(context.Background(), doc), ErrNotFound)
}

func TestSQLite_Document_DuplicateUntilArchived(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.CreateDocument(ctx, testDocument("Payment Processing"))
	require.NoError(t, err)

	_, err = st.CreateDocument(ctx, testDocument("Payment Processing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, st.UpdateStatus(ctx, first, StatusChange{From: model.StatusDraft, To: model.StatusArchived}))

	second, err := st.CreateDocument(ctx, testDocument("Payment Processing"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestSQLite_UpdateStatus_PatchesBody(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	id, err := st.CreateDocument(ctx, testDocument("Payment Processing"))
	require.NoError(t, err)

	require.NoError(t, st.UpdateStatus(ctx, id, StatusChange{From: model.StatusDraft, To: model.StatusPendingApproval}))
	got, err := st.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingApproval, got.Status)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
	assert.Nil(t, got.ApprovedAt)
	assert.Equal(t, "Payment Processing", got.FunctionName)

	listed, err := st.ListDocuments(ctx, model.DocumentFilter{Status: model.StatusPendingApproval})
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestSQLite_UpdateStatus_ApprovalCommentsSurviveArchive(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	doc := testDocument("Payment Processing")
	doc.Status = model.StatusPendingApproval
	id, err := st.CreateDocument(ctx, doc)
	require.NoError(t, err)

	approvedAt := time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.UpdateStatus(ctx, id, StatusChange{
		From:             model.StatusPendingApproval,
		To:               model.StatusApproved,
		At:               approvedAt,
		ApprovedBy:       "lee",
		ApprovalComments: "approved with RTO caveat",
	}))
	require.NoError(t, st.UpdateStatus(ctx, id, StatusChange{
		From: model.StatusApproved,
		To:   model.StatusArchived,
		At:   approvedAt.Add(time.Hour),
	}))

	got, err := st.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusArchived, got.Status)
	assert.Equal(t, "lee", got.ApprovedBy)
	assert.Equal(t, "approved with RTO caveat", got.ApprovalComments)
	require.NotNil(t, got.ApprovedAt)
	assert.True(t, approvedAt.Equal(*got.ApprovedAt))
	assert.True(t, approvedAt.Add(time.Hour).Equal(got.UpdatedAt))
}

func TestSQLite_UpdateStatus_Conflict(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	doc := testDocument("Payment Processing")
	doc.Status = model.StatusPendingApproval
	id, err := st.CreateDocument(ctx, doc)
	require.NoError(t, err)

	require.NoError(t, st.UpdateStatus(ctx, id, StatusChange{From: model.StatusPendingApproval, To: model.StatusApproved, ApprovedBy: "lee"}))

	err = st.UpdateStatus(ctx, id, StatusChange{From: model.StatusPendingApproval, To: model.StatusRejected})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStatusConflict)
	assert.NotErrorIs(t, err, ErrNotFound)

	got, err := st.GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)
}

func TestSQLite_UpdateDocument(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	doc := testDocument("Payment Processing")
	_, err := st.CreateDocument(ctx, doc)
	require.NoError(t, err)

	synced := time.Date(2020, 3, 2, 9, 0, 0, 0, time.UTC)
	doc.Fusion = model.FusionLink{RecordID: "RISK-1", Status: "active", LastSync: &synced}
	doc.UpdatedAt = synced
	require.NoError(t, st.UpdateDocument(ctx, doc))

	got, err := st.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "RISK-1", got.Fusion.RecordID)
	require.NotNil(t, got.Fusion.LastSync)
	assert.True(t, synced.Equal(*got.Fusion.LastSync))

	// A stale copy whose status has moved on is refused.
	require.NoError(t, st.UpdateStatus(ctx, doc.ID, StatusChange{From: model.StatusDraft, To: model.StatusArchived}))
	doc.Fusion.Status = "stale"
	assert.ErrorIs(t, st.UpdateDocument(ctx, doc), ErrStatusConflict)
}

func TestSQLite_ListDocuments_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := testDocument("Payments")
	b := testDocument("Ledger")
	b.FunctionType = model.FunctionTypePlatform
	b.CreatedAt = a.CreatedAt.Add(time.Hour)
	c := testDocument("Helpdesk")
	c.FunctionType = model.FunctionTypeSupport
	c.CreatedAt = a.CreatedAt.Add(2 * time.Hour)
	for _, d := range []*model.Document{a, b, c} {
		_, err := st.CreateDocument(ctx, d)
		require.NoError(t, err)
	}

	all, err := st.ListDocuments(ctx, model.DocumentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Helpdesk", all[0].FunctionName, "newest first")

	platform, err := st.ListDocuments(ctx, model.DocumentFilter{FunctionType: model.FunctionTypePlatform})
	require.NoError(t, err)
	require.Len(t, platform, 1)
	assert.Equal(t, "Ledger", platform[0].FunctionName)

	byName, err := st.ListDocuments(ctx, model.DocumentFilter{FunctionName: "Payments"})
	require.NoError(t, err)
	require.Len(t, byName, 1)

	page, err := st.ListDocuments(ctx, model.DocumentFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Ledger", page[0].FunctionName)

	none, err := st.ListDocuments(ctx, model.DocumentFilter{Status: model.StatusApproved})
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func TestSQLite_Audit_AppendAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	id, err := st.CreateDocument(ctx, testDocument("Payments"))
	require.NoError(t, err)

	base := time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.AppendAudit(ctx, model.AuditEntry{
		DocumentID: id,
		Action:     model.AuditCreated,
		Actor:      "system",
		After:      json.RawMessage(`{"status":"draft"}`),
		CreatedAt:  base,
	}))
	require.NoError(t, st.AppendAudit(ctx, model.AuditEntry{
		DocumentID: id,
		Action:     model.AuditSubmitted,
		Actor:      "dana",
		Before:     json.RawMessage(`{"status":"draft"}`),
		After:      json.RawMessage(`{"status":"pending_approval"}`),
		Comment:    "ready",
		CreatedAt:  base.Add(time.Minute),
	}))

	entries, err := st.ListAudit(ctx, id)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.AuditCreated, entries[0].Action)
	assert.Nil(t, entries[0].Before)
	assert.JSONEq(t, `{"status":"draft"}`, string(entries[0].After))
	assert.Equal(t, model.AuditSubmitted, entries[1].Action)
	assert.Equal(t, "dana", entries[1].Actor)
	assert.Equal(t, "ready", entries[1].Comment)
	assert.NotEmpty(t, entries[1].ID)

	other, err := st.ListAudit(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, other)
}
