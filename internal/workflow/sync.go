package workflow

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bia-service/internal/fusion"
	"github.com/sells-group/bia-service/internal/model"
)

// Direction selects which side of a sync is written.
type Direction string

const (
	// DirectionPush overwrites the platform record with the document.
	DirectionPush Direction = "push"
	// DirectionPull records the platform's record status on the document.
	DirectionPull Direction = "pull"
	// DirectionBidirectional reconciles both; the document wins conflicts.
	DirectionBidirectional Direction = "bidirectional"
)

// ParseDirection validates a sync direction.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case DirectionPush, DirectionPull, DirectionBidirectional:
		return d, nil
	case "":
		return DirectionBidirectional, nil
	}
	return "", eris.Wrapf(ErrInvalidDirection, "%q", s)
}

// SyncResult summarises one sync.
type SyncResult struct {
	Direction         Direction `json:"direction"`
	ChangesDetected   int       `json:"changes_detected"`
	RecordsUpdated    int       `json:"records_updated"`
	ConflictsResolved int       `json:"conflicts_resolved"`
	ChangedFields     []string  `json:"changed_fields"`
}

// Sync reconciles a pushed document with its platform record.
func (s *Service) Sync(ctx context.Context, id, actor string, direction Direction) (*SyncResult, error) {
	if _, err := ParseDirection(string(direction)); err != nil {
		return nil, err
	}
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: sync")
	}
	if !doc.Synced() {
		return nil, eris.Wrapf(ErrInvalidTransition, "sync: document is %s and has no platform record", doc.Status)
	}

	remote, err := s.fusion.GetRecord(ctx, doc.Fusion.RecordID)
	if err != nil {
		return nil, eris.Wrapf(ErrSyncFailed, "%s: %s", id, err.Error())
	}

	local := fusion.FieldsFromDocument(doc)
	changed := diffFields(local, remote.Fields)
	res := &SyncResult{Direction: direction, ChangesDetected: len(changed), ChangedFields: changed}

	status := remote.Status
	if len(changed) > 0 && direction != DirectionPull {
		updated, err := s.fusion.UpdateRecord(ctx, doc.Fusion.RecordID, local)
		if err != nil {
			return nil, eris.Wrapf(ErrSyncFailed, "%s: %s", id, err.Error())
		}
		status = updated.Status
		res.RecordsUpdated = 1
		if direction == DirectionBidirectional {
			res.ConflictsResolved = len(changed)
		}
	}

	now := s.now().UTC()
	before, _ := json.Marshal(doc.Fusion)
	doc.Fusion.Status = status
	doc.Fusion.LastSync = &now
	doc.UpdatedAt = now
	if err := s.store.UpdateDocument(ctx, doc); err != nil {
		return nil, eris.Wrap(err, "workflow: record sync")
	}
	after, _ := json.Marshal(map[string]any{"fusion": doc.Fusion, "result": res})

	s.record(ctx, model.AuditEntry{
		DocumentID: id,
		Action:     model.AuditFusionSync,
		Actor:      actorOrSystem(actor),
		Before:     before,
		After:      after,
		CreatedAt:  now,
	})
	zap.L().Info("workflow: synced",
		zap.String("document_id", id),
		zap.String("direction", string(direction)),
		zap.Int("changes", res.ChangesDetected),
	)
	return res, nil
}

// diffReporter collects the paths of unequal leaves.
type diffReporter struct {
	path  cmp.Path
	diffs []string
}

func (r *diffReporter) PushStep(ps cmp.PathStep) { r.path = append(r.path, ps) }

func (r *diffReporter) Report(rs cmp.Result) {
	if !rs.Equal() {
		r.diffs = append(r.diffs, strings.TrimPrefix(r.path.String(), "."))
	}
}

func (r *diffReporter) PopStep() { r.path = r.path[:len(r.path)-1] }

func diffFields(local, remote fusion.RecordFields) []string {
	var r diffReporter
	cmp.Equal(local, remote, cmp.Reporter(&r))
	if r.diffs == nil {
		return []string{}
	}
	return r.diffs
}
