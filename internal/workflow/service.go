package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bia-service/internal/fusion"
	"github.com/sells-group/bia-service/internal/model"
	"github.com/sells-group/bia-service/internal/store"
)

// Recorder appends audit entries without failing the caller.
type Recorder interface {
	Record(ctx context.Context, entry model.AuditEntry)
}

// Service applies review actions and risk platform operations to stored
// documents.
type Service struct {
	store  store.Store
	fusion fusion.Client
	audit  Recorder
	now    func() time.Time
}

// NewService creates a Service.
func NewService(st store.Store, fc fusion.Client, rec Recorder) *Service {
	return &Service{store: st, fusion: fc, audit: rec, now: time.Now}
}

// TransitionResult is the outcome of a review action. For approvals, Push is
// set when the risk platform accepted the document and PushError when it did
// not; the approval stands either way.
type TransitionResult struct {
	Document  *model.Document    `json:"document"`
	Push      *fusion.PushResult `json:"push,omitempty"`
	PushError string             `json:"push_error,omitempty"`
}

func (s *Service) Submit(ctx context.Context, id, actor, comment string) (*TransitionResult, error) {
	return s.Transition(ctx, id, ActionSubmit, actor, comment)
}

func (s *Service) Approve(ctx context.Context, id, approver, comment string) (*TransitionResult, error) {
	return s.Transition(ctx, id, ActionApprove, approver, comment)
}

func (s *Service) Reject(ctx context.Context, id, actor, comment string) (*TransitionResult, error) {
	return s.Transition(ctx, id, ActionReject, actor, comment)
}

// Redraft returns a rejected document to draft so it can be revised and
// resubmitted.
func (s *Service) Redraft(ctx context.Context, id, actor, comment string) (*TransitionResult, error) {
	return s.Transition(ctx, id, ActionRedraft, actor, comment)
}

func (s *Service) Archive(ctx context.Context, id, actor, comment string) (*TransitionResult, error) {
	return s.Transition(ctx, id, ActionArchive, actor, comment)
}

// Transition applies action to document id. Illegal transitions return
// ErrInvalidTransition and write nothing, including when another action
// changed the status between the read and the write.
func (s *Service) Transition(ctx context.Context, id string, action Action, actor, comment string) (*TransitionResult, error) {
	t, ok := transitions[action]
	if !ok {
		return nil, eris.Wrapf(ErrInvalidTransition, "unknown action %q", action)
	}
	actor = strings.TrimSpace(actor)
	if action == ActionApprove && actor == "" {
		return nil, eris.Wrap(ErrActorRequired, "approval needs an approver")
	}
	if actor == "" {
		actor = "system"
	}

	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "workflow: %s", action)
	}
	from := doc.Status
	if !CanTransition(from, t.to) {
		return nil, eris.Wrapf(ErrInvalidTransition, "%s: %s -> %s", action, from, t.to)
	}

	now := s.now().UTC()
	change := store.StatusChange{From: from, To: t.to, At: now}
	if action == ActionApprove {
		change.ApprovedBy = actor
		change.ApprovalComments = comment
	}
	if err := s.store.UpdateStatus(ctx, id, change); err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			return nil, eris.Wrapf(ErrInvalidTransition, "%s: %s", action, err.Error())
		}
		return nil, eris.Wrapf(err, "workflow: %s", action)
	}

	s.record(ctx, model.AuditEntry{
		DocumentID: id,
		Action:     t.audit,
		Actor:      actor,
		Before:     statusJSON(from),
		After:      statusJSON(t.to),
		Comment:    comment,
		CreatedAt:  now,
	})
	zap.L().Info("workflow: status changed",
		zap.String("document_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(t.to)),
		zap.String("actor", actor),
	)

	res := &TransitionResult{}
	if action == ActionApprove {
		push, err := s.Push(ctx, id, actor, comment)
		if err != nil {
			zap.L().Warn("workflow: push after approval failed",
				zap.String("document_id", id),
				zap.Error(err),
			)
			res.PushError = err.Error()
		}
		res.Push = push
	}

	res.Document, err = s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "workflow: reload %s", id)
	}
	return res, nil
}

// CheckExisting asks the risk platform whether it already has a record for
// the function.
func (s *Service) CheckExisting(ctx context.Context, functionName string) (*fusion.ExistingRecord, error) {
	existing, err := s.fusion.CheckExisting(ctx, functionName)
	if err != nil {
		return nil, eris.Wrapf(ErrSyncFailed, "check existing %s: %s", functionName, err.Error())
	}
	return existing, nil
}

// Push registers an approved document on the risk platform and records the
// linkage. Platform failures wrap ErrPushFailed and leave the document as it
// was.
func (s *Service) Push(ctx context.Context, id, actor, comments string) (*fusion.PushResult, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "workflow: push")
	}
	if doc.Status != model.StatusApproved {
		return nil, eris.Wrapf(ErrInvalidTransition, "push: document is %s, not approved", doc.Status)
	}

	res, err := s.fusion.Push(ctx, doc, comments)
	if err != nil {
		return nil, eris.Wrapf(ErrPushFailed, "%s: %s", id, err.Error())
	}

	now := s.now().UTC()
	before, _ := json.Marshal(doc.Fusion)
	doc.Fusion = model.FusionLink{RecordID: res.RecordID, Status: res.Status, LastSync: &now}
	doc.UpdatedAt = now
	if err := s.store.UpdateDocument(ctx, doc); err != nil {
		return nil, eris.Wrap(err, "workflow: record push")
	}
	after, _ := json.Marshal(doc.Fusion)

	s.record(ctx, model.AuditEntry{
		DocumentID: id,
		Action:     model.AuditFusionPush,
		Actor:      actorOrSystem(actor),
		Before:     before,
		After:      after,
		Comment:    comments,
		CreatedAt:  now,
	})
	return res, nil
}

func (s *Service) record(ctx context.Context, entry model.AuditEntry) {
	if s.audit != nil {
		s.audit.Record(ctx, entry)
	}
}

func statusJSON(st model.Status) json.RawMessage {
	b, _ := json.Marshal(map[string]model.Status{"status": st})
	return b
}

func actorOrSystem(actor string) string {
	if a := strings.TrimSpace(actor); a != "" {
		return a
	}
	return "system"
}
