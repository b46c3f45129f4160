// Package workflow moves BIA documents through review and approval and keeps
// approved documents in step with the risk platform.
package workflow

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/bia-service/internal/model"
)

var (
	// ErrInvalidTransition is returned for a status change the approval
	// state machine does not allow. Nothing is written.
	ErrInvalidTransition = eris.New("workflow: invalid status transition")
	// ErrActorRequired is returned when an action needs an identified actor.
	ErrActorRequired = eris.New("workflow: actor is required")
	// ErrInvalidDirection is returned for an unknown sync direction.
	ErrInvalidDirection = eris.New("workflow: invalid sync direction")
	// ErrPushFailed wraps risk platform failures during push.
	ErrPushFailed = eris.New("workflow: push to risk platform failed")
	// ErrSyncFailed wraps risk platform failures during lookup and sync.
	ErrSyncFailed = eris.New("workflow: sync with risk platform failed")
)

// Action is a review action requested by a user.
type Action string

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionRedraft Action = "redraft"
	ActionArchive Action = "archive"
)

type transition struct {
	from  []model.Status
	to    model.Status
	audit model.AuditAction
}

var transitions = map[Action]transition{
	ActionSubmit:  {from: []model.Status{model.StatusDraft}, to: model.StatusPendingApproval, audit: model.AuditSubmitted},
	ActionApprove: {from: []model.Status{model.StatusPendingApproval}, to: model.StatusApproved, audit: model.AuditApproved},
	ActionReject:  {from: []model.Status{model.StatusPendingApproval}, to: model.StatusRejected, audit: model.AuditRejected},
	ActionRedraft: {from: []model.Status{model.StatusRejected}, to: model.StatusDraft, audit: model.AuditRedrafted},
	ActionArchive: {from: []model.Status{model.StatusApproved, model.StatusRejected}, to: model.StatusArchived, audit: model.AuditArchived},
}

// ParseAction validates an action name.
func ParseAction(s string) (Action, bool) {
	a := Action(s)
	_, ok := transitions[a]
	return a, ok
}

// CanTransition reports whether the state machine allows from -> to. Each
// target status is reached by exactly one action.
func CanTransition(from, to model.Status) bool {
	for _, t := range transitions {
		if t.to != to {
			continue
		}
		for _, f := range t.from {
			if f == from {
				return true
			}
		}
	}
	return false
}
