package service

import (
	"github.com/noah-isme/sma-feedback-api/internal/models"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

// Action names an operation guarded by the authorization gate.
type Action string

const (
	ActionViewAccounts        Action = "accounts.view"
	ActionApproveAccount      Action = "accounts.approve"
	ActionRejectAccount       Action = "accounts.reject"
	ActionDeleteAccount       Action = "accounts.delete"
	ActionManageStaff         Action = "staff.manage"
	ActionSubmitInfoChange    Action = "accounts.info_change.submit"
	ActionReviewInfoChange    Action = "accounts.info_change.review"
	ActionSubmitFeedback      Action = "feedback.submit"
	ActionApproveFeedback     Action = "feedback.approve"
	ActionRejectFeedback      Action = "feedback.reject"
	ActionDeleteFeedback      Action = "feedback.delete"
	ActionUpdateRoadmap       Action = "feedback.roadmap"
	ActionViewRecycleBin      Action = "recycle.view"
	ActionRestoreEntry        Action = "recycle.restore"
	ActionPurgeEntry          Action = "recycle.purge"
	ActionReviewEntry         Action = "recycle.review"
	ActionCascadePurge        Action = "recycle.cascade_purge"
	ActionRequestDeletion     Action = "deletion.request"
	ActionCancelDeletion      Action = "deletion.cancel"
	ActionViewDeletionQueue   Action = "deletion.view"
	ActionRunSweep            Action = "deletion.sweep"
	ActionManageConfiguration Action = "configuration.manage"
	ActionViewAuditLog        Action = "audit.view"
	ActionExecuteBatch        Action = "batch.execute"
)

var moderatorActions = map[Action]struct{}{
	ActionViewAccounts:      {},
	ActionApproveAccount:    {},
	ActionRejectAccount:     {},
	ActionDeleteAccount:     {},
	ActionReviewInfoChange:  {},
	ActionApproveFeedback:   {},
	ActionRejectFeedback:    {},
	ActionDeleteFeedback:    {},
	ActionUpdateRoadmap:     {},
	ActionViewRecycleBin:    {},
	ActionRestoreEntry:      {},
	ActionPurgeEntry:        {},
	ActionCancelDeletion:    {},
	ActionViewDeletionQueue: {},
	ActionExecuteBatch:      {},
}

// ownerActions may be performed by an account holder on their own account.
var ownerActions = map[Action]struct{}{
	ActionSubmitInfoChange: {},
	ActionSubmitFeedback:   {},
	ActionRequestDeletion:  {},
	ActionCancelDeletion:   {},
	ActionViewAccounts:     {},
}

// AuthorizationGate decides whether a principal may perform an action. Denials are always reported as errors.
type AuthorizationGate struct {
	moderator map[Action]struct{}
	owner     map[Action]struct{}
}

// NewAuthorizationGate builds the gate with the built-in role table.
func NewAuthorizationGate() *AuthorizationGate {
	return &AuthorizationGate{moderator: moderatorActions, owner: ownerActions}
}

// Authorize checks a role-level permission.
func (g *AuthorizationGate) Authorize(principal models.Principal, action Action) error {
	switch principal.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleModerator:
		if _, ok := g.moderator[action]; ok {
			return nil
		}
	}
	return denied(action)
}

// AuthorizeOwner allows the action when the principal owns the account, falling back to role checks.
// Acting on a staff account on someone else's behalf additionally requires staff management rights.
func (g *AuthorizationGate) AuthorizeOwner(principal models.Principal, action Action, accountType models.AccountType, id string) error {
	if principal.Owns(accountType, id) {
		if _, ok := g.owner[action]; ok {
			return nil
		}
	}
	return g.AuthorizeAccount(principal, action, accountType)
}

// AuthorizeAccount checks action against an account of the given class.
func (g *AuthorizationGate) AuthorizeAccount(principal models.Principal, action Action, accountType models.AccountType) error {
	if err := g.Authorize(principal, action); err != nil {
		return err
	}
	if accountType == models.AccountTypeStaff {
		return g.Authorize(principal, ActionManageStaff)
	}
	return nil
}

// AuthorizeEntry checks a recycle bin action against a specific entry, applying review gating.
func (g *AuthorizationGate) AuthorizeEntry(principal models.Principal, action Action, entry models.RecycleBinEntry) error {
	if err := g.Authorize(principal, action); err != nil {
		return err
	}
	if principal.IsAdmin() {
		return nil
	}
	if entry.RequiresReview() {
		return appErrors.Clone(appErrors.ErrPermissionDenied, "entry was deleted by a moderator and awaits admin review")
	}
	switch {
	case entry.Kind == models.RecycleKindConfiguration:
		return g.Authorize(principal, ActionManageConfiguration)
	case entry.Account != nil && entry.Account.Type == models.AccountTypeStaff:
		return g.Authorize(principal, ActionManageStaff)
	}
	return nil
}

func denied(action Action) error {
	return appErrors.Clone(appErrors.ErrPermissionDenied, "not allowed to perform "+string(action))
}
