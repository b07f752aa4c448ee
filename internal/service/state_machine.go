package service

import (
	"github.com/noah-isme/sma-feedback-api/internal/models"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

// AccountEvent drives account status transitions.
type AccountEvent string

const (
	AccountEventApprove         AccountEvent = "approve"
	AccountEventReject          AccountEvent = "reject"
	AccountEventRequestDeletion AccountEvent = "request_deletion"
	AccountEventCancelDeletion  AccountEvent = "cancel_deletion"
	AccountEventStageChange     AccountEvent = "stage_change"
)

// FeedbackEvent drives feedback status transitions.
type FeedbackEvent string

const (
	FeedbackEventApprove       FeedbackEvent = "approve"
	FeedbackEventReject        FeedbackEvent = "reject"
	FeedbackEventUpdateRoadmap FeedbackEvent = "update_roadmap"
)

type accountTransition struct {
	from  models.AccountStatus
	event AccountEvent
}

// Reject keeps the status: the record leaves the active collection instead.
var accountTransitions = map[accountTransition]models.AccountStatus{
	{models.AccountStatusPending, AccountEventApprove}:                models.AccountStatusApproved,
	{models.AccountStatusPending, AccountEventReject}:                 models.AccountStatusPending,
	{models.AccountStatusApproved, AccountEventRequestDeletion}:       models.AccountStatusPendingDeletion,
	{models.AccountStatusPendingDeletion, AccountEventCancelDeletion}: models.AccountStatusApproved,
	{models.AccountStatusApproved, AccountEventStageChange}:           models.AccountStatusApproved,
}

type feedbackTransition struct {
	from  models.FeedbackStatus
	event FeedbackEvent
}

var feedbackTransitions = map[feedbackTransition]models.FeedbackStatus{
	{models.FeedbackStatusPending, FeedbackEventApprove}:        models.FeedbackStatusApproved,
	{models.FeedbackStatusPending, FeedbackEventReject}:         models.FeedbackStatusPending,
	{models.FeedbackStatusApproved, FeedbackEventUpdateRoadmap}: models.FeedbackStatusApproved,
}

// NextAccountStatus returns the status reached by applying event, or an error describing why it is not allowed.
func NextAccountStatus(current models.AccountStatus, event AccountEvent) (models.AccountStatus, error) {
	if next, ok := accountTransitions[accountTransition{current, event}]; ok {
		return next, nil
	}
	switch {
	case event == AccountEventRequestDeletion && current == models.AccountStatusPendingDeletion:
		return current, appErrors.Clone(appErrors.ErrConflict, "account deletion already requested")
	case event == AccountEventRequestDeletion:
		return current, appErrors.Clone(appErrors.ErrAlreadyProcessed, "only approved accounts can request deletion")
	case event == AccountEventCancelDeletion:
		return current, appErrors.Clone(appErrors.ErrAlreadyProcessed, "account has no pending deletion")
	case event == AccountEventStageChange && current == models.AccountStatusPendingDeletion:
		return current, appErrors.Clone(appErrors.ErrAlreadyProcessed, "account is scheduled for deletion")
	case event == AccountEventStageChange:
		return current, appErrors.Clone(appErrors.ErrAlreadyProcessed, "account is not approved")
	}
	return current, appErrors.Clone(appErrors.ErrAlreadyProcessed, "account is no longer pending")
}

// NextFeedbackStatus returns the status reached by applying event to feedback.
func NextFeedbackStatus(current models.FeedbackStatus, event FeedbackEvent) (models.FeedbackStatus, error) {
	if next, ok := feedbackTransitions[feedbackTransition{current, event}]; ok {
		return next, nil
	}
	if event == FeedbackEventUpdateRoadmap {
		return current, appErrors.Clone(appErrors.ErrAlreadyProcessed, "feedback must be approved before its roadmap changes")
	}
	return current, appErrors.Clone(appErrors.ErrAlreadyProcessed, "feedback is no longer pending")
}

// restoredAccountStatus maps the status captured at deletion time back to a live status.
// Accounts deleted mid-grace-period come back approved since their queue entry is gone.
func restoredAccountStatus(previous string) models.AccountStatus {
	switch models.AccountStatus(previous) {
	case models.AccountStatusPending:
		return models.AccountStatusPending
	default:
		return models.AccountStatusApproved
	}
}

func restoredFeedbackStatus(previous string, feedback models.Feedback) models.FeedbackStatus {
	switch models.FeedbackStatus(previous) {
	case models.FeedbackStatusPending, models.FeedbackStatusApproved:
		return models.FeedbackStatus(previous)
	}
	if feedback.Status == models.FeedbackStatusPending || feedback.Status == models.FeedbackStatusApproved {
		return feedback.Status
	}
	return models.FeedbackStatusApproved
}
