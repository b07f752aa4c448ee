package models

import "time"

// Audit action types appended to the action log.
const (
	AuditActionLogin               = "LOGIN"
	AuditActionLogout              = "LOGOUT"
	AuditActionAccountRegister     = "ACCOUNT_REGISTER"
	AuditActionStaffCreate         = "STAFF_CREATE"
	AuditActionAccountApprove      = "ACCOUNT_APPROVE"
	AuditActionAccountReject       = "ACCOUNT_REJECT"
	AuditActionAccountDelete       = "ACCOUNT_DELETE"
	AuditActionInfoChangeSubmit    = "INFO_CHANGE_SUBMIT"
	AuditActionInfoChangeApprove   = "INFO_CHANGE_APPROVE"
	AuditActionInfoChangeReject    = "INFO_CHANGE_REJECT"
	AuditActionFeedbackSubmit      = "FEEDBACK_SUBMIT"
	AuditActionFeedbackApprove     = "FEEDBACK_APPROVE"
	AuditActionFeedbackReject      = "FEEDBACK_REJECT"
	AuditActionFeedbackDelete      = "FEEDBACK_DELETE"
	AuditActionRoadmapUpdate       = "ROADMAP_UPDATE"
	AuditActionCascadePurge        = "CASCADE_PURGE"
	AuditActionRecycleRestore      = "RECYCLE_RESTORE"
	AuditActionRecycleReview       = "RECYCLE_REVIEW"
	AuditActionRecyclePurge        = "RECYCLE_PURGE"
	AuditActionRetentionSweep      = "RETENTION_SWEEP"
	AuditActionDeletionRequest     = "DELETION_REQUEST"
	AuditActionDeletionCancel      = "DELETION_CANCEL"
	AuditActionDeletionPurge       = "DELETION_PURGE"
	AuditActionDeletionAnomaly     = "DELETION_QUEUE_ANOMALY"
	AuditActionConfigurationCreate = "CONFIGURATION_CREATE"
	AuditActionConfigurationUpdate = "CONFIGURATION_UPDATE"
	AuditActionConfigurationDelete = "CONFIGURATION_DELETE"
	AuditActionRecoveryPinUpdate   = "RECOVERY_PIN_UPDATE"
	AuditActionBatchExecute        = "BATCH_EXECUTE"
)

// AuditLog is an immutable action log record.
type AuditLog struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actorId"`
	ActorRole  Role      `json:"actorRole,omitempty"`
	Action     string    `json:"actionType"`
	Resource   string    `json:"resource,omitempty"`
	ResourceID string    `json:"resourceId,omitempty"`
	Details    string    `json:"details"`
	CreatedAt  time.Time `json:"timestamp"`
}

// Key returns the log entry identity.
func (l AuditLog) Key() string {
	return l.ID
}

// AuditFilter narrows action log listings.
type AuditFilter struct {
	ActorID  string
	Action   string
	Resource string
	Page     int
	PageSize int
}
