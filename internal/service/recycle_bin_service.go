package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-feedback-api/internal/models"
	"github.com/noah-isme/sma-feedback-api/internal/repository"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

// RecycleBinService quarantines deleted records and gates their restore or purge behind admin review.
type RecycleBinService struct {
	lifecycle
}

// NewRecycleBinService constructs the recycle bin manager.
func NewRecycleBinService(store collectionStore, logger *zap.Logger, opts ...LifecycleOption) *RecycleBinService {
	return &RecycleBinService{lifecycle: newLifecycle(store, logger, opts)}
}

// SoftDeleteAccount moves an account into the recycle bin. Every feedback the account submitted is destroyed
// permanently as part of the same operation, including feedback already sitting in the recycle bin.
func (s *RecycleBinService) SoftDeleteAccount(ctx context.Context, principal models.Principal, accountType models.AccountType, id, reason string) (*models.RecycleBinEntry, error) {
	return s.deleteAccount(ctx, principal, accountType, id, reason)
}

// SoftDeleteFeedback moves a feedback item into the recycle bin.
func (s *RecycleBinService) SoftDeleteFeedback(ctx context.Context, principal models.Principal, id, reason string) (*models.RecycleBinEntry, error) {
	return s.deleteFeedback(ctx, principal, id, reason)
}

// SoftDeleteConfiguration moves a taxonomy item into the recycle bin.
func (s *RecycleBinService) SoftDeleteConfiguration(ctx context.Context, principal models.Principal, id, reason string) (*models.RecycleBinEntry, error) {
	return s.deleteConfiguration(ctx, principal, id, reason)
}

// CascadePurgeDependents permanently destroys every feedback, active or recycled, submitted by the account.
func (s *RecycleBinService) CascadePurgeDependents(ctx context.Context, principal models.Principal, accountType models.AccountType, id string) (int, error) {
	if err := s.gate.Authorize(principal, ActionCascadePurge); err != nil {
		return 0, err
	}
	var purged int
	err := s.store.Atomically(ctx, func(tx *repository.Tx) error {
		var err error
		purged, err = s.cascadePurgeDependents(tx, accountType, id)
		if err != nil {
			return err
		}
		return s.appendAudit(tx, principal, models.AuditActionCascadePurge, "feedback", models.AccountRef(accountType, id),
			fmt.Sprintf("purged %d feedback item(s) submitted by %s", purged, models.AccountRef(accountType, id)))
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}

// Restore returns the wrapped record to its live collection with the status it had before deletion.
func (s *RecycleBinService) Restore(ctx context.Context, principal models.Principal, entryID string) (*models.RecycleBinEntry, error) {
	var restored models.RecycleBinEntry
	err := s.store.Atomically(ctx, func(tx *repository.Tx) error {
		bin, err := tx.RecycleBin()
		if err != nil {
			return err
		}
		entry, ok := bin.Find(entryID)
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, "recycle bin entry not found")
		}
		if err := s.gate.AuthorizeEntry(principal, ActionRestoreEntry, entry); err != nil {
			return err
		}

		now := s.clock()
		switch entry.Kind {
		case models.RecycleKindAccount:
			err = s.restoreAccount(tx, &entry, now)
		case models.RecycleKindFeedback:
			err = s.restoreFeedback(tx, &entry, now)
		case models.RecycleKindConfiguration:
			err = s.restoreConfiguration(tx, &entry, now)
		default:
			err = appErrors.Clone(appErrors.ErrValidation, "recycle bin entry has no record")
		}
		if err != nil {
			return err
		}
		bin.Remove(entry.ID)
		restored = entryFor(principal, entry)
		return s.appendAudit(tx, principal, models.AuditActionRecycleRestore, string(entry.Kind), entry.RecordID(),
			fmt.Sprintf("restored %s %s from %s", entry.Kind, entry.RecordID(), entry.Bucket()))
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition(string(restored.Kind), "restore")
	return &restored, nil
}

// MarkReviewed confirms a moderator deletion. It reports false, without error, when there was nothing to review.
func (s *RecycleBinService) MarkReviewed(ctx context.Context, principal models.Principal, entryID string) (*models.RecycleBinEntry, bool, error) {
	if err := s.gate.Authorize(principal, ActionReviewEntry); err != nil {
		return nil, false, err
	}
	var (
		result   models.RecycleBinEntry
		reviewed bool
	)
	err := s.store.Atomically(ctx, func(tx *repository.Tx) error {
		bin, err := tx.RecycleBin()
		if err != nil {
			return err
		}
		entry, ok := bin.Find(entryID)
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, "recycle bin entry not found")
		}
		result = entry
		if !entry.Meta.DeletedByModerator || entry.Meta.AdminReviewed {
			return nil
		}
		entry.Meta.AdminReviewed = true
		entry.Meta.ReviewedBy = principal.ID
		entry.Meta.ReviewedAt = timePtr(s.clock())
		bin.Put(entry)
		result = entry
		reviewed = true
		return s.appendAudit(tx, principal, models.AuditActionRecycleReview, string(entry.Kind), entry.RecordID(),
			fmt.Sprintf("reviewed moderator deletion by %s", entry.Meta.DeletedByUsername))
	})
	if err != nil {
		return nil, false, err
	}
	result = entryFor(principal, result)
	return &result, reviewed, nil
}

// Purge removes an entry for good. Dependents were already destroyed when the record was soft-deleted.
func (s *RecycleBinService) Purge(ctx context.Context, principal models.Principal, entryID string) error {
	var kind models.RecycleKind
	err := s.store.Atomically(ctx, func(tx *repository.Tx) error {
		bin, err := tx.RecycleBin()
		if err != nil {
			return err
		}
		entry, ok := bin.Find(entryID)
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, "recycle bin entry not found")
		}
		if err := s.gate.AuthorizeEntry(principal, ActionPurgeEntry, entry); err != nil {
			return err
		}
		bin.Remove(entry.ID)
		kind = entry.Kind
		return s.appendAudit(tx, principal, models.AuditActionRecyclePurge, string(entry.Kind), entry.RecordID(),
			fmt.Sprintf("permanently deleted %s %s", entry.Kind, entry.RecordID()))
	})
	if err != nil {
		return err
	}
	s.recordTransition(string(kind), "purge")
	return nil
}

// List returns recycle bin entries, newest deletion first.
func (s *RecycleBinService) List(ctx context.Context, principal models.Principal, filter models.RecycleBinFilter) ([]models.RecycleBinEntry, error) {
	if err := s.gate.Authorize(principal, ActionViewRecycleBin); err != nil {
		return nil, err
	}
	entries := make([]models.RecycleBinEntry, 0)
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		bin, err := tx.RecycleBin()
		if err != nil {
			return err
		}
		for _, entry := range bin.All() {
			if filter.Bucket != "" && entry.Bucket() != filter.Bucket {
				continue
			}
			if filter.PendingReview != nil && entry.RequiresReview() != *filter.PendingReview {
				continue
			}
			entries = append(entries, entryFor(principal, entry))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Meta.DeletionDate.After(entries[j].Meta.DeletionDate)
	})
	return entries, nil
}

// SweepRetention permanently removes every entry older than the retention window, reviewed or not.
func (s *RecycleBinService) SweepRetention(ctx context.Context) (int, error) {
	system := models.SystemPrincipal()
	cutoff := s.clock().Add(-s.retention)
	var removed []models.RecycleBinEntry
	err := s.store.Atomically(ctx, func(tx *repository.Tx) error {
		bin, err := tx.RecycleBin()
		if err != nil {
			return err
		}
		removed = bin.RemoveWhere(func(entry models.RecycleBinEntry) bool {
			return entry.Meta.DeletionDate.Before(cutoff)
		})
		if len(removed) == 0 {
			return nil
		}
		return s.appendAudit(tx, system, models.AuditActionRetentionSweep, "recycleBin", "",
			fmt.Sprintf("removed %d entries deleted before %s", len(removed), models.FormatTimestamp(cutoff)))
	})
	if err != nil {
		return 0, err
	}
	if len(removed) > 0 {
		s.logger.Info("recycle bin retention sweep", zap.Int("removed", len(removed)), zap.Time("cutoff", cutoff))
	}
	s.recordSweep("retention", len(removed))
	return len(removed), nil
}

func (l *lifecycle) deleteAccount(ctx context.Context, principal models.Principal, accountType models.AccountType, id, reason string) (*models.RecycleBinEntry, error) {
	if err := l.gate.AuthorizeAccount(principal, ActionDeleteAccount, accountType); err != nil {
		return nil, err
	}
	if principal.Owns(accountType, id) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "use a deletion request to remove your own account")
	}
	var entry models.RecycleBinEntry
	err := l.store.Atomically(ctx, func(tx *repository.Tx) error {
		_, account, err := loadAccount(tx, accountType, id)
		if err != nil {
			return err
		}
		entry, err = l.softDeleteAccount(tx, principal, account, reason, models.AuditActionAccountDelete)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.recordTransition("account", "soft_delete")
	entry = entryFor(principal, entry)
	return &entry, nil
}

// softDeleteAccount quarantines account and hard-deletes its dependents inside tx.
func (l *lifecycle) softDeleteAccount(tx *repository.Tx, principal models.Principal, account models.Account, reason, action string) (models.RecycleBinEntry, error) {
	reason = normalizeReason(reason)
	if reason == "" {
		return models.RecycleBinEntry{}, appErrors.Clone(appErrors.ErrValidation, "deletion reason is required")
	}
	accounts, err := tx.Accounts(account.Type)
	if err != nil {
		return models.RecycleBinEntry{}, err
	}
	if _, ok := accounts.Remove(account.ID); !ok {
		return models.RecycleBinEntry{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s %s not found", account.Type, account.ID))
	}
	purged, err := l.cascadePurgeDependents(tx, account.Type, account.ID)
	if err != nil {
		return models.RecycleBinEntry{}, err
	}
	queue, err := tx.DeletionQueue()
	if err != nil {
		return models.RecycleBinEntry{}, err
	}
	queue.Remove(account.Ref())
	if _, err := revokeSessions(tx, account.Type, account.ID); err != nil {
		return models.RecycleBinEntry{}, err
	}

	bin, err := tx.RecycleBin()
	if err != nil {
		return models.RecycleBinEntry{}, err
	}
	snapshot := account
	entry := models.RecycleBinEntry{
		ID:      uuid.NewString(),
		Kind:    models.RecycleKindAccount,
		Account: &snapshot,
		Meta:    l.deletionMeta(principal, reason, string(account.Status)),
	}
	bin.Put(entry)

	details := fmt.Sprintf("deleted %s %s (%s); purged %d feedback item(s)", account.Type, account.ID, reason, purged)
	if err := l.appendAudit(tx, principal, action, string(account.Type), account.ID, details); err != nil {
		return models.RecycleBinEntry{}, err
	}
	return entry, nil
}

// cascadePurgeDependents destroys the account's feedback in both the active collection and the recycle bin.
func (l *lifecycle) cascadePurgeDependents(tx *repository.Tx, accountType models.AccountType, id string) (int, error) {
	feedbacks, err := tx.Feedbacks()
	if err != nil {
		return 0, err
	}
	active := feedbacks.RemoveWhere(func(f models.Feedback) bool {
		return f.SubmittedBy(accountType, id)
	})
	bin, err := tx.RecycleBin()
	if err != nil {
		return 0, err
	}
	recycled := bin.RemoveWhere(func(entry models.RecycleBinEntry) bool {
		return entry.Feedback != nil && entry.Feedback.SubmittedBy(accountType, id)
	})
	purged := len(active) + len(recycled)
	if purged > 0 {
		l.logger.Info("purged dependent feedback",
			zap.String("account", models.AccountRef(accountType, id)),
			zap.Int("active", len(active)),
			zap.Int("recycled", len(recycled)))
	}
	return purged, nil
}

func (l *lifecycle) deleteFeedback(ctx context.Context, principal models.Principal, id, reason string) (*models.RecycleBinEntry, error) {
	if err := l.gate.Authorize(principal, ActionDeleteFeedback); err != nil {
		return nil, err
	}
	var entry models.RecycleBinEntry
	err := l.store.Atomically(ctx, func(tx *repository.Tx) error {
		_, feedback, err := loadFeedback(tx, id)
		if err != nil {
			return err
		}
		entry, err = l.softDeleteFeedback(tx, principal, feedback, reason, models.AuditActionFeedbackDelete)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.recordTransition("feedback", "soft_delete")
	entry = entryFor(principal, entry)
	return &entry, nil
}

func (l *lifecycle) softDeleteFeedback(tx *repository.Tx, principal models.Principal, feedback models.Feedback, reason, action string) (models.RecycleBinEntry, error) {
	reason = normalizeReason(reason)
	if reason == "" {
		return models.RecycleBinEntry{}, appErrors.Clone(appErrors.ErrValidation, "deletion reason is required")
	}
	feedbacks, err := tx.Feedbacks()
	if err != nil {
		return models.RecycleBinEntry{}, err
	}
	if _, ok := feedbacks.Remove(feedback.ID); !ok {
		return models.RecycleBinEntry{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("feedback %s not found", feedback.ID))
	}
	bin, err := tx.RecycleBin()
	if err != nil {
		return models.RecycleBinEntry{}, err
	}
	snapshot := feedback
	entry := models.RecycleBinEntry{
		ID:       uuid.NewString(),
		Kind:     models.RecycleKindFeedback,
		Feedback: &snapshot,
		Meta:     l.deletionMeta(principal, reason, string(feedback.Status)),
	}
	bin.Put(entry)
	details := fmt.Sprintf("deleted feedback %s (%s)", feedback.ID, reason)
	if err := l.appendAudit(tx, principal, action, "feedback", feedback.ID, details); err != nil {
		return models.RecycleBinEntry{}, err
	}
	return entry, nil
}

func (l *lifecycle) deleteConfiguration(ctx context.Context, principal models.Principal, id, reason string) (*models.RecycleBinEntry, error) {
	if err := l.gate.Authorize(principal, ActionManageConfiguration); err != nil {
		return nil, err
	}
	reason = normalizeReason(reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "deletion reason is required")
	}
	var entry models.RecycleBinEntry
	err := l.store.Atomically(ctx, func(tx *repository.Tx) error {
		cfg, err := tx.Configuration()
		if err != nil {
			return err
		}
		item, ok := cfg.Find(id)
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, "configuration item not found")
		}
		cfg.Items(item.Kind).Remove(item.ID)
		bin, err := tx.RecycleBin()
		if err != nil {
			return err
		}
		snapshot := item
		entry = models.RecycleBinEntry{
			ID:            uuid.NewString(),
			Kind:          models.RecycleKindConfiguration,
			Configuration: &snapshot,
			Meta:          l.deletionMeta(principal, reason, ""),
		}
		bin.Put(entry)
		return l.appendAudit(tx, principal, models.AuditActionConfigurationDelete, string(item.Kind), item.ID,
			fmt.Sprintf("deleted %s %q (%s)", item.Kind, item.Name, reason))
	})
	if err != nil {
		return nil, err
	}
	l.recordTransition("configuration", "soft_delete")
	entry = entryFor(principal, entry)
	return &entry, nil
}

func (l *lifecycle) deletionMeta(principal models.Principal, reason, previousStatus string) models.DeletionMeta {
	return models.DeletionMeta{
		DeletedByUsername:  principal.ID,
		DeletedByRole:      principal.Role,
		DeletedByModerator: principal.Role == models.RoleModerator,
		AdminReviewed:      principal.Role == models.RoleAdmin,
		DeletionDate:       l.clock(),
		DeletionReason:     reason,
		PreviousStatus:     previousStatus,
	}
}

func (s *RecycleBinService) restoreAccount(tx *repository.Tx, entry *models.RecycleBinEntry, now time.Time) error {
	if entry.Account == nil {
		return appErrors.Clone(appErrors.ErrValidation, "recycle bin entry has no account")
	}
	account := *entry.Account
	accounts, err := tx.Accounts(account.Type)
	if err != nil {
		return err
	}
	if accounts.Has(account.ID) {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s %s is already in use", account.Type, account.ID))
	}
	account.Status = restoredAccountStatus(entry.Meta.PreviousStatus)
	account.DeletionRequestedAt = nil
	account.ScheduledDeletionAt = nil
	account.UpdatedAt = timePtr(now)
	accounts.Put(account)
	entry.Account = &account
	return nil
}

func (s *RecycleBinService) restoreFeedback(tx *repository.Tx, entry *models.RecycleBinEntry, now time.Time) error {
	if entry.Feedback == nil {
		return appErrors.Clone(appErrors.ErrValidation, "recycle bin entry has no feedback")
	}
	feedback := *entry.Feedback
	feedbacks, err := tx.Feedbacks()
	if err != nil {
		return err
	}
	if feedbacks.Has(feedback.ID) {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("feedback %s already exists", feedback.ID))
	}
	feedback.Status = restoredFeedbackStatus(entry.Meta.PreviousStatus, feedback)
	feedback.UpdatedAt = timePtr(now)
	feedbacks.Put(feedback)
	entry.Feedback = &feedback
	return nil
}

func (s *RecycleBinService) restoreConfiguration(tx *repository.Tx, entry *models.RecycleBinEntry, now time.Time) error {
	if entry.Configuration == nil {
		return appErrors.Clone(appErrors.ErrValidation, "recycle bin entry has no configuration item")
	}
	item := *entry.Configuration
	cfg, err := tx.Configuration()
	if err != nil {
		return err
	}
	items := cfg.Items(item.Kind)
	if items == nil {
		return appErrors.Clone(appErrors.ErrValidation, "unknown configuration kind")
	}
	for _, existing := range items.All() {
		if existing.ID == item.ID || existing.SameName(item.Name) {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s %q already exists", item.Kind, item.Name))
		}
	}
	item.UpdatedAt = timePtr(now)
	items.Put(item)
	entry.Configuration = &item
	return nil
}
