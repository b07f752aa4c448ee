package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-feedback-api/internal/models"
	"github.com/noah-isme/sma-feedback-api/internal/repository"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

// SweepReport summarises one pass over the deletion queue.
type SweepReport struct {
	Purged     []string `json:"purged"`
	Dropped    []string `json:"dropped"`
	Reconciled []string `json:"reconciled"`
}

// Changed reports whether the sweep touched anything.
func (r SweepReport) Changed() bool {
	return len(r.Purged)+len(r.Dropped)+len(r.Reconciled) > 0
}

// DeletionQueueService schedules self-service account deletions behind a grace period.
type DeletionQueueService struct {
	lifecycle
}

// NewDeletionQueueService constructs the scheduler.
func NewDeletionQueueService(store collectionStore, logger *zap.Logger, opts ...LifecycleOption) *DeletionQueueService {
	return &DeletionQueueService{lifecycle: newLifecycle(store, logger, opts)}
}

// RequestDeletion queues the account for purge once the grace period elapses and signs its holder out.
func (s *DeletionQueueService) RequestDeletion(ctx context.Context, principal models.Principal, accountType models.AccountType, id string) (*models.DeletionQueueEntry, error) {
	if err := s.gate.AuthorizeOwner(principal, ActionRequestDeletion, accountType, id); err != nil {
		return nil, err
	}
	var entry models.DeletionQueueEntry
	err := s.store.Atomically(ctx, func(tx *repository.Tx) error {
		accounts, account, err := loadAccount(tx, accountType, id)
		if err != nil {
			return err
		}
		queue, err := tx.DeletionQueue()
		if err != nil {
			return err
		}
		if queue.Has(account.Ref()) {
			return appErrors.Clone(appErrors.ErrConflict, "account deletion already requested")
		}
		next, err := NextAccountStatus(account.Status, AccountEventRequestDeletion)
		if err != nil {
			return err
		}

		now := s.clock()
		scheduled := now.Add(s.gracePeriod)
		account.Status = next
		account.PendingChanges = nil
		account.DeletionRequestedAt = timePtr(now)
		account.ScheduledDeletionAt = timePtr(scheduled)
		account.UpdatedAt = timePtr(now)
		accounts.Put(account)

		entry = models.DeletionQueueEntry{
			UserID:                     account.ID,
			UserType:                   account.Type,
			DeletionRequestTimestamp:   models.FormatTimestamp(now),
			ScheduledDeletionTimestamp: models.FormatTimestamp(scheduled),
			RequestedBy:                principal.ID,
		}
		queue.Put(entry)

		if _, err := revokeSessions(tx, account.Type, account.ID); err != nil {
			return err
		}
		return s.appendAudit(tx, principal, models.AuditActionDeletionRequest, string(account.Type), account.ID,
			fmt.Sprintf("deletion scheduled for %s", entry.ScheduledDeletionTimestamp))
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition("account", "request_deletion")
	return &entry, nil
}

// CancelDeletion withdraws a pending request and returns the account to approved.
func (s *DeletionQueueService) CancelDeletion(ctx context.Context, principal models.Principal, accountType models.AccountType, id string) error {
	if err := s.gate.AuthorizeOwner(principal, ActionCancelDeletion, accountType, id); err != nil {
		return err
	}
	err := s.store.Atomically(ctx, func(tx *repository.Tx) error {
		_, account, err := loadAccount(tx, accountType, id)
		if err != nil {
			return err
		}
		_, err = s.cancelDeletion(tx, principal, account, "deletion request cancelled")
		return err
	})
	if err != nil {
		return err
	}
	s.recordTransition("account", "cancel_deletion")
	return nil
}

// cancelDeletion drops the queue entry and reverts the account inside tx.
func (l *lifecycle) cancelDeletion(tx *repository.Tx, principal models.Principal, account models.Account, details string) (models.Account, error) {
	next, err := NextAccountStatus(account.Status, AccountEventCancelDeletion)
	if err != nil {
		return account, err
	}
	queue, err := tx.DeletionQueue()
	if err != nil {
		return account, err
	}
	queue.Remove(account.Ref())
	accounts, err := tx.Accounts(account.Type)
	if err != nil {
		return account, err
	}
	account.Status = next
	account.DeletionRequestedAt = nil
	account.ScheduledDeletionAt = nil
	account.UpdatedAt = timePtr(l.clock())
	accounts.Put(account)
	if err := l.appendAudit(tx, principal, models.AuditActionDeletionCancel, string(account.Type), account.ID, details); err != nil {
		return account, err
	}
	return account, nil
}

// List returns the live queue ordered by scheduled purge time.
func (s *DeletionQueueService) List(ctx context.Context, principal models.Principal) ([]models.DeletionQueueEntry, error) {
	if err := s.gate.Authorize(principal, ActionViewDeletionQueue); err != nil {
		return nil, err
	}
	entries := make([]models.DeletionQueueEntry, 0)
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		queue, err := tx.DeletionQueue()
		if err != nil {
			return err
		}
		entries = append(entries, queue.All()...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ScheduledDeletionTimestamp < entries[j].ScheduledDeletionTimestamp
	})
	return entries, nil
}

// Sweep purges every account whose grace period has elapsed together with its feedback, bypassing the
// recycle bin. Entries with unreadable timestamps or no matching account are dropped and logged, and
// accounts left in pending_deletion without an entry are returned to approved. Running it again is a no-op.
func (s *DeletionQueueService) Sweep(ctx context.Context) (*SweepReport, error) {
	system := models.SystemPrincipal()
	report := &SweepReport{}
	err := s.store.Atomically(ctx, func(tx *repository.Tx) error {
		*report = SweepReport{}
		queue, err := tx.DeletionQueue()
		if err != nil {
			return err
		}
		now := s.clock()
		for _, entry := range queue.All() {
			if err := s.sweepEntry(tx, system, entry, now, report); err != nil {
				return err
			}
		}
		return s.reconcileOrphanedAccounts(tx, system, report)
	})
	if err != nil {
		return nil, err
	}
	if report.Changed() {
		s.logger.Info("deletion queue sweep",
			zap.Int("purged", len(report.Purged)),
			zap.Int("dropped", len(report.Dropped)),
			zap.Int("reconciled", len(report.Reconciled)))
	}
	s.recordSweep("deletion_queue", len(report.Purged))
	s.recordSweep("deletion_queue_anomaly", len(report.Dropped)+len(report.Reconciled))
	return report, nil
}

func (s *DeletionQueueService) sweepEntry(tx *repository.Tx, system models.Principal, entry models.DeletionQueueEntry, now time.Time, report *SweepReport) error {
	queue, err := tx.DeletionQueue()
	if err != nil {
		return err
	}
	ref := entry.Key()
	if !entry.UserType.Valid() {
		queue.Remove(ref)
		report.Dropped = append(report.Dropped, ref)
		s.logger.Warn("dropping deletion queue entry with unknown account type", zap.String("entry", ref))
		return s.appendAudit(tx, system, models.AuditActionDeletionAnomaly, "deletionQueue", ref, "unknown account type")
	}
	accounts, err := tx.Accounts(entry.UserType)
	if err != nil {
		return err
	}
	account, exists := accounts.Get(entry.UserID)
	if !exists || account.Status != models.AccountStatusPendingDeletion {
		queue.Remove(ref)
		report.Dropped = append(report.Dropped, ref)
		s.logger.Warn("dropping deletion queue entry without a pending account", zap.String("entry", ref), zap.Bool("account_exists", exists))
		return s.appendAudit(tx, system, models.AuditActionDeletionAnomaly, "deletionQueue", ref, "no account awaiting deletion")
	}

	scheduled, err := entry.ScheduledAt()
	if err != nil {
		queue.Remove(ref)
		account.Status = models.AccountStatusApproved
		account.DeletionRequestedAt = nil
		account.ScheduledDeletionAt = nil
		account.UpdatedAt = timePtr(now)
		accounts.Put(account)
		report.Dropped = append(report.Dropped, ref)
		s.logger.Warn("dropping deletion queue entry with corrupt timestamp", zap.String("entry", ref), zap.Error(err))
		return s.appendAudit(tx, system, models.AuditActionDeletionAnomaly, "deletionQueue", ref,
			fmt.Sprintf("corrupt scheduled timestamp %q; account returned to approved", entry.ScheduledDeletionTimestamp))
	}
	if scheduled.After(now) {
		return nil
	}
	if err := s.purgeAccount(tx, account); err != nil {
		return err
	}
	report.Purged = append(report.Purged, ref)
	return s.appendAudit(tx, system, models.AuditActionDeletionPurge, string(account.Type), account.ID,
		fmt.Sprintf("grace period ended %s", entry.ScheduledDeletionTimestamp))
}

func (s *DeletionQueueService) reconcileOrphanedAccounts(tx *repository.Tx, system models.Principal, report *SweepReport) error {
	queue, err := tx.DeletionQueue()
	if err != nil {
		return err
	}
	for _, accountType := range models.AccountTypes {
		accounts, err := tx.Accounts(accountType)
		if err != nil {
			return err
		}
		stranded := accounts.Filter(func(a models.Account) bool {
			return a.Status == models.AccountStatusPendingDeletion && !queue.Has(a.Ref())
		})
		for _, account := range stranded {
			account.Status = models.AccountStatusApproved
			account.DeletionRequestedAt = nil
			account.ScheduledDeletionAt = nil
			account.UpdatedAt = timePtr(s.clock())
			accounts.Put(account)
			report.Reconciled = append(report.Reconciled, account.Ref())
			s.logger.Warn("account pending deletion had no queue entry", zap.String("account", account.Ref()))
			if err := s.appendAudit(tx, system, models.AuditActionDeletionAnomaly, string(account.Type), account.ID,
				"pending deletion without queue entry; account returned to approved"); err != nil {
				return err
			}
		}
	}
	return nil
}

// purgeAccount erases the account and everything hanging off it from every collection.
func (l *lifecycle) purgeAccount(tx *repository.Tx, account models.Account) error {
	accounts, err := tx.Accounts(account.Type)
	if err != nil {
		return err
	}
	accounts.Remove(account.ID)
	if _, err := l.cascadePurgeDependents(tx, account.Type, account.ID); err != nil {
		return err
	}
	queue, err := tx.DeletionQueue()
	if err != nil {
		return err
	}
	queue.Remove(account.Ref())
	bin, err := tx.RecycleBin()
	if err != nil {
		return err
	}
	bucket := models.BucketForAccount(account.Type)
	bin.RemoveWhere(func(entry models.RecycleBinEntry) bool {
		return entry.Bucket() == bucket && entry.Account != nil && entry.Account.ID == account.ID
	})
	_, err = revokeSessions(tx, account.Type, account.ID)
	return err
}
