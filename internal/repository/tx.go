package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-feedback-api/internal/models"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

// Tx is one read-modify-write pass over the store. Collections load lazily on first access.
type Tx struct {
	ctx      context.Context
	store    *Store
	writable bool

	accounts  map[models.AccountType]*Collection[models.Account]
	feedbacks *Collection[models.Feedback]
	config    *ConfigurationSet
	recycle   *RecycleBinSet
	queue     *Collection[models.DeletionQueueEntry]
	actionLog *Collection[models.AuditLog]
	sessions  *Collection[models.Session]
}

// Context returns the context the transaction runs under.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// Accounts returns the collection holding accounts of the given class.
func (tx *Tx) Accounts(accountType models.AccountType) (*Collection[models.Account], error) {
	if !accountType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown account type")
	}
	if c, ok := tx.accounts[accountType]; ok {
		return c, nil
	}
	key := AccountKey(accountType)
	items, skipped, err := loadRecords[models.Account](tx.ctx, tx.store, key)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Type == "" {
			items[i].Type = accountType
		}
	}
	c, dropped := newCollection(items)
	tx.reportDropped(key, skipped+dropped)
	if tx.accounts == nil {
		tx.accounts = make(map[models.AccountType]*Collection[models.Account], len(models.AccountTypes))
	}
	tx.accounts[accountType] = c
	return c, nil
}

// Feedbacks returns the active feedback collection.
func (tx *Tx) Feedbacks() (*Collection[models.Feedback], error) {
	if tx.feedbacks != nil {
		return tx.feedbacks, nil
	}
	items, skipped, err := loadRecords[models.Feedback](tx.ctx, tx.store, KeyFeedbacks)
	if err != nil {
		return nil, err
	}
	c, dropped := newCollection(items)
	tx.reportDropped(KeyFeedbacks, skipped+dropped)
	tx.feedbacks = c
	return c, nil
}

// DeletionQueue returns the live deletion requests keyed by (userType, userId).
func (tx *Tx) DeletionQueue() (*Collection[models.DeletionQueueEntry], error) {
	if tx.queue != nil {
		return tx.queue, nil
	}
	items, skipped, err := loadRecords[models.DeletionQueueEntry](tx.ctx, tx.store, KeyDeletionQueue)
	if err != nil {
		return nil, err
	}
	c, dropped := newCollection(items)
	tx.reportDropped(KeyDeletionQueue, skipped+dropped)
	tx.queue = c
	return c, nil
}

// ActionLog returns the append-only audit collection.
func (tx *Tx) ActionLog() (*Collection[models.AuditLog], error) {
	if tx.actionLog != nil {
		return tx.actionLog, nil
	}
	items, skipped, err := loadRecords[models.AuditLog](tx.ctx, tx.store, KeyActionLog)
	if err != nil {
		return nil, err
	}
	c, dropped := newCollection(items)
	tx.reportDropped(KeyActionLog, skipped+dropped)
	tx.actionLog = c
	return c, nil
}

// Sessions returns the live login sessions.
func (tx *Tx) Sessions() (*Collection[models.Session], error) {
	if tx.sessions != nil {
		return tx.sessions, nil
	}
	items, skipped, err := loadRecords[models.Session](tx.ctx, tx.store, KeySessions)
	if err != nil {
		return nil, err
	}
	c, dropped := newCollection(items)
	tx.reportDropped(KeySessions, skipped+dropped)
	tx.sessions = c
	return c, nil
}

// Configuration returns the taxonomy lists and recovery PIN.
func (tx *Tx) Configuration() (*ConfigurationSet, error) {
	if tx.config != nil {
		return tx.config, nil
	}
	var stored persistedConfiguration
	ok, err := tx.store.load(tx.ctx, KeyConfiguration, &stored)
	if err != nil {
		return nil, err
	}
	raw, skipped := models.DefaultConfiguration(), 0
	if ok {
		raw, skipped = stored.decode()
	}
	set, dropped := newConfigurationSet(raw)
	tx.reportDropped(KeyConfiguration, skipped+dropped)
	tx.config = set
	return set, nil
}

// RecycleBin returns the quarantine buckets.
func (tx *Tx) RecycleBin() (*RecycleBinSet, error) {
	if tx.recycle != nil {
		return tx.recycle, nil
	}
	var stored persistedRecycleBin
	if _, err := tx.store.load(tx.ctx, KeyRecycleBin, &stored); err != nil {
		return nil, err
	}
	raw, skipped := stored.decode()
	set, dropped := newRecycleBinSet(raw)
	tx.reportDropped(KeyRecycleBin, skipped+dropped)
	tx.recycle = set
	return set, nil
}

// AppendAudit adds an immutable record to the action log within this pass.
func (tx *Tx) AppendAudit(entry models.AuditLog) error {
	log, err := tx.ActionLog()
	if err != nil {
		return err
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if strings.TrimSpace(entry.ActorID) == "" {
		entry.ActorID = models.SystemActorID
	}
	log.Put(entry)
	return nil
}

func (tx *Tx) reportDropped(key string, dropped int) {
	if dropped > 0 {
		tx.store.logger.Warn("dropped malformed records", zap.String("key", key), zap.Int("count", dropped))
	}
}

func (tx *Tx) commit() error {
	if !tx.writable {
		return nil
	}
	for _, accountType := range models.AccountTypes {
		if c, ok := tx.accounts[accountType]; ok && c.Dirty() {
			if err := tx.store.save(tx.ctx, AccountKey(accountType), c.All()); err != nil {
				return err
			}
		}
	}
	if tx.feedbacks != nil && tx.feedbacks.Dirty() {
		if err := tx.store.save(tx.ctx, KeyFeedbacks, tx.feedbacks.All()); err != nil {
			return err
		}
	}
	if tx.config != nil && tx.config.Dirty() {
		if err := tx.store.save(tx.ctx, KeyConfiguration, tx.config.snapshot()); err != nil {
			return err
		}
	}
	if tx.recycle != nil && tx.recycle.Dirty() {
		if err := tx.store.save(tx.ctx, KeyRecycleBin, tx.recycle.snapshot()); err != nil {
			return err
		}
	}
	if tx.queue != nil && tx.queue.Dirty() {
		if err := tx.store.save(tx.ctx, KeyDeletionQueue, tx.queue.All()); err != nil {
			return err
		}
	}
	if tx.sessions != nil && tx.sessions.Dirty() {
		if err := tx.store.save(tx.ctx, KeySessions, tx.sessions.All()); err != nil {
			return err
		}
	}
	if tx.actionLog != nil && tx.actionLog.Dirty() {
		if err := tx.store.save(tx.ctx, KeyActionLog, tx.actionLog.All()); err != nil {
			return err
		}
	}
	return nil
}
