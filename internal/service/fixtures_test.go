package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-feedback-api/internal/models"
	"github.com/noah-isme/sma-feedback-api/internal/repository"
)

var (
	adminPrincipal     = models.Principal{ID: "root", Role: models.RoleAdmin, AccountType: models.AccountTypeStaff}
	moderatorPrincipal = models.Principal{ID: "mod", Role: models.RoleModerator, AccountType: models.AccountTypeStaff}
)

func studentPrincipal(id string) models.Principal {
	return models.Principal{ID: id, AccountType: models.AccountTypeStudent}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recorderStub struct {
	mu          sync.Mutex
	transitions map[string]int
	batch       map[string]int
	sweeps      map[string]int
}

func newRecorderStub() *recorderStub {
	return &recorderStub{transitions: map[string]int{}, batch: map[string]int{}, sweeps: map[string]int{}}
}

func (r *recorderStub) RecordTransition(entity, transition string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions[entity+"/"+transition]++
}

func (r *recorderStub) RecordBatchItem(operation, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batch[operation+"/"+outcome]++
}

func (r *recorderStub) RecordSweepRemoved(sweep string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweeps[sweep] += count
}

// harness wires every lifecycle service onto one in-memory store with a controllable clock.
type harness struct {
	store     *repository.Store
	clock     *testClock
	metrics   *recorderStub
	accounts  *AccountService
	feedback  *FeedbackService
	recycle   *RecycleBinService
	deletion  *DeletionQueueService
	config    *ConfigurationService
	audit     *AuditService
	batch     *BatchService
	lifecycle []LifecycleOption
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := repository.NewStore(repository.NewMemoryStore(), zap.NewNop())
	clock := newTestClock()
	metrics := newRecorderStub()
	opts := []LifecycleOption{WithClock(clock.Now), WithLifecycleMetrics(metrics)}
	h := &harness{
		store:     store,
		clock:     clock,
		metrics:   metrics,
		accounts:  NewAccountService(store, nil, zap.NewNop(), opts...),
		feedback:  NewFeedbackService(store, nil, zap.NewNop(), opts...),
		recycle:   NewRecycleBinService(store, zap.NewNop(), opts...),
		deletion:  NewDeletionQueueService(store, zap.NewNop(), opts...),
		config:    NewConfigurationService(store, nil, zap.NewNop(), opts...),
		audit:     NewAuditService(store, zap.NewNop(), opts...),
		lifecycle: opts,
	}
	h.batch = NewBatchService(h.accounts, h.feedback, h.audit, nil, zap.NewNop(), WithBatchMetrics(metrics))
	return h
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func (h *harness) seedAccount(t *testing.T, account models.Account) models.Account {
	t.Helper()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = h.clock.Now()
	}
	if account.Status == "" {
		account.Status = models.AccountStatusApproved
	}
	require.NoError(t, h.store.Atomically(context.Background(), func(tx *repository.Tx) error {
		accounts, err := tx.Accounts(account.Type)
		if err != nil {
			return err
		}
		accounts.Put(account)
		return nil
	}))
	return account
}

func (h *harness) seedStudent(t *testing.T, id string, status models.AccountStatus) models.Account {
	t.Helper()
	return h.seedAccount(t, models.Account{
		Type:         models.AccountTypeStudent,
		ID:           id,
		DisplayName:  "Student " + id,
		PasswordHash: hashPassword(t, "password123"),
		Status:       status,
	})
}

func (h *harness) seedFeedback(t *testing.T, feedback models.Feedback) models.Feedback {
	t.Helper()
	if feedback.SubmittedAt.IsZero() {
		feedback.SubmittedAt = h.clock.Now()
	}
	if feedback.Topic == "" {
		feedback.Topic = "General"
	}
	if feedback.Status == "" {
		feedback.Status = models.FeedbackStatusPending
	}
	require.NoError(t, h.store.Atomically(context.Background(), func(tx *repository.Tx) error {
		feedbacks, err := tx.Feedbacks()
		if err != nil {
			return err
		}
		feedbacks.Put(feedback)
		return nil
	}))
	return feedback
}

func (h *harness) account(t *testing.T, accountType models.AccountType, id string) (models.Account, bool) {
	t.Helper()
	var (
		account models.Account
		found   bool
	)
	require.NoError(t, h.store.View(context.Background(), func(tx *repository.Tx) error {
		accounts, err := tx.Accounts(accountType)
		if err != nil {
			return err
		}
		account, found = accounts.Get(id)
		return nil
	}))
	return account, found
}

func (h *harness) feedbacks(t *testing.T) []models.Feedback {
	t.Helper()
	var items []models.Feedback
	require.NoError(t, h.store.View(context.Background(), func(tx *repository.Tx) error {
		feedbacks, err := tx.Feedbacks()
		if err != nil {
			return err
		}
		items = feedbacks.All()
		return nil
	}))
	return items
}

func (h *harness) recycled(t *testing.T) []models.RecycleBinEntry {
	t.Helper()
	var entries []models.RecycleBinEntry
	require.NoError(t, h.store.View(context.Background(), func(tx *repository.Tx) error {
		bin, err := tx.RecycleBin()
		if err != nil {
			return err
		}
		entries = bin.All()
		return nil
	}))
	return entries
}

func (h *harness) queue(t *testing.T) []models.DeletionQueueEntry {
	t.Helper()
	var entries []models.DeletionQueueEntry
	require.NoError(t, h.store.View(context.Background(), func(tx *repository.Tx) error {
		queue, err := tx.DeletionQueue()
		if err != nil {
			return err
		}
		entries = queue.All()
		return nil
	}))
	return entries
}

func (h *harness) sessions(t *testing.T) []models.Session {
	t.Helper()
	var sessions []models.Session
	require.NoError(t, h.store.View(context.Background(), func(tx *repository.Tx) error {
		c, err := tx.Sessions()
		if err != nil {
			return err
		}
		sessions = c.All()
		return nil
	}))
	return sessions
}

func (h *harness) auditActions(t *testing.T) []string {
	t.Helper()
	var actions []string
	require.NoError(t, h.store.View(context.Background(), func(tx *repository.Tx) error {
		log, err := tx.ActionLog()
		if err != nil {
			return err
		}
		for _, entry := range log.All() {
			actions = append(actions, entry.Action)
		}
		return nil
	}))
	return actions
}

// requireQueueMatchesAccounts checks that an account is pending deletion exactly when it has a queue entry.
func (h *harness) requireQueueMatchesAccounts(t *testing.T) {
	t.Helper()
	require.NoError(t, h.store.View(context.Background(), func(tx *repository.Tx) error {
		queue, err := tx.DeletionQueue()
		if err != nil {
			return err
		}
		pending := 0
		for _, accountType := range models.AccountTypes {
			accounts, err := tx.Accounts(accountType)
			if err != nil {
				return err
			}
			for _, account := range accounts.All() {
				if account.Status == models.AccountStatusPendingDeletion {
					pending++
					require.True(t, queue.Has(account.Ref()), "account %s pending deletion without queue entry", account.Ref())
				} else {
					require.False(t, queue.Has(account.Ref()), "account %s queued while %s", account.Ref(), account.Status)
				}
			}
		}
		require.Equal(t, pending, queue.Len())
		return nil
	}))
}
