package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-feedback-api/internal/repository"
)

// Default lifecycle windows.
const (
	DefaultDeletionGracePeriod = 20 * 24 * time.Hour
	DefaultRecycleRetention    = 30 * 24 * time.Hour
)

// collectionStore is the unit-of-work surface every lifecycle service runs against.
type collectionStore interface {
	Atomically(ctx context.Context, fn func(tx *repository.Tx) error) error
	View(ctx context.Context, fn func(tx *repository.Tx) error) error
}

// LifecycleRecorder receives transition counts, typically the metrics service.
type LifecycleRecorder interface {
	RecordTransition(entity, transition string)
	RecordBatchItem(operation, outcome string)
	RecordSweepRemoved(sweep string, count int)
}

// LifecycleOption configures the services sharing the lifecycle core.
type LifecycleOption func(*lifecycle)

// WithClock overrides the time source.
func WithClock(now func() time.Time) LifecycleOption {
	return func(l *lifecycle) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLifecycleMetrics attaches a transition recorder.
func WithLifecycleMetrics(recorder LifecycleRecorder) LifecycleOption {
	return func(l *lifecycle) {
		if recorder != nil {
			l.metrics = recorder
		}
	}
}

// WithDeletionGracePeriod overrides the self-deletion grace period.
func WithDeletionGracePeriod(d time.Duration) LifecycleOption {
	return func(l *lifecycle) {
		if d > 0 {
			l.gracePeriod = d
		}
	}
}

// WithRecycleRetention overrides how long recycle bin entries survive.
func WithRecycleRetention(d time.Duration) LifecycleOption {
	return func(l *lifecycle) {
		if d > 0 {
			l.retention = d
		}
	}
}

// lifecycle carries the collaborators shared by every service that moves records between states.
type lifecycle struct {
	store       collectionStore
	gate        *AuthorizationGate
	logger      *zap.Logger
	metrics     LifecycleRecorder
	now         func() time.Time
	gracePeriod time.Duration
	retention   time.Duration
}

func newLifecycle(store collectionStore, logger *zap.Logger, opts []LifecycleOption) lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := lifecycle{
		store:       store,
		gate:        NewAuthorizationGate(),
		logger:      logger,
		now:         time.Now,
		gracePeriod: DefaultDeletionGracePeriod,
		retention:   DefaultRecycleRetention,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&l)
		}
	}
	return l
}

func (l *lifecycle) clock() time.Time {
	return l.now().UTC()
}

func (l *lifecycle) recordTransition(entity, transition string) {
	if l.metrics != nil {
		l.metrics.RecordTransition(entity, transition)
	}
}

func (l *lifecycle) recordSweep(sweep string, count int) {
	if l.metrics != nil && count > 0 {
		l.metrics.RecordSweepRemoved(sweep, count)
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func normalizeReason(reason string) string {
	return strings.TrimSpace(reason)
}
