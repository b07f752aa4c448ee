package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-feedback-api/pkg/jobs"
)

const (
	sweepJobID   = "lifecycle-sweep"
	sweepJobType = "sweep"
)

type deletionSweeper interface {
	Sweep(ctx context.Context) (*SweepReport, error)
}

type retentionSweeper interface {
	SweepRetention(ctx context.Context) (int, error)
}

// SweeperConfig controls when sweeps run.
type SweeperConfig struct {
	Interval     time.Duration
	RunTimeout   time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Sweeper runs the recycle bin retention sweep and the deletion queue sweep off the request path.
// Requests made while a sweep is queued or running collapse into it.
type Sweeper struct {
	deletion  deletionSweeper
	retention retentionSweeper
	queue     *jobs.Queue
	logger    *zap.Logger
	cfg       SweeperConfig
}

// NewSweeper wires the sweeps onto a single-worker job queue.
func NewSweeper(deletion deletionSweeper, retention retentionSweeper, logger *zap.Logger, cfg SweeperConfig) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sweeper{deletion: deletion, retention: retention, logger: logger, cfg: cfg}
	s.queue = jobs.NewQueue("lifecycle-sweeps", s.handle, jobs.QueueConfig{
		Workers:    1,
		BufferSize: 4,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryBackoff,
		JobTimeout: cfg.RunTimeout,
		Logger:     logger,
	})
	return s
}

// RunOnce performs both sweeps synchronously. Used at startup before serving traffic.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	var errs []error
	if s.retention != nil {
		removed, err := s.retention.SweepRetention(ctx)
		if err != nil {
			errs = append(errs, err)
		} else if removed > 0 {
			s.logger.Info("retention sweep removed entries", zap.Int("removed", removed))
		}
	}
	if s.deletion != nil {
		report, err := s.deletion.Sweep(ctx)
		if err != nil {
			errs = append(errs, err)
		} else if report.Changed() {
			s.logger.Info("deletion sweep completed",
				zap.Strings("purged", report.Purged),
				zap.Strings("dropped", report.Dropped),
				zap.Strings("reconciled", report.Reconciled))
		}
	}
	return errors.Join(errs...)
}

// Start launches the worker and, when an interval is configured, the periodic ticker.
func (s *Sweeper) Start(ctx context.Context) {
	s.queue.Start(ctx)
	if s.cfg.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Trigger()
			}
		}
	}()
}

// Trigger schedules a sweep unless one is already pending.
func (s *Sweeper) Trigger() {
	err := s.queue.Enqueue(jobs.Job{ID: sweepJobID, Type: sweepJobType})
	switch {
	case err == nil, errors.Is(err, jobs.ErrCoalesced):
	default:
		s.logger.Warn("failed to schedule sweep", zap.Error(err))
	}
}

// Stop waits for the worker to exit.
func (s *Sweeper) Stop() {
	s.queue.Stop()
}

func (s *Sweeper) handle(ctx context.Context, job jobs.Job) error {
	return s.RunOnce(ctx)
}
