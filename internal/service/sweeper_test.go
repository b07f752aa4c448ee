package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-feedback-api/internal/models"
)

type deletionSweeperStub struct {
	calls   atomic.Int32
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *deletionSweeperStub) Sweep(ctx context.Context) (*SweepReport, error) {
	s.calls.Add(1)
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return nil, s.err
	}
	return &SweepReport{}, nil
}

type retentionSweeperStub struct {
	calls atomic.Int32
	err   error
}

func (s *retentionSweeperStub) SweepRetention(ctx context.Context) (int, error) {
	s.calls.Add(1)
	return 0, s.err
}

func TestSweeperRunOnceRunsBothSweeps(t *testing.T) {
	deletion := &deletionSweeperStub{}
	retention := &retentionSweeperStub{}
	sweeper := NewSweeper(deletion, retention, zap.NewNop(), SweeperConfig{})

	require.NoError(t, sweeper.RunOnce(context.Background()))
	assert.Equal(t, int32(1), deletion.calls.Load())
	assert.Equal(t, int32(1), retention.calls.Load())
}

func TestSweeperRunOnceJoinsErrors(t *testing.T) {
	retentionErr := errors.New("retention failed")
	deletionErr := errors.New("deletion failed")
	deletion := &deletionSweeperStub{err: deletionErr}
	retention := &retentionSweeperStub{err: retentionErr}
	sweeper := NewSweeper(deletion, retention, zap.NewNop(), SweeperConfig{})

	err := sweeper.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, retentionErr)
	assert.ErrorIs(t, err, deletionErr)
	assert.Equal(t, int32(1), deletion.calls.Load(), "a failing retention sweep does not skip the deletion sweep")
}

func TestSweeperTriggerCoalesces(t *testing.T) {
	deletion := &deletionSweeperStub{started: make(chan struct{}, 1), release: make(chan struct{})}
	retention := &retentionSweeperStub{}
	sweeper := NewSweeper(deletion, retention, zap.NewNop(), SweeperConfig{RunTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sweeper.Start(ctx)

	sweeper.Trigger()
	select {
	case <-deletion.started:
	case <-time.After(time.Second):
		t.Fatal("sweep did not start")
	}

	sweeper.Trigger()
	sweeper.Trigger()
	close(deletion.release)

	assert.Never(t, func() bool {
		return deletion.calls.Load() > 1
	}, 200*time.Millisecond, 10*time.Millisecond)
	sweeper.Stop()
	assert.Equal(t, int32(1), retention.calls.Load())
}

func TestSweeperEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedStudent(t, "S1", models.AccountStatusApproved)
	h.seedFeedback(t, models.Feedback{ID: "F1", SubmitterType: models.AccountTypeStudent, SubmitterID: "S2"})

	_, err := h.deletion.RequestDeletion(ctx, studentPrincipal("S1"), models.AccountTypeStudent, "S1")
	require.NoError(t, err)
	_, err = h.feedback.Delete(ctx, adminPrincipal, "F1", "spam")
	require.NoError(t, err)

	h.clock.Advance(31 * 24 * time.Hour)
	sweeper := NewSweeper(h.deletion, h.recycle, zap.NewNop(), SweeperConfig{})
	require.NoError(t, sweeper.RunOnce(ctx))

	_, found := h.account(t, models.AccountTypeStudent, "S1")
	assert.False(t, found)
	assert.Empty(t, h.recycled(t))
	assert.Empty(t, h.queue(t))
}
