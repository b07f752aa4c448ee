package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-feedback-api/internal/models"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

type triggerStub struct {
	calls atomic.Int32
}

func (s *triggerStub) Trigger() {
	s.calls.Add(1)
}

func newAuthService(h *harness, opts ...AuthServiceOption) *AuthService {
	opts = append([]AuthServiceOption{WithAuthLifecycle(h.lifecycle...)}, opts...)
	return NewAuthService(h.store, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "sma-feedback-api",
	}, opts...)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedStudent(t, "S1", models.AccountStatusApproved)
	svc := newAuthService(h)

	res, err := svc.Login(ctx, models.LoginRequest{AccountType: models.AccountTypeStudent, Identifier: "S1", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Empty(t, res.Account.PasswordHash)
	assert.False(t, res.DeletionCancelled)
	require.Len(t, h.sessions(t), 1)

	claims, err := svc.ValidateToken(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, studentPrincipal("S1"), claims.Principal())
	assert.Contains(t, h.auditActions(t), models.AuditActionLogin)
}

func TestAuthServiceLoginRejectsBadCredentials(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedStudent(t, "S1", models.AccountStatusApproved)
	svc := newAuthService(h)

	_, err := svc.Login(ctx, models.LoginRequest{AccountType: models.AccountTypeStudent, Identifier: "S1", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.LoginRequest{AccountType: models.AccountTypeStudent, Identifier: "S404", Password: "password123"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.LoginRequest{AccountType: models.AccountTypeAlumni, Identifier: "S1", Password: "password123"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.LoginRequest{Identifier: "S1", Password: "password123"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, h.sessions(t))
}

func TestAuthServiceLoginPendingAccount(t *testing.T) {
	h := newHarness(t)
	h.seedStudent(t, "S1", models.AccountStatusPending)
	svc := newAuthService(h)

	_, err := svc.Login(context.Background(), models.LoginRequest{AccountType: models.AccountTypeStudent, Identifier: "S1", Password: "password123"})
	assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)
}

func TestAuthServiceLoginCancelsPendingDeletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedStudent(t, "S1", models.AccountStatusApproved)
	svc := newAuthService(h)

	_, err := h.deletion.RequestDeletion(ctx, studentPrincipal("S1"), models.AccountTypeStudent, "S1")
	require.NoError(t, err)
	h.clock.Advance(5 * 24 * time.Hour)

	res, err := svc.Login(ctx, models.LoginRequest{AccountType: models.AccountTypeStudent, Identifier: "S1", Password: "password123"})
	require.NoError(t, err)
	assert.True(t, res.DeletionCancelled)
	assert.Equal(t, models.AccountStatusApproved, res.Account.Status)
	assert.Empty(t, h.queue(t))
	assert.Contains(t, h.auditActions(t), models.AuditActionDeletionCancel)
	h.requireQueueMatchesAccounts(t)
}

func TestAuthServiceLogoutRevokesToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedStudent(t, "S1", models.AccountStatusApproved)
	svc := newAuthService(h)

	res, err := svc.Login(ctx, models.LoginRequest{AccountType: models.AccountTypeStudent, Identifier: "S1", Password: "password123"})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(ctx, res.AccessToken)
	require.NoError(t, err)

	err = svc.Logout(ctx, studentPrincipal("S2"), claims.SessionID)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	require.NoError(t, svc.Logout(ctx, claims.Principal(), claims.SessionID))
	_, err = svc.ValidateToken(ctx, res.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceDeletionRequestRevokesToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedStudent(t, "S1", models.AccountStatusApproved)
	svc := newAuthService(h)

	res, err := svc.Login(ctx, models.LoginRequest{AccountType: models.AccountTypeStudent, Identifier: "S1", Password: "password123"})
	require.NoError(t, err)

	_, err = h.deletion.RequestDeletion(ctx, studentPrincipal("S1"), models.AccountTypeStudent, "S1")
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, res.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceTokenExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedStudent(t, "S1", models.AccountStatusApproved)
	svc := newAuthService(h)

	res, err := svc.Login(ctx, models.LoginRequest{AccountType: models.AccountTypeStudent, Identifier: "S1", Password: "password123"})
	require.NoError(t, err)

	h.clock.Advance(2 * time.Hour)
	_, err = svc.ValidateToken(ctx, res.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.ValidateToken(ctx, "not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.Login(ctx, models.LoginRequest{AccountType: models.AccountTypeStudent, Identifier: "S1", Password: "password123"})
	require.NoError(t, err)
	assert.Len(t, h.sessions(t), 1, "expired sessions are pruned on login")
}

func TestAuthServiceStaffLoginTriggersSweep(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedStudent(t, "S1", models.AccountStatusApproved)
	h.seedAccount(t, models.Account{
		Type:         models.AccountTypeStaff,
		ID:           "root",
		Role:         models.RoleAdmin,
		PasswordHash: hashPassword(t, "password123"),
	})
	trigger := &triggerStub{}
	svc := newAuthService(h, WithStaffLoginSweep(trigger))

	_, err := svc.Login(ctx, models.LoginRequest{AccountType: models.AccountTypeStudent, Identifier: "S1", Password: "password123"})
	require.NoError(t, err)
	assert.Zero(t, trigger.calls.Load())

	res, err := svc.Login(ctx, models.LoginRequest{AccountType: models.AccountTypeStaff, Identifier: "root", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), trigger.calls.Load())

	claims, err := svc.ValidateToken(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, adminPrincipal, claims.Principal())
}
