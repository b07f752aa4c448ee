package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-feedback-api/internal/models"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

func TestAuditServiceListAdminOnly(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.audit.List(context.Background(), moderatorPrincipal, models.AuditFilter{})
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)
}

func TestAuditServiceAppendRequiresAction(t *testing.T) {
	h := newHarness(t)
	err := h.audit.Append(context.Background(), adminPrincipal, " ", "details")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuditServiceListPaginatesNewestFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, h.audit.Append(ctx, adminPrincipal, "MANUAL", fmt.Sprintf("entry %d", i)))
		h.clock.Advance(time.Minute)
	}
	require.NoError(t, h.audit.Append(ctx, moderatorPrincipal, "OTHER", "moderator entry"))

	logs, page, err := h.audit.List(ctx, adminPrincipal, models.AuditFilter{Action: "manual", PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalCount)
	assert.Equal(t, 1, page.Page)
	require.Len(t, logs, 2)
	assert.Equal(t, "entry 4", logs[0].Details)
	assert.Equal(t, "entry 3", logs[1].Details)

	logs, _, err = h.audit.List(ctx, adminPrincipal, models.AuditFilter{Action: "MANUAL", Page: 3, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "entry 0", logs[0].Details)

	logs, _, err = h.audit.List(ctx, adminPrincipal, models.AuditFilter{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, logs)

	logs, page, err = h.audit.List(ctx, adminPrincipal, models.AuditFilter{ActorID: "mod", PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, maxAuditPageSize, page.PageSize)
	require.Len(t, logs, 1)
	assert.Equal(t, models.RoleModerator, logs[0].ActorRole)
}

func TestAuditServiceLifecycleEntriesUseServiceClock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedFeedback(t, models.Feedback{ID: "F1", SubmitterType: models.AccountTypeStudent, SubmitterID: "S1", Body: "first"})
	h.seedFeedback(t, models.Feedback{ID: "F2", SubmitterType: models.AccountTypeStudent, SubmitterID: "S1", Body: "second"})

	first, err := h.feedback.Delete(ctx, adminPrincipal, "F1", "spam")
	require.NoError(t, err)
	h.clock.Advance(time.Hour)
	_, err = h.feedback.Delete(ctx, adminPrincipal, "F2", "spam")
	require.NoError(t, err)

	logs, _, err := h.audit.List(ctx, adminPrincipal, models.AuditFilter{Action: models.AuditActionFeedbackDelete})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "F2", logs[0].ResourceID)
	assert.Equal(t, h.clock.Now(), logs[0].CreatedAt)
	assert.Equal(t, "F1", logs[1].ResourceID)
	assert.Equal(t, first.Meta.DeletionDate, logs[1].CreatedAt)
}
