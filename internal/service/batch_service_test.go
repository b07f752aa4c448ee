package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-feedback-api/internal/models"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

func TestBatchServiceApproveFeedbackBuckets(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedFeedback(t, models.Feedback{ID: "F1", SubmitterType: models.AccountTypeStudent, SubmitterID: "S1"})
	h.seedFeedback(t, models.Feedback{ID: "F2", SubmitterType: models.AccountTypeStudent, SubmitterID: "S1", Status: models.FeedbackStatusApproved, Category: "Facilities", Roadmap: "Resolved"})

	result, err := h.batch.Execute(ctx, moderatorPrincipal, models.BatchRequest{
		Target:    models.BatchTargetFeedback,
		Operation: models.BatchOperationApprove,
		IDs:       []string{"F1", "F2", "F3", "F1"},
		Category:  "Resources",
		Roadmap:   "Received",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"F1"}, result.Succeeded)
	assert.Equal(t, []string{"F2"}, result.AlreadyProcessed)
	assert.Equal(t, []string{"F3"}, result.NotFound)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 3, result.Total())

	byID := map[string]models.Feedback{}
	for _, f := range h.feedbacks(t) {
		byID[f.ID] = f
	}
	assert.Equal(t, models.FeedbackStatusApproved, byID["F1"].Status)
	assert.Equal(t, "Resources", byID["F1"].Category)
	assert.Equal(t, "Received", byID["F1"].Roadmap)
	assert.Equal(t, "Facilities", byID["F2"].Category, "already processed items are untouched")

	assert.Contains(t, h.auditActions(t), models.AuditActionBatchExecute)
	assert.Equal(t, 1, h.metrics.batch["approve/succeeded"])
	assert.Equal(t, 1, h.metrics.batch["approve/already_processed"])
	assert.Equal(t, 1, h.metrics.batch["approve/not_found"])
}

func TestBatchServiceValidatesUniformParameters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedFeedback(t, models.Feedback{ID: "F1", SubmitterType: models.AccountTypeStudent, SubmitterID: "S1"})

	_, err := h.batch.Execute(ctx, moderatorPrincipal, models.BatchRequest{
		Target: models.BatchTargetFeedback, Operation: models.BatchOperationReject, IDs: []string{"F1"},
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = h.batch.Execute(ctx, moderatorPrincipal, models.BatchRequest{
		Target: models.BatchTargetFeedback, Operation: models.BatchOperationApprove, IDs: []string{"F1"}, Category: "Resources",
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = h.batch.Execute(ctx, moderatorPrincipal, models.BatchRequest{
		Target: models.BatchTargetFeedback, Operation: models.BatchOperationApprove, IDs: []string{},
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	items := h.feedbacks(t)
	require.Len(t, items, 1)
	assert.Equal(t, models.FeedbackStatusPending, items[0].Status)
	assert.NotContains(t, h.auditActions(t), models.AuditActionBatchExecute)
}

func TestBatchServiceRequiresStaff(t *testing.T) {
	h := newHarness(t)
	_, err := h.batch.Execute(context.Background(), studentPrincipal("S1"), models.BatchRequest{
		Target: models.BatchTargetStudent, Operation: models.BatchOperationApprove, IDs: []string{"S2"},
	})
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)
}

func TestBatchServiceAccountOperations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedStudent(t, "S1", models.AccountStatusPending)
	h.seedStudent(t, "S2", models.AccountStatusApproved)
	h.seedFeedback(t, models.Feedback{ID: "F1", SubmitterType: models.AccountTypeStudent, SubmitterID: "S2"})

	result, err := h.batch.Execute(ctx, adminPrincipal, models.BatchRequest{
		Target: models.BatchTargetStudent, Operation: models.BatchOperationDelete, IDs: []string{"S1", "S2", "S3"}, Reason: "term ended",
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"S1", "S2"}, result.Succeeded)
	assert.Equal(t, []string{"S3"}, result.NotFound)
	assert.Len(t, h.recycled(t), 2)
	assert.Empty(t, h.feedbacks(t))
}

func TestBatchServiceCollectsFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedAccount(t, models.Account{Type: models.AccountTypeStaff, ID: "helper", Role: models.RoleModerator, Status: models.AccountStatusPending})
	h.seedAccount(t, models.Account{Type: models.AccountTypeStaff, ID: "root", Role: models.RoleAdmin})

	result, err := h.batch.Execute(ctx, adminPrincipal, models.BatchRequest{
		Target: models.BatchTargetStaff, Operation: models.BatchOperationDelete, IDs: []string{"helper", "root"}, Reason: "cleanup",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"helper"}, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "root", result.Failed[0].ID)
	assert.Equal(t, appErrors.ErrValidation.Code, result.Failed[0].Code)
}
