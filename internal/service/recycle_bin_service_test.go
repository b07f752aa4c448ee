package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-feedback-api/internal/dto"
	"github.com/noah-isme/sma-feedback-api/internal/models"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

func TestRecycleBinSoftDeleteAccountPurgesFeedback(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedStudent(t, "S1", models.AccountStatusApproved)
	h.seedStudent(t, "S2", models.AccountStatusApproved)
	h.seedFeedback(t, models.Feedback{ID: "F1", SubmitterType: models.AccountTypeStudent, SubmitterID: "S1", Body: "more books"})
	h.seedFeedback(t, models.Feedback{ID: "F2", SubmitterType: models.AccountTypeStudent, SubmitterID: "S1", Body: "wifi"})
	h.seedFeedback(t, models.Feedback{ID: "F3", SubmitterType: models.AccountTypeStudent, SubmitterID: "S2", Body: "lockers"})

	_, err := h.feedback.Delete(ctx, adminPrincipal, "F2", "duplicate")
	require.NoError(t, err)

	entry, err := h.recycle.SoftDeleteAccount(ctx, adminPrincipal, models.AccountTypeStudent, "S1", "graduated")
	require.NoError(t, err)
	assert.Equal(t, models.RecycleKindAccount, entry.Kind)
	assert.Equal(t, models.BucketDeletedStudents, entry.Bucket())
	assert.Equal(t, "graduated", entry.Meta.DeletionReason)
	assert.True(t, entry.Meta.AdminReviewed)
	assert.False(t, entry.Meta.DeletedByModerator)

	_, found := h.account(t, models.AccountTypeStudent, "S1")
	assert.False(t, found)

	remaining := h.feedbacks(t)
	require.Len(t, remaining, 1)
	assert.Equal(t, "F3", remaining[0].ID)

	bin := h.recycled(t)
	require.Len(t, bin, 1)
	assert.Equal(t, "S1", bin[0].RecordID())

	restored, err := h.recycle.Restore(ctx, adminPrincipal, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusApproved, restored.Account.Status)

	_, found = h.account(t, models.AccountTypeStudent, "S1")
	assert.True(t, found)
	assert.Len(t, h.feedbacks(t), 1, "purged feedback must not come back with the account")
	assert.Empty(t, h.recycled(t))
	assert.Equal(t, 1, h.metrics.transitions["account/restore"])
}

func TestRecycleBinSoftDeleteRequiresReason(t *testing.T) {
	h := newHarness(t)
	h.seedStudent(t, "S1", models.AccountStatusApproved)

	_, err := h.recycle.SoftDeleteAccount(context.Background(), adminPrincipal, models.AccountTypeStudent, "S1", "   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, found := h.account(t, models.AccountTypeStudent, "S1")
	assert.True(t, found)
}

func TestRecycleBinStaffCannotDeleteThemselves(t *testing.T) {
	h := newHarness(t)
	h.seedAccount(t, models.Account{Type: models.AccountTypeStaff, ID: "root", Role: models.RoleAdmin})

	_, err := h.recycle.SoftDeleteAccount(context.Background(), adminPrincipal, models.AccountTypeStaff, "root", "leaving")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestRecycleBinModeratorDeletionAwaitsReview(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedFeedback(t, models.Feedback{ID: "F1", SubmitterType: models.AccountTypeStudent, SubmitterID: "S1", Status: models.FeedbackStatusApproved})

	entry, err := h.feedback.Delete(ctx, moderatorPrincipal, "F1", "off topic")
	require.NoError(t, err)
	assert.True(t, entry.Meta.DeletedByModerator)
	assert.False(t, entry.Meta.AdminReviewed)
	assert.True(t, entry.RequiresReview())

	_, err = h.recycle.Restore(ctx, moderatorPrincipal, entry.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	err = h.recycle.Purge(ctx, moderatorPrincipal, entry.ID)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	pending := true
	listed, err := h.recycle.List(ctx, moderatorPrincipal, models.RecycleBinFilter{PendingReview: &pending})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	restored, err := h.recycle.Restore(ctx, adminPrincipal, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FeedbackStatusApproved, restored.Feedback.Status)

	items := h.feedbacks(t)
	require.Len(t, items, 1)
	assert.Equal(t, "F1", items[0].ID)
	assert.Equal(t, models.FeedbackStatusApproved, items[0].Status)
}

func TestRecycleBinMarkReviewedUnlocksModerators(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedFeedback(t, models.Feedback{ID: "F1", SubmitterType: models.AccountTypeStudent, SubmitterID: "S1"})

	entry, err := h.feedback.Delete(ctx, moderatorPrincipal, "F1", "spam")
	require.NoError(t, err)

	_, _, err = h.recycle.MarkReviewed(ctx, moderatorPrincipal, entry.ID)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	reviewed, changed, err := h.recycle.MarkReviewed(ctx, adminPrincipal, entry.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, reviewed.Meta.AdminReviewed)
	assert.Equal(t, "root", reviewed.Meta.ReviewedBy)
	require.NotNil(t, reviewed.Meta.ReviewedAt)

	_, changed, err = h.recycle.MarkReviewed(ctx, adminPrincipal, entry.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, h.recycle.Purge(ctx, moderatorPrincipal, entry.ID))
	assert.Empty(t, h.recycled(t))
	assert.Contains(t, h.auditActions(t), models.AuditActionRecyclePurge)
}

func TestRecycleBinStaffEntriesNeedStaffManagement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedAccount(t, models.Account{Type: models.AccountTypeStaff, ID: "helper", Role: models.RoleModerator})

	entry, err := h.recycle.SoftDeleteAccount(ctx, adminPrincipal, models.AccountTypeStaff, "helper", "left school")
	require.NoError(t, err)
	assert.Equal(t, models.BucketDeletedStaff, entry.Bucket())

	_, err = h.recycle.Restore(ctx, moderatorPrincipal, entry.ID)
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	_, err = h.recycle.Restore(ctx, adminPrincipal, entry.ID)
	require.NoError(t, err)
}

func TestRecycleBinStudentsCannotBrowse(t *testing.T) {
	h := newHarness(t)
	_, err := h.recycle.List(context.Background(), studentPrincipal("S1"), models.RecycleBinFilter{})
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)
}

func TestRecycleBinRestoreRestoresPendingAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedStudent(t, "S9", models.AccountStatusPending)

	entry, err := h.accounts.Reject(ctx, adminPrincipal, models.AccountTypeStudent, "S9", "unknown student")
	require.NoError(t, err)
	assert.Equal(t, string(models.AccountStatusPending), entry.Meta.PreviousStatus)

	restored, err := h.recycle.Restore(ctx, adminPrincipal, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusPending, restored.Account.Status)
}

func TestRecycleBinRestoreConfigurationNameConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	topics, err := h.config.List(ctx, models.ConfigurationKindTopic, false)
	require.NoError(t, err)
	require.NotEmpty(t, topics)
	general := topics[0]

	entry, err := h.config.Delete(ctx, adminPrincipal, general.ID, "rename")
	require.NoError(t, err)

	_, err = h.config.Create(ctx, adminPrincipal, models.ConfigurationKindTopic, dto.CreateConfigurationRequest{Name: general.Name})
	require.NoError(t, err)

	_, err = h.recycle.Restore(ctx, adminPrincipal, entry.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Len(t, h.recycled(t), 1, "failed restore must leave the entry in place")
}

func TestRecycleBinCascadePurgeDependents(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedStudent(t, "S1", models.AccountStatusApproved)
	h.seedFeedback(t, models.Feedback{ID: "F1", SubmitterType: models.AccountTypeStudent, SubmitterID: "S1"})
	h.seedFeedback(t, models.Feedback{ID: "F2", SubmitterType: models.AccountTypeStudent, SubmitterID: "S1"})
	_, err := h.feedback.Delete(ctx, adminPrincipal, "F2", "dup")
	require.NoError(t, err)

	_, err = h.recycle.CascadePurgeDependents(ctx, moderatorPrincipal, models.AccountTypeStudent, "S1")
	assert.ErrorIs(t, err, appErrors.ErrPermissionDenied)

	purged, err := h.recycle.CascadePurgeDependents(ctx, adminPrincipal, models.AccountTypeStudent, "S1")
	require.NoError(t, err)
	assert.Equal(t, 2, purged)
	assert.Empty(t, h.feedbacks(t))
	assert.Empty(t, h.recycled(t))

	_, found := h.account(t, models.AccountTypeStudent, "S1")
	assert.True(t, found)
}

func TestRecycleBinRetentionSweep(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedFeedback(t, models.Feedback{ID: "F1", SubmitterType: models.AccountTypeStudent, SubmitterID: "S1"})
	h.seedFeedback(t, models.Feedback{ID: "F2", SubmitterType: models.AccountTypeStudent, SubmitterID: "S1"})

	_, err := h.feedback.Delete(ctx, moderatorPrincipal, "F1", "old")
	require.NoError(t, err)
	h.clock.Advance(10 * 24 * time.Hour)
	_, err = h.feedback.Delete(ctx, adminPrincipal, "F2", "newer")
	require.NoError(t, err)

	h.clock.Advance(19 * 24 * time.Hour)
	removed, err := h.recycle.SweepRetention(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)

	h.clock.Advance(2 * 24 * time.Hour)
	removed, err = h.recycle.SweepRetention(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed, "unreviewed entries expire too")

	bin := h.recycled(t)
	require.Len(t, bin, 1)
	assert.Equal(t, "F2", bin[0].RecordID())
	assert.Equal(t, 1, h.metrics.sweeps["retention"])
	assert.Contains(t, h.auditActions(t), models.AuditActionRetentionSweep)
}

func TestRecycleBinListNewestFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, id := range []string{"F1", "F2", "F3"} {
		h.seedFeedback(t, models.Feedback{ID: id, SubmitterType: models.AccountTypeStudent, SubmitterID: "S1"})
	}
	for _, id := range []string{"F1", "F2", "F3"} {
		_, err := h.feedback.Delete(ctx, adminPrincipal, id, "cleanup")
		require.NoError(t, err)
		h.clock.Advance(time.Hour)
	}

	entries, err := h.recycle.List(ctx, moderatorPrincipal, models.RecycleBinFilter{Bucket: models.BucketDeletedFeedbacks})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "F3", entries[0].RecordID())
	assert.Equal(t, "F1", entries[2].RecordID())

	entries, err = h.recycle.List(ctx, moderatorPrincipal, models.RecycleBinFilter{Bucket: models.BucketDeletedStudents})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecycleBinRestoreUnknownEntry(t *testing.T) {
	h := newHarness(t)
	_, err := h.recycle.Restore(context.Background(), adminPrincipal, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestRecycleBinHidesAnonymousSubmitterFromModerators(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedStudent(t, "S2", models.AccountStatusApproved)
	h.seedFeedback(t, models.Feedback{ID: "F1", SubmitterType: models.AccountTypeStudent, SubmitterID: "S2", Body: "canteen", Anonymous: true})
	h.seedFeedback(t, models.Feedback{ID: "F2", SubmitterType: models.AccountTypeStudent, SubmitterID: "S2", Body: "parking", Anonymous: true})

	deleted, err := h.feedback.Delete(ctx, adminPrincipal, "F1", "off topic")
	require.NoError(t, err)
	assert.Equal(t, "S2", deleted.Feedback.SubmitterID)

	entries, err := h.recycle.List(ctx, moderatorPrincipal, models.RecycleBinFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Feedback.SubmitterID)
	assert.Empty(t, entries[0].Feedback.SubmitterType)

	restored, err := h.recycle.Restore(ctx, moderatorPrincipal, deleted.ID)
	require.NoError(t, err)
	assert.Empty(t, restored.Feedback.SubmitterID)

	live := h.feedbacks(t)
	require.Len(t, live, 2)
	for _, feedback := range live {
		assert.Equal(t, "S2", feedback.SubmitterID)
	}

	rejected, err := h.feedback.Reject(ctx, moderatorPrincipal, "F2", "duplicate")
	require.NoError(t, err)
	assert.Empty(t, rejected.Feedback.SubmitterID)

	stored := h.recycled(t)
	require.Len(t, stored, 1)
	assert.Equal(t, "S2", stored[0].Feedback.SubmitterID)

	own := studentPrincipal("S2")
	assert.Equal(t, "S2", entryFor(own, stored[0]).Feedback.SubmitterID)
}

func TestRecycleBinEntriesOmitPasswordHash(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedStudent(t, "S1", models.AccountStatusApproved)
	h.seedAccount(t, models.Account{
		Type:         models.AccountTypeStudent,
		ID:           "S3",
		PasswordHash: hashPassword(t, "password123"),
		Status:       models.AccountStatusPending,
	})

	deleted, err := h.accounts.Delete(ctx, moderatorPrincipal, models.AccountTypeStudent, "S1", "left school")
	require.NoError(t, err)
	assert.Empty(t, deleted.Account.PasswordHash)

	rejected, err := h.accounts.Reject(ctx, moderatorPrincipal, models.AccountTypeStudent, "S3", "unknown student")
	require.NoError(t, err)
	assert.Empty(t, rejected.Account.PasswordHash)

	for _, entry := range h.recycled(t) {
		assert.NotEmpty(t, entry.Account.PasswordHash, "stored entry %s keeps the credential", entry.RecordID())
	}

	entries, err := h.recycle.List(ctx, moderatorPrincipal, models.RecycleBinFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.Empty(t, entry.Account.PasswordHash)
	}

	reviewed, changed, err := h.recycle.MarkReviewed(ctx, adminPrincipal, deleted.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Empty(t, reviewed.Account.PasswordHash)

	restored, err := h.recycle.Restore(ctx, adminPrincipal, deleted.ID)
	require.NoError(t, err)
	assert.Empty(t, restored.Account.PasswordHash)

	account, found := h.account(t, models.AccountTypeStudent, "S1")
	require.True(t, found)
	assert.NotEmpty(t, account.PasswordHash)
}
