package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-feedback-api/internal/models"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
	"github.com/noah-isme/sma-feedback-api/pkg/response"
)

type recycleBinService interface {
	List(ctx context.Context, principal models.Principal, filter models.RecycleBinFilter) ([]models.RecycleBinEntry, error)
	Restore(ctx context.Context, principal models.Principal, entryID string) (*models.RecycleBinEntry, error)
	MarkReviewed(ctx context.Context, principal models.Principal, entryID string) (*models.RecycleBinEntry, bool, error)
	Purge(ctx context.Context, principal models.Principal, entryID string) error
	CascadePurgeDependents(ctx context.Context, principal models.Principal, accountType models.AccountType, id string) (int, error)
}

// RecycleBinHandler exposes the soft-delete quarantine.
type RecycleBinHandler struct {
	service recycleBinService
}

// NewRecycleBinHandler constructs the handler.
func NewRecycleBinHandler(service recycleBinService) *RecycleBinHandler {
	return &RecycleBinHandler{service: service}
}

// List godoc
// @Summary List recycle bin entries
// @Tags Recycle Bin
// @Produce json
// @Param bucket query string false "deletedStudents, deletedAlumni, deletedStaff, deletedFeedbacks or deletedConfigs"
// @Param pendingReview query bool false "Only entries awaiting Admin review"
// @Success 200 {object} response.Envelope
// @Router /recycle-bin [get]
func (h *RecycleBinHandler) List(c *gin.Context) {
	filter := models.RecycleBinFilter{Bucket: models.RecycleBucket(strings.TrimSpace(c.Query("bucket")))}
	if filter.Bucket != "" && !knownBucket(filter.Bucket) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown recycle bin bucket"))
		return
	}
	pending, err := queryBool(c, "pendingReview")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.PendingReview = pending

	entries, err := h.service.List(c.Request.Context(), principalFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Restore godoc
// @Summary Restore a soft-deleted record
// @Tags Recycle Bin
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /recycle-bin/{id}/restore [post]
func (h *RecycleBinHandler) Restore(c *gin.Context) {
	entry, err := h.service.Restore(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Review godoc
// @Summary Confirm a moderator deletion
// @Tags Recycle Bin
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /recycle-bin/{id}/review [post]
func (h *RecycleBinHandler) Review(c *gin.Context) {
	entry, reviewed, err := h.service.MarkReviewed(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !reviewed {
		response.Notice(c, entry, "entry does not require review")
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Purge godoc
// @Summary Permanently delete a recycle bin entry
// @Tags Recycle Bin
// @Param id path string true "Entry ID"
// @Success 204
// @Router /recycle-bin/{id} [delete]
func (h *RecycleBinHandler) Purge(c *gin.Context) {
	if err := h.service.Purge(c.Request.Context(), principalFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CascadePurge godoc
// @Summary Purge every record owned by an account
// @Tags Recycle Bin
// @Produce json
// @Param type path string true "student, alumni or staff"
// @Param id path string true "Account identifier"
// @Success 200 {object} response.Envelope
// @Router /accounts/{type}/{id}/dependents [delete]
func (h *RecycleBinHandler) CascadePurge(c *gin.Context) {
	accountType, err := accountTypeParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	removed, err := h.service.CascadePurgeDependents(c.Request.Context(), principalFromContext(c), accountType, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"removed": removed}, nil)
}

func knownBucket(bucket models.RecycleBucket) bool {
	for _, candidate := range models.RecycleBuckets {
		if candidate == bucket {
			return true
		}
	}
	return false
}
