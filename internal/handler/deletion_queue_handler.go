package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-feedback-api/internal/models"
	"github.com/noah-isme/sma-feedback-api/pkg/response"
)

type deletionQueueService interface {
	RequestDeletion(ctx context.Context, principal models.Principal, accountType models.AccountType, id string) (*models.DeletionQueueEntry, error)
	CancelDeletion(ctx context.Context, principal models.Principal, accountType models.AccountType, id string) error
	List(ctx context.Context, principal models.Principal) ([]models.DeletionQueueEntry, error)
}

type sweepRunner interface {
	RunOnce(ctx context.Context) error
}

// DeletionQueueHandler exposes self-service account deletion.
type DeletionQueueHandler struct {
	service deletionQueueService
	sweeper sweepRunner
}

// NewDeletionQueueHandler constructs the handler.
func NewDeletionQueueHandler(service deletionQueueService, sweeper sweepRunner) *DeletionQueueHandler {
	return &DeletionQueueHandler{service: service, sweeper: sweeper}
}

// Request godoc
// @Summary Schedule account deletion
// @Description The account is purged once the grace period ends unless its owner signs in again
// @Tags Deletion Queue
// @Produce json
// @Param type path string true "student, alumni or staff"
// @Param id path string true "Account identifier"
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /accounts/{type}/{id}/deletion [post]
func (h *DeletionQueueHandler) Request(c *gin.Context) {
	accountType, err := accountTypeParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entry, err := h.service.RequestDeletion(c.Request.Context(), principalFromContext(c), accountType, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, entry, nil)
}

// Cancel godoc
// @Summary Cancel a scheduled deletion
// @Tags Deletion Queue
// @Param type path string true "student, alumni or staff"
// @Param id path string true "Account identifier"
// @Success 204
// @Router /accounts/{type}/{id}/deletion [delete]
func (h *DeletionQueueHandler) Cancel(c *gin.Context) {
	accountType, err := accountTypeParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.CancelDeletion(c.Request.Context(), principalFromContext(c), accountType, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// List godoc
// @Summary List scheduled deletions
// @Tags Deletion Queue
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /deletion-queue [get]
func (h *DeletionQueueHandler) List(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context(), principalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Sweep godoc
// @Summary Run the retention and deletion sweeps now
// @Tags Deletion Queue
// @Success 204
// @Router /deletion-queue/sweep [post]
func (h *DeletionQueueHandler) Sweep(c *gin.Context) {
	if err := h.sweeper.RunOnce(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
