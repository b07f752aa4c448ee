package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-feedback-api/internal/dto"
	"github.com/noah-isme/sma-feedback-api/internal/models"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
	"github.com/noah-isme/sma-feedback-api/pkg/response"
)

type feedbackService interface {
	Submit(ctx context.Context, principal models.Principal, req dto.SubmitFeedbackRequest) (*models.Feedback, error)
	Approve(ctx context.Context, principal models.Principal, id string, req dto.ApproveFeedbackRequest) (*models.Feedback, error)
	Reject(ctx context.Context, principal models.Principal, id, reason string) (*models.RecycleBinEntry, error)
	UpdateRoadmap(ctx context.Context, principal models.Principal, id string, req dto.UpdateRoadmapRequest) (*models.Feedback, error)
	Delete(ctx context.Context, principal models.Principal, id, reason string) (*models.RecycleBinEntry, error)
	Get(ctx context.Context, principal models.Principal, id string) (*models.Feedback, error)
	List(ctx context.Context, principal models.Principal, filter models.FeedbackFilter) ([]models.Feedback, error)
}

// FeedbackHandler exposes feedback submission and moderation endpoints.
type FeedbackHandler struct {
	service feedbackService
}

// NewFeedbackHandler constructs the handler.
func NewFeedbackHandler(service feedbackService) *FeedbackHandler {
	return &FeedbackHandler{service: service}
}

// List godoc
// @Summary List feedback
// @Description Staff see every item. Everyone else sees approved items and their own submissions.
// @Tags Feedback
// @Produce json
// @Param status query string false "pending or approved"
// @Param category query string false "Category name"
// @Param roadmap query string false "Roadmap stage"
// @Param submitterType query string false "student, alumni or staff"
// @Param submitterId query string false "Submitter identifier"
// @Success 200 {object} response.Envelope
// @Router /feedback [get]
func (h *FeedbackHandler) List(c *gin.Context) {
	filter := models.FeedbackFilter{
		Status:        models.FeedbackStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
		Category:      strings.TrimSpace(c.Query("category")),
		Roadmap:       strings.TrimSpace(c.Query("roadmap")),
		SubmitterType: models.AccountType(strings.ToLower(strings.TrimSpace(c.Query("submitterType")))),
		SubmitterID:   strings.TrimSpace(c.Query("submitterId")),
	}
	switch filter.Status {
	case "", models.FeedbackStatusPending, models.FeedbackStatusApproved:
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown feedback status"))
		return
	}
	if filter.SubmitterType != "" && !filter.SubmitterType.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown submitter type"))
		return
	}

	items, err := h.service.List(c.Request.Context(), principalFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get feedback
// @Tags Feedback
// @Produce json
// @Param id path string true "Feedback ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /feedback/{id} [get]
func (h *FeedbackHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Submit godoc
// @Summary Submit feedback
// @Tags Feedback
// @Accept json
// @Produce json
// @Param payload body dto.SubmitFeedbackRequest true "Feedback payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /feedback [post]
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req dto.SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid feedback payload"))
		return
	}
	item, err := h.service.Submit(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Approve godoc
// @Summary Approve feedback
// @Tags Feedback
// @Accept json
// @Produce json
// @Param id path string true "Feedback ID"
// @Param payload body dto.ApproveFeedbackRequest true "Category and roadmap"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /feedback/{id}/approve [post]
func (h *FeedbackHandler) Approve(c *gin.Context) {
	var req dto.ApproveFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid approval payload"))
		return
	}
	item, err := h.service.Approve(c.Request.Context(), principalFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Reject godoc
// @Summary Reject pending feedback
// @Tags Feedback
// @Accept json
// @Produce json
// @Param id path string true "Feedback ID"
// @Param payload body dto.ReasonRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /feedback/{id}/reject [post]
func (h *FeedbackHandler) Reject(c *gin.Context) {
	reason, err := reasonFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entry, err := h.service.Reject(c.Request.Context(), principalFromContext(c), c.Param("id"), reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// UpdateRoadmap godoc
// @Summary Move approved feedback along the roadmap
// @Tags Feedback
// @Accept json
// @Produce json
// @Param id path string true "Feedback ID"
// @Param payload body dto.UpdateRoadmapRequest true "Roadmap payload"
// @Success 200 {object} response.Envelope
// @Router /feedback/{id}/roadmap [put]
func (h *FeedbackHandler) UpdateRoadmap(c *gin.Context) {
	var req dto.UpdateRoadmapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid roadmap payload"))
		return
	}
	item, err := h.service.UpdateRoadmap(c.Request.Context(), principalFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Soft-delete feedback
// @Tags Feedback
// @Accept json
// @Produce json
// @Param id path string true "Feedback ID"
// @Param payload body dto.ReasonRequest true "Deletion reason"
// @Success 200 {object} response.Envelope
// @Router /feedback/{id} [delete]
func (h *FeedbackHandler) Delete(c *gin.Context) {
	reason, err := reasonFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entry, err := h.service.Delete(c.Request.Context(), principalFromContext(c), c.Param("id"), reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}
