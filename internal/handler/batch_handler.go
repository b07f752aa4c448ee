package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-feedback-api/internal/models"
	"github.com/noah-isme/sma-feedback-api/pkg/response"
)

type batchService interface {
	Execute(ctx context.Context, principal models.Principal, req models.BatchRequest) (*models.BatchResult, error)
}

// BatchHandler applies one moderation operation to many records.
type BatchHandler struct {
	service batchService
}

// NewBatchHandler constructs the handler.
func NewBatchHandler(service batchService) *BatchHandler {
	return &BatchHandler{service: service}
}

// Execute godoc
// @Summary Run a batch operation
// @Description Items are processed independently and bucketed by outcome
// @Tags Batch
// @Accept json
// @Produce json
// @Param payload body models.BatchRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /batch [post]
func (h *BatchHandler) Execute(c *gin.Context) {
	var req models.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid batch payload"))
		return
	}
	result, err := h.service.Execute(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, map[string]interface{}{"total": result.Total()})
}
