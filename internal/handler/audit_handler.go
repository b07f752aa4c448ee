package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-feedback-api/internal/models"
	"github.com/noah-isme/sma-feedback-api/pkg/response"
)

type auditService interface {
	List(ctx context.Context, principal models.Principal, filter models.AuditFilter) ([]models.AuditLog, *models.Pagination, error)
}

// AuditHandler exposes the action log to Admins.
type AuditHandler struct {
	service auditService
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(service auditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// List godoc
// @Summary List action log entries
// @Tags Audit
// @Produce json
// @Param actorId query string false "Actor identifier"
// @Param action query string false "Action type"
// @Param resource query string false "Resource kind"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter := models.AuditFilter{
		ActorID:  strings.TrimSpace(c.Query("actorId")),
		Action:   strings.TrimSpace(c.Query("action")),
		Resource: strings.TrimSpace(c.Query("resource")),
	}
	var err error
	if filter.Page, err = queryInt(c, "page"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.PageSize, err = queryInt(c, "pageSize"); err != nil {
		response.Error(c, err)
		return
	}

	logs, pagination, err := h.service.List(c.Request.Context(), principalFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}
