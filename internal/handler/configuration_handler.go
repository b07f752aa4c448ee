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

type configurationService interface {
	List(ctx context.Context, kind models.ConfigurationKind, includeInactive bool) ([]models.ConfigurationItem, error)
	Create(ctx context.Context, principal models.Principal, kind models.ConfigurationKind, req dto.CreateConfigurationRequest) (*models.ConfigurationItem, error)
	Update(ctx context.Context, principal models.Principal, id string, req dto.UpdateConfigurationRequest) (*models.ConfigurationItem, error)
	Delete(ctx context.Context, principal models.Principal, id, reason string) (*models.RecycleBinEntry, error)
	SetRecoveryPin(ctx context.Context, principal models.Principal, req dto.RecoveryPinRequest) error
	VerifyRecoveryPin(ctx context.Context, pin string) (bool, error)
}

// ConfigurationHandler exposes the topic, category, roadmap and course taxonomies.
type ConfigurationHandler struct {
	service configurationService
}

// NewConfigurationHandler builds a new handler.
func NewConfigurationHandler(service configurationService) *ConfigurationHandler {
	return &ConfigurationHandler{service: service}
}

// List godoc
// @Summary List configuration items of one kind
// @Tags Configuration
// @Produce json
// @Param kind path string true "topic, category, roadmap or course"
// @Param includeInactive query bool false "Include inactive items"
// @Success 200 {object} response.Envelope
// @Router /configuration/{kind} [get]
func (h *ConfigurationHandler) List(c *gin.Context) {
	kind, err := kindParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	includeInactive, err := queryBool(c, "includeInactive")
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.List(c.Request.Context(), kind, includeInactive != nil && *includeInactive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Create configuration item
// @Tags Configuration
// @Accept json
// @Produce json
// @Param kind path string true "topic, category, roadmap or course"
// @Param payload body dto.CreateConfigurationRequest true "Configuration payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /configuration/{kind} [post]
func (h *ConfigurationHandler) Create(c *gin.Context) {
	kind, err := kindParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid configuration payload"))
		return
	}
	item, err := h.service.Create(c.Request.Context(), principalFromContext(c), kind, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update configuration item
// @Tags Configuration
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body dto.UpdateConfigurationRequest true "Configuration payload"
// @Success 200 {object} response.Envelope
// @Router /configuration/items/{id} [put]
func (h *ConfigurationHandler) Update(c *gin.Context) {
	var req dto.UpdateConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid configuration payload"))
		return
	}
	item, err := h.service.Update(c.Request.Context(), principalFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Soft-delete configuration item
// @Tags Configuration
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body dto.ReasonRequest true "Deletion reason"
// @Success 200 {object} response.Envelope
// @Router /configuration/items/{id} [delete]
func (h *ConfigurationHandler) Delete(c *gin.Context) {
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

// SetRecoveryPin godoc
// @Summary Set the admin recovery PIN
// @Tags Configuration
// @Accept json
// @Param payload body dto.RecoveryPinRequest true "PIN payload"
// @Success 204
// @Router /configuration/recovery-pin [put]
func (h *ConfigurationHandler) SetRecoveryPin(c *gin.Context) {
	var req dto.RecoveryPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid PIN payload"))
		return
	}
	if err := h.service.SetRecoveryPin(c.Request.Context(), principalFromContext(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// VerifyRecoveryPin godoc
// @Summary Verify the admin recovery PIN
// @Tags Configuration
// @Accept json
// @Produce json
// @Param payload body dto.RecoveryPinRequest true "PIN payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /configuration/recovery-pin/verify [post]
func (h *ConfigurationHandler) VerifyRecoveryPin(c *gin.Context) {
	var req dto.RecoveryPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid PIN payload"))
		return
	}
	ok, err := h.service.VerifyRecoveryPin(c.Request.Context(), req.Pin)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidCredentials, "recovery PIN does not match"))
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"verified": true}, nil)
}

func kindParam(c *gin.Context) (models.ConfigurationKind, error) {
	kind := models.ConfigurationKind(strings.ToLower(c.Param("kind")))
	if !kind.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, "unknown configuration kind")
	}
	return kind, nil
}
