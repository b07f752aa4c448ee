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

type accountService interface {
	Register(ctx context.Context, req dto.RegisterAccountRequest) (*models.Account, error)
	CreateStaff(ctx context.Context, principal models.Principal, req dto.CreateStaffRequest) (*models.Account, error)
	Approve(ctx context.Context, principal models.Principal, accountType models.AccountType, id string) (*models.Account, error)
	Reject(ctx context.Context, principal models.Principal, accountType models.AccountType, id, reason string) (*models.RecycleBinEntry, error)
	Delete(ctx context.Context, principal models.Principal, accountType models.AccountType, id, reason string) (*models.RecycleBinEntry, error)
	SubmitInfoChange(ctx context.Context, principal models.Principal, studentID string, req dto.InfoChangeRequest) (*models.Account, error)
	ApproveInfoChange(ctx context.Context, principal models.Principal, studentID string) (*models.Account, error)
	RejectInfoChange(ctx context.Context, principal models.Principal, studentID, reason string) (*models.Account, error)
	Get(ctx context.Context, principal models.Principal, accountType models.AccountType, id string) (*models.Account, error)
	List(ctx context.Context, principal models.Principal, accountType models.AccountType, status models.AccountStatus) ([]models.Account, error)
}

// AccountHandler manages registration, approval and profile changes.
type AccountHandler struct {
	service accountService
}

// NewAccountHandler constructs the handler.
func NewAccountHandler(service accountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// Register godoc
// @Summary Register a student or alumni account
// @Description New accounts start pending and cannot sign in until approved
// @Tags Accounts
// @Accept json
// @Produce json
// @Param payload body dto.RegisterAccountRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /accounts/register [post]
func (h *AccountHandler) Register(c *gin.Context) {
	var req dto.RegisterAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid registration payload"))
		return
	}
	account, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, account)
}

// CreateStaff godoc
// @Summary Create staff account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param payload body dto.CreateStaffRequest true "Staff payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /staff [post]
func (h *AccountHandler) CreateStaff(c *gin.Context) {
	var req dto.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid staff payload"))
		return
	}
	account, err := h.service.CreateStaff(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, account)
}

// List godoc
// @Summary List accounts of one class
// @Tags Accounts
// @Produce json
// @Param type path string true "student, alumni or staff"
// @Param status query string false "pending, approved or pending_deletion"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /accounts/{type} [get]
func (h *AccountHandler) List(c *gin.Context) {
	accountType, err := accountTypeParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := models.AccountStatus(strings.ToLower(strings.TrimSpace(c.Query("status"))))
	switch status {
	case "", models.AccountStatusPending, models.AccountStatusApproved, models.AccountStatusPendingDeletion:
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown account status"))
		return
	}
	accounts, err := h.service.List(c.Request.Context(), principalFromContext(c), accountType, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, accounts, nil)
}

// Get godoc
// @Summary Get account
// @Tags Accounts
// @Produce json
// @Param type path string true "student, alumni or staff"
// @Param id path string true "Account identifier"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /accounts/{type}/{id} [get]
func (h *AccountHandler) Get(c *gin.Context) {
	accountType, err := accountTypeParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	account, err := h.service.Get(c.Request.Context(), principalFromContext(c), accountType, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, account, nil)
}

// Approve godoc
// @Summary Approve pending account
// @Tags Accounts
// @Produce json
// @Param type path string true "student, alumni or staff"
// @Param id path string true "Account identifier"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /accounts/{type}/{id}/approve [post]
func (h *AccountHandler) Approve(c *gin.Context) {
	accountType, err := accountTypeParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	account, err := h.service.Approve(c.Request.Context(), principalFromContext(c), accountType, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, account, nil)
}

// Reject godoc
// @Summary Reject pending account
// @Description Moves the registration into the recycle bin
// @Tags Accounts
// @Accept json
// @Produce json
// @Param type path string true "student, alumni or staff"
// @Param id path string true "Account identifier"
// @Param payload body dto.ReasonRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /accounts/{type}/{id}/reject [post]
func (h *AccountHandler) Reject(c *gin.Context) {
	accountType, err := accountTypeParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	reason, err := reasonFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entry, err := h.service.Reject(c.Request.Context(), principalFromContext(c), accountType, c.Param("id"), reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Delete godoc
// @Summary Soft-delete account
// @Description Moves the account to the recycle bin and purges its feedback
// @Tags Accounts
// @Accept json
// @Produce json
// @Param type path string true "student, alumni or staff"
// @Param id path string true "Account identifier"
// @Param payload body dto.ReasonRequest true "Deletion reason"
// @Success 200 {object} response.Envelope
// @Router /accounts/{type}/{id} [delete]
func (h *AccountHandler) Delete(c *gin.Context) {
	accountType, err := accountTypeParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	reason, err := reasonFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entry, err := h.service.Delete(c.Request.Context(), principalFromContext(c), accountType, c.Param("id"), reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// SubmitInfoChange godoc
// @Summary Stage a profile change
// @Description Students stage edits that take effect once staff approve them
// @Tags Accounts
// @Accept json
// @Produce json
// @Param id path string true "Student identifier"
// @Param payload body dto.InfoChangeRequest true "Changed fields"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/info-change [put]
func (h *AccountHandler) SubmitInfoChange(c *gin.Context) {
	var req dto.InfoChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid info change payload"))
		return
	}
	account, err := h.service.SubmitInfoChange(c.Request.Context(), principalFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, account, nil)
}

// ApproveInfoChange godoc
// @Summary Apply a staged profile change
// @Tags Accounts
// @Produce json
// @Param id path string true "Student identifier"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/info-change/approve [post]
func (h *AccountHandler) ApproveInfoChange(c *gin.Context) {
	account, err := h.service.ApproveInfoChange(c.Request.Context(), principalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, account, nil)
}

// RejectInfoChange godoc
// @Summary Discard a staged profile change
// @Tags Accounts
// @Accept json
// @Produce json
// @Param id path string true "Student identifier"
// @Param payload body dto.ReasonRequest false "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/info-change/reject [post]
func (h *AccountHandler) RejectInfoChange(c *gin.Context) {
	reason, err := reasonFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	account, err := h.service.RejectInfoChange(c.Request.Context(), principalFromContext(c), c.Param("id"), reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, account, nil)
}
