package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-feedback-api/internal/middleware"
	"github.com/noah-isme/sma-feedback-api/internal/models"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
	"github.com/noah-isme/sma-feedback-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context, principal models.Principal, sessionID string) error
}

type accountReader interface {
	Get(ctx context.Context, principal models.Principal, accountType models.AccountType, id string) (*models.Account, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service  authService
	accounts accountReader
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, accounts accountReader) *AuthHandler {
	return &AuthHandler{service: svc, accounts: accounts}
}

// Login godoc
// @Summary Authenticate account
// @Description Authenticate a student, alumni or staff account. Signing in during the grace period cancels a pending deletion.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if res.DeletionCancelled {
		response.JSON(c, http.StatusOK, res, nil, map[string]interface{}{"notice": "pending account deletion was cancelled"})
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Logout godoc
// @Summary Logout current session
// @Description Revoke the session behind the presented token
// @Tags Authentication
// @Produce json
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Logout(c.Request.Context(), claims.Principal(), claims.SessionID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Me godoc
// @Summary Get current account
// @Description Returns the authenticated account
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	account, err := h.accounts.Get(c.Request.Context(), claims.Principal(), claims.AccountType, claims.AccountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, account, nil)
}
