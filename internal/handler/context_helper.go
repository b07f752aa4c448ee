package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-feedback-api/internal/dto"
	"github.com/noah-isme/sma-feedback-api/internal/middleware"
	"github.com/noah-isme/sma-feedback-api/internal/models"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

// principalFromContext returns the acting principal. Anonymous callers get the zero principal.
func principalFromContext(c *gin.Context) models.Principal {
	claims, ok := middleware.Claims(c)
	if !ok {
		return models.Principal{}
	}
	return claims.Principal()
}

func accountTypeParam(c *gin.Context) (models.AccountType, error) {
	accountType := models.AccountType(strings.ToLower(c.Param("type")))
	if !accountType.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, "unknown account type")
	}
	return accountType, nil
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}

// reasonFromRequest reads the reason from a JSON body, falling back to the query string.
func reasonFromRequest(c *gin.Context) (string, error) {
	if c.Request.ContentLength > 0 {
		var req dto.ReasonRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return "", bindError(err, "invalid reason payload")
		}
		if strings.TrimSpace(req.Reason) != "" {
			return req.Reason, nil
		}
	}
	return c.Query("reason"), nil
}

func queryBool(c *gin.Context, key string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be a boolean")
	}
	return &value, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, key+" must be a non-negative integer")
	}
	return value, nil
}
