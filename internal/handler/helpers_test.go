package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-feedback-api/internal/middleware"
	"github.com/noah-isme/sma-feedback-api/internal/models"
)

var (
	adminClaims     = &models.JWTClaims{SessionID: "sess-admin", AccountID: "root", AccountType: models.AccountTypeStaff, Role: models.RoleAdmin}
	moderatorClaims = &models.JWTClaims{SessionID: "sess-mod", AccountID: "mod", AccountType: models.AccountTypeStaff, Role: models.RoleModerator}
	studentClaims   = &models.JWTClaims{SessionID: "sess-s1", AccountID: "S1", AccountType: models.AccountTypeStudent}
)

func newTestContext(method, target, body string, claims *models.JWTClaims, params ...gin.Param) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	c.Params = params
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}
