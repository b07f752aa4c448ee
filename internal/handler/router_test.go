package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-feedback-api/internal/models"
	"github.com/noah-isme/sma-feedback-api/internal/repository"
	"github.com/noah-isme/sma-feedback-api/internal/service"
)

type apiFixture struct {
	router *gin.Engine
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	store := repository.NewStore(repository.NewMemoryStore(), logger)

	accounts := service.NewAccountService(store, nil, logger)
	feedback := service.NewFeedbackService(store, nil, logger)
	recycle := service.NewRecycleBinService(store, logger)
	deletion := service.NewDeletionQueueService(store, logger)
	configuration := service.NewConfigurationService(store, nil, logger)
	audit := service.NewAuditService(store, logger)
	batch := service.NewBatchService(accounts, feedback, audit, nil, logger)
	sweeper := service.NewSweeper(deletion, recycle, logger, service.SweeperConfig{})
	auth := service.NewAuthService(store, nil, logger, service.AuthConfig{
		AccessTokenSecret: "router-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "sma-feedback-api",
	})

	created, err := accounts.BootstrapAdmin(context.Background(), "root", "rootpassword")
	require.NoError(t, err)
	require.True(t, created)

	r := gin.New()
	RegisterRoutes(r.Group("/api/v1"), Handlers{
		Auth:          NewAuthHandler(auth, accounts),
		Accounts:      NewAccountHandler(accounts),
		Feedback:      NewFeedbackHandler(feedback),
		RecycleBin:    NewRecycleBinHandler(recycle),
		DeletionQueue: NewDeletionQueueHandler(deletion, sweeper),
		Configuration: NewConfigurationHandler(configuration),
		Audit:         NewAuditHandler(audit),
		Batch:         NewBatchHandler(batch),
	}, auth)
	return &apiFixture{router: r}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (f *apiFixture) login(t *testing.T, accountType models.AccountType, id, password string) string {
	t.Helper()
	w, env := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"account_type": string(accountType),
		"identifier":   id,
		"password":     password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res models.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotEmpty(t, res.AccessToken)
	return res.AccessToken
}

func TestRouterFeedbackLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	w, _ := f.do(t, http.MethodPost, "/accounts/register", "", map[string]interface{}{
		"accountType": "student",
		"id":          "S1",
		"displayName": "Student One",
		"password":    "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"account_type": "student", "identifier": "S1", "password": "password123",
	})
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ACCOUNT_INACTIVE", env.Error.Code)

	admin := f.login(t, models.AccountTypeStaff, "root", "rootpassword")
	w, _ = f.do(t, http.MethodPost, "/accounts/student/S1/approve", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	student := f.login(t, models.AccountTypeStudent, "S1", "password123")
	w, env = f.do(t, http.MethodPost, "/feedback", student, map[string]interface{}{
		"topic": "General", "body": "More study rooms", "anonymous": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var submitted models.Feedback
	require.NoError(t, json.Unmarshal(env.Data, &submitted))

	w, env = f.do(t, http.MethodGet, "/feedback", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var public []models.Feedback
	require.NoError(t, json.Unmarshal(env.Data, &public))
	assert.Empty(t, public, "pending feedback is hidden from anonymous readers")

	w, _ = f.do(t, http.MethodPost, "/feedback/"+submitted.ID+"/approve", student, map[string]string{"category": "Resources", "roadmap": "Received"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = f.do(t, http.MethodPost, "/feedback/"+submitted.ID+"/approve", admin, map[string]string{"category": "Resources", "roadmap": "Received"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = f.do(t, http.MethodGet, "/feedback", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &public))
	require.Len(t, public, 1)
	assert.Empty(t, public[0].SubmitterID)
	assert.Equal(t, "Resources", public[0].Category)

	w, _ = f.do(t, http.MethodPost, "/feedback/"+submitted.ID+"/approve", admin, map[string]string{"category": "Resources", "roadmap": "Received"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRouterGuards(t *testing.T) {
	f := newAPIFixture(t)

	w, _ := f.do(t, http.MethodGet, "/audit-logs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	admin := f.login(t, models.AccountTypeStaff, "root", "rootpassword")
	w, env := f.do(t, http.MethodGet, "/audit-logs?action=LOGIN", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)

	w, _ = f.do(t, http.MethodPost, "/auth/logout", admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = f.do(t, http.MethodGet, "/audit-logs", admin, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "revoked sessions are rejected")
}

func TestRouterSelfDeletionCancelledByLogin(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.login(t, models.AccountTypeStaff, "root", "rootpassword")

	w, _ := f.do(t, http.MethodPost, "/staff", admin, map[string]string{
		"username": "helper", "displayName": "Helper", "role": "Moderator", "password": "helperpass1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	helper := f.login(t, models.AccountTypeStaff, "helper", "helperpass1")
	w, _ = f.do(t, http.MethodPost, "/accounts/staff/helper/deletion", helper, nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	w, env := f.do(t, http.MethodGet, "/deletion-queue", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var queue []models.DeletionQueueEntry
	require.NoError(t, json.Unmarshal(env.Data, &queue))
	require.Len(t, queue, 1)

	w, env = f.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"account_type": "staff", "identifier": "helper", "password": "helperpass1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending account deletion was cancelled", env.Meta["notice"])

	_, env = f.do(t, http.MethodGet, "/deletion-queue", admin, nil)
	require.NoError(t, json.Unmarshal(env.Data, &queue))
	assert.Empty(t, queue)
}
