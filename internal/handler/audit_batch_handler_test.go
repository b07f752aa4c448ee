package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-feedback-api/internal/models"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

type auditServiceMock struct {
	lastFilter models.AuditFilter
	err        error
}

func (m *auditServiceMock) List(ctx context.Context, principal models.Principal, filter models.AuditFilter) ([]models.AuditLog, *models.Pagination, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, nil, m.err
	}
	return []models.AuditLog{{ID: "log-1"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

type batchServiceMock struct {
	lastReq models.BatchRequest
	result  *models.BatchResult
	err     error
}

func (m *batchServiceMock) Execute(ctx context.Context, principal models.Principal, req models.BatchRequest) (*models.BatchResult, error) {
	m.lastReq = req
	return m.result, m.err
}

func TestAuditHandlerList(t *testing.T) {
	svc := &auditServiceMock{}
	handler := NewAuditHandler(svc)

	c, w := newTestContext(http.MethodGet, "/audit-logs?action=LOGIN&page=2&pageSize=10", "", adminClaims)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "LOGIN", svc.lastFilter.Action)
	assert.Equal(t, 2, svc.lastFilter.Page)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)

	c, w = newTestContext(http.MethodGet, "/audit-logs?page=-1", "", adminClaims)
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuditHandlerListForbidden(t *testing.T) {
	handler := NewAuditHandler(&auditServiceMock{err: appErrors.ErrPermissionDenied})
	c, w := newTestContext(http.MethodGet, "/audit-logs", "", moderatorClaims)
	handler.List(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBatchHandlerExecute(t *testing.T) {
	svc := &batchServiceMock{result: &models.BatchResult{
		Succeeded:        []string{"F1"},
		AlreadyProcessed: []string{"F2"},
		NotFound:         []string{"F3"},
	}}
	handler := NewBatchHandler(svc)

	c, w := newTestContext(http.MethodPost, "/batch", `{"target":"feedback","operation":"approve","ids":["F1","F2","F3"],"category":"Resources","roadmap":"Received"}`, moderatorClaims)
	handler.Execute(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.BatchOperationApprove, svc.lastReq.Operation)
	assert.Equal(t, []string{"F1", "F2", "F3"}, svc.lastReq.IDs)

	env := decodeEnvelope(t, w)
	assert.Equal(t, float64(3), env.Meta["total"])
	var result models.BatchResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, []string{"F3"}, result.NotFound)
}

func TestBatchHandlerInvalidBody(t *testing.T) {
	handler := NewBatchHandler(&batchServiceMock{})
	c, w := newTestContext(http.MethodPost, "/batch", `{"ids":`, moderatorClaims)
	handler.Execute(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
