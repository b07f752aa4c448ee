package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-feedback-api/internal/dto"
	"github.com/noah-isme/sma-feedback-api/internal/models"
)

type configurationServiceMock struct {
	lastKind        models.ConfigurationKind
	includeInactive bool
	lastCreate      dto.CreateConfigurationRequest
	lastID          string
	pinMatches      bool
	err             error
}

func (m *configurationServiceMock) List(ctx context.Context, kind models.ConfigurationKind, includeInactive bool) ([]models.ConfigurationItem, error) {
	m.lastKind, m.includeInactive = kind, includeInactive
	return []models.ConfigurationItem{}, m.err
}

func (m *configurationServiceMock) Create(ctx context.Context, principal models.Principal, kind models.ConfigurationKind, req dto.CreateConfigurationRequest) (*models.ConfigurationItem, error) {
	m.lastKind, m.lastCreate = kind, req
	return &models.ConfigurationItem{ID: "topic-x", Kind: kind, Name: req.Name}, m.err
}

func (m *configurationServiceMock) Update(ctx context.Context, principal models.Principal, id string, req dto.UpdateConfigurationRequest) (*models.ConfigurationItem, error) {
	m.lastID = id
	return &models.ConfigurationItem{ID: id}, m.err
}

func (m *configurationServiceMock) Delete(ctx context.Context, principal models.Principal, id, reason string) (*models.RecycleBinEntry, error) {
	m.lastID = id
	return &models.RecycleBinEntry{ID: "entry-1"}, m.err
}

func (m *configurationServiceMock) SetRecoveryPin(ctx context.Context, principal models.Principal, req dto.RecoveryPinRequest) error {
	return m.err
}

func (m *configurationServiceMock) VerifyRecoveryPin(ctx context.Context, pin string) (bool, error) {
	return m.pinMatches, m.err
}

func TestConfigurationHandlerList(t *testing.T) {
	svc := &configurationServiceMock{}
	handler := NewConfigurationHandler(svc)

	c, w := newTestContext(http.MethodGet, "/configuration/roadmap?includeInactive=true", "", nil, gin.Param{Key: "kind", Value: "roadmap"})
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ConfigurationKindRoadmap, svc.lastKind)
	assert.True(t, svc.includeInactive)

	c, w = newTestContext(http.MethodGet, "/configuration/colour", "", nil, gin.Param{Key: "kind", Value: "colour"})
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfigurationHandlerCreateInvalidBody(t *testing.T) {
	handler := NewConfigurationHandler(&configurationServiceMock{})
	c, w := newTestContext(http.MethodPost, "/configuration/topic", `invalid`, adminClaims, gin.Param{Key: "kind", Value: "topic"})
	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfigurationHandlerCreate(t *testing.T) {
	svc := &configurationServiceMock{}
	handler := NewConfigurationHandler(svc)
	c, w := newTestContext(http.MethodPost, "/configuration/topic", `{"name":"Sports"}`, adminClaims, gin.Param{Key: "kind", Value: "topic"})
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Sports", svc.lastCreate.Name)
}

func TestConfigurationHandlerVerifyRecoveryPin(t *testing.T) {
	svc := &configurationServiceMock{}
	handler := NewConfigurationHandler(svc)

	c, w := newTestContext(http.MethodPost, "/configuration/recovery-pin/verify", `{"pin":"1234"}`, nil)
	handler.VerifyRecoveryPin(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	svc.pinMatches = true
	c, w = newTestContext(http.MethodPost, "/configuration/recovery-pin/verify", `{"pin":"1234"}`, nil)
	handler.VerifyRecoveryPin(c)
	assert.Equal(t, http.StatusOK, w.Code)
}
