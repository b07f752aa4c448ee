package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-feedback-api/internal/models"
	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

type validatorStub struct {
	claims map[string]*models.JWTClaims
}

func (v *validatorStub) ValidateToken(ctx context.Context, token string) (*models.JWTClaims, error) {
	if claims, ok := v.claims[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session has been revoked")
}

func newRouter(validator TokenValidator, guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{JWT(validator)}, guards...)
	handlers = append(handlers, func(c *gin.Context) {
		claims, _ := Claims(c)
		c.String(http.StatusOK, claims.AccountID)
	})
	r.GET("/protected", handlers...)
	return r
}

func TestJWTMiddleware(t *testing.T) {
	validator := &validatorStub{claims: map[string]*models.JWTClaims{
		"student-token": {AccountID: "S1", AccountType: models.AccountTypeStudent},
	}}
	r := newRouter(validator)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"revoked session", "Bearer stale", http.StatusUnauthorized},
		{"valid token", "Bearer student-token", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRequireRoles(t *testing.T) {
	validator := &validatorStub{claims: map[string]*models.JWTClaims{
		"student":   {AccountID: "S1", AccountType: models.AccountTypeStudent},
		"moderator": {AccountID: "mod", AccountType: models.AccountTypeStaff, Role: models.RoleModerator},
		"admin":     {AccountID: "root", AccountType: models.AccountTypeStaff, Role: models.RoleAdmin},
	}}
	staff := newRouter(validator, RequireStaff())
	admin := newRouter(validator, RequireAdmin())

	do := func(r *gin.Engine, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusForbidden, do(staff, "student").Code)
	rec := do(staff, "moderator")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mod", rec.Body.String())
	assert.Equal(t, http.StatusForbidden, do(admin, "moderator").Code)
	assert.Equal(t, http.StatusOK, do(admin, "admin").Code)
}

type observation struct {
	method string
	route  string
	status int
}

type observerStub struct {
	seen []observation
}

func (o *observerStub) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	o.seen = append(o.seen, observation{method: method, route: route, status: status})
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &observerStub{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/feedback/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/feedback/F1", "/feedback/F2", "/missing"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Len(t, observer.seen, 3)
	assert.Equal(t, observation{http.MethodGet, "/feedback/:id", http.StatusNoContent}, observer.seen[0])
	assert.Equal(t, "/feedback/:id", observer.seen[1].route)
	assert.Equal(t, observation{http.MethodGet, unmatchedRoute, http.StatusNotFound}, observer.seen[2])
}
