package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/voicedesk/internal/api/handlers"
	"github.com/yoockh/voicedesk/internal/api/middleware"
	"github.com/yoockh/voicedesk/internal/models"
	"github.com/yoockh/voicedesk/internal/repositories"
	"github.com/yoockh/voicedesk/internal/services"
)

type emptyArchive struct{}

func (emptyArchive) List(ctx context.Context, f repositories.AnalysisFilter) ([]models.AnalysisRecord, error) {
	return []models.AnalysisRecord{}, nil
}

func (emptyArchive) Export(ctx context.Context, id string) (*services.ExportResult, error) {
	return &services.ExportResult{Object: "o", URL: "u"}, nil
}

func newRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, Deps{
		Health:   handlers.NewHealthHandler(nil),
		Analysis: handlers.NewAnalysisHandler(services.NewAnalysisService(services.AnalysisConfig{}), services.NewTranscriptService(nil, nil), emptyArchive{}, nil),
		Proxy:    handlers.NewProxyHandler(nil, nil),
		History:  handlers.NewHistoryHandler(services.NewHistoryService(nil, nil, nil), "demo-user"),
		WS:       handlers.NewWSHandler(nil, nil),
		Auth:     middleware.JWTConfig{Secret: secret},
	})
	return r
}

func token(t *testing.T, secret, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1", "role": role, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func call(r http.Handler, method, path, bearer string) int {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestOpenRoutesWithoutSecret(t *testing.T) {
	r := newRouter("")

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/ping", ""))
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/healthz", ""))
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/analysis", ""))
	assert.Equal(t, http.StatusServiceUnavailable, call(r, http.MethodGet, "/api/chatkit/threads", ""))
	assert.Equal(t, http.StatusServiceUnavailable, call(r, http.MethodGet, "/api/history", ""))
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodGet, "/metrics", ""))
}

func TestAuthAndAdminRoutes(t *testing.T) {
	const secret = "s3cret"
	r := newRouter(secret)

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/ping", ""))
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/analysis", ""))
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/ws/analysis/a1", ""))

	user := token(t, secret, "user")
	admin := token(t, secret, "admin")

	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/api/analysis", user))
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPost, "/api/analysis/a1/export", user))
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/analysis", admin))
	assert.Equal(t, http.StatusOK, call(r, http.MethodPost, "/api/analysis/a1/export", admin))

	// Non-admin routes only need a valid token.
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodGet, "/api/analysis/a1?type=chat", user))
}
