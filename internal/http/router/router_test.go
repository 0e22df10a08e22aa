package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-marketplace/internal/config"
	"github.com/ignatzorin/freelance-marketplace/internal/http/middleware"
	"github.com/ignatzorin/freelance-marketplace/internal/service"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := middleware.NewRateLimitStore(nil)
	require.NoError(t, err)
	cfg := &config.Config{
		Env:               "test",
		AllowedOrigins:    []string{"http://localhost:3000"},
		RateLimitRequests: 10,
		RateLimitPeriod:   time.Minute,
		MetricsEnabled:    true,
	}
	tokens := service.NewTokenManager("access", "refresh", time.Minute, time.Hour)

	// Хэндлеры не вызываются: проверяем только регистрацию маршрутов.
	return SetupRouter(cfg, Handlers{}, tokens, store)
}

func TestSetupRouter_RegistersContractRoutes(t *testing.T) {
	r := newTestRouter(t)

	registered := make(map[string]bool)
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"POST /api/contracts/proposal/:proposalId",
		"POST /api/contracts/:id/fund",
		"POST /api/contracts/:id/activate",
		"POST /api/contracts/:id/milestones",
		"POST /api/contracts/:id/milestones/:mid/submit",
		"POST /api/contracts/:id/milestones/:mid/review",
		"POST /api/contracts/:id/milestones/:mid/release",
		"POST /api/contracts/:id/complete",
		"GET /api/contracts/:id/milestones/:mid/files/:fileId/download",
		"GET /api/contracts/:id",
		"GET /api/contracts/my",
		"GET /api/jobs",
		"POST /api/jobs/:id/proposals",
		"PATCH /api/proposals/:id/status",
		"GET /api/messages/with/:userId",
		"GET /api/users/me",
		"GET /api/users/:id",
		"GET /api/ws",
		"GET /metrics",
	} {
		assert.True(t, registered[want], "route %s is not registered", want)
	}
}

func TestSetupRouter_ProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/api/contracts/my", "/api/notifications", "/api/messages/conversations"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestSetupRouter_RejectsMalformedIDs(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
