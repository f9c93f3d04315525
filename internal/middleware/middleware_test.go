package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bharathmeg/InsightHub/internal/model"
	"github.com/bharathmeg/InsightHub/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ginTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), JWTAuth(testutil.JWTSecret))
	r.GET("/protected", func(c *gin.Context) {
		sess := GetSession(c)
		c.JSON(http.StatusOK, gin.H{"email": sess.Email, "role": sess.Role, "company": sess.Company})
	})
	r.GET("/admin", RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

// ── JWT ───────────────────────────────────────────────────────────────────────

func TestProtectedEndpoint_NoToken(t *testing.T) {
	w := get(ginTestRouter(), "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedEndpoint_ValidToken(t *testing.T) {
	tok := testutil.SignToken(t, "ana@acme.io", model.RoleViewer, "Acme", "access", time.Hour)
	w := get(ginTestRouter(), "/protected", tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"ana@acme.io","role":"Viewer","company":"Acme"}`, w.Body.String())
}

func TestProtectedEndpoint_ExpiredToken(t *testing.T) {
	tok := testutil.SignToken(t, "ana@acme.io", model.RoleViewer, "Acme", "access", -time.Second)
	w := get(ginTestRouter(), "/protected", tok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedEndpoint_RefreshTokenRejected(t *testing.T) {
	tok := testutil.SignToken(t, "ana@acme.io", model.RoleViewer, "Acme", "refresh", time.Hour)
	w := get(ginTestRouter(), "/protected", tok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedEndpoint_WrongSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuth("another-secret"))
	r.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })

	tok := testutil.SignToken(t, "ana@acme.io", model.RoleViewer, "Acme", "access", time.Hour)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/protected", tok).Code)
}

func TestRequireRole_WrongRole(t *testing.T) {
	tok := testutil.SignToken(t, "ana@acme.io", model.RoleViewer, "Acme", "access", time.Hour)
	w := get(ginTestRouter(), "/admin", tok)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRole_CorrectRole(t *testing.T) {
	tok := testutil.SignToken(t, "ana@acme.io", model.RoleAdmin, "Acme", "access", time.Hour)
	w := get(ginTestRouter(), "/admin", tok)
	assert.Equal(t, http.StatusOK, w.Code)
}

// ── Request id / errors ───────────────────────────────────────────────────────

func TestRequestID_GeneratedAndEchoed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := get(r, "/", "")
	id := w.Header().Get(RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Equal(t, id, w.Body.String())

	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestErrorHandler_HidesInternals(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), ErrorHandler())
	r.GET("/", func(c *gin.Context) { _ = c.Error(errors.New("pq: connection refused")) })

	w := get(r, "/", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"Internal server error"}`, w.Body.String())
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery())
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := get(r, "/", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestCORS_Preflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodOptions, "/", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

// ── Rate limiter ──────────────────────────────────────────────────────────────

func TestRateLimiter_BlocksPastLimitThenResets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter("test", 2, time.Minute, "slow down")
	l.now = func() time.Time { return clock }

	r := gin.New()
	r.Use(l.Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "/", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/", "").Code)
	w := get(r, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	clock = clock.Add(61 * time.Second)
	assert.Equal(t, http.StatusOK, get(r, "/", "").Code)
}

func TestRateLimiter_Purge(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter("test", 5, time.Minute, "slow down")
	l.now = func() time.Time { return clock }
	l.allow("10.0.0.1")
	l.allow("10.0.0.2")

	assert.Zero(t, l.purge())
	clock = clock.Add(2 * time.Minute)
	assert.Equal(t, 2, l.purge())
}
