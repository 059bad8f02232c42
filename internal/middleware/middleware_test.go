package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"weconnect-crm/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_jwt_secret_32_chars_minimum!"

func init() { gin.SetMode(gin.TestMode) }

func signToken(t *testing.T, typ, role string, dur time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": uuid.NewString(), "email": "sales@weconnect.test", "role": role, "typ": typ,
		"exp": time.Now().Add(dur).Unix(), "iat": time.Now().Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func protected() *gin.Engine {
	r := gin.New()
	r.GET("/me", JWTAuth(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"role": GetClaims(c).Role})
	})
	r.DELETE("/admin", JWTAuth(testSecret), RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func call(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := protected()

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"access token", signToken(t, "access", "sales", time.Hour), http.StatusOK},
		{"refresh token is not an access token", signToken(t, "refresh", "sales", time.Hour), http.StatusUnauthorized},
		{"expired", signToken(t, "access", "sales", -time.Minute), http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, call(r, http.MethodGet, "/me", tc.token).Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	r := protected()
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodDelete, "/admin", signToken(t, "access", "sales", time.Hour)).Code)
	assert.Equal(t, http.StatusNoContent, call(r, http.MethodDelete, "/admin", signToken(t, "access", "admin", time.Hour)).Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := call(r, http.MethodGet, "/", "")
	generated := w.Header().Get("X-Request-ID")
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestRecoveryHidesPanic(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/boom", func(*gin.Context) { panic("db password leaked") })

	w := call(r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	m := metrics.New()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/v1/quotations/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	call(r, http.MethodGet, "/v1/quotations/"+uuid.NewString(), "")
	call(r, http.MethodGet, "/v1/quotations/"+uuid.NewString(), "")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/v1/quotations/:id", "200")))
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(2, time.Minute))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/", "").Code)
	w := call(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"), "one token every 30s")
	assert.True(t, strings.Contains(w.Body.String(), "too many requests"))
}

func TestIPLimiterRefillsAndPurges(t *testing.T) {
	l := newIPLimiter("test", 2, time.Minute, "slow down")
	now := time.Now()

	ok, _ := l.allow("10.0.0.1", now)
	assert.True(t, ok)
	ok, _ = l.allow("10.0.0.1", now)
	assert.True(t, ok)
	ok, wait := l.allow("10.0.0.1", now)
	assert.False(t, ok)
	assert.InDelta(t, float64(30*time.Second), float64(wait), float64(time.Millisecond))
	assert.Equal(t, 30, retryAfterSeconds(wait))
	assert.Equal(t, 1, retryAfterSeconds(10*time.Millisecond))

	ok, _ = l.allow("10.0.0.2", now)
	assert.True(t, ok, "buckets are per IP")

	ok, _ = l.allow("10.0.0.1", now.Add(31*time.Second))
	assert.True(t, ok, "a token is back after window/limit")

	purged, left := l.purge(now.Add(2 * time.Minute))
	assert.Equal(t, 2, purged)
	assert.Zero(t, left)
}

func TestCORSPreflightAllowsPatch(t *testing.T) {
	r := gin.New()
	r.Use(CORS(nil))
	w := call(r, http.MethodOptions, "/v1/invoices/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Retry-After")
}

func TestCORSAllowList(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://app.weconnect.test/"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(method, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/x", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send(http.MethodOptions, "https://app.weconnect.test")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.weconnect.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))

	w = send(http.MethodOptions, "https://evil.test")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = send(http.MethodGet, "https://evil.test")
	assert.Equal(t, http.StatusOK, w.Code, "same-origin style requests still pass; the browser enforces CORS")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
