package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusCreated)
})

func TestAllowWindow(t *testing.T) {
	rl := NewRateLimiter()
	defer rl.Stop()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	cfg := RateLimitConfig{MaxRequests: 2, Window: time.Minute}

	allowed, remaining, _ := rl.Allow("k", cfg)
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)
	allowed, remaining, _ = rl.Allow("k", cfg)
	assert.True(t, allowed)
	assert.Equal(t, 0, remaining)
	allowed, _, reset := rl.Allow("k", cfg)
	assert.False(t, allowed)
	assert.Equal(t, now.Add(time.Minute), reset)

	allowed, _, _ = rl.Allow("other", cfg)
	assert.True(t, allowed)

	now = now.Add(time.Minute + time.Second)
	allowed, _, _ = rl.Allow("k", cfg)
	assert.True(t, allowed)

	rl.cleanupExpired()
	assert.Len(t, rl.requests, 1, "expired window for other is dropped")
}

func TestWriteRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter()
	defer rl.Stop()
	h := rl.WriteRateLimitMiddleware(RateLimitConfig{MaxRequests: 1, Window: time.Minute})(ok)

	do := func(method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/matches", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := do(http.MethodPost)
	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := do(http.MethodPost)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Contains(t, second.Body.String(), "Rate limit exceeded")

	reads := do(http.MethodGet)
	assert.Equal(t, http.StatusCreated, reads.Code)
	assert.Empty(t, reads.Header().Get("X-RateLimit-Limit"))
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.2:1", "203.0.113.5"},
		{"forwarded with port", map[string]string{"X-Forwarded-For": "203.0.113.5:443"}, "10.0.0.2:1", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.2:1", "198.51.100.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientIP(req))
		})
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := RequestLogger(zap.New(core))(ok)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/users", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/api/users", fields["path"])
	assert.Equal(t, "POST", fields["method"])
	assert.EqualValues(t, http.StatusCreated, fields["status"])
}

func TestRecoverer(t *testing.T) {
	h := Recoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, apiCSP, rec.Header().Get("Content-Security-Policy"))
}
