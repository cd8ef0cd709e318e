package limiter

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestIPRateLimiter_BurstThenReject(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(0.001), 2)
	t.Cleanup(l.Stop)

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))

	assert.True(t, l.Allow("10.0.0.2"), "limits are per IP")
}

func TestIPRateLimiter_Sweep(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1)
	t.Cleanup(l.Stop)

	l.Allow("10.0.0.1")
	l.GetLimiter("10.0.0.2")

	removed, remaining := l.sweep(time.Now())
	assert.Equal(t, 1, removed, "only the untouched limiter is full")
	assert.Equal(t, 1, remaining)

	removed, remaining = l.sweep(time.Now().Add(time.Minute))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, remaining)
}

func TestMiddleware(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(0.001), 1)
	t.Cleanup(l.Stop)

	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "192.0.2.10:4444"

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, req)
	assert.Equal(t, http.StatusNoContent, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	r.RemoteAddr = "192.0.2.10:4444"
	assert.Equal(t, "192.0.2.10", ClientIP(r))

	r.RemoteAddr = "192.0.2.11"
	assert.Equal(t, "192.0.2.11", ClientIP(r))

	r.RemoteAddr = ""
	assert.Equal(t, "unknown_ip", ClientIP(r))
}
