package logx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "ipv4 with port", in: "203.0.113.77:5123", want: "203.0.113.0"},
		{name: "bare ipv4", in: "198.51.100.9", want: "198.51.100.0"},
		{name: "loopback", in: "127.0.0.1:80", want: "127.0.0.1"},
		{name: "ipv6", in: "[2001:db8:1:2:3:4:5:6]:443", want: "2001:db8:1:2::"},
		{name: "garbage", in: "not-an-ip", want: "unknown_ip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, anonymizeIP(tt.in))
		})
	}
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	handler := RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRequestLogger_WebSocketUpgrade(t *testing.T) {
	called := false
	handler := RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Upgrade", "WebSocket")
	assert.True(t, isWebSocketUpgrade(r))

	handler.ServeHTTP(httptest.NewRecorder(), r)
	assert.True(t, called)
}

func TestRequestLogger_StoresContextLogger(t *testing.T) {
	var found bool
	handler := RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		found = zerolog.Ctx(r.Context()).GetLevel() != zerolog.Disabled
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/chats/all-rooms", nil))
	assert.True(t, found)
}
