package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestTokenLimiterRefills(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	limiter := newTokenLimiter(60, 2)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.allow("a"))
	assert.True(t, limiter.allow("a"))
	assert.False(t, limiter.allow("a"))
	assert.True(t, limiter.allow("b"))

	now = now.Add(time.Second)
	assert.True(t, limiter.allow("a"))
	assert.False(t, limiter.allow("a"))
}

func TestRateLimiterPerSession(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{IPPerMinute: 600, IPBurst: 100, EmployeePerMinute: 1, EmployeeBurst: 1})
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/shifts/my-shifts", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp.Code
	}

	assert.Equal(t, http.StatusOK, send("one"))
	assert.Equal(t, http.StatusTooManyRequests, send("one"))
	assert.Equal(t, http.StatusOK, send("two"))
}

func TestLoggingMiddlewareRecordsEmployee(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := LoggingMiddleware(zap.New(core), AuthMiddleware(fakeStore{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	before := requestsErrors.Value()
	req := httptest.NewRequest(http.MethodGet, "/api/shifts/my-shifts", nil)
	req.Header.Set("Authorization", "Bearer "+staffToken)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusTeapot, resp.Code)
	assert.NotEmpty(t, resp.Header().Get("X-Request-ID"))
	assert.Equal(t, before+1, requestsErrors.Value())

	entries := logs.FilterMessage("request").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "staff-1", fields["employee"])
		assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":                "",
		"Bearer abc":      "abc",
		"bearer abc":      "abc",
		"Basic abc":       "",
		"Bearer a b":      "",
		"Bearer   spaced": "spaced",
	}
	for header, want := range cases {
		if got := bearerToken(header); got != want {
			t.Fatalf("bearerToken(%q)=%q, want %q", header, got, want)
		}
	}
}
