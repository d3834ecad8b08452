package httpx

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/salonqueue/libs/apperr"
	"github.com/md-rashed-zaman/salonqueue/libs/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	allowed := func(key string) bool {
		ok, _ := rl.allow(key)
		return ok
	}
	assert.True(t, allowed("1.2.3.4"))
	assert.True(t, allowed("1.2.3.4"))
	now = now.Add(20 * time.Second)
	ok, retry := rl.allow("1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, 40*time.Second, retry)
	assert.True(t, allowed("5.6.7.8"))

	now = now.Add(41 * time.Second)
	assert.True(t, allowed("1.2.3.4"))
}

func TestRateLimiterMiddlewareSetsRetryAfter(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots", nil)
	req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusNoContent, rw.Code)

	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusTooManyRequests, rw.Code)
	assert.Equal(t, "60", rw.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rw.Body.String())
}

func TestCORS(t *testing.T) {
	h := WithCORS(CORSPolicy{
		AllowedOrigins: []string{"https://book.shearjoy.com", "https://*.salonqueue.app"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type", "Idempotency-Key"},
		MaxAge:         10 * time.Minute,
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/public/appointments", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "POST")
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		return rw
	}

	rw := preflight("https://shear-joy.salonqueue.app")
	assert.Equal(t, http.StatusNoContent, rw.Code)
	assert.Equal(t, "https://shear-joy.salonqueue.app", rw.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST", rw.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "600", rw.Header().Get("Access-Control-Max-Age"))

	rw = preflight("https://evil-salonqueue.app")
	assert.Equal(t, http.StatusOK, rw.Code)
	assert.Empty(t, rw.Header().Get("Access-Control-Allow-Origin"))

	rw = preflight("http://shear-joy.salonqueue.app")
	assert.Empty(t, rw.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/queue/board", nil)
	req.Header.Set("Origin", "https://book.shearjoy.com")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, "https://book.shearjoy.com", rw.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, RequestIDHeader, rw.Header().Get("Access-Control-Expose-Headers"))
}

func TestRequestIDIsGeneratedAndEchoed(t *testing.T) {
	var seen string
	h := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rw.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	assert.Equal(t, "abc", seen)
}

func TestWriteNotFoundCarriesRedirect(t *testing.T) {
	rw := httptest.NewRecorder()
	WriteNotFound(rw, "business not found")
	assert.Equal(t, http.StatusNotFound, rw.Code)
	assert.JSONEq(t, `{"error":"business not found","redirect":"/"}`, rw.Body.String())
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	assert.Error(t, DecodeJSON(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	assert.Equal(t, "a", dst.Name)
}

func TestWithRecover(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := WithRecover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rw.Code)
}

func TestBusinessIDPrefersHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?business_id=query", nil)
	assert.Equal(t, "query", BusinessID(req))
	req.Header.Set(BusinessIDHeader, "header")
	assert.Equal(t, "header", BusinessID(req))
}

func TestWriteDomainError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	req := httptest.NewRequest(http.MethodPost, "/appointments", nil)

	cases := []struct {
		err  error
		code int
		body string
	}{
		{validate.Fail("date", "date is required"), http.StatusBadRequest, `{"error":"date is required"}`},
		{apperr.NotFound("business not found"), http.StatusNotFound, `{"error":"business not found","redirect":"/"}`},
		{apperr.Conflict("slot no longer available"), http.StatusConflict, `{"error":"slot no longer available"}`},
		{errors.New("connection refused"), http.StatusInternalServerError, `{"error":"internal error"}`},
	}
	for _, tc := range cases {
		rw := httptest.NewRecorder()
		WriteDomainError(rw, req, logger, tc.err)
		assert.Equal(t, tc.code, rw.Code)
		assert.JSONEq(t, tc.body, rw.Body.String())
	}
}
