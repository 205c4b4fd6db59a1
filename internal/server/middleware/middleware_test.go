package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fantasybet/internal/auth"
)

type stubVerifier struct{}

func (stubVerifier) Verify(token string) (auth.Claims, error) {
	switch token {
	case "user":
		return auth.Claims{UserID: 7, Username: "ann"}, nil
	case "admin":
		return auth.Claims{UserID: 1, Username: "root", IsAdmin: true}, nil
	}
	return auth.Claims{}, errors.New("bad token")
}

func ok() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func serve(h http.Handler, token string) int {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireUser(t *testing.T) {
	h := Authenticate(stubVerifier{})(RequireUser(ok()))
	assert.Equal(t, http.StatusUnauthorized, serve(h, ""))
	assert.Equal(t, http.StatusUnauthorized, serve(h, "forged"))
	assert.Equal(t, http.StatusOK, serve(h, "user"))
}

func TestRequireAdmin(t *testing.T) {
	h := Authenticate(stubVerifier{})(RequireAdmin(ok()))
	assert.Equal(t, http.StatusUnauthorized, serve(h, ""))
	assert.Equal(t, http.StatusForbidden, serve(h, "user"))
	assert.Equal(t, http.StatusOK, serve(h, "admin"))
}

func TestAuthenticateAttachesClaims(t *testing.T) {
	var got auth.Claims
	h := Authenticate(stubVerifier{})(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = auth.FromContext(r.Context())
	}))
	serve(h, "user")
	assert.Equal(t, int64(7), got.UserID)
}

func TestOriginAllowed(t *testing.T) {
	assert.True(t, OriginAllowed(nil, "https://x.example"))
	assert.True(t, OriginAllowed([]string{"*"}, "https://x.example"))
	assert.True(t, OriginAllowed([]string{"https://X.example"}, "https://x.example"))
	assert.False(t, OriginAllowed([]string{"https://a.example"}, "https://x.example"))
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"https://a.example"})(ok())
	req := httptest.NewRequest(http.MethodOptions, "/api/bets", nil)
	req.Header.Set("Origin", "https://a.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://a.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggingSetsRequestID(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var seen string
	h := Logging(logger)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
}

type countingLimiter struct {
	n   int
	err error
	key string
}

func (l *countingLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	l.key = key
	if l.err != nil {
		return false, l.err
	}
	l.n++
	return l.n <= limit, nil
}

func TestRateLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lim := &countingLimiter{}
	h := RateLimit(lim, 1, time.Minute, logger)(ok())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "api:10.0.0.1", lim.key)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	lim.err = errors.New("redis down")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
