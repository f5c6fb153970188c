package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func limitedHandler(l *RateLimiter, hits *int) http.HandlerFunc {
	return l.Wrap(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		w.WriteHeader(http.StatusOK)
	})
}

func hit(handler http.HandlerFunc, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/users/export", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestNewRateLimiter_DisabledWhenRateNonPositive(t *testing.T) {
	assert.Nil(t, NewRateLimiter(0, 5, time.Minute, zap.NewNop()))
	assert.Nil(t, NewRateLimiter(-1, 5, time.Minute, zap.NewNop()))
}

func TestRateLimiter_NilPassesThrough(t *testing.T) {
	var l *RateLimiter
	hits := 0
	handler := limitedHandler(l, &hits)

	for i := 0; i < 50; i++ {
		rec := hit(handler, "10.0.0.1:1234")
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 50, hits)
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	l := NewRateLimiter(1, 2, time.Minute, zap.NewNop())
	hits := 0
	handler := limitedHandler(l, &hits)

	require.Equal(t, http.StatusOK, hit(handler, "10.0.0.1:1234").Code)
	require.Equal(t, http.StatusOK, hit(handler, "10.0.0.1:1234").Code)

	rec := hit(handler, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, 2, hits)
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	l := NewRateLimiter(1, 1, time.Minute, zap.NewNop())
	hits := 0
	handler := limitedHandler(l, &hits)

	require.Equal(t, http.StatusOK, hit(handler, "10.0.0.1:1234").Code)
	require.Equal(t, http.StatusTooManyRequests, hit(handler, "10.0.0.1:5678").Code,
		"same host, different port shares one budget")
	require.Equal(t, http.StatusOK, hit(handler, "10.0.0.2:1234").Code)
	assert.Equal(t, 2, hits)
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	l := NewRateLimiter(1, 1, time.Minute, zap.NewNop())
	handler := limitedHandler(l, new(int))

	hit(handler, "10.0.0.1:1234")
	hit(handler, "10.0.0.2:1234")

	l.mu.Lock()
	l.clients["10.0.0.1"].lastSeen = time.Now().Add(-2 * time.Minute)
	l.lastSweep = time.Now().Add(-2 * time.Minute)
	l.mu.Unlock()

	hit(handler, "10.0.0.3:1234")

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.clients, "10.0.0.1", "idle client evicted on sweep")
	assert.Contains(t, l.clients, "10.0.0.2")
	assert.Contains(t, l.clients, "10.0.0.3")
}

func TestRateLimiter_BurstFloor(t *testing.T) {
	l := NewRateLimiter(10, 0, time.Minute, zap.NewNop())
	require.NotNil(t, l)
	assert.Equal(t, 1, l.burst)
}
