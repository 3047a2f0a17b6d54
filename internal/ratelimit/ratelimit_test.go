package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "condo/pkg/domain"
	"condo/pkg/requestcontext"
)

func TestInMemorySlidingWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	s := NewInMemory().WithClock(func() time.Time { return now })

	for i := range 3 {
		res, err := s.Allow(ctx, "a", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := s.Allow(ctx, "a", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, now.Add(time.Minute), res.ResetAt)

	t.Run("keys are independent", func(t *testing.T) {
		res, err := s.Allow(ctx, "b", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("slots free up as the window slides", func(t *testing.T) {
		now = now.Add(time.Minute)
		res, err := s.Allow(ctx, "a", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2, res.Remaining)
	})
}

func TestResultRetryAfter(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, 30, Result{ResetAt: now.Add(30 * time.Second)}.RetryAfter(now))
	assert.Equal(t, 1, Result{ResetAt: now}.RetryAfter(now))
}

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (Result, error) {
	return Result{}, errors.New("redis down")
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	call := func(h http.Handler, caller string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/state", nil)
		ctx := requestcontext.WithClientMetadata(req.Context(), "10.0.0.1", "test", "unknown")
		if caller != "" {
			ctx = requestcontext.WithCaller(ctx, id.ParticipantID("0x00000000000000000000000000000000000000"+caller))
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req.WithContext(ctx))
		return w
	}

	t.Run("disabled when the limit is zero", func(t *testing.T) {
		l := New(NewInMemory(), 0, time.Minute)
		assert.Nil(t, l)
		for range 5 {
			assert.Equal(t, http.StatusNoContent, call(l.Middleware(ok), "a1").Code)
		}
	})

	t.Run("rejects past the limit per caller", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		l := New(NewInMemory(), 2, time.Minute, WithRegisterer(reg))
		h := l.Middleware(ok)

		w := call(h, "a1")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, http.StatusNoContent, call(h, "a1").Code)

		w = call(h, "a1")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
		assert.Equal(t, float64(1), promtest.ToFloat64(l.rejected))

		assert.Equal(t, http.StatusNoContent, call(h, "b2").Code, "other callers have their own window")
	})

	t.Run("anonymous requests are keyed by IP", func(t *testing.T) {
		h := New(NewInMemory(), 1, time.Minute).Middleware(ok)
		assert.Equal(t, http.StatusNoContent, call(h, "").Code)
		assert.Equal(t, http.StatusTooManyRequests, call(h, "").Code)
	})

	t.Run("store failures fail open", func(t *testing.T) {
		h := New(failingStore{}, 1, time.Minute).Middleware(ok)
		assert.Equal(t, http.StatusNoContent, call(h, "a1").Code)
		assert.Equal(t, http.StatusNoContent, call(h, "a1").Code)
	})
}
