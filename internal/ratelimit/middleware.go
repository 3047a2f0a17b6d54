package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"condo/pkg/platform/httputil"
	"condo/pkg/requestcontext"
)

type exceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}

// Limiter applies one limit to every authenticated caller.
type Limiter struct {
	store    Store
	limit    int
	window   time.Duration
	logger   *slog.Logger
	rejected prometheus.Counter
	clock    func() time.Time
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithRegisterer exports the rejection counter on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(l *Limiter) {
		l.rejected = promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "condo_rate_limited_requests_total",
			Help: "Requests rejected by the per-caller rate limit",
		})
	}
}

func WithClock(clock func() time.Time) Option {
	return func(l *Limiter) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// New returns nil when limit is not positive, which disables limiting.
func New(store Store, limit int, window time.Duration, opts ...Option) *Limiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	l := &Limiter{store: store, limit: limit, window: window, logger: slog.Default(), clock: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Middleware keys the window by caller, falling back to client IP. Store
// failures let the request through.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := string(requestcontext.Caller(ctx))
		if key == "" {
			key = "ip:" + requestcontext.ClientIP(ctx)
		}

		res, err := l.store.Allow(ctx, key, l.limit, l.window)
		if err != nil {
			l.logger.ErrorContext(ctx, "rate limit check failed", "error", err, "request_id", requestcontext.RequestID(ctx))
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
		if !res.Allowed {
			retry := res.RetryAfter(l.clock())
			if l.rejected != nil {
				l.rejected.Inc()
			}
			l.logger.WarnContext(ctx, "rate limit exceeded", "key", key, "request_id", requestcontext.RequestID(ctx))
			h.Set("Retry-After", strconv.Itoa(retry))
			httputil.WriteJSON(w, http.StatusTooManyRequests, exceededResponse{
				Error:      "rate_limit_exceeded",
				Message:    "too many requests, try again later",
				RetryAfter: retry,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
