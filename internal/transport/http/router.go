package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"condo/internal/platform/metrics"
	"condo/internal/platform/middleware"
	"condo/internal/ratelimit"
	"condo/pkg/platform/httputil"
	"condo/pkg/platform/middleware/auth"
	"condo/pkg/platform/middleware/metadata"
	"condo/pkg/platform/middleware/request"
	"condo/pkg/platform/middleware/requesttime"
)

// RouterConfig collects the router dependencies.
type RouterConfig struct {
	Handler     *Handler
	Validator   auth.JWTValidator
	Revocations auth.TokenRevocationChecker
	RateLimit   *ratelimit.Limiter
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Clock       func() time.Time
	Timeout     time.Duration
}

// NewRouter wires the public endpoints. Everything under /v1 requires a
// bearer token; /healthz and /metrics do not.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(cfg.Logger))
	r.Use(middleware.LatencyMiddleware(cfg.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(chimw.Timeout(cfg.Timeout))
		v1.Use(request.ContentTypeJSON)
		v1.Use(requesttime.WithClock(cfg.Clock))
		v1.Use(auth.RequireAuth(cfg.Validator, cfg.Revocations, cfg.Logger))
		v1.Use(cfg.RateLimit.Middleware)
		cfg.Handler.Register(v1)
	})
	return r
}
