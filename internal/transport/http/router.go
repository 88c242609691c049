// Package httptransport assembles the public HTTP surface.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"checkpoint/internal/checkin/handler"
	platformmetrics "checkpoint/internal/platform/metrics"
	"checkpoint/pkg/platform/httputil"
	"checkpoint/pkg/platform/middleware/metadata"
	"checkpoint/pkg/platform/middleware/requestid"
	"checkpoint/pkg/platform/middleware/requesttime"
)

// CheckFunc reports the health of one dependency.
type CheckFunc func(ctx context.Context) error

// RateLimiter wraps a handler chain for one limit class.
type RateLimiter interface {
	RateLimit(class string) func(http.Handler) http.Handler
}

// Deps are the components the router mounts.
type Deps struct {
	Checkin           *handler.Handler
	Limiter           RateLimiter
	Metrics           *platformmetrics.Metrics
	MetricsHandler    http.Handler
	Checks            map[string]CheckFunc
	TrustProxyHeaders bool
	Logger            *slog.Logger
}

const healthTimeout = 2 * time.Second

// NewRouter wires middleware and routes.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(metadata.ClientMetadata(d.TrustProxyHeaders))
	r.Use(requesttime.Middleware)
	r.Use(d.Metrics.Middleware)

	r.Get("/health", healthHandler(d.Checks, d.Logger))

	metricsHandler := d.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Group(func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(d.Limiter.RateLimit("checkin"))
		}
		d.Checkin.Register(r)
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]CheckFunc, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "check", name, "error", err)
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
