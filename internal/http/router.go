// Package httpapi assembles the public HTTP surface: the versioned match
// API behind authentication, plus unauthenticated health and metrics.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"penmatch/internal/match/handler"
	"penmatch/internal/platform/metrics"
	"penmatch/internal/platform/middleware"
	"penmatch/pkg/platform/httputil"
	authmw "penmatch/pkg/platform/middleware/auth"
	"penmatch/pkg/platform/middleware/metadata"
	"penmatch/pkg/platform/middleware/requesttime"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck is one dependency probe reported by /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Config carries everything the router needs. A nil Validator disables
// authentication and grants the match scope to every caller.
type Config struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Validator authmw.JWTValidator
	Match     *handler.Handler
	Checks    []HealthCheck
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewRouter wires all endpoints.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(metadata.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Instrument(cfg.Metrics))

	r.Get("/health", healthHandler(cfg.Checks, logger))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AccessLog(logger))
		if cfg.Validator != nil {
			r.Use(authmw.RequireAuth(cfg.Validator, logger))
		} else {
			r.Use(authmw.Anonymous(handler.ScopeReadPENMatch))
		}
		if cfg.Match != nil {
			cfg.Match.Register(r)
		}
	})
	return r
}

// healthHandler runs the checks in order under one shared timeout.
// Failures are reported by name only; error text stays in the log.
func healthHandler(checks []HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		resp := HealthResponse{Status: "ok"}
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "check", c.Name, "error", err)
				resp.Checks[c.Name] = "unavailable"
				resp.Status = "degraded"
				continue
			}
			resp.Checks[c.Name] = "ok"
		}

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp)
	}
}
