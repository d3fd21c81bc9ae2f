package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"penmatch/internal/match/metrics"
	"penmatch/internal/match/models"
	dErrors "penmatch/pkg/domain-errors"
	"penmatch/pkg/platform/httputil"
	"penmatch/pkg/requestcontext"
)

// ScopeReadPENMatch is the token scope required to call the match endpoint.
const ScopeReadPENMatch = "READ_PEN_MATCH"

// Service defines the interface for match operations.
type Service interface {
	Match(ctx context.Context, req models.MatchRequest) (*models.MatchResult, error)
}

// Handler wires match endpoints to the match service.
type Handler struct {
	service Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New constructs a match handler with its dependencies.
func New(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		metrics: metrics,
	}
}

// Register mounts match endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/pen-match", h.HandleMatch)
}

// HandleMatch handles POST /pen-match requests.
func (h *Handler) HandleMatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	if !requestcontext.HasScope(ctx, ScopeReadPENMatch) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "scope "+ScopeReadPENMatch+" is required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[MatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		h.metrics.IncrementFailure(string(dErrors.CodeValidation))
		return
	}

	result, err := h.service.Match(ctx, req.ToModel())
	if err != nil {
		h.logger.ErrorContext(ctx, "pen match request failed",
			"request_id", requestID,
			"correlation_id", req.CorrelationID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "pen match request served",
		"request_id", requestID,
		"correlation_id", req.CorrelationID,
		"status", result.Status.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}
