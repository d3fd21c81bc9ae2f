// Package transport adapts the match service to the message buses. The
// Processor owns decoding, validation, LookupFailure retries and the reply
// encoding shared by Kafka and NATS.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"penmatch/internal/match/handler"
	"penmatch/internal/match/models"
	dErrors "penmatch/pkg/domain-errors"
)

// Reply is the encoded outcome of one bus request.
type Reply struct {
	CorrelationID string
	// Body is a MatchResponse, or an ErrorEnvelope when Failed.
	Body   []byte
	Failed bool
}

// Processor is safe for concurrent use.
type Processor struct {
	service    handler.Service
	logger     *slog.Logger
	maxRetries int
	backoff    time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithRetries retries LookupFailure up to max times, doubling backoff after
// each attempt.
func WithRetries(max int, backoff time.Duration) ProcessorOption {
	return func(p *Processor) {
		p.maxRetries = max
		p.backoff = backoff
	}
}

func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor wraps service. Without WithRetries nothing is retried.
func NewProcessor(service handler.Service, opts ...ProcessorOption) (*Processor, error) {
	if service == nil {
		return nil, fmt.Errorf("match service is required")
	}
	p := &Processor{
		service: service,
		logger:  slog.Default(),
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxRetries < 0 {
		return nil, dErrors.Configuration("retries must not be negative, got %d", p.maxRetries)
	}
	return p, nil
}

// Process decodes a JSON MatchRequest, runs it and encodes the reply. It
// never fails: every error becomes an ErrorEnvelope.
func (p *Processor) Process(ctx context.Context, payload []byte) Reply {
	var req handler.MatchRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return p.failure(ctx, "", dErrors.New(dErrors.CodeBadRequest, "request is not valid JSON"))
	}
	if err := req.Validate(); err != nil {
		return p.failure(ctx, req.CorrelationID, err)
	}

	result, err := p.matchWithRetry(ctx, req.ToModel())
	if err != nil {
		return p.failure(ctx, req.CorrelationID, err)
	}
	body, err := json.Marshal(handler.FromResult(result))
	if err != nil {
		return p.failure(ctx, req.CorrelationID, dErrors.Wrap(err, dErrors.CodeInternal, "encode match response"))
	}
	return Reply{CorrelationID: req.CorrelationID, Body: body}
}

func (p *Processor) matchWithRetry(ctx context.Context, req models.MatchRequest) (*models.MatchResult, error) {
	for attempt := 0; ; attempt++ {
		result, err := p.service.Match(ctx, req)
		if err == nil || !dErrors.HasCode(err, dErrors.CodeLookupFailure) || attempt >= p.maxRetries {
			return result, err
		}
		wait := p.backoff << attempt
		p.logger.WarnContext(ctx, "pen match lookup failed, retrying",
			"correlation_id", req.CorrelationID,
			"attempt", attempt+1,
			"max_retries", p.maxRetries,
			"backoff_ms", wait.Milliseconds(),
		)
		if sleepErr := p.sleep(ctx, wait); sleepErr != nil {
			return nil, err
		}
	}
}

func (p *Processor) failure(ctx context.Context, correlationID string, err error) Reply {
	env := handler.ErrorFrom(correlationID, err)
	body, marshalErr := json.Marshal(env)
	if marshalErr != nil {
		// ErrorEnvelope holds only strings and a bool.
		body = []byte(`{"error":"internal_error","retryable":false}`)
	}
	level := slog.LevelWarn
	if !errors.Is(err, context.Canceled) && dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	p.logger.Log(ctx, level, "pen match request rejected",
		"correlation_id", correlationID,
		"code", env.Error,
		"retryable", env.Retryable,
	)
	return Reply{CorrelationID: correlationID, Body: body, Failed: true}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
