// Package compliance provides a fail-closed audit publisher for match decisions.
//
// Emit writes synchronously and returns the store error to the caller. The
// match service logs that error rather than failing the match, but transports
// that need a durable trail can treat it as fatal.
package compliance

import (
	"context"
	"log/slog"
	"time"

	dErrors "penmatch/pkg/domain-errors"
	audit "penmatch/pkg/platform/audit"
)

// Publisher emits audit events synchronously.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New creates a compliance publisher.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit validates and persists event. Incomplete events are rejected with a
// validation error so a malformed trail entry is never written.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	start := time.Now()

	if err := validate(event); err != nil {
		return err
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	event.Category = audit.AuditEvent(event.Action).Category()

	if err := p.store.Append(ctx, event); err != nil {
		p.metrics.IncPersistFailures()
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "audit persistence failed",
				"action", event.Action,
				"correlation_id", event.CorrelationID,
				"error", err,
			)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "audit persistence failed")
	}

	p.metrics.ObservePersistDuration(time.Since(start).Seconds())
	p.metrics.IncEventsEmitted()
	return nil
}

func validate(event audit.Event) error {
	action := audit.AuditEvent(event.Action)
	switch {
	case !action.IsKnown():
		return dErrors.Newf(dErrors.CodeValidation, "unknown audit action %q", event.Action)
	case event.CorrelationID == "":
		return dErrors.Validation("audit event requires a correlation id")
	case action == audit.EventPENMatchDecided && event.Decision == "":
		return dErrors.Validation("decision event requires a decision")
	case action == audit.EventPENMatchFailed && event.Reason == "":
		return dErrors.Validation("failure event requires a reason")
	}
	return nil
}

// Close is a no-op for the synchronous publisher.
func (p *Publisher) Close() error {
	return nil
}
