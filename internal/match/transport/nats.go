package transport

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"penmatch/internal/platform/natsbus"
	"penmatch/pkg/requestcontext"
)

// NATSHandler replies on the request's reply subject with a MatchResponse or
// an ErrorEnvelope. Callers own retries; the envelope says when to retry.
func (p *Processor) NATSHandler() natsbus.HandlerFunc {
	return func(ctx context.Context, data []byte) []byte {
		ctx, span := tracer.Start(ctx, "match.nats.handle", trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		ctx = requestcontext.WithRequestID(ctx, uuid.NewString())
		return p.Process(ctx, data).Body
	}
}
