package transport

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"penmatch/internal/platform/kafka"
	"penmatch/pkg/requestcontext"
)

var tracer = otel.Tracer("penmatch/internal/match/transport")

// Headers set on every result record.
const (
	HeaderOutcome   = "penmatch-outcome" // "result" or "error"
	HeaderRequestID = "request-id"
	HeaderClientID  = "client-id"
)

// Publisher writes one record. Satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// KafkaHandler consumes match requests and produces one result record per
// request, keyed by correlation ID.
type KafkaHandler struct {
	processor   *Processor
	publisher   Publisher
	resultTopic string
	logger      *slog.Logger
}

func NewKafkaHandler(processor *Processor, publisher Publisher, resultTopic string, logger *slog.Logger) (*KafkaHandler, error) {
	if processor == nil {
		return nil, fmt.Errorf("processor is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if resultTopic == "" {
		return nil, fmt.Errorf("result topic is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaHandler{
		processor:   processor,
		publisher:   publisher,
		resultTopic: resultTopic,
		logger:      logger,
	}, nil
}

// Handle implements kafka.Handler. A publish failure is returned so the
// consumer redelivers the request; the result is never dropped.
func (h *KafkaHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	ctx, span := tracer.Start(ctx, "match.kafka.handle", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.destination.name", msg.Topic),
		attribute.Int64("messaging.kafka.offset", msg.Offset),
	)

	requestID := msg.Headers[HeaderRequestID]
	if requestID == "" {
		requestID = msg.Topic + "/" + strconv.Itoa(int(msg.Partition)) + "/" + strconv.FormatInt(msg.Offset, 10)
	}
	ctx = requestcontext.WithRequestID(ctx, requestID)
	if client := msg.Headers[HeaderClientID]; client != "" {
		ctx = requestcontext.WithClientID(ctx, client)
	}

	reply := h.processor.Process(ctx, msg.Value)
	outcome := "result"
	if reply.Failed {
		outcome = "error"
	}
	key := reply.CorrelationID
	if key == "" {
		key = string(msg.Key)
	}
	headers := map[string]string{
		HeaderOutcome:   outcome,
		HeaderRequestID: requestID,
	}
	if err := h.publisher.Publish(ctx, h.resultTopic, []byte(key), reply.Body, headers); err != nil {
		span.RecordError(err)
		return fmt.Errorf("publish match result: %w", err)
	}
	return nil
}
