package worker

import (
	"context"
	"errors"
	"log/slog"

	audit "penmatch/pkg/platform/audit"
)

// ErrQueueFull is returned by Emit when the buffer has no room.
var ErrQueueFull = errors.New("audit queue full")

// Sink receives events drained from the queue. The compliance publisher is
// the usual sink; it stamps and persists each event.
type Sink interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Worker drains queued audit events into a sink so the match path never
// waits on audit persistence.
type Worker struct {
	sink   Sink
	inbox  chan audit.Event
	logger *slog.Logger
}

// NewWorker creates a worker with a buffer of size events.
func NewWorker(sink Sink, size int, logger *slog.Logger) *Worker {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{sink: sink, inbox: make(chan audit.Event, size), logger: logger}
}

// Emit queues event without blocking.
func (w *Worker) Emit(_ context.Context, event audit.Event) error {
	select {
	case w.inbox <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run delivers queued events until ctx is cancelled, then flushes what is
// already buffered. Sink errors are logged and do not stop the worker.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case event := <-w.inbox:
			w.deliver(ctx, event)
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case event := <-w.inbox:
			w.deliver(context.Background(), event)
		default:
			return
		}
	}
}

func (w *Worker) deliver(ctx context.Context, event audit.Event) {
	if err := w.sink.Emit(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to deliver queued audit event",
			"action", event.Action,
			"correlation_id", event.CorrelationID,
			"error", err,
		)
	}
}
