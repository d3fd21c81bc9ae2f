package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "penmatch/pkg/platform/audit"
	"penmatch/pkg/platform/audit/publishers/compliance"
	"penmatch/pkg/platform/audit/store/memory"
)

type failingSink struct {
	mu    sync.Mutex
	calls int
}

func (f *failingSink) Emit(context.Context, audit.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("sink down")
}

func (f *failingSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestWorkerPersistsQueuedEvents(t *testing.T) {
	store := memory.NewInMemoryStore()
	w := NewWorker(compliance.New(store), 4, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, w.Emit(ctx, audit.Event{Action: string(audit.EventPENMatchDecided), CorrelationID: "c-1", Decision: "C1"}))

	assert.Eventually(t, func() bool {
		events, _ := store.ListByCorrelationID(context.Background(), "c-1")
		return len(events) == 1
	}, time.Second, 10*time.Millisecond)

	events, err := store.ListByCorrelationID(context.Background(), "c-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.False(t, events[0].Timestamp.IsZero())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWorkerEmitWhenFull(t *testing.T) {
	w := NewWorker(compliance.New(memory.NewInMemoryStore()), 1, nil)
	require.NoError(t, w.Emit(context.Background(), audit.Event{CorrelationID: "a"}))
	assert.ErrorIs(t, w.Emit(context.Background(), audit.Event{CorrelationID: "b"}), ErrQueueFull)
}

func TestWorkerDrainsOnShutdown(t *testing.T) {
	store := memory.NewInMemoryStore()
	w := NewWorker(compliance.New(store), 3, nil)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, w.Emit(context.Background(), audit.Event{Action: string(audit.EventPENMatchFailed), CorrelationID: id, Reason: "lookup_failure"}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = w.Run(ctx)

	events, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestWorkerKeepsRunningAfterSinkError(t *testing.T) {
	sink := &failingSink{}
	w := NewWorker(sink, 2, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, w.Emit(context.Background(), audit.Event{CorrelationID: "a"}))
	require.NoError(t, w.Emit(context.Background(), audit.Event{CorrelationID: "b"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = w.Run(ctx)

	assert.Equal(t, 2, sink.count())
}
