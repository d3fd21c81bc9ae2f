// Package natsbus serves request/reply handlers over a NATS queue group.
package natsbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/semaphore"
)

// HandlerFunc turns a request payload into a reply payload. It must not
// return nil for a request that expects a reply.
type HandlerFunc func(ctx context.Context, data []byte) []byte

// Connect dials NATS with reconnects enabled.
func Connect(url, name string, opts ...nats.Option) (*nats.Conn, error) {
	base := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
	}
	nc, err := nats.Connect(url, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// Subscriber consumes one subject in a queue group and replies to each
// message. At most Workers handlers run at once; when all are busy the
// subscription callback blocks, which pushes back onto the NATS pending
// buffer instead of spawning unbounded goroutines.
type Subscriber struct {
	conn    *nats.Conn
	subject string
	queue   string
	handler HandlerFunc
	sem     *semaphore.Weighted
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewSubscriber validates its arguments; nothing is subscribed until Run.
func NewSubscriber(conn *nats.Conn, subject, queue string, workers int, handler HandlerFunc, logger *slog.Logger) (*Subscriber, error) {
	if conn == nil {
		return nil, errors.New("nats connection is required")
	}
	if subject == "" {
		return nil, errors.New("subject is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	if workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", workers)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		conn:    conn,
		subject: subject,
		queue:   queue,
		handler: handler,
		sem:     semaphore.NewWeighted(int64(workers)),
		logger:  logger,
	}, nil
}

// Run subscribes and serves until ctx is cancelled, then drains the
// subscription and waits for in-flight handlers.
func (s *Subscriber) Run(ctx context.Context) error {
	sub, err := s.conn.QueueSubscribe(s.subject, s.queue, func(m *nats.Msg) {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.sem.Release(1)
			s.serve(ctx, m)
		}()
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.subject, err)
	}
	s.logger.InfoContext(ctx, "nats subscriber started", "subject", s.subject, "queue", s.queue)

	<-ctx.Done()
	if err := sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		s.logger.WarnContext(ctx, "nats drain failed", "subject", s.subject, "error", err)
	}
	s.wg.Wait()
	return nil
}

func (s *Subscriber) serve(ctx context.Context, m *nats.Msg) {
	reply := s.handler(ctx, m.Data)
	if m.Reply == "" {
		return
	}
	if err := m.Respond(reply); err != nil {
		s.logger.ErrorContext(ctx, "nats reply failed", "subject", s.subject, "error", err)
	}
}

// Request sends data and waits for one reply, bounded by timeout.
func Request(ctx context.Context, conn *nats.Conn, subject string, data []byte, timeout time.Duration) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	msg, err := conn.RequestWithContext(reqCtx, subject, data)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", subject, err)
	}
	return msg.Data, nil
}
