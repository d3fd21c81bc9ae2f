package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers           = 8
	defaultRedeliveryBackoff = time.Second
)

// ConsumerMetrics counts handled messages per topic and result.
type ConsumerMetrics struct {
	Messages *prometheus.CounterVec
	Handling *prometheus.HistogramVec
}

// NewConsumerMetrics registers consumer metrics on reg; nil uses the default
// registerer.
func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &ConsumerMetrics{
		Messages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "penmatch_kafka_messages_total",
			Help: "Consumed Kafka messages by topic and result",
		}, []string{"topic", "result"}), // result: "ok", "error"
		Handling: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "penmatch_kafka_handle_duration_seconds",
			Help:    "Time spent handling one Kafka message",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"}),
	}
}

func (m *ConsumerMetrics) observe(topic string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Messages.WithLabelValues(topic, result).Inc()
	m.Handling.WithLabelValues(topic).Observe(d.Seconds())
}

// ConsumerConfig configures a group consumer.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
	// Workers bounds how many records of one poll are handled concurrently.
	Workers int
}

// Consumer polls a consumer group and hands records to a Handler. Offsets
// are committed only after records have been handled, and never past a
// record whose handler failed: that partition is rewound to the failed
// record and redelivered after a backoff. Delivery is at least once.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	workers int
	backoff time.Duration
	logger  *slog.Logger
	metrics *ConsumerMetrics
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

func WithConsumerLogger(logger *slog.Logger) ConsumerOption {
	return func(c *Consumer) {
		c.logger = logger
	}
}

func WithConsumerMetrics(m *ConsumerMetrics) ConsumerOption {
	return func(c *Consumer) {
		c.metrics = m
	}
}

// WithRedeliveryBackoff sets the pause before a rewound partition is polled
// again.
func WithRedeliveryBackoff(d time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if d > 0 {
			c.backoff = d
		}
	}
}

// NewConsumer creates the group client. Extra kgo options are appended, which
// tests use to shorten timeouts.
func NewConsumer(cfg ConsumerConfig, handler Handler, opts []ConsumerOption, kopts ...kgo.Opt) (*Consumer, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if len(cfg.Brokers) == 0 || cfg.GroupID == "" || len(cfg.Topics) == 0 {
		return nil, fmt.Errorf("brokers, group and topics are required")
	}
	clientOpts := append([]kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
	}, kopts...)
	client, err := kgo.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	c := &Consumer{
		client:  client,
		handler: handler,
		workers: cfg.Workers,
		backoff: defaultRedeliveryBackoff,
		logger:  slog.Default(),
	}
	if c.workers <= 0 {
		c.workers = defaultWorkers
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run polls until ctx is cancelled, then closes the client. It returns nil on
// a clean shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.client.Close()
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.ErrorContext(ctx, "kafka fetch failed",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		records := fetches.Records()
		failed := c.handleBatch(ctx, records)
		commit, rewind := settle(records, failed)

		if len(commit) > 0 {
			if err := c.client.CommitRecords(ctx, commit...); err != nil && ctx.Err() == nil {
				c.logger.ErrorContext(ctx, "kafka commit failed", "error", err)
			}
		}
		if len(rewind) > 0 {
			c.client.SetOffsets(rewind)
			c.logger.WarnContext(ctx, "kafka partitions rewound for redelivery",
				"partitions", len(rewind),
				"backoff", c.backoff,
			)
		}
		c.client.AllowRebalance()

		if len(rewind) > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
		}
	}
}

// handleBatch reports, by position, which records failed.
func (c *Consumer) handleBatch(ctx context.Context, records []*kgo.Record) []bool {
	failed := make([]bool, len(records))
	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, rec := range records {
		g.Go(func() error {
			msg := messageFromRecord(rec)
			start := time.Now()
			err := c.handler.Handle(ctx, msg)
			c.metrics.observe(msg.Topic, time.Since(start), err)
			if err != nil {
				failed[i] = true
				c.logger.ErrorContext(ctx, "kafka message handling failed",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()
	return failed
}

// settle splits a handled poll into the records safe to commit and, per
// partition, the offset of the first failure to rewind to. Records of one
// partition arrive in offset order; nothing at or after a failure commits.
func settle(records []*kgo.Record, failed []bool) ([]*kgo.Record, map[string]map[int32]kgo.EpochOffset) {
	var commit []*kgo.Record
	rewind := make(map[string]map[int32]kgo.EpochOffset)
	for i, rec := range records {
		if _, blocked := rewind[rec.Topic][rec.Partition]; blocked {
			continue
		}
		if !failed[i] {
			commit = append(commit, rec)
			continue
		}
		if rewind[rec.Topic] == nil {
			rewind[rec.Topic] = make(map[int32]kgo.EpochOffset)
		}
		rewind[rec.Topic][rec.Partition] = kgo.EpochOffset{Epoch: rec.LeaderEpoch, Offset: rec.Offset}
	}
	return commit, rewind
}

// Ping checks broker connectivity.
func (c *Consumer) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}
