package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httpapi "penmatch/internal/http"
	jwttoken "penmatch/internal/jwt_token"
	"penmatch/internal/match/handler"
	"penmatch/internal/match/transport"
	"penmatch/internal/platform/config"
	"penmatch/internal/platform/httpserver"
	"penmatch/internal/platform/kafka"
	"penmatch/internal/platform/logger"
	platformmetrics "penmatch/internal/platform/metrics"
	"penmatch/internal/platform/natsbus"
	authmw "penmatch/pkg/platform/middleware/auth"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the match API over HTTP, Kafka and NATS",
	Long:  "Start the HTTP API and, when configured, the Kafka consumer and NATS subscriber. Stops on SIGINT or SIGTERM.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := buildApp(ctx, cfg, log, reg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)

	if len(cfg.Kafka.Brokers) > 0 {
		run, check, closeFn, err := setupKafka(ctx, cfg, a, log, reg)
		if err != nil {
			return err
		}
		defer closeFn()
		a.checks = append(a.checks, check)
		g.Go(func() error { return run(gctx) })
	}

	if cfg.NATS.URL != "" {
		run, check, closeFn, err := setupNATS(cfg, a, log)
		if err != nil {
			return err
		}
		defer closeFn()
		a.checks = append(a.checks, check)
		g.Go(func() error { return run(gctx) })
	}

	var validator authmw.JWTValidator
	if !cfg.Auth.Disabled {
		validator = jwttoken.NewValidator(
			jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience),
		)
	} else {
		log.WarnContext(ctx, "authentication disabled; every caller is granted "+handler.ScopeReadPENMatch)
	}

	router := httpapi.NewRouter(httpapi.Config{
		Logger:    log,
		Metrics:   platformmetrics.New(reg),
		Gatherer:  reg,
		Validator: validator,
		Match:     handler.New(a.service, log, a.matchMetrics),
		Checks:    a.checks,
	})
	srv := httpserver.New(cfg.Server.Addr, router, cfg.Server.ReadHeaderTimeout)
	g.Go(func() error {
		log.InfoContext(gctx, "starting penmatch", "addr", cfg.Server.Addr)
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout)
	})

	// The audit worker outlives the transports so events emitted by
	// in-flight requests are still delivered.
	auditCtx, stopAudit := context.WithCancel(context.WithoutCancel(ctx))
	auditDone := make(chan error, 1)
	go func() { auditDone <- a.auditWorker.Run(auditCtx) }()

	err = g.Wait()
	stopAudit()
	if auditErr := ignoreCanceled(<-auditDone); auditErr != nil && err == nil {
		err = auditErr
	}
	if err != nil {
		log.Error("penmatch stopped with error", "error", err)
		return err
	}
	log.Info("penmatch stopped")
	return nil
}

func setupKafka(ctx context.Context, cfg *config.Config, a *app, log *slog.Logger, reg prometheus.Registerer) (func(context.Context) error, httpapi.HealthCheck, func(), error) {
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		return nil, httpapi.HealthCheck{}, nil, err
	}
	fail := func(err error) (func(context.Context) error, httpapi.HealthCheck, func(), error) {
		producer.Close()
		return nil, httpapi.HealthCheck{}, nil, err
	}

	if cfg.Kafka.CreateTopics {
		if err := kafka.EnsureTopics(ctx, producer.Client(), cfg.Kafka.Partitions, 1, cfg.Kafka.RequestTopic, cfg.Kafka.ResultTopic); err != nil {
			return fail(err)
		}
	}

	processor, err := transport.NewProcessor(a.service,
		transport.WithRetries(cfg.Kafka.MaxRetries, cfg.Kafka.RetryBackoff),
		transport.WithLogger(log),
	)
	if err != nil {
		return fail(err)
	}
	kh, err := transport.NewKafkaHandler(processor, producer, cfg.Kafka.ResultTopic, log)
	if err != nil {
		return fail(err)
	}
	router := kafka.NewRouter(log, nil)
	router.Register(cfg.Kafka.RequestTopic, kh)

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID,
		Topics:  router.Topics(),
		Workers: cfg.Kafka.Workers,
	}, router, []kafka.ConsumerOption{
		kafka.WithConsumerLogger(log),
		kafka.WithConsumerMetrics(kafka.NewConsumerMetrics(reg)),
		kafka.WithRedeliveryBackoff(cfg.Kafka.RedeliveryBackoff),
	})
	if err != nil {
		return fail(err)
	}

	log.InfoContext(ctx, "kafka transport enabled",
		"request_topic", cfg.Kafka.RequestTopic,
		"result_topic", cfg.Kafka.ResultTopic,
		"group", cfg.Kafka.GroupID,
	)
	return consumer.Run, httpapi.HealthCheck{Name: "kafka", Check: producer.Ping}, producer.Close, nil
}

func setupNATS(cfg *config.Config, a *app, log *slog.Logger) (func(context.Context) error, httpapi.HealthCheck, func(), error) {
	conn, err := natsbus.Connect(cfg.NATS.URL, "penmatch")
	if err != nil {
		return nil, httpapi.HealthCheck{}, nil, err
	}
	// Request/reply callers decide on retries from the envelope.
	processor, err := transport.NewProcessor(a.service, transport.WithLogger(log))
	if err != nil {
		conn.Close()
		return nil, httpapi.HealthCheck{}, nil, err
	}
	sub, err := natsbus.NewSubscriber(conn, cfg.NATS.Subject, cfg.NATS.QueueGroup, cfg.NATS.Workers, processor.NATSHandler(), log)
	if err != nil {
		conn.Close()
		return nil, httpapi.HealthCheck{}, nil, err
	}
	check := httpapi.HealthCheck{Name: "nats", Check: func(context.Context) error {
		if status := conn.Status(); status != nats.CONNECTED {
			return fmt.Errorf("nats connection %s", status)
		}
		return nil
	}}
	return sub.Run, check, conn.Close, nil
}
