package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	httpapi "penmatch/internal/http"
	"penmatch/internal/match/classify"
	"penmatch/internal/match/compare"
	matchmetrics "penmatch/internal/match/metrics"
	"penmatch/internal/match/normalize"
	"penmatch/internal/match/ports"
	"penmatch/internal/match/score"
	"penmatch/internal/match/service"
	"penmatch/internal/platform/config"
	redisclient "penmatch/internal/platform/redis"
	"penmatch/internal/registry"
	registrymetrics "penmatch/internal/registry/metrics"
	audit "penmatch/pkg/platform/audit"
	"penmatch/pkg/platform/audit/publishers/compliance"
	auditmemory "penmatch/pkg/platform/audit/store/memory"
	auditpostgres "penmatch/pkg/platform/audit/store/postgres"
	"penmatch/pkg/platform/audit/worker"
)

// loadConfig reads --config and --registry-seed and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if seed, _ := cmd.Flags().GetString("registry-seed"); seed != "" {
		cfg.Registry.SeedPath = seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds the wired engine and the resources it owns.
type app struct {
	service      *service.Service
	matchMetrics *matchmetrics.Metrics
	auditWorker  *worker.Worker
	checks       []httpapi.HealthCheck
	closers      []func()
}

// buildApp wires the match engine from cfg. With queuedAudit the audit trail
// goes through a background worker that the caller must run; otherwise events
// are written before Match returns.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer, queuedAudit bool) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	nicknames := normalize.DefaultNicknames()
	if cfg.Matching.NicknamesPath != "" {
		loaded, err := normalize.LoadNicknames(cfg.Matching.NicknamesPath)
		if err != nil {
			return nil, err
		}
		nicknames = loaded
	}
	normalizer := normalize.New(nicknames)

	weights, err := cfg.ScoreWeights()
	if err != nil {
		return nil, err
	}
	combiner, err := score.New(weights)
	if err != nil {
		return nil, err
	}
	classifier, err := classify.New(cfg.ClassifyThresholds())
	if err != nil {
		return nil, err
	}

	var pool *pgxpool.Pool
	if cfg.Registry.Source == config.RegistryPostgres {
		pool, err = openPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		a.checks = append(a.checks, httpapi.HealthCheck{Name: "postgres", Check: pool.Ping})
	}

	provider, err := buildProvider(ctx, cfg, normalizer, pool)
	if err != nil {
		return nil, err
	}

	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		a.closers = append(a.closers, func() { _ = rc.Close() })
		a.checks = append(a.checks, httpapi.HealthCheck{Name: "redis", Check: rc.Health})
		provider, err = registry.NewCachingProvider(provider, rc.Client, cfg.Registry.CacheTTL,
			registry.WithCacheMetrics(registrymetrics.New(reg)),
			registry.WithCacheLogger(logger),
		)
		if err != nil {
			return nil, err
		}
	}

	store, err := buildAuditStore(ctx, cfg, a)
	if err != nil {
		return nil, err
	}
	publisher := compliance.New(store,
		compliance.WithLogger(logger),
		compliance.WithMetrics(compliance.NewMetrics(reg)),
	)
	var sink ports.AuditPublisher = publisher
	if queuedAudit {
		a.auditWorker = worker.NewWorker(publisher, cfg.Audit.QueueSize, logger)
		sink = a.auditWorker
	}

	a.matchMetrics = matchmetrics.New(reg)
	a.service, err = service.New(normalizer, provider, compare.New(), combiner, classifier,
		service.WithLogger(logger),
		service.WithAuditPublisher(sink),
		service.WithMetrics(a.matchMetrics),
		service.WithMaxCandidates(cfg.Matching.MaxCandidates),
		service.WithLookupTimeout(cfg.Matching.LookupTimeout),
	)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "match engine ready",
		"registry", cfg.Registry.Source,
		"cache", rc != nil,
		"audit_store", cfg.Audit.Store,
		"nicknames", nicknames.Len(),
	)
	ok = true
	return a, nil
}

func buildProvider(ctx context.Context, cfg *config.Config, n *normalize.Normalizer, pool *pgxpool.Pool) (ports.CandidateProvider, error) {
	if pool != nil {
		p := registry.NewPostgresProvider(pool, n)
		if err := p.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return p, nil
	}
	p := registry.NewMemoryProvider(n)
	if cfg.Registry.SeedPath != "" {
		if err := p.LoadSeedFile(cfg.Registry.SeedPath); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func buildAuditStore(ctx context.Context, cfg *config.Config, a *app) (audit.Store, error) {
	if cfg.Audit.Store != config.AuditPostgres {
		return auditmemory.NewInMemoryStore(), nil
	}
	db, err := auditpostgres.Open(cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = db.Close() })
	store := auditpostgres.New(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func openPool(ctx context.Context, cfg config.Postgres) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return pool, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
