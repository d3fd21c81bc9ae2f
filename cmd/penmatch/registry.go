package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"penmatch/internal/match/models"
	"penmatch/internal/match/normalize"
	"penmatch/internal/platform/config"
	"penmatch/internal/platform/logger"
	redisclient "penmatch/internal/platform/redis"
	"penmatch/internal/registry"
	dErrors "penmatch/pkg/domain-errors"
)

const defaultBatchTimeout = 30 * time.Second

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage the PostgreSQL registry",
}

var registryLoadCmd = &cobra.Command{
	Use:   "load <seed.json>",
	Short: "Create the registry schema and upsert records from a JSON seed file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegistryLoad,
}

func init() {
	registryLoadCmd.Flags().Int("batch", 500, "records per batch")
	registryLoadCmd.Flags().Duration("batch-timeout", defaultBatchTimeout, "deadline for each batch")
	registryCmd.AddCommand(registryLoadCmd)
}

func runRegistryLoad(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Postgres.DSN == "" {
		return dErrors.Configuration("postgres.dsn is required to load the registry")
	}
	batchSize, _ := cmd.Flags().GetInt("batch")
	if batchSize <= 0 {
		return fmt.Errorf("batch must be positive, got %d", batchSize)
	}
	timeout, _ := cmd.Flags().GetDuration("batch-timeout")
	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, "text")

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open registry seed: %w", err)
	}
	defer f.Close()
	records, err := registry.ReadSeed(f)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pool, err := openPool(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	nicknames := normalize.DefaultNicknames()
	if cfg.Matching.NicknamesPath != "" {
		if nicknames, err = normalize.LoadNicknames(cfg.Matching.NicknamesPath); err != nil {
			return err
		}
	}
	provider := registry.NewPostgresProvider(pool, normalize.New(nicknames))
	if err := provider.EnsureSchema(ctx); err != nil {
		return err
	}

	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		if err := insertBatch(ctx, provider, records[start:end], timeout); err != nil {
			return fmt.Errorf("records %d-%d: %w", start, end-1, err)
		}
		log.InfoContext(ctx, "registry batch loaded", "from", start, "to", end-1)
	}
	if err := purgeCandidateCache(ctx, cfg.Redis, log); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "loaded %d records\n", len(records))
	return err
}

// purgeCandidateCache drops cached lookups so serving instances see the new
// rows before their entries expire. A no-op without Redis.
func purgeCandidateCache(ctx context.Context, cfg config.RedisConfig, log *slog.Logger) error {
	rc, err := redisclient.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("registry loaded but the lookup cache is stale: %w", err)
	}
	if rc == nil {
		return nil
	}
	defer rc.Close()

	purged, err := registry.PurgeCache(ctx, rc.Client)
	if err != nil {
		return fmt.Errorf("registry loaded but the lookup cache is stale: %w", err)
	}
	log.InfoContext(ctx, "registry lookup cache purged", "keys", purged)
	return nil
}

// insertBatch bounds one batch by timeout unless ctx already has a deadline.
func insertBatch(ctx context.Context, p *registry.PostgresProvider, records []models.CandidateRecord, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "load aborted: context cancelled")
	}
	if timeout <= 0 {
		timeout = defaultBatchTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	err := p.Insert(ctx, records...)
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "registry batch timed out")
	}
	return err
}
