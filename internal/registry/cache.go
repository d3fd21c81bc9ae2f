package registry

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"penmatch/internal/match/models"
	"penmatch/internal/match/ports"
	"penmatch/pkg/platform/circuit"
	"penmatch/pkg/platform/sentinel"
)

const (
	cacheKeyPrefix  = "penmatch:candidates:"
	DefaultCacheTTL = 5 * time.Minute
	purgeBatch      = 500
)

// CacheMetrics is the subset of registry metrics the cache reports.
type CacheMetrics interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordCacheError()
	SetCircuitOpen(open bool)
}

// CachingProvider is a read-through Redis cache in front of another
// provider. Keys are BLAKE2b hashes of the blocking keys so no demographic
// value is stored in a key. Redis errors never fail a lookup: the breaker
// opens and lookups go straight to the wrapped provider until Redis recovers.
type CachingProvider struct {
	next    ports.CandidateProvider
	client  redis.UniversalClient
	ttl     time.Duration
	breaker *circuit.Breaker
	metrics CacheMetrics
	logger  *slog.Logger
}

// CacheOption configures a CachingProvider.
type CacheOption func(*CachingProvider)

func WithCacheMetrics(m CacheMetrics) CacheOption {
	return func(c *CachingProvider) {
		c.metrics = m
	}
}

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *CachingProvider) {
		c.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) CacheOption {
	return func(c *CachingProvider) {
		c.breaker = b
	}
}

// NewCachingProvider wraps next. ttl <= 0 selects DefaultCacheTTL.
func NewCachingProvider(next ports.CandidateProvider, client redis.UniversalClient, ttl time.Duration, opts ...CacheOption) (*CachingProvider, error) {
	if next == nil {
		return nil, fmt.Errorf("candidate provider is required")
	}
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &CachingProvider{
		next:    next,
		client:  client,
		ttl:     ttl,
		breaker: circuit.New("registry-cache"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// CacheKey returns the Redis key for a search.
func CacheKey(search models.NormalizedRecord, maxCandidates int) string {
	sum := blake2b.Sum256([]byte(KeysFor(search).CacheKey(maxCandidates)))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// Lookup serves from Redis when possible and fills the cache on a miss.
func (c *CachingProvider) Lookup(ctx context.Context, search models.NormalizedRecord, maxCandidates int) ([]models.CandidateRecord, error) {
	key := CacheKey(search, maxCandidates)

	if c.breaker.Allow() {
		records, err := c.get(ctx, key)
		switch {
		case err == nil:
			c.success(ctx)
			c.hit()
			return records, nil
		case errors.Is(err, sentinel.ErrCacheMiss):
			c.success(ctx)
			c.miss()
		default:
			c.failure(ctx, err)
		}
	}

	records, err := c.next.Lookup(ctx, search, maxCandidates)
	if err != nil {
		return nil, err
	}

	if c.breaker.Allow() {
		if err := c.set(ctx, key, records); err != nil {
			c.failure(ctx, err)
		}
	}
	return records, nil
}

// PurgeCache deletes every cached candidate list and returns how many keys
// went. Registry writes call it: a new row can belong to any cached block,
// and keys are hashes that cannot be traced back to a block.
func PurgeCache(ctx context.Context, client redis.UniversalClient) (int64, error) {
	var purged atomic.Int64
	purge := func(ctx context.Context, node redis.Cmdable) error {
		iter := node.Scan(ctx, 0, cacheKeyPrefix+"*", purgeBatch).Iterator()
		keys := make([]string, 0, purgeBatch)
		flush := func() error {
			if len(keys) == 0 {
				return nil
			}
			n, err := node.Unlink(ctx, keys...).Result()
			purged.Add(n)
			keys = keys[:0]
			return err
		}
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
			if len(keys) == purgeBatch {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
		return flush()
	}

	var err error
	if cluster, ok := client.(*redis.ClusterClient); ok {
		err = cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return purge(ctx, node)
		})
	} else {
		err = purge(ctx, client)
	}
	if err != nil {
		return purged.Load(), fmt.Errorf("purge candidate cache: %w", err)
	}
	return purged.Load(), nil
}

func (c *CachingProvider) get(ctx context.Context, key string) ([]models.CandidateRecord, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var records []models.CandidateRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		// A corrupt entry is treated as a miss and overwritten.
		return nil, sentinel.ErrCacheMiss
	}
	return records, nil
}

func (c *CachingProvider) set(ctx context.Context, key string, records []models.CandidateRecord) error {
	if records == nil {
		records = []models.CandidateRecord{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal candidates: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *CachingProvider) failure(ctx context.Context, err error) {
	if c.metrics != nil {
		c.metrics.RecordCacheError()
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "registry cache circuit opened", "breaker", c.breaker.Name(), "error", err)
		if c.metrics != nil {
			c.metrics.SetCircuitOpen(true)
		}
	}
}

func (c *CachingProvider) success(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "registry cache circuit closed", "breaker", c.breaker.Name())
		if c.metrics != nil {
			c.metrics.SetCircuitOpen(false)
		}
	}
}

func (c *CachingProvider) hit() {
	if c.metrics != nil {
		c.metrics.RecordCacheHit()
	}
}

func (c *CachingProvider) miss() {
	if c.metrics != nil {
		c.metrics.RecordCacheMiss()
	}
}
