package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"penmatch/internal/match/models"
	"penmatch/internal/match/ports/mocks"
	"penmatch/pkg/platform/circuit"
)

// unreachableRedis fails fast on every command.
func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

type countingMetrics struct {
	hits, misses, errors int
	circuitOpen          bool
}

func (m *countingMetrics) RecordCacheHit()          { m.hits++ }
func (m *countingMetrics) RecordCacheMiss()         { m.misses++ }
func (m *countingMetrics) RecordCacheError()        { m.errors++ }
func (m *countingMetrics) SetCircuitOpen(open bool) { m.circuitOpen = open }

func TestCachingProviderFallsBackWhenRedisIsDown(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockCandidateProvider(ctrl)
	want := []models.CandidateRecord{{PEN: "123456782", Surname: "SMITH"}}
	next.EXPECT().Lookup(gomock.Any(), gomock.Any(), 10).Return(want, nil).Times(3)

	m := &countingMetrics{}
	client := unreachableRedis()
	defer client.Close()
	c, err := NewCachingProvider(next, client, time.Minute,
		WithCacheMetrics(m),
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))),
	)
	require.NoError(t, err)

	s := search(models.DemographicRecord{Surname: "Smith"})
	for i := 0; i < 3; i++ {
		got, err := c.Lookup(context.Background(), s, 10)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	// get fails, then set fails: the breaker opens during the first lookup
	// and later lookups skip Redis entirely.
	assert.Equal(t, 2, m.errors)
	assert.True(t, m.circuitOpen)
}

func TestCachingProviderPropagatesProviderErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockCandidateProvider(ctrl)
	boom := errors.New("registry down")
	next.EXPECT().Lookup(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, boom)

	client := unreachableRedis()
	defer client.Close()
	c, err := NewCachingProvider(next, client, 0)
	require.NoError(t, err)

	_, err = c.Lookup(context.Background(), search(models.DemographicRecord{Surname: "Smith"}), 10)
	assert.ErrorIs(t, err, boom)
}

func TestNewCachingProviderRequiresDependencies(t *testing.T) {
	_, err := NewCachingProvider(nil, unreachableRedis(), 0)
	assert.Error(t, err)
	_, err = NewCachingProvider(NewMemoryProvider(nil), nil, 0)
	assert.Error(t, err)
}

func TestCacheKeyHidesDemographics(t *testing.T) {
	s := search(models.DemographicRecord{Surname: "Smith", GivenName: "John", SubmittedPEN: "123456782"})
	key := CacheKey(s, 10)
	assert.Contains(t, key, cacheKeyPrefix)
	assert.NotContains(t, key, "123456782")
	assert.NotContains(t, key, "S530")
	assert.Len(t, key, len(cacheKeyPrefix)+64)
	assert.Equal(t, key, CacheKey(s, 10))
}
