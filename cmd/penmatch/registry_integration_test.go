//go:build integration

package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penmatch/internal/match/handler"
	"penmatch/pkg/testutil/containers"
)

func TestRegistryLoadThenMatchAgainstPostgres(t *testing.T) {
	pg := containers.GetManager().GetPostgres(t)
	rds := containers.GetManager().GetRedis(t)
	require.NoError(t, rds.FlushAll(context.Background()))
	t.Setenv("PENMATCH_AUTH_DISABLED", "true")
	t.Setenv("PENMATCH_POSTGRES_DSN", pg.ConnStr)
	t.Setenv("PENMATCH_REDIS_URL", rds.URL)
	seed := writeFile(t, "seed.json", seedJSON)

	stale := "penmatch:candidates:stale"
	require.NoError(t, rds.Client.Set(context.Background(), stale, "[]", time.Hour).Err())

	out, err := execute(t, "", "registry", "load", seed, "--config", "", "--registry-seed", "", "--batch", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "loaded 2 records")

	exists, err := rds.Client.Exists(context.Background(), stale).Result()
	require.NoError(t, err)
	assert.Zero(t, exists, "load purges cached lookups")

	pool, err := pgxpool.New(context.Background(), pg.ConnStr)
	require.NoError(t, err)
	defer pool.Close()
	var count int
	require.NoError(t, pool.QueryRow(context.Background(), "SELECT count(*) FROM pen_registry").Scan(&count))
	assert.Equal(t, 2, count)

	t.Setenv("PENMATCH_REGISTRY_SOURCE", "postgres")
	t.Setenv("PENMATCH_AUDIT_STORE", "postgres")
	out, err = execute(t,
		`{"correlation_id": "pg-1", "surname": "Smith", "given_name": "John", "date_of_birth": "2005-01-01", "gender": "M"}`,
		"match", "--config", "", "--registry-seed", "",
	)
	require.NoError(t, err)

	var resp handler.MatchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "123456782", resp.MatchedPEN)

	var audited int
	require.NoError(t, pool.QueryRow(context.Background(),
		"SELECT count(*) FROM pen_match_audit WHERE correlation_id = $1", "pg-1").Scan(&audited))
	assert.Equal(t, 1, audited)
}
