package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penmatch/internal/match/models"
	dErrors "penmatch/pkg/domain-errors"
)

func valid() *Config {
	cfg := Default()
	cfg.Auth.JWTSigningKey = "test-key"
	return cfg
}

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestDefaultsValidateWithSigningKey(t *testing.T) {
	require.NoError(t, valid().Validate())

	err := Default().Validate()
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "penmatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
matching:
  auto_confirm: 80
  lookup_timeout: 750ms
  weights:
    surname: 40
  credits:
    missing: 0.1
registry:
  source: postgres
postgres:
  dsn: postgres://localhost/penmatch
auth:
  disabled: true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 80.0, cfg.Matching.AutoConfirm)
	assert.Equal(t, 750*time.Millisecond, cfg.Matching.LookupTimeout)
	assert.Equal(t, RegistryPostgres, cfg.Registry.Source)
	// untouched sections keep their defaults
	assert.Equal(t, "pen-match-requests", cfg.Kafka.RequestTopic)
	assert.Equal(t, time.Second, cfg.Kafka.RedeliveryBackoff)

	w, err := cfg.ScoreWeights()
	require.NoError(t, err)
	assert.Equal(t, 40.0, w.Field[models.FieldSurname])
	assert.Equal(t, 20.0, w.Field[models.FieldGivenName])
	assert.Equal(t, 0.1, w.Credit[models.Missing])
}

func TestLoadRejectsBadFiles(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("matching: [1, 2"), 0o600))
	_, err = Load(path)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
}

func TestApplyEnv(t *testing.T) {
	cfg := valid()
	err := cfg.applyEnv(env(map[string]string{
		"PENMATCH_ADDR":           ":9090",
		"PENMATCH_MARGIN":         "5",
		"PENMATCH_MAX_CANDIDATES": "20",
		"PENMATCH_LOOKUP_TIMEOUT": "1s",
		"PENMATCH_KAFKA_BROKERS":  "a:9092, b:9092,",
		"PENMATCH_AUTH_DISABLED":  "true",
		"PENMATCH_LOG_FORMAT":     "",
	}))
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5.0, cfg.Matching.Margin)
	assert.Equal(t, 20, cfg.Matching.MaxCandidates)
	assert.Equal(t, time.Second, cfg.Matching.LookupTimeout)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Auth.Disabled)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestApplyEnvReportsUnparsableValues(t *testing.T) {
	err := valid().applyEnv(env(map[string]string{
		"PENMATCH_MARGIN":         "wide",
		"PENMATCH_LOOKUP_TIMEOUT": "soon",
	}))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
	assert.Contains(t, err.Error(), "PENMATCH_MARGIN")
	assert.Contains(t, err.Error(), "PENMATCH_LOOKUP_TIMEOUT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		desc   string
		mutate func(*Config)
	}{
		{"possible match above auto confirm", func(c *Config) { c.Matching.PossibleMatch = 90 }},
		{"negative margin", func(c *Config) { c.Matching.Margin = -1 }},
		{"zero max candidates", func(c *Config) { c.Matching.MaxCandidates = 0 }},
		{"zero lookup timeout", func(c *Config) { c.Matching.LookupTimeout = 0 }},
		{"unknown weight field", func(c *Config) { c.Matching.Weights = map[string]float64{"shoe_size": 1} }},
		{"negative weight", func(c *Config) { c.Matching.Weights = map[string]float64{"surname": -1} }},
		{"unknown credit level", func(c *Config) { c.Matching.Credits = map[string]float64{"close": 0.5} }},
		{"credit above one", func(c *Config) { c.Matching.Credits = map[string]float64{"exact": 2} }},
		{"unknown registry", func(c *Config) { c.Registry.Source = "ldap" }},
		{"postgres registry without dsn", func(c *Config) { c.Registry.Source = RegistryPostgres }},
		{"postgres audit without dsn", func(c *Config) { c.Audit.Store = AuditPostgres }},
		{"kafka without group", func(c *Config) {
			c.Kafka.Brokers = []string{"localhost:9092"}
			c.Kafka.GroupID = ""
		}},
		{"nats without workers", func(c *Config) {
			c.NATS.URL = "nats://localhost:4222"
			c.NATS.Workers = 0
		}},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
		})
	}
}

func TestStringMasksSecrets(t *testing.T) {
	cfg := valid()
	cfg.Postgres.DSN = "postgres://user:hunter2@db/penmatch"
	out := cfg.String()
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "test-key")
	assert.Equal(t, "test-key", cfg.Auth.JWTSigningKey)
}
