// Package config loads the penmatch process configuration: built-in
// defaults, then an optional YAML file, then PENMATCH_* environment
// overrides. Validate fails fast so a bad deployment never serves traffic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"penmatch/internal/match/classify"
	"penmatch/internal/match/models"
	"penmatch/internal/match/score"
	dErrors "penmatch/pkg/domain-errors"
	pstrings "penmatch/pkg/platform/strings"
)

// Registry sources.
const (
	RegistryMemory   = "memory"
	RegistryPostgres = "postgres"
)

// Audit stores.
const (
	AuditMemory   = "memory"
	AuditPostgres = "postgres"
)

// Config is the complete process configuration.
type Config struct {
	Server   Server      `yaml:"server"`
	Log      Log         `yaml:"log"`
	Matching Matching    `yaml:"matching"`
	Registry Registry    `yaml:"registry"`
	Redis    RedisConfig `yaml:"redis"`
	Postgres Postgres    `yaml:"postgres"`
	Kafka    Kafka       `yaml:"kafka"`
	NATS     NATS        `yaml:"nats"`
	Audit    Audit       `yaml:"audit"`
	Auth     Auth        `yaml:"auth"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// Log selects the slog handler.
type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Matching is the tuning surface of the engine.
type Matching struct {
	// Weights maps field names (surname, given_name, ...) to relative weights.
	// Fields left out keep their default.
	Weights map[string]float64 `yaml:"weights"`
	// Credits maps level names (exact, fuzzy_strong, ...) to [0,1] credits.
	Credits       map[string]float64 `yaml:"credits"`
	AutoConfirm   float64            `yaml:"auto_confirm"`
	PossibleMatch float64            `yaml:"possible_match"`
	Margin        float64            `yaml:"margin"`
	MaxCandidates int                `yaml:"max_candidates"`
	LookupTimeout time.Duration      `yaml:"lookup_timeout"`
	NicknamesPath string             `yaml:"nicknames_path"`
}

// Registry selects the CandidateProvider.
type Registry struct {
	Source   string        `yaml:"source"`
	SeedPath string        `yaml:"seed_path"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// RedisConfig configures the lookup cache. An empty URL disables caching.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Postgres is shared by the registry and audit stores.
type Postgres struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
}

// Kafka configures the asynchronous match transport. No brokers disables it.
type Kafka struct {
	Brokers      []string      `yaml:"brokers"`
	RequestTopic string        `yaml:"request_topic"`
	ResultTopic  string        `yaml:"result_topic"`
	GroupID      string        `yaml:"group_id"`
	Workers      int           `yaml:"workers"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	// RedeliveryBackoff pauses a partition rewound after a failed publish.
	RedeliveryBackoff time.Duration `yaml:"redelivery_backoff"`
	CreateTopics      bool          `yaml:"create_topics"`
	Partitions        int32         `yaml:"partitions"`
}

// NATS configures the request/reply transport. An empty URL disables it.
type NATS struct {
	URL        string `yaml:"url"`
	Subject    string `yaml:"subject"`
	QueueGroup string `yaml:"queue_group"`
	Workers    int    `yaml:"workers"`
}

// Audit selects where match decisions are recorded.
type Audit struct {
	Store     string `yaml:"store"`
	QueueSize int    `yaml:"queue_size"`
}

// Auth configures bearer-token validation on the HTTP API.
type Auth struct {
	Disabled      bool   `yaml:"disabled"`
	JWTSigningKey string `yaml:"jwt_signing_key"`
	Issuer        string `yaml:"issuer"`
	Audience      string `yaml:"audience"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Log: Log{Level: "info", Format: "json"},
		Matching: Matching{
			AutoConfirm:   classify.DefaultAutoConfirm,
			PossibleMatch: classify.DefaultPossibleMatch,
			Margin:        classify.DefaultMargin,
			MaxCandidates: 50,
			LookupTimeout: 2 * time.Second,
		},
		Registry: Registry{
			Source:   RegistryMemory,
			CacheTTL: 5 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		},
		Postgres: Postgres{MaxConns: 10},
		Kafka: Kafka{
			RequestTopic:      "pen-match-requests",
			ResultTopic:       "pen-match-results",
			GroupID:           "penmatch",
			Workers:           8,
			MaxRetries:        3,
			RetryBackoff:      200 * time.Millisecond,
			RedeliveryBackoff: time.Second,
			Partitions:        3,
		},
		NATS: NATS{
			Subject:    "PEN_MATCH_API_TOPIC",
			QueueGroup: "penmatch",
			Workers:    8,
		},
		Audit: Audit{Store: AuditMemory, QueueSize: 1024},
	}
}

// Load reads defaults, the YAML file at path when path is non-empty, and the
// environment. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, dErrors.Configuration("read config file: %v", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, dErrors.Configuration("parse config file: %v", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides values from PENMATCH_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []string
	num := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, key)
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, key)
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, key)
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, key)
				return
			}
			*dst = b
		}
	}

	str("PENMATCH_ADDR", &c.Server.Addr)
	str("PENMATCH_LOG_LEVEL", &c.Log.Level)
	str("PENMATCH_LOG_FORMAT", &c.Log.Format)

	num("PENMATCH_AUTO_CONFIRM", &c.Matching.AutoConfirm)
	num("PENMATCH_POSSIBLE_MATCH", &c.Matching.PossibleMatch)
	num("PENMATCH_MARGIN", &c.Matching.Margin)
	integer("PENMATCH_MAX_CANDIDATES", &c.Matching.MaxCandidates)
	duration("PENMATCH_LOOKUP_TIMEOUT", &c.Matching.LookupTimeout)
	str("PENMATCH_NICKNAMES_PATH", &c.Matching.NicknamesPath)

	str("PENMATCH_REGISTRY_SOURCE", &c.Registry.Source)
	str("PENMATCH_REGISTRY_SEED", &c.Registry.SeedPath)
	duration("PENMATCH_REGISTRY_CACHE_TTL", &c.Registry.CacheTTL)

	str("PENMATCH_REDIS_URL", &c.Redis.URL)
	str("PENMATCH_POSTGRES_DSN", &c.Postgres.DSN)

	if v, ok := lookup("PENMATCH_KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = pstrings.SplitList(v, ",")
	}
	str("PENMATCH_KAFKA_REQUEST_TOPIC", &c.Kafka.RequestTopic)
	str("PENMATCH_KAFKA_RESULT_TOPIC", &c.Kafka.ResultTopic)
	str("PENMATCH_KAFKA_GROUP_ID", &c.Kafka.GroupID)
	integer("PENMATCH_KAFKA_MAX_RETRIES", &c.Kafka.MaxRetries)
	duration("PENMATCH_KAFKA_REDELIVERY_BACKOFF", &c.Kafka.RedeliveryBackoff)

	str("PENMATCH_NATS_URL", &c.NATS.URL)
	str("PENMATCH_NATS_SUBJECT", &c.NATS.Subject)

	str("PENMATCH_AUDIT_STORE", &c.Audit.Store)

	boolean("PENMATCH_AUTH_DISABLED", &c.Auth.Disabled)
	str("PENMATCH_JWT_SIGNING_KEY", &c.Auth.JWTSigningKey)
	str("PENMATCH_JWT_ISSUER", &c.Auth.Issuer)
	str("PENMATCH_JWT_AUDIENCE", &c.Auth.Audience)

	if len(errs) > 0 {
		return dErrors.Configuration("invalid environment values: %s", strings.Join(errs, ", "))
	}
	return nil
}

// Validate checks every section and returns the first ConfigurationFailure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return dErrors.Configuration("server.addr is required")
	}
	if _, err := c.ScoreWeights(); err != nil {
		return err
	}
	if err := c.ClassifyThresholds().Validate(); err != nil {
		return err
	}
	if c.Matching.MaxCandidates <= 0 {
		return dErrors.Configuration("matching.max_candidates must be positive, got %d", c.Matching.MaxCandidates)
	}
	if c.Matching.LookupTimeout <= 0 {
		return dErrors.Configuration("matching.lookup_timeout must be positive, got %s", c.Matching.LookupTimeout)
	}

	switch c.Registry.Source {
	case RegistryMemory:
	case RegistryPostgres:
		if c.Postgres.DSN == "" {
			return dErrors.Configuration("postgres.dsn is required for the postgres registry")
		}
	default:
		return dErrors.Configuration("registry.source must be %q or %q, got %q", RegistryMemory, RegistryPostgres, c.Registry.Source)
	}

	switch c.Audit.Store {
	case AuditMemory:
	case AuditPostgres:
		if c.Postgres.DSN == "" {
			return dErrors.Configuration("postgres.dsn is required for the postgres audit store")
		}
	default:
		return dErrors.Configuration("audit.store must be %q or %q, got %q", AuditMemory, AuditPostgres, c.Audit.Store)
	}
	if c.Audit.QueueSize <= 0 {
		return dErrors.Configuration("audit.queue_size must be positive")
	}

	if len(c.Kafka.Brokers) > 0 {
		if c.Kafka.RequestTopic == "" || c.Kafka.ResultTopic == "" || c.Kafka.GroupID == "" {
			return dErrors.Configuration("kafka request_topic, result_topic and group_id are required when brokers are set")
		}
		if c.Kafka.Workers <= 0 || c.Kafka.MaxRetries < 0 {
			return dErrors.Configuration("kafka.workers must be positive and kafka.max_retries non-negative")
		}
	}
	if c.NATS.URL != "" && (c.NATS.Subject == "" || c.NATS.Workers <= 0) {
		return dErrors.Configuration("nats.subject and a positive nats.workers are required when nats.url is set")
	}

	if !c.Auth.Disabled && c.Auth.JWTSigningKey == "" {
		return dErrors.Configuration("auth.jwt_signing_key is required unless auth.disabled is set")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return dErrors.Configuration("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return dErrors.Configuration("log.format must be json or text, got %q", c.Log.Format)
	}
	return nil
}

// ScoreWeights overlays the configured weights and credits on the defaults
// and validates the result. Unknown names are rejected so that a typo cannot
// silently fall back to a default.
func (c *Config) ScoreWeights() (score.Weights, error) {
	w := score.DefaultWeights()
	for name, v := range c.Matching.Weights {
		f, ok := models.ParseField(name)
		if !ok {
			return score.Weights{}, dErrors.Configuration("matching.weights: unknown field %q", name)
		}
		w.Field[f] = v
	}
	for name, v := range c.Matching.Credits {
		level, ok := parseLevel(name)
		if !ok {
			return score.Weights{}, dErrors.Configuration("matching.credits: unknown level %q", name)
		}
		w.Credit[level] = v
	}
	if err := w.Validate(); err != nil {
		return score.Weights{}, err
	}
	return w, nil
}

// ClassifyThresholds returns the configured thresholds.
func (c *Config) ClassifyThresholds() classify.Thresholds {
	return classify.Thresholds{
		AutoConfirm:   c.Matching.AutoConfirm,
		PossibleMatch: c.Matching.PossibleMatch,
		Margin:        c.Matching.Margin,
	}
}

func parseLevel(name string) (models.FieldMatchLevel, bool) {
	for _, l := range models.Levels {
		if l.String() == name {
			return l, true
		}
	}
	return 0, false
}

// String renders the effective configuration as YAML with secrets masked.
func (c *Config) String() string {
	masked := *c
	if masked.Auth.JWTSigningKey != "" {
		masked.Auth.JWTSigningKey = "***"
	}
	if masked.Postgres.DSN != "" {
		masked.Postgres.DSN = "***"
	}
	if masked.Redis.URL != "" {
		masked.Redis.URL = "***"
	}
	out, err := yaml.Marshal(&masked)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(out)
}
