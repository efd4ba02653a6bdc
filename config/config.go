// Package config loads and validates the immutable, process-wide configuration
// described in spec.md §4.10 (C10): backends, visibility rule sets, and cache
// defaults. Lookups against a loaded Config are pure; nothing mutates it after
// Load/New return, matching the "no global mutation after init" rule in §5.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// CacheConfig configures the result cache (C8).
type CacheConfig struct {
	Adapter        string             `mapstructure:"adapter"` // "memory" | "redis"
	RedisURL       string             `mapstructure:"redis_url"`
	Namespace      string             `mapstructure:"namespace"`
	DefaultProfile string             `mapstructure:"default_profile"`
	DefaultTTL     time.Duration      `mapstructure:"default_ttl"`
	MaxBytes       int64              `mapstructure:"max_bytes"`
	Compress       bool               `mapstructure:"compress"`
	// WaiterTimeout bounds how long a get_or_store caller blocks on another
	// caller's in-flight compute before falling back to computing independently,
	// per spec.md §4.8/§5's liveness guarantee.
	WaiterTimeout time.Duration      `mapstructure:"waiter_timeout"`
	Profiles      map[string]Profile `mapstructure:"profiles"`
}

// Profile is a named set of cache defaults selectable per call.
type Profile struct {
	TTL  time.Duration `mapstructure:"ttl"`
	Tags []string      `mapstructure:"tags"`
}

// Config is the top-level immutable configuration for a Lotus instance.
type Config struct {
	Backends        map[string]Backend `mapstructure:"-"`
	DefaultBackend  string             `mapstructure:"default_backend"`
	Rules           map[string]RuleSet `mapstructure:"-"` // keyed by backend name, "default" fallback
	Cache           CacheConfig        `mapstructure:"cache"`
	ReadOnly        bool               `mapstructure:"read_only"`
	DefaultPageSize int                `mapstructure:"default_page_size"`
	QueryDeadline   time.Duration      `mapstructure:"query_deadline"`
	SchemaCacheTTL  time.Duration      `mapstructure:"schema_cache_ttl"`
}

// New builds a Config from in-process values (used by embedders that construct
// backends and rules in code rather than from a config file/env). Validate is run
// before returning.
func New(backends map[string]Backend, rules map[string]RuleSet, defaultBackend string) (*Config, error) {
	cfg := &Config{
		Backends:        backends,
		DefaultBackend:  defaultBackend,
		Rules:           rules,
		ReadOnly:        true,
		DefaultPageSize: 1000,
		QueryDeadline:   5 * time.Second,
		SchemaCacheTTL:  5 * time.Minute,
		Cache: CacheConfig{
			Adapter:        "memory",
			DefaultTTL:     5 * time.Minute,
			MaxBytes:       5 * 1024 * 1024,
			DefaultProfile: "default",
			WaiterTimeout:  3 * time.Second,
			Profiles:       map[string]Profile{},
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads ambient configuration (an optional .env file, then LOTUS_*-prefixed
// environment variables and/or a lotus.{yaml,yml,json} file) the way the teacher's
// internal/config.Load does, then fills in structural defaults via SetDefault.
// Backends and visibility rules are NOT loaded this way (they are Go values, set via
// WithBackend/WithRules) because regex-bearing rule sets don't round-trip cleanly
// through flat env vars; Load only covers the scalar ambient settings. An explicit
// configPath overrides the default lotus.{yaml,yml,json} search.
func Load(configPath ...string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file found, using environment variables and defaults")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("LOTUS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	explicit := ""
	if len(configPath) > 0 {
		explicit = configPath[0]
	}

	candidates := []string{"lotus.yaml", "lotus.yml", "lotus.json", "./config/lotus.yaml"}
	if explicit != "" {
		candidates = []string{explicit}
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			viper.SetConfigFile(candidate)
			if err := viper.ReadInConfig(); err != nil {
				if explicit != "" {
					return nil, fmt.Errorf("reading config file %s: %w", candidate, err)
				}
				log.Warn().Err(err).Str("file", candidate).Msg("Config file found but could not be parsed, using environment variables and defaults")
			} else {
				log.Info().Str("file", candidate).Msg("Config file loaded")
			}
			break
		} else if explicit != "" {
			return nil, fmt.Errorf("config file %s not found", candidate)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Backends = map[string]Backend{}
	cfg.Rules = map[string]RuleSet{}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFile() error {
	for _, location := range []string{".env", "../.env"} {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				return fmt.Errorf("error loading .env file from %s: %w", location, err)
			}
			log.Info().Str("file", location).Msg(".env file loaded")
			return nil
		}
	}
	return fmt.Errorf("no .env file found")
}

func setDefaults() {
	viper.SetDefault("read_only", true)
	viper.SetDefault("default_page_size", 1000)
	viper.SetDefault("query_deadline", "5s")
	viper.SetDefault("schema_cache_ttl", "5m")

	viper.SetDefault("cache.adapter", "memory")
	viper.SetDefault("cache.default_ttl", "5m")
	viper.SetDefault("cache.max_bytes", 5*1024*1024)
	viper.SetDefault("cache.default_profile", "default")
	viper.SetDefault("cache.compress", false)
	viper.SetDefault("cache.waiter_timeout", "3s")
}

// WithBackend registers a backend descriptor in-place and returns cfg for chaining.
func (c *Config) WithBackend(b Backend) *Config {
	if c.Backends == nil {
		c.Backends = map[string]Backend{}
	}
	c.Backends[b.Name] = b
	if c.DefaultBackend == "" {
		c.DefaultBackend = b.Name
	}
	return c
}

// WithRules registers a rule set for backend (or "default") and returns cfg for chaining.
func (c *Config) WithRules(backend string, rules RuleSet) *Config {
	if c.Rules == nil {
		c.Rules = map[string]RuleSet{}
	}
	c.Rules[backend] = rules
	return c
}

// RulesFor returns the effective rule set for a backend, falling back to "default".
func (c *Config) RulesFor(backend string) RuleSet {
	if rs, ok := c.Rules[backend]; ok {
		return rs
	}
	return c.Rules["default"]
}

// Validate checks structural invariants once at startup. Patterns are compiled at
// construction time (see Pattern), so Validate mostly checks cross-field invariants:
// default backend exists, page sizes are positive, cache adapter is known.
func (c *Config) Validate() error {
	if c.DefaultBackend != "" {
		if _, ok := c.Backends[c.DefaultBackend]; !ok && len(c.Backends) > 0 {
			return fmt.Errorf("default_backend %q is not a configured backend", c.DefaultBackend)
		}
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 1000
	}
	switch c.Cache.Adapter {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("unknown cache adapter %q (valid: memory, redis)", c.Cache.Adapter)
	}
	if c.Cache.Adapter == "redis" && c.Cache.RedisURL == "" {
		return fmt.Errorf("cache.redis_url is required when cache.adapter is \"redis\"")
	}
	for name, b := range c.Backends {
		switch b.Dialect {
		case DialectPostgres, DialectMySQL, DialectSQLite, DialectSQLServer, DialectOther:
		default:
			return fmt.Errorf("backend %q: unknown dialect %q", name, b.Dialect)
		}
	}
	return nil
}
