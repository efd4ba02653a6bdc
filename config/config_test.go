package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New(
		map[string]Backend{"main": {Name: "main", Dialect: DialectPostgres, DSN: "postgres://x"}},
		map[string]RuleSet{"default": {}},
		"main",
	)
	require.NoError(t, err)
	assert.True(t, cfg.ReadOnly)
	assert.Equal(t, 1000, cfg.DefaultPageSize)
	assert.Equal(t, "memory", cfg.Cache.Adapter)
}

func TestValidateRejectsUnknownDefaultBackend(t *testing.T) {
	_, err := New(
		map[string]Backend{"main": {Name: "main", Dialect: DialectPostgres}},
		nil,
		"other",
	)
	assert.Error(t, err)
}

func TestValidateRejectsUnknownDialect(t *testing.T) {
	_, err := New(
		map[string]Backend{"main": {Name: "main", Dialect: "oracle"}},
		nil,
		"main",
	)
	assert.Error(t, err)
}

func TestValidateRequiresRedisURL(t *testing.T) {
	cfg, err := New(map[string]Backend{"main": {Name: "main", Dialect: DialectPostgres}}, nil, "main")
	require.NoError(t, err)
	cfg.Cache.Adapter = "redis"
	assert.Error(t, cfg.Validate())
	cfg.Cache.RedisURL = "redis://localhost:6379"
	assert.NoError(t, cfg.Validate())
}

func TestRulesForFallsBackToDefault(t *testing.T) {
	cfg, err := New(
		map[string]Backend{"main": {Name: "main", Dialect: DialectPostgres}},
		map[string]RuleSet{
			"default": {Schema: SchemaRuleSet{Deny: []Pattern{Exact("internal")}}},
		},
		"main",
	)
	require.NoError(t, err)
	rs := cfg.RulesFor("main")
	require.Len(t, rs.Schema.Deny, 1)
	assert.True(t, rs.Schema.Deny[0].Match("internal"))
}

func TestWithBackendSetsDefaultWhenUnset(t *testing.T) {
	cfg := &Config{}
	cfg.WithBackend(Backend{Name: "primary", Dialect: DialectMySQL})
	assert.Equal(t, "primary", cfg.DefaultBackend)
}
