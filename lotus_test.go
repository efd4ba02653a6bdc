package lotus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotusdb/lotus/config"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := config.New(
		map[string]Backend{"main": {Name: "main", Dialect: config.DialectPostgres, DSN: "fake"}},
		map[string]RuleSet{},
		"main",
	)
	require.NoError(t, err)
	return cfg
}

func TestNewDefaultsToMemoryCache(t *testing.T) {
	client, err := New(testConfig(t))
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestRunRejectsUnknownBackend(t *testing.T) {
	client, err := New(testConfig(t))
	require.NoError(t, err)

	_, lerr := client.Run(context.Background(), Query{Backend: "ghost", SQL: "SELECT 1"})
	require.NotNil(t, lerr)
}
