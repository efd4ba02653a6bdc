package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotusdb/lotus/config"
)

func TestRegistryResolvesBuiltins(t *testing.T) {
	r := NewRegistry()

	d, err := r.For(config.Backend{Name: "main", Dialect: config.DialectPostgres})
	require.NoError(t, err)
	assert.Equal(t, config.DialectPostgres, d.Name())
	assert.Equal(t, "$1", d.Placeholder(0, "a", ""))
	assert.Equal(t, "$2::integer", d.Placeholder(1, "b", "integer"))

	d, err = r.For(config.Backend{Name: "main", Dialect: config.DialectMySQL})
	require.NoError(t, err)
	assert.Equal(t, "?", d.Placeholder(3, "c", ""))
	assert.Equal(t, "CAST(? AS DATE)", d.Placeholder(3, "c", "date"))

	d, err = r.For(config.Backend{Name: "main", Dialect: config.DialectSQLite})
	require.NoError(t, err)
	assert.Equal(t, "?", d.Placeholder(0, "d", "integer"))
}

func TestRegistryRejectsUnknownDialect(t *testing.T) {
	r := NewRegistry()
	_, err := r.For(config.Backend{Name: "main", Dialect: "oracle"})
	assert.Error(t, err)
}

func TestRegistryRegisterOverrides(t *testing.T) {
	r := NewRegistry()
	r.Register(config.DialectPostgres, NewMySQL())
	d, err := r.For(config.Backend{Name: "main", Dialect: config.DialectPostgres})
	require.NoError(t, err)
	assert.Equal(t, config.DialectMySQL, d.Name())
}
