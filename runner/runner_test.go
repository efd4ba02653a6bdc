package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotusdb/lotus/binder"
	"github.com/lotusdb/lotus/cache"
	"github.com/lotusdb/lotus/config"
	"github.com/lotusdb/lotus/dialect"
	"github.com/lotusdb/lotus/lotuserr"
)

// fakeSession is a scripted dialect.Session: Query always returns the same canned
// response regardless of SQL text, which is enough to drive the orchestration layer
// without a live database.
type fakeSession struct {
	columns []string
	rows    [][]any
	err     error
	closed  int
}

func (f *fakeSession) Query(context.Context, string, []any) ([]string, [][]any, error) {
	return f.columns, f.rows, f.err
}

func (f *fakeSession) Close(context.Context) error {
	f.closed++
	return nil
}

// fakeDialect implements dialect.Dialect with Postgres placeholder/feature shape but
// hands back a fixed fakeSession, letting runner tests exercise Run end to end.
type fakeDialect struct {
	session *fakeSession
}

func (f *fakeDialect) Name() config.Dialect { return config.DialectPostgres }
func (f *fakeDialect) Placeholder(i int, name, varType string) string {
	return "$" + itoa(i+1)
}
func (f *fakeDialect) Supports(feat string) bool { return feat == dialect.FeatureIntervalLiteral }
func (f *fakeDialect) Begin(context.Context, config.Backend, time.Duration, string) (dialect.Session, error) {
	return f.session, nil
}
func (f *fakeDialect) FormatError(err error) *lotuserr.Error {
	return lotuserr.BackendError(err.Error(), err)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.New(
		map[string]config.Backend{"main": {Name: "main", Dialect: config.DialectPostgres, DSN: "fake"}},
		map[string]config.RuleSet{},
		"main",
	)
	require.NoError(t, err)
	return cfg
}

func TestRunRejectsWriteStatements(t *testing.T) {
	cfg := testConfig(t)
	r := New(cfg, cache.NewMemory(0))
	r.RegisterDialect(config.DialectPostgres, &fakeDialect{session: &fakeSession{}})

	_, err := r.Run(context.Background(), Query{SQL: "DELETE FROM users"})
	require.NotNil(t, err)
	assert.Equal(t, lotuserr.KindReadOnlyViolation, err.Kind)
}

func TestRunRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	r := New(cfg, cache.NewMemory(0))

	_, err := r.Run(context.Background(), Query{Backend: "nope", SQL: "SELECT 1"})
	require.NotNil(t, err)
	assert.Equal(t, lotuserr.KindUnknownBackend, err.Kind)
}

func TestRunReturnsMissingVariableError(t *testing.T) {
	cfg := testConfig(t)
	r := New(cfg, cache.NewMemory(0))
	r.RegisterDialect(config.DialectPostgres, &fakeDialect{session: &fakeSession{}})

	_, err := r.Run(context.Background(), Query{
		SQL:  "SELECT * FROM users WHERE id = {{id}}",
		Vars: []binder.VariableSpec{{Name: "id", Type: binder.TypeInteger}},
	})
	require.NotNil(t, err)
	assert.Equal(t, lotuserr.KindMissingVariable, err.Kind)
}

func TestRunExecutesAndAppliesColumnPolicy(t *testing.T) {
	cfg, err := config.New(
		map[string]config.Backend{"main": {Name: "main", Dialect: config.DialectPostgres, DSN: "fake"}},
		map[string]config.RuleSet{
			"main": {
				Column: []config.ColumnRule{
					{Scope: config.ColumnScope{Column: "password"}, Policy: config.ColumnPolicy{Action: config.ActionOmit}},
				},
			},
		},
		"main",
	)
	require.NoError(t, err)

	sess := &fakeSession{columns: []string{"name", "password"}, rows: [][]any{{"ann", "secret"}}}
	r := New(cfg, cache.NewMemory(0))
	r.RegisterDialect(config.DialectPostgres, &fakeDialect{session: sess})

	result, lerr := r.Run(context.Background(), Query{SQL: "SELECT name, password FROM users"})
	require.Nil(t, lerr)
	assert.Equal(t, []string{"name"}, result.Columns)
	assert.Equal(t, [][]any{{"ann"}}, result.Rows)
	assert.False(t, result.CacheHit)
	assert.Equal(t, 1, sess.closed)
}

func TestRunSecondCallHitsCache(t *testing.T) {
	cfg := testConfig(t)
	sess := &fakeSession{columns: []string{"n"}, rows: [][]any{{int64(1)}}}
	r := New(cfg, cache.NewMemory(0))
	r.RegisterDialect(config.DialectPostgres, &fakeDialect{session: sess})

	q := Query{SQL: "SELECT 1 AS n"}
	first, lerr := r.Run(context.Background(), q)
	require.Nil(t, lerr)
	assert.False(t, first.CacheHit)

	second, lerr := r.Run(context.Background(), q)
	require.Nil(t, lerr)
	assert.True(t, second.CacheHit)
	assert.Equal(t, 1, sess.closed) // second call never opened a new session
}

func TestRunBypassModeNeverTouchesCache(t *testing.T) {
	cfg := testConfig(t)
	sess := &fakeSession{columns: []string{"n"}, rows: [][]any{{int64(1)}}}
	r := New(cfg, cache.NewMemory(0))
	r.RegisterDialect(config.DialectPostgres, &fakeDialect{session: sess})

	q := Query{SQL: "SELECT 1 AS n", CacheMode: cache.ModeBypass}
	_, lerr := r.Run(context.Background(), q)
	require.Nil(t, lerr)
	_, lerr = r.Run(context.Background(), q)
	require.Nil(t, lerr)
	assert.Equal(t, 2, sess.closed) // every call executed fresh
}
