package preflight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotusdb/lotus/config"
	"github.com/lotusdb/lotus/visibility"
)

// fakeSession scripts canned responses keyed by a substring of the query, grounded on
// the same fake-driver testing idiom the teacher's rpc tests use for Executor.
type fakeSession struct {
	responses map[string]fakeResponse
}

type fakeResponse struct {
	columns []string
	rows    [][]any
	err     error
}

func (f *fakeSession) Query(_ context.Context, sql string, _ []any) ([]string, [][]any, error) {
	for substr, resp := range f.responses {
		if contains(sql, substr) {
			return resp.columns, resp.rows, resp.err
		}
	}
	return nil, nil, nil
}

func (f *fakeSession) Close(context.Context) error { return nil }

func contains(s, substr string) bool {
	return len(substr) == 0 || (len(s) >= len(substr) && indexOf(s, substr) >= 0)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func TestSQLiteAuthorizerExtractsTableFromQueryPlan(t *testing.T) {
	sess := &fakeSession{responses: map[string]fakeResponse{
		"EXPLAIN QUERY PLAN": {
			columns: []string{"id", "parent", "notused", "detail"},
			rows: [][]any{
				{int64(1), int64(0), int64(0), "SCAN users"},
			},
		},
	}}

	auth := sqliteAuthorizer{}
	rels, err := auth.Relations(context.Background(), sess, "SELECT * FROM users", nil)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "users", rels[0].Table)
}

func TestRegistryCheckFlagsDeniedRelations(t *testing.T) {
	sess := &fakeSession{responses: map[string]fakeResponse{
		"EXPLAIN QUERY PLAN": {
			columns: []string{"id", "parent", "notused", "detail"},
			rows: [][]any{
				{int64(1), int64(0), int64(0), "SCAN schema_migrations"},
			},
		},
	}}

	engine := visibility.New(config.DialectSQLite, config.RuleSet{})
	r := NewRegistry()

	touched, denied, err := r.Check(context.Background(), config.DialectSQLite, sess, engine, "SELECT * FROM schema_migrations", nil)
	require.NoError(t, err)
	require.Len(t, touched, 1)
	require.Len(t, denied, 1)
	assert.Equal(t, "schema_migrations", denied[0].Table)
}

func TestRelationString(t *testing.T) {
	assert.Equal(t, "public.users", Relation{Schema: "public", Table: "users"}.String())
	assert.Equal(t, "users", Relation{Table: "users"}.String())
}

func TestWalkMySQLPlanFindsTableNames(t *testing.T) {
	plan := map[string]any{
		"query_block": map[string]any{
			"table": map[string]any{"table_name": "orders"},
		},
	}
	var rels []Relation
	walkMySQLPlan(plan, &rels, map[string]bool{})
	require.Len(t, rels, 1)
	assert.Equal(t, "orders", rels[0].Table)
}

func TestWalkPostgresPlanFindsRelationAndSchema(t *testing.T) {
	plan := []any{
		map[string]any{
			"Plan": map[string]any{
				"Relation Name": "users",
				"Schema":        "public",
			},
		},
	}
	var rels []Relation
	walkPlan(plan, &rels, map[string]bool{})
	require.Len(t, rels, 1)
	assert.Equal(t, Relation{Schema: "public", Table: "users"}, rels[0])
}
