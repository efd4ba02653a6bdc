package schema

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotusdb/lotus/config"
	"github.com/lotusdb/lotus/dialect"
	"github.com/lotusdb/lotus/visibility"
)

type fakeInspector struct {
	columns  []Column
	schemas  []string
	tables   map[string][]TableRef
	rowCount int64
}

func (f fakeInspector) Columns(context.Context, dialect.Session, string, string) ([]Column, error) {
	return f.columns, nil
}
func (f fakeInspector) Schemas(context.Context, dialect.Session) ([]string, error) {
	return f.schemas, nil
}
func (f fakeInspector) Tables(_ context.Context, _ dialect.Session, schemaName string) ([]TableRef, error) {
	return f.tables[schemaName], nil
}
func (f fakeInspector) RowCount(context.Context, dialect.Session, string, string) (int64, error) {
	return f.rowCount, nil
}

func testEngine(insp Inspector) *Engine {
	reg := &Registry{inspectors: map[config.Dialect]Inspector{config.DialectPostgres: insp}}
	return NewEngine(reg, NewCache(time.Minute))
}

func TestEngineListSchemasFiltersByVisibility(t *testing.T) {
	insp := fakeInspector{schemas: []string{"public", "internal"}}
	e := testEngine(insp)
	rules := config.RuleSet{Schema: config.SchemaRuleSet{Deny: []config.Pattern{config.Exact("internal")}}}
	vis := visibility.New(config.DialectPostgres, rules)

	got, err := e.ListSchemas(context.Background(), config.DialectPostgres, nil, vis)
	require.NoError(t, err)
	assert.Equal(t, []string{"public"}, got)
}

func TestEngineListTablesFiltersDeniedTables(t *testing.T) {
	insp := fakeInspector{
		schemas: []string{"public"},
		tables: map[string][]TableRef{
			"public": {{Schema: "public", Table: "users"}, {Schema: "public", Table: "secrets"}},
		},
	}
	e := testEngine(insp)
	rules := config.RuleSet{Table: config.TableRuleSet{Deny: []config.TableRule{config.BareTable(config.Exact("secrets"))}}}
	vis := visibility.New(config.DialectPostgres, rules)

	got, err := e.ListTables(context.Background(), config.DialectPostgres, nil, vis, ListTablesOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "users", got[0].Table)
}

func TestEngineGetTableSchemaOmitsAndAnnotates(t *testing.T) {
	insp := fakeInspector{columns: []Column{
		{Name: "id", Type: "integer"},
		{Name: "ssn", Type: "text"},
		{Name: "email", Type: "text"},
	}}
	e := testEngine(insp)
	rules := config.RuleSet{Column: []config.ColumnRule{
		{Scope: config.ColumnScope{Column: "ssn"}, Policy: config.ColumnPolicy{Action: config.ActionOmit}},
		{Scope: config.ColumnScope{Column: "email"}, Policy: config.ColumnPolicy{Action: config.ActionMask, Mask: config.MaskStrategy{Kind: config.MaskFixed, FixedValue: "***"}}},
	}}
	vis := visibility.New(config.DialectPostgres, rules)

	cols, err := e.GetTableSchema(context.Background(), config.DialectPostgres, nil, vis, "main", "public", "users")
	require.NoError(t, err)
	require.Len(t, cols, 2) // ssn omitted
	assert.Equal(t, "id", cols[0].Name)
	assert.Nil(t, cols[0].Visibility)
	assert.Equal(t, "email", cols[1].Name)
	require.NotNil(t, cols[1].Visibility)
	assert.Equal(t, config.ActionMask, cols[1].Visibility.Action)
}

func TestEngineGetTableSchemaRejectsHiddenTable(t *testing.T) {
	e := testEngine(fakeInspector{})
	rules := config.RuleSet{Table: config.TableRuleSet{Deny: []config.TableRule{config.BareTable(config.Exact("secrets"))}}}
	vis := visibility.New(config.DialectPostgres, rules)

	_, err := e.GetTableSchema(context.Background(), config.DialectPostgres, nil, vis, "main", "public", "secrets")
	assert.Error(t, err)
}

func TestEngineGetTableStats(t *testing.T) {
	e := testEngine(fakeInspector{rowCount: 42})
	vis := visibility.New(config.DialectPostgres, config.RuleSet{})

	stats, err := e.GetTableStats(context.Background(), config.DialectPostgres, nil, vis, "public", "users")
	require.NoError(t, err)
	assert.Equal(t, int64(42), stats.RowCount)
}
