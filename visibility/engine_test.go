package visibility

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lotusdb/lotus/config"
)

func TestBuiltinSchemaDenyCannotBeOverridden(t *testing.T) {
	e := New(config.DialectPostgres, config.RuleSet{
		Schema: config.SchemaRuleSet{Allow: []config.Pattern{config.Exact("pg_catalog")}},
	})
	assert.False(t, e.SchemaAllowed("pg_catalog"))
	assert.False(t, e.SchemaAllowed("pg_temp_1"))
}

func TestSchemaDefaultAllowWhenNoRules(t *testing.T) {
	e := New(config.DialectPostgres, config.RuleSet{})
	assert.True(t, e.SchemaAllowed("public"))
}

func TestSchemaAllowGatesOthers(t *testing.T) {
	e := New(config.DialectPostgres, config.RuleSet{
		Schema: config.SchemaRuleSet{Allow: []config.Pattern{config.Exact("public")}},
	})
	assert.True(t, e.SchemaAllowed("public"))
	assert.False(t, e.SchemaAllowed("other"))
}

func TestBuiltinTableDenyAlwaysApplies(t *testing.T) {
	e := New(config.DialectPostgres, config.RuleSet{})
	assert.False(t, e.TableAllowed("public", "schema_migrations"))
	assert.False(t, e.TableAllowed("public", "lotus_queries"))
	assert.False(t, e.TableAllowed("public", "lotus_dashboards_v2"))
}

func TestTableDenyWinsOverAllow(t *testing.T) {
	e := New(config.DialectPostgres, config.RuleSet{
		Table: config.TableRuleSet{
			Allow: []config.TableRule{config.BareTable(config.Exact("secrets"))},
			Deny:  []config.TableRule{config.BareTable(config.Exact("secrets"))},
		},
	})
	assert.False(t, e.TableAllowed("public", "secrets"))
}

func TestTableDefaultDenyWhenAllowRuleScopesSchema(t *testing.T) {
	e := New(config.DialectPostgres, config.RuleSet{
		Table: config.TableRuleSet{
			Allow: []config.TableRule{config.QualifiedTable(config.Exact("public"), config.Exact("users"))},
		},
	})
	assert.True(t, e.TableAllowed("public", "users"))
	assert.False(t, e.TableAllowed("public", "orders")) // not explicitly allowed -> default-deny
	assert.True(t, e.TableAllowed("reporting", "orders"))
}

func TestBareTableRuleMatchesAnySchema(t *testing.T) {
	e := New(config.DialectPostgres, config.RuleSet{
		Table: config.TableRuleSet{Deny: []config.TableRule{config.BareTable(config.Exact("api_keys"))}},
	})
	assert.False(t, e.TableAllowed("public", "api_keys"))
	assert.False(t, e.TableAllowed("auth", "api_keys"))
}

func TestColumnPolicyPrecedence(t *testing.T) {
	e := New(config.DialectPostgres, config.RuleSet{
		Column: []config.ColumnRule{
			{Scope: config.ColumnScope{Column: "email"}, Policy: config.ColumnPolicy{Action: config.ActionMask, Mask: config.MaskStrategy{Kind: config.MaskNull}}},
			{Scope: config.ColumnScope{Table: "users", Column: "email"}, Policy: config.ColumnPolicy{Action: config.ActionOmit}},
			{Scope: config.ColumnScope{Schema: "public", Table: "users", Column: "email"}, Policy: config.ColumnPolicy{Action: config.ActionError}},
		},
	})

	p := e.ColumnPolicy("reporting", "accounts", "email")
	assert.Equal(t, config.ActionMask, p.Action)

	p = e.ColumnPolicy("reporting", "users", "email")
	assert.Equal(t, config.ActionOmit, p.Action)

	p = e.ColumnPolicy("public", "users", "email")
	assert.Equal(t, config.ActionError, p.Action)
}

func TestColumnPolicyDefaultsToAllow(t *testing.T) {
	e := New(config.DialectPostgres, config.RuleSet{})
	p := e.ColumnPolicy("public", "users", "id")
	assert.Equal(t, config.ActionAllow, p.Action)
	assert.True(t, p.ShowInSchema)
}

func TestSQLiteBuiltinDeny(t *testing.T) {
	e := New(config.DialectSQLite, config.RuleSet{})
	assert.False(t, e.TableAllowed("", "sqlite_master"))
	assert.False(t, e.TableAllowed("", "sqlite_stat1"))
	assert.True(t, e.TableAllowed("", "users"))
}
