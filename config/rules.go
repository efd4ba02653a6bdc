package config

// Dialect identifies the SQL dialect a backend speaks. Feature flags in
// dialect.Dialect are derived from this value at registration time.
type Dialect string

const (
	DialectPostgres  Dialect = "postgres"
	DialectMySQL     Dialect = "mysql"
	DialectSQLite    Dialect = "sqlite"
	DialectSQLServer Dialect = "sql_server"
	DialectOther     Dialect = "other"
)

// Backend describes one configured connection handle to a target database.
type Backend struct {
	Name    string
	Dialect Dialect
	DSN     string
}

// TableRule is either a bare table name (matches the table in any schema) or a
// schema-qualified pair, per spec.md §3 "Visibility rule set".
type TableRule struct {
	Schema Pattern // zero value (patternExact "") + Bare==true means "any schema"
	Table  Pattern
	Bare   bool
}

// BareTable builds a TableRule that matches table in any schema.
func BareTable(table Pattern) TableRule {
	return TableRule{Table: table, Bare: true}
}

// QualifiedTable builds a TableRule scoped to a specific schema pattern.
func QualifiedTable(schema, table Pattern) TableRule {
	return TableRule{Schema: schema, Table: table}
}

// Matches reports whether the rule matches the given schema/table pair.
func (r TableRule) Matches(schema, table string) bool {
	if !r.Table.Match(table) {
		return false
	}
	if r.Bare {
		return true
	}
	return r.Schema.Match(schema)
}

// SchemaRuleSet is the allow/deny pattern list gating which schemas are visible at
// all, per spec.md §4.2 step 1.
type SchemaRuleSet struct {
	Allow []Pattern
	Deny  []Pattern
}

// TableRuleSet is the allow/deny rule list gating which tables are visible within an
// already-gated schema, per spec.md §4.2 steps 2–3.
type TableRuleSet struct {
	Allow []TableRule
	Deny  []TableRule
}

// ColumnAction is the tagged variant from spec.md §3 "Column policy".
type ColumnAction string

const (
	ActionAllow ColumnAction = "allow"
	ActionOmit  ColumnAction = "omit"
	ActionError ColumnAction = "error"
	ActionMask  ColumnAction = "mask"
)

// MaskKind selects the masking strategy when ColumnAction is ActionMask.
type MaskKind string

const (
	MaskNull    MaskKind = "null"
	MaskSHA256  MaskKind = "sha256"
	MaskFixed   MaskKind = "fixed"
	MaskPartial MaskKind = "partial"
)

// MaskStrategy configures how a masked column's value is replaced.
type MaskStrategy struct {
	Kind        MaskKind
	FixedValue  string // MaskFixed
	KeepFirst   int    // MaskPartial
	KeepLast    int    // MaskPartial
	Replacement string // MaskPartial, default "*"
}

// ColumnPolicy is the effective action plus masking configuration for one column.
type ColumnPolicy struct {
	Action       ColumnAction
	Mask         MaskStrategy
	ShowInSchema bool // whether an omit/error column still appears in introspection
}

// ColumnScope is one of the three scope shapes from spec.md §3: (schema,table,column),
// (table,column), or (column). Empty Schema/Table fields mean "unscoped at this level".
type ColumnScope struct {
	Schema string
	Table  string
	Column string
}

// Specificity returns higher for more specific scopes, used to order rules so the
// most specific match wins per spec.md §4.2 step 4.
func (s ColumnScope) Specificity() int {
	n := 0
	if s.Schema != "" {
		n += 4
	}
	if s.Table != "" {
		n += 2
	}
	return n
}

// ColumnRule binds a scope to a policy. Rules are walked most-specific first.
type ColumnRule struct {
	Scope  ColumnScope
	Policy ColumnPolicy
}

// RuleSet bundles the three rule layers for one backend (or the "default" fallback).
type RuleSet struct {
	Schema SchemaRuleSet
	Table  TableRuleSet
	Column []ColumnRule
}
