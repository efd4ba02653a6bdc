// Package visibility implements C2: a pure function over (backend, schema, table,
// column) and the configured RuleSet. It never touches the database — evaluation is
// total and side-effect-free, matching spec.md §4.2's "the engine never reads the
// database" invariant.
package visibility

import (
	"github.com/lotusdb/lotus/config"
)

// Engine evaluates visibility decisions for one backend's rule set.
type Engine struct {
	dialect config.Dialect
	rules   config.RuleSet
}

// New builds an Engine for a backend's dialect and configured rules.
func New(dialect config.Dialect, rules config.RuleSet) *Engine {
	return &Engine{dialect: dialect, rules: rules}
}

// SchemaAllowed reports whether schema is visible at all: built-in denies always
// apply, then configured deny wins, then configured allow (absence of allow rules
// means "no schema gate").
func (e *Engine) SchemaAllowed(schema string) bool {
	for _, p := range builtinSchemaDeny[e.dialect] {
		if p.Match(schema) {
			return false
		}
	}
	for _, p := range e.rules.Schema.Deny {
		if p.Match(schema) {
			return false
		}
	}
	if len(e.rules.Schema.Allow) == 0 {
		return true
	}
	for _, p := range e.rules.Schema.Allow {
		if p.Match(schema) {
			return true
		}
	}
	return false
}

// TableAllowed reports whether (schema, table) is visible, implementing spec.md
// §4.2 steps 1–3: schema gating, built-in + configured table deny, then default-deny
// (if any allow rule could target the schema) vs default-allow.
func (e *Engine) TableAllowed(schema, table string) bool {
	if !e.SchemaAllowed(schema) {
		return false
	}

	for _, r := range builtinTableDeny {
		if r.Matches(schema, table) {
			return false
		}
	}
	if e.dialect == config.DialectSQLite {
		for _, r := range builtinSQLiteTableDeny {
			if r.Matches(schema, table) {
				return false
			}
		}
	}
	for _, r := range e.rules.Table.Deny {
		if r.Matches(schema, table) {
			return false
		}
	}

	if len(e.rules.Table.Allow) == 0 {
		return true
	}

	schemaHasAllowRule := false
	for _, r := range e.rules.Table.Allow {
		if r.Bare || r.Schema.Match(schema) {
			schemaHasAllowRule = true
			break
		}
	}
	if !schemaHasAllowRule {
		return true // default-allow: no allow rule even attempts to scope this schema
	}

	for _, r := range e.rules.Table.Allow {
		if r.Matches(schema, table) {
			return true
		}
	}
	return false
}

// ColumnPolicy resolves the effective policy for (schema, table, column), walking
// rules most-specific first per spec.md §4.2 step 4. Unmatched columns default to
// ActionAllow.
func (e *Engine) ColumnPolicy(schema, table, column string) config.ColumnPolicy {
	best := -1
	var policy config.ColumnPolicy
	found := false

	for _, rule := range e.rules.Column {
		if rule.Scope.Column != column {
			continue
		}
		if rule.Scope.Table != "" && rule.Scope.Table != table {
			continue
		}
		if rule.Scope.Schema != "" && rule.Scope.Schema != schema {
			continue
		}
		spec := rule.Scope.Specificity()
		if spec > best {
			best = spec
			policy = rule.Policy
			found = true
		}
	}

	if !found {
		return config.ColumnPolicy{Action: config.ActionAllow, ShowInSchema: true}
	}
	return policy
}
