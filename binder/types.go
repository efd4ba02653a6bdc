// Package binder implements C4, the variable binder and SQL transformer — the
// hardest piece of the pipeline per spec.md §2. It turns a `{{name}}`-templated
// statement and a set of variable values into dialect-specific parameterized SQL in
// four fixed stages (wildcard rewriting, PostgreSQL interval rewriting, safe quote
// stripping, placeholder substitution), with type inference and casting along the way.
package binder

import "github.com/lotusdb/lotus/config"

// VarType is the tagged variant from spec.md §3: `type ∈ {text, number, integer,
// date, datetime, time, boolean, json}`, plus `uuid`, and `array` for PostgreSQL-only
// array variables.
type VarType string

const (
	TypeText     VarType = "text"
	TypeNumber   VarType = "number"
	TypeInteger  VarType = "integer"
	TypeDate     VarType = "date"
	TypeDateTime VarType = "datetime"
	TypeTime     VarType = "time"
	TypeBoolean  VarType = "boolean"
	TypeJSON     VarType = "json"
	TypeUUID     VarType = "uuid"
	TypeArray    VarType = "array"
)

// VariableSpec declares one named variable a statement may reference, per spec.md §3
// "Query specification (input)".
type VariableSpec struct {
	Name          string
	Type          VarType
	Default       *string
	Widget        string
	StaticOptions []string
	OptionsQuery  string
	// ElementType is the declared type of each element when Type == TypeArray.
	ElementType VarType
}

// TypeResolver looks up the schema-cache-backed type for a column a variable appears
// to bind to, letting C4's type inference step (spec.md §4.4) consult C3 without this
// package importing it directly. Runner wires this to schema.Cache.Get for the table
// named by Query.TableHint (and passes nil when no hint is given). A false return
// means "no inference available",
// which spec.md marks non-fatal: the declared/default type is used instead.
type TypeResolver func(column string) (dialectType string, ok bool)

// Bound is the result of Bind: dialect-ready SQL plus positional parameter values, in
// the same order as the SQL's placeholders.
type Bound struct {
	SQL    string
	Params []any
}

// dialectFeatures is the subset of dialect.Dialect that Stage B (PostgreSQL interval
// rewriting) needs; declared locally to avoid an import cycle (dialect does not need
// to know about binder).
type dialectFeatures interface {
	Name() config.Dialect
	// Placeholder returns the positional placeholder text for argument index i,
	// optionally wrapped in a dialect-native cast for varType (one of the VarType
	// string values, e.g. "integer", "date"; empty or unrecognized means no cast),
	// per spec.md §6's `placeholder(index, name, type)` external interface.
	Placeholder(i int, name, varType string) string
	Supports(feature string) bool
}
